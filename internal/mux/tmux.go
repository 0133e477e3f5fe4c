package mux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// paneFormat is the list-panes field order. Fields are space-delimited;
// tmux substitutes values verbatim, so no field may contain a space
// except the trailing path, which is why path comes last and the line
// is split with a bounded SplitN.
const paneFormat = "#{pane_id} #{session_name} #{window_name} #{window_index} #{pane_index} #{pane_current_command} #{pane_pid} #{pane_current_path}"

// Tmux implements the Multiplexer interface for tmux.
type Tmux struct{}

// NewTmux creates a new tmux multiplexer.
func NewTmux() *Tmux {
	return &Tmux{}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// ListPanes returns a snapshot of all tmux panes. When the server is not
// running (or no panes exist) it returns an empty slice, not an error.
func (t *Tmux) ListPanes(ctx context.Context) ([]model.Pane, error) {
	out, err := t.run(ctx, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		// No server means no panes. Callers arbitrate on an empty
		// candidate set; they must not abort.
		if isNoServer(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-panes: %w", err)
	}

	var panes []model.Pane
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		pane, err := parsePaneLine(line)
		if err != nil {
			continue
		}
		panes = append(panes, pane)
	}
	return panes, nil
}

// CapturePane captures the last lines rows of rendered content.
// Uses -p (stdout) and -e disabled: we want plain text including
// box-drawing glyphs, without escape sequences.
func (t *Tmux) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	if lines <= 0 {
		lines = 40
	}
	out, err := t.run(ctx, "capture-pane", "-t", target, "-p", "-S", "-"+strconv.Itoa(lines))
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane -t %s: %w", target, err)
	}
	return out, nil
}

// PaneExists reports whether paneID is present in the current pane table.
func (t *Tmux) PaneExists(ctx context.Context, paneID string) (bool, error) {
	out, err := t.run(ctx, "list-panes", "-a", "-F", "#{pane_id}")
	if err != nil {
		if isNoServer(err) {
			return false, nil
		}
		return false, fmt.Errorf("tmux list-panes: %w", err)
	}
	for _, id := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(id) == paneID {
			return true, nil
		}
	}
	return false, nil
}

// NewWindow creates a detached window running command, rooted at dir,
// and returns its initial pane snapshot. -P -F prints the new pane with
// the same field order as ListPanes, so creation is captured
// synchronously with the created identifiers.
func (t *Tmux) NewWindow(ctx context.Context, name, dir, command string) (model.Pane, error) {
	args := []string{"new-window", "-d", "-n", name, "-P", "-F", paneFormat}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if command != "" {
		args = append(args, command)
	}
	out, err := t.run(ctx, args...)
	if err != nil {
		return model.Pane{}, fmt.Errorf("tmux new-window: %w", err)
	}
	return parsePaneLine(strings.TrimSpace(out))
}

// RenameWindow sets the display name of the window owning target.
func (t *Tmux) RenameWindow(ctx context.Context, target, name string) error {
	_, err := t.run(ctx, "rename-window", "-t", target, name)
	return err
}

// SelectWindow focuses the window owning target.
func (t *Tmux) SelectWindow(ctx context.Context, target string) error {
	_, err := t.run(ctx, "select-window", "-t", target)
	return err
}

// SelectPane focuses the pane addressed by target.
func (t *Tmux) SelectPane(ctx context.Context, target string) error {
	_, err := t.run(ctx, "select-pane", "-t", target)
	return err
}

// relayBuffer is the named transfer buffer used for payload delivery.
// Named (rather than the automatic buffer stack) so delete-buffer cannot
// race with user copy-mode buffers.
const relayBuffer = "pane-relay"

// Paste loads content into the transfer buffer from stdin, pastes it
// into the target pane, then deletes the buffer. A load failure is
// wrapped in LoadError so callers skip retries; paste failures are
// returned plain and are retryable.
func (t *Tmux) Paste(ctx context.Context, target, content string) error {
	cmd := exec.CommandContext(ctx, "tmux", "load-buffer", "-b", relayBuffer, "-")
	cmd.Stdin = strings.NewReader(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &LoadError{Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))}
	}

	if _, err := t.run(ctx, "paste-buffer", "-b", relayBuffer, "-t", target); err != nil {
		// Best-effort cleanup; the paste already failed.
		_, _ = t.run(ctx, "delete-buffer", "-b", relayBuffer)
		return fmt.Errorf("tmux paste-buffer -t %s: %w", target, err)
	}

	_, _ = t.run(ctx, "delete-buffer", "-b", relayBuffer)
	return nil
}

// SendKeys sends a key sequence to the target pane. literal uses -l so
// tmux does not interpret key names in the text.
func (t *Tmux) SendKeys(ctx context.Context, target, keys string, literal bool) error {
	args := []string{"send-keys", "-t", target}
	if literal {
		args = append(args, "-l", "--")
	}
	args = append(args, keys)
	_, err := t.run(ctx, args...)
	return err
}

// CurrentSession returns the session of the attached client, or "" when
// the process is not running inside tmux.
func (t *Tmux) CurrentSession(ctx context.Context) string {
	if os.Getenv("TMUX") == "" {
		return ""
	}
	out, err := t.run(ctx, "display-message", "-p", "#{session_name}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// run executes a tmux command and returns its stdout.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// isNoServer recognizes the tmux "no server" failure modes, which all
// mean the same thing for discovery: zero panes.
func isNoServer(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "error connecting to") ||
		strings.Contains(msg, "no sessions") ||
		strings.Contains(msg, "executable file not found")
}

// parsePaneLine parses one list-panes output line in paneFormat order.
// The first seven fields contain no spaces; everything after them is the
// pane path, which may.
func parsePaneLine(line string) (model.Pane, error) {
	parts := strings.SplitN(line, " ", 8)
	if len(parts) != 8 {
		return model.Pane{}, fmt.Errorf("malformed pane line %q", line)
	}

	windowIndex, err := strconv.Atoi(parts[3])
	if err != nil {
		return model.Pane{}, fmt.Errorf("invalid window index in %q: %w", line, err)
	}
	paneIndex, err := strconv.Atoi(parts[4])
	if err != nil {
		return model.Pane{}, fmt.Errorf("invalid pane index in %q: %w", line, err)
	}
	pid, err := strconv.Atoi(parts[6])
	if err != nil {
		return model.Pane{}, fmt.Errorf("invalid pane pid in %q: %w", line, err)
	}

	return model.Pane{
		ID:          parts[0],
		Session:     parts[1],
		WindowName:  parts[2],
		WindowIndex: windowIndex,
		PaneIndex:   paneIndex,
		Command:     parts[5],
		PID:         pid,
		Path:        strings.TrimSpace(parts[7]),
	}, nil
}
