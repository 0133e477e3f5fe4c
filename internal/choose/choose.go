// Package choose presents an ambiguous candidate set to the user and
// returns exactly one selection: an existing instance or "create new".
// On a TTY it runs a small bubbletea picker; otherwise it falls back to
// a numeric prompt on stderr/stdin.
package choose

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/route"
)

// TUI is the interactive chooser. It implements route.Chooser.
type TUI struct {
	// In and Out override the terminal streams, mainly for tests.
	// Defaults: stdin and stderr (stdout may carry JSON results).
	In  *os.File
	Out *os.File
}

// New creates a chooser on the default terminal streams.
func New() *TUI {
	return &TUI{In: os.Stdin, Out: os.Stderr}
}

// Choose presents candidates (already ordered by the caller) plus a
// "create new" entry. Cancelling returns route.ErrCancelled.
func (t *TUI) Choose(ctx context.Context, candidates []model.Candidate) (*model.Candidate, bool, error) {
	in, out := t.In, t.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}

	if !isTerminal(in) || !isTerminal(out) {
		return t.prompt(in, out, candidates)
	}

	m := newPickerModel(candidates)
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := prog.Run()
	if err != nil {
		return nil, false, fmt.Errorf("running picker: %w", err)
	}

	picked := final.(pickerModel)
	if picked.cancelled {
		return nil, false, route.ErrCancelled
	}
	if picked.cursor == len(candidates) {
		return nil, true, nil
	}
	return &candidates[picked.cursor], false, nil
}

// prompt is the non-TTY fallback: a numbered list on out, one line read
// from in. "n" creates a new instance; empty input or EOF cancels.
func (t *TUI) prompt(in, out *os.File, candidates []model.Candidate) (*model.Candidate, bool, error) {
	fmt.Fprintf(out, "Multiple assistant instances match:\n")
	for i, c := range candidates {
		fmt.Fprintf(out, "  %d. %s\n", i+1, describe(c))
	}
	fmt.Fprintf(out, "  n. Create a new instance\n")
	fmt.Fprintf(out, "Choice [1-%d/n]: ", len(candidates))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return nil, false, route.ErrCancelled
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return nil, false, route.ErrCancelled
	}
	if answer == "n" || answer == "N" {
		return nil, true, nil
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(candidates) {
		return nil, false, fmt.Errorf("invalid choice %q", answer)
	}
	return &candidates[idx-1], false, nil
}

// describe renders one candidate line for display.
func describe(c model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", c.Pane.Target(), c.Method)
	if c.CurrentSession {
		b.WriteString(" (current session)")
	}
	if c.Summary != "" {
		fmt.Fprintf(&b, " - %s", c.Summary)
	} else if c.LastLine != "" {
		fmt.Fprintf(&b, " - %s", c.LastLine)
	}
	return b.String()
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
