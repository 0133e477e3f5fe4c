// Package classify decides which multiplexer panes host a live assistant
// instance bound to a repository root.
//
// Every signal here is scraped: process tables, pane metadata, rendered
// terminal content. None of it is authoritative, so classification is an
// ordered chain of heuristics with a fixed confidence ranking rather
// than a single boolean predicate. Each acceptance and rejection path
// is independently testable and the priority rule is explicit.
package classify

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
	"github.com/timvw/pane-relay/internal/proc"
	"github.com/timvw/pane-relay/internal/ready"
)

// runtimeHosts are generic interpreters that hide the real program name
// from simple process listings. Many launchers execute under one of
// these, so a pane showing "node" may well be the assistant.
var runtimeHosts = map[string]bool{
	"node": true,
	"bun":  true,
	"deno": true,
}

// denyList excludes common non-assistant commands from the aggressive
// fallback pass. A pane in the right directory running one of these is
// an editor, shell, or tool, not an assistant.
var denyList = map[string]bool{
	"vim": true, "nvim": true, "vi": true, "emacs": true, "nano": true,
	"bash": true, "zsh": true, "fish": true, "sh": true,
	"git": true, "tig": true, "htop": true, "top": true,
	"less": true, "more": true, "man": true, "ssh": true,
	"python": true, "python3": true, "go": true, "make": true,
	"docker": true, "kubectl": true,
}

// vendorTokens identify the launcher in a full command line during the
// aggressive fallback pass.
var vendorTokens = []string{"claude", "anthropic"}

// Classifier applies the detection heuristics to panes.
type Classifier struct {
	Mux mux.Multiplexer
	// Procs is a process table snapshot taken once per operation.
	Procs proc.Table
	// Launcher is the assistant launcher command name (e.g., "claude").
	Launcher string
	// WindowName is the canonical window display name for assistant
	// windows. Confirmed candidates get renamed to it (best-effort).
	WindowName string
	// CurrentSession marks candidates in the invoking client's session.
	CurrentSession string
	// CaptureLines bounds the rendered-prompt probe capture.
	CaptureLines int
	// ProbeTimeout bounds each capture call.
	ProbeTimeout time.Duration
}

// New creates a classifier with default probe bounds.
func New(m mux.Multiplexer, procs proc.Table, launcher, windowName string) *Classifier {
	return &Classifier{
		Mux:          m,
		Procs:        procs,
		Launcher:     launcher,
		WindowName:   windowName,
		CaptureLines: 40,
		ProbeTimeout: 3 * time.Second,
	}
}

// Classify decides whether pane hosts an assistant bound to root.
// Returns nil when it does not. The decision is pure with respect to
// the pane/process snapshot: repeated calls on unchanged inputs yield
// the same method and outcome.
func (c *Classifier) Classify(ctx context.Context, pane model.Pane, root string) *model.Candidate {
	// Strict root isolation: the pane's working directory must equal
	// the repository root exactly. An assistant in a subdirectory is a
	// distinct instance. tmux occasionally reports an empty path; before
	// rejecting, resolve the foreground process's cwd directly.
	path := pane.Path
	if path == "" && c.Procs != nil {
		path = c.Procs.WorkingDir(pane.PID)
	}
	if !samePath(path, root) {
		return nil
	}

	method := model.MethodNone

	switch {
	case pane.Command == c.Launcher:
		method = model.MethodExactCommand
	case strings.HasSuffix(pane.Command, "/"+c.Launcher):
		method = model.MethodPathMatch
	case runtimeHosts[pane.Command]:
		// The launcher runs under a generic runtime host; the pane's
		// foreground command says nothing. Look for a direct child
		// literally named after the launcher.
		if c.hasLauncherChild(pane.PID) {
			method = model.MethodChildProcess
		}
	}

	// The rendered-prompt probe always runs after a name-based match to
	// obtain the highest-priority confirmation. It only upgrades: a
	// bordered pane with no name evidence is the fallback pass's
	// territory, and a matched pane without a border may simply still
	// be booting.
	content, probed := c.probe(ctx, pane.ID)
	if method != model.MethodNone && probed && ready.HasPromptBorder(content) {
		method = model.MethodRenderedPrompt
	}

	// Window names are user-renamable and unreliable alone: accept one
	// only with some prompt evidence on screen. A weaker marker check
	// suffices here; the full border test already had its chance above.
	if method == model.MethodNone && pane.WindowName == c.WindowName &&
		probed && ready.HasPromptMarker(content) {
		method = model.MethodWindowName
	}
	if method == model.MethodNone {
		return nil
	}

	cand := &model.Candidate{
		Pane:           pane,
		Method:         method,
		CurrentSession: c.CurrentSession != "" && pane.Session == c.CurrentSession,
	}
	if probed {
		cand.LastLine = ready.LastVisibleLine(content)
	}
	return cand
}

// ClassifyAll runs Classify across all panes for root. When no pane
// matches, it runs the aggressive fallback pass. Confirmed candidates
// get their window renamed to the canonical name (idempotent,
// best-effort, never affects the classification outcome).
func (c *Classifier) ClassifyAll(ctx context.Context, panes []model.Pane, root string) []model.Candidate {
	var candidates []model.Candidate
	for _, pane := range panes {
		if cand := c.Classify(ctx, pane, root); cand != nil {
			candidates = append(candidates, *cand)
		}
	}

	if len(candidates) == 0 {
		candidates = c.aggressiveFallback(ctx, panes, root)
	}

	for _, cand := range candidates {
		c.renameWindow(ctx, cand)
	}
	return candidates
}

// aggressiveFallback re-scans root-scoped panes that survived the
// deny-list, accepting any that independently pass the rendered-prompt
// probe or show launcher/vendor tokens in their full command line.
// This exists for launchers wrapped in scripts or version-manager shims
// that defeat every name-based heuristic.
func (c *Classifier) aggressiveFallback(ctx context.Context, panes []model.Pane, root string) []model.Candidate {
	var candidates []model.Candidate
	for _, pane := range panes {
		if !samePath(pane.Path, root) {
			continue
		}
		if denyList[pane.Command] {
			continue
		}

		content, probed := c.probe(ctx, pane.ID)
		accepted := probed && ready.HasPromptBorder(content)
		if !accepted {
			// A vendor-token process only counts when it maps back to
			// this pane, so a wrapper running elsewhere in the process
			// tree cannot claim an unrelated pane.
			if vpid, ok := c.vendorProcess(pane.PID); ok {
				host := FindPaneByPID(panes, c.Procs, vpid)
				accepted = host != nil && host.ID == pane.ID
			}
		}
		if !accepted {
			continue
		}

		cand := model.Candidate{
			Pane:           pane,
			Method:         model.MethodAggressiveFallback,
			CurrentSession: c.CurrentSession != "" && pane.Session == c.CurrentSession,
		}
		if probed {
			cand.LastLine = ready.LastVisibleLine(content)
		}
		candidates = append(candidates, cand)
	}
	return candidates
}

// hasLauncherChild scans direct children of pid for a process literally
// named after the launcher.
func (c *Classifier) hasLauncherChild(pid int) bool {
	if c.Procs == nil {
		return false
	}
	for _, child := range c.Procs.Children(pid) {
		if child.Name() == c.Launcher {
			return true
		}
		// Runtime-hosted launchers show the script path in argv:
		// "node /…/bin/claude".
		for _, f := range strings.Fields(child.CommandLine) {
			if filepath.Base(f) == c.Launcher {
				return true
			}
		}
	}
	return false
}

// vendorProcess scans the pane process and its direct children for
// launcher/vendor tokens in the full command line, returning the
// matching pid.
func (c *Classifier) vendorProcess(pid int) (int, bool) {
	if c.Procs == nil {
		return 0, false
	}
	check := func(cmdline string) bool {
		lower := strings.ToLower(cmdline)
		for _, tok := range vendorTokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
		return false
	}
	if rec := c.Procs.Lookup(pid); rec != nil && check(rec.CommandLine) {
		return pid, true
	}
	for _, child := range c.Procs.Children(pid) {
		if check(child.CommandLine) {
			return child.PID, true
		}
	}
	return 0, false
}

// FindPaneByPID maps a discovered assistant pid back to its hosting
// pane. Both the pane's own pid and the process's parent pid are tried:
// the assistant may be the pane's foreground process or a child of the
// pane's shell.
func FindPaneByPID(panes []model.Pane, table proc.Table, pid int) *model.Pane {
	for i := range panes {
		if panes[i].PID == pid {
			return &panes[i]
		}
	}
	if table == nil {
		return nil
	}
	if rec := table.Lookup(pid); rec != nil {
		for i := range panes {
			if panes[i].PID == rec.PPID {
				return &panes[i]
			}
		}
	}
	return nil
}

// probe captures the pane's recent rendered content. A capture failure
// or timeout is a negative probe, never an error.
func (c *Classifier) probe(ctx context.Context, target string) (string, bool) {
	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := c.Mux.CapturePane(ctx, target, c.CaptureLines)
	if err != nil {
		return "", false
	}
	return content, true
}

// renameWindow renames a confirmed candidate's window to the canonical
// name. Window-name matches are skipped (the name is already canonical
// by definition of the match), as are windows already carrying it.
func (c *Classifier) renameWindow(ctx context.Context, cand model.Candidate) {
	if c.WindowName == "" || cand.Method == model.MethodWindowName {
		return
	}
	if cand.Pane.WindowName == c.WindowName {
		return
	}
	_ = c.Mux.RenameWindow(ctx, cand.Pane.ID, c.WindowName)
}

// samePath compares two directories for exact equality after cleaning.
// No prefix matching: subdirectories are other instances' territory.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
