package model

import "strconv"

// Pane is a point-in-time snapshot of one terminal multiplexer pane.
// It is valid only for the duration of a single routing operation:
// any topology change (pane closed, window moved) invalidates it, so
// a Pane must never be stored across operations without re-validation.
type Pane struct {
	// ID is the multiplexer-assigned pane identifier (e.g., "%3").
	// Opaque and unique at a point in time only.
	ID string `json:"id"`
	// Session is the session name.
	Session string `json:"session"`
	// WindowName is the window's display name. User-renamable, so it is
	// never trusted on its own for classification.
	WindowName string `json:"window_name"`
	// WindowIndex is the window index within the session.
	WindowIndex int `json:"window_index"`
	// PaneIndex is the pane index within the window.
	PaneIndex int `json:"pane_index"`
	// Command is the pane's foreground command name (e.g., "node", "zsh").
	Command string `json:"command"`
	// Path is the pane's current working directory.
	Path string `json:"path"`
	// PID is the pane's foreground process ID. This is commonly a shell's
	// pid, not the assistant's; see proc.Table for bridging.
	PID int `json:"pid"`
}

// Target returns the fully qualified session:window.pane address.
// Used as a fallback when the pane ID has changed identity but the
// window persists.
func (p Pane) Target() string {
	return p.Session + ":" + strconv.Itoa(p.WindowIndex) + "." + strconv.Itoa(p.PaneIndex)
}

// DetectionMethod tags the technique by which a pane was classified as
// hosting an assistant instance. The zero value is MethodNone.
type DetectionMethod int

const (
	MethodNone DetectionMethod = iota
	// MethodAggressiveFallback accepted a pane during the last-resort
	// re-scan of root-scoped panes.
	MethodAggressiveFallback
	// MethodWindowName matched the window's display name, confirmed by
	// the rendered-prompt probe.
	MethodWindowName
	// MethodPathMatch matched a command path ending in the launcher name.
	MethodPathMatch
	// MethodExactCommand matched the pane's foreground command name exactly.
	MethodExactCommand
	// MethodChildProcess found a child process named after the launcher
	// under a generic runtime host.
	MethodChildProcess
	// MethodRenderedPrompt recognized the launcher's prompt border glyphs
	// in captured pane content. Highest confidence.
	MethodRenderedPrompt
	// MethodNewlyCreated marks a candidate that this operation provisioned
	// itself. Distinguished so delivery can apply its startup grace delay.
	MethodNewlyCreated
)

var methodNames = map[DetectionMethod]string{
	MethodNone:               "none",
	MethodAggressiveFallback: "aggressive-fallback",
	MethodWindowName:         "window-name-match",
	MethodPathMatch:          "path-match",
	MethodExactCommand:       "exact-command-match",
	MethodChildProcess:       "child-process-match",
	MethodRenderedPrompt:     "rendered-prompt-match",
	MethodNewlyCreated:       "newly-created",
}

func (m DetectionMethod) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so candidates serialize
// with the tag vocabulary rather than integers.
func (m DetectionMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText restores a method from its tag. Unknown tags map to
// MethodNone rather than erroring, so stale persisted state stays
// readable across vocabulary changes.
func (m *DetectionMethod) UnmarshalText(text []byte) error {
	s := string(text)
	for method, name := range methodNames {
		if name == s {
			*m = method
			return nil
		}
	}
	*m = MethodNone
	return nil
}

// Stronger reports whether m outranks other in detection confidence.
// The total order is: rendered-prompt > child-process > exact-command >
// path > window-name > aggressive-fallback.
func (m DetectionMethod) Stronger(other DetectionMethod) bool {
	return m > other
}

// Candidate is a pane classified as hosting an assistant instance bound
// to a repository root.
type Candidate struct {
	Pane   Pane            `json:"pane"`
	Method DetectionMethod `json:"method"`
	// CurrentSession is true when the pane belongs to the session the
	// invoking client is attached to. Used for chooser ordering.
	CurrentSession bool `json:"current_session"`
	// LastLine is the pane's last visible non-empty line, captured during
	// classification. Display only.
	LastLine string `json:"last_line,omitempty"`
	// Summary is an optional AI-generated one-liner describing what the
	// pane is doing. Display only; empty when summaries are disabled or
	// the auxiliary call timed out.
	Summary string `json:"summary,omitempty"`
}

// WorkingContext is the editor-provided unit of context to route. The
// core does not construct or validate it; it is forwarded to payload
// templating as-is.
type WorkingContext struct {
	FilePath       string `json:"file_path"`
	RepositoryRoot string `json:"repository_root"`
	CursorLine     int    `json:"cursor_line"`
	CursorColumn   int    `json:"cursor_column"`
	SelectionText  string `json:"selection_text,omitempty"`
	FileContent    string `json:"file_content,omitempty"`
}

// Reason classifies the outcome of a routing operation.
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonNoRepositoryRoot   Reason = "no_repository_root"
	ReasonMuxUnavailable     Reason = "multiplexer_unavailable"
	ReasonProvisionFailed    Reason = "no_candidates_and_provision_failed"
	ReasonPaneVanished       Reason = "pane_vanished"
	ReasonInstanceNotReady   Reason = "instance_not_ready"
	ReasonDeliveryFailed     Reason = "delivery_failed_after_retries"
	ReasonSelectionCancelled Reason = "ambiguous_selection_cancelled"
)

// Result is the structured outcome reported to consumers. Raw external
// command output is never surfaced directly.
type Result struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
	// Warning carries a partial-success note (e.g., payload delivered but
	// focus switch failed). Only meaningful when OK is true.
	Warning string `json:"warning,omitempty"`
	// Candidate is the instance the operation resolved to, when any.
	Candidate *Candidate `json:"candidate,omitempty"`
}

// Ok returns a success Result.
func Ok(c *Candidate) Result {
	return Result{OK: true, Reason: ReasonOK, Candidate: c}
}

// Fail returns a failure Result with the given reason and message.
func Fail(reason Reason, message string) Result {
	return Result{OK: false, Reason: reason, Message: message}
}
