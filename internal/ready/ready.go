// Package ready decides whether an assistant instance is able to accept
// new input, from nothing but its rendered pane content.
//
// Terminal output is inherently ambiguous, so the probe is an ordered
// fallback chain tuned so that a false "ready" (input lost into a busy
// assistant) is rarer than a false "not ready" (caller retries later).
package ready

import (
	"context"
	"strings"
	"time"

	"github.com/timvw/pane-relay/internal/mux"
)

// Status is the probe outcome for one pane.
type Status struct {
	Ready bool
	// Reason explains a not-ready verdict in human terms
	// ("In workspace selection menu", "has existing content", ...).
	// Empty when Ready is true.
	Reason string
}

// Prober captures a bounded tail of pane content and evaluates it.
type Prober struct {
	Mux mux.Multiplexer
	// CaptureLines bounds how much rendered content is inspected.
	CaptureLines int
	// Timeout bounds each capture call; a timed-out capture is a
	// negative result, not an error.
	Timeout time.Duration
}

// NewProber creates a prober with default bounds.
func NewProber(m mux.Multiplexer) *Prober {
	return &Prober{Mux: m, CaptureLines: 40, Timeout: 3 * time.Second}
}

// Check captures the pane and evaluates readiness. Capture failures and
// timeouts report not ready rather than an error: delivery defers, the
// operation does not abort.
func (p *Prober) Check(ctx context.Context, target string) Status {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := p.Mux.CapturePane(ctx, target, p.CaptureLines)
	if err != nil {
		return Status{Ready: false, Reason: "cannot capture pane content"}
	}
	return Evaluate(content)
}

// Evaluate applies the ordered readiness rules to captured content:
//
//  1. an empty input prompt is ready;
//  2. known blocking indicators (menus, confirmations, spinners,
//     update checks) are not ready, with a reason;
//  3. an input box that already holds text is not ready;
//  4. intact prompt borders with none of the above are optimistically
//     ready;
//  5. anything else is indeterminate, reported not ready.
func Evaluate(content string) Status {
	lines := strings.Split(content, "\n")
	bottom := bottomNonEmpty(lines, bottomLines)

	if hasEmptyPrompt(bottom) {
		// Even with an empty prompt visible, an active blocker above it
		// (dialog, spinner) means input would be misdirected.
		if reason := blockingReason(bottom); reason != "" {
			return Status{Ready: false, Reason: reason}
		}
		return Status{Ready: true}
	}

	if reason := blockingReason(bottom); reason != "" {
		return Status{Ready: false, Reason: reason}
	}

	if hasPromptWithContent(bottom) {
		return Status{Ready: false, Reason: "has existing content"}
	}

	// Prompt borders intact but nothing matched above: the input box
	// structure is there, trust it.
	if hasPromptBorder(bottom) {
		return Status{Ready: true}
	}

	return Status{Ready: false, Reason: "cannot determine state"}
}
