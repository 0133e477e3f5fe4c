// Package mux provides an abstraction over terminal multiplexers (tmux,
// zellij).
//
// This package is pure transport. It captures observable reality (pane
// topology, rendered content) and performs pane I/O primitives (buffer
// paste, window creation, focus) without interpreting any of it. All
// classification and arbitration lives above it.
package mux

import (
	"context"

	"github.com/timvw/pane-relay/internal/model"
)

// Multiplexer abstracts terminal multiplexer operations.
// Implementations exist for tmux and (future) zellij.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// ListPanes returns a snapshot of all panes across all sessions.
	// A missing server or zero panes yields an empty slice and nil error:
	// callers must treat "no panes" as zero candidates, never as fatal.
	ListPanes(ctx context.Context) ([]model.Pane, error)

	// CapturePane captures the last lines rows of rendered pane content,
	// including non-ASCII box-drawing glyphs used for prompt detection.
	// target accepts a pane ID ("%3") or a session:window.pane address.
	CapturePane(ctx context.Context, target string, lines int) (string, error)

	// PaneExists reports whether the pane ID is present in the current
	// pane table.
	PaneExists(ctx context.Context, paneID string) (bool, error)

	// NewWindow creates a window named name, rooted at dir, running
	// command, and returns a snapshot of its initial pane.
	NewWindow(ctx context.Context, name, dir, command string) (model.Pane, error)

	// RenameWindow sets the display name of the window owning target.
	RenameWindow(ctx context.Context, target, name string) error

	// SelectWindow focuses the window owning target.
	SelectWindow(ctx context.Context, target string) error

	// SelectPane focuses the pane addressed by target.
	SelectPane(ctx context.Context, target string) error

	// Paste transfers content into the target pane via a named transfer
	// buffer: load, paste, delete. LoadError distinguishes a local
	// buffer-load failure (not retryable) from a paste failure (retryable).
	Paste(ctx context.Context, target, content string) error

	// SendKeys sends a literal key sequence to the target pane.
	SendKeys(ctx context.Context, target, keys string, literal bool) error

	// CurrentSession returns the session the invoking client is attached
	// to, or "" when not running inside the multiplexer.
	CurrentSession(ctx context.Context) string
}

// LoadError marks a buffer-load failure. It indicates a local I/O
// problem rather than transient pane contention, so callers must not
// retry it.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load buffer: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }
