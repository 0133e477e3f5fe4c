package ready

import (
	"strings"
	"testing"
)

func TestEvaluate_EmptyPromptReady(t *testing.T) {
	content := `
✻ Worked for 2m 10s

╭──────────────────────────────╮
│ >                            │
╰──────────────────────────────╯
  ? for shortcuts
`
	st := Evaluate(content)
	if !st.Ready {
		t.Errorf("expected ready, got not ready: %q", st.Reason)
	}
	if st.Reason != "" {
		t.Errorf("expected empty reason, got %q", st.Reason)
	}
}

func TestEvaluate_WorkspaceMenu(t *testing.T) {
	content := `
Select a workspace

  ❯ 1. /home/u/src/repo
    2. /home/u/src/other
`
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready")
	}
	if st.Reason != "In workspace selection menu" {
		t.Errorf("reason: got %q, want %q", st.Reason, "In workspace selection menu")
	}
}

func TestEvaluate_PressEnter(t *testing.T) {
	content := "Update installed.\nPress Enter to continue\n"
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready")
	}
	if st.Reason == "" {
		t.Error("expected a non-nil reason for a Press Enter banner")
	}
}

func TestEvaluate_Spinner(t *testing.T) {
	content := `
⠹ Running tests…
`
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready for active spinner")
	}
	if st.Reason == "" {
		t.Error("expected a non-nil reason for a spinner")
	}
}

func TestEvaluate_ThinkingIndicator(t *testing.T) {
	content := "✻ Pondering… (1m 2s · ↓ 1.1k tokens)\n"
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready while thinking")
	}
	if st.Reason != "Thinking" {
		t.Errorf("reason: got %q", st.Reason)
	}
}

func TestEvaluate_WorkedForIsNotThinking(t *testing.T) {
	// Past-tense completion line plus an empty prompt is idle.
	content := `
✻ Worked for 3m 10s

│ >   │
`
	st := Evaluate(content)
	if !st.Ready {
		t.Errorf("expected ready, got %q", st.Reason)
	}
}

func TestEvaluate_PromptWithContent(t *testing.T) {
	content := `
╭──────────────────────────────╮
│ > fix the failing test       │
╰──────────────────────────────╯
`
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready")
	}
	if st.Reason != "has existing content" {
		t.Errorf("reason: got %q, want %q", st.Reason, "has existing content")
	}
}

func TestEvaluate_PermissionDialog(t *testing.T) {
	content := `
Claude needs your permission to use Bash

  ❯ 1. Yes
    2. No

Do you want to proceed?
`
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready")
	}
	if !strings.Contains(st.Reason, "permission") {
		t.Errorf("reason: got %q", st.Reason)
	}
}

func TestEvaluate_BorderOnlyOptimisticReady(t *testing.T) {
	// Border glyphs intact, no prompt row captured, no blockers:
	// optimistic default applies.
	content := `
some scrollback
╰──────────────────────────────╯
`
	st := Evaluate(content)
	if !st.Ready {
		t.Errorf("expected optimistic ready, got %q", st.Reason)
	}
}

func TestEvaluate_Indeterminate(t *testing.T) {
	content := "make: *** [all] some ordinary build output\n"
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready")
	}
	if st.Reason != "cannot determine state" {
		t.Errorf("reason: got %q", st.Reason)
	}
}

func TestEvaluate_EmptyPromptWithDialogAboveIsBlocked(t *testing.T) {
	// A visible dialog outranks an empty prompt in the same tail:
	// a false "ready" loses input, a false "not ready" only defers.
	content := `
Do you want to proceed?

│ >   │
`
	st := Evaluate(content)
	if st.Ready {
		t.Fatal("expected not ready when a dialog is visible")
	}
}

func TestHasPromptBorder(t *testing.T) {
	if !HasPromptBorder("╭────╮\n│ > │\n╰────╯\n") {
		t.Error("expected border detection")
	}
	if HasPromptBorder("just a shell prompt\n$ ") {
		t.Error("unexpected border detection")
	}
}

func TestLastVisibleLine(t *testing.T) {
	content := "first\nsecond\n\n\n"
	if got := LastVisibleLine(content); got != "second" {
		t.Errorf("LastVisibleLine: got %q", got)
	}
	if got := LastVisibleLine("\n\n"); got != "" {
		t.Errorf("LastVisibleLine on blank: got %q", got)
	}
}

func TestBottomNonEmpty(t *testing.T) {
	lines := []string{"a", "b", "c", "", ""}
	got := bottomNonEmpty(lines, 2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("bottomNonEmpty: got %v", got)
	}
}
