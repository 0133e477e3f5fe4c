package choose

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/pane-relay/internal/model"
)

func testCandidates() []model.Candidate {
	return []model.Candidate{
		{
			Pane:           model.Pane{ID: "%1", Session: "main", WindowName: "claude", WindowIndex: 2, PaneIndex: 0},
			Method:         model.MethodRenderedPrompt,
			CurrentSession: true,
			Summary:        "refactoring auth middleware",
		},
		{
			Pane:     model.Pane{ID: "%7", Session: "background", WindowName: "claude", WindowIndex: 1, PaneIndex: 0},
			Method:   model.MethodExactCommand,
			LastLine: "❯",
		},
	}
}

func press(m pickerModel, keys ...string) pickerModel {
	for _, k := range keys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		}
		next, _ := m.Update(msg)
		m = next.(pickerModel)
	}
	return m
}

func TestPickerCursorBounds(t *testing.T) {
	m := newPickerModel(testCandidates())

	m = press(m, "up")
	if m.cursor != 0 {
		t.Errorf("cursor moved above first row: %d", m.cursor)
	}

	// Two candidates plus the create-new row: max index 2.
	m = press(m, "down", "down", "down", "down")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want clamped at create-new row 2", m.cursor)
	}
}

func TestPickerSelectLastRowMeansCreateNew(t *testing.T) {
	m := newPickerModel(testCandidates())
	m = press(m, "j", "j", "enter")

	if m.cancelled {
		t.Fatal("selection marked cancelled")
	}
	if m.cursor != len(testCandidates()) {
		t.Errorf("cursor = %d, want the create-new row", m.cursor)
	}
}

func TestPickerEscCancels(t *testing.T) {
	m := newPickerModel(testCandidates())
	m = press(m, "down", "esc")

	if !m.cancelled {
		t.Error("esc did not cancel")
	}
}

func TestPickerViewShowsAllRows(t *testing.T) {
	view := newPickerModel(testCandidates()).View()

	for _, want := range []string{
		"main:2.0",
		"background:1.0",
		"rendered-prompt-match",
		"(current session)",
		"refactoring auth middleware",
		"Create a new instance",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDescribe(t *testing.T) {
	c := testCandidates()[0]
	got := describe(c)
	if !strings.Contains(got, "main:2.0") || !strings.Contains(got, "(current session)") {
		t.Errorf("describe = %q", got)
	}
	if !strings.Contains(got, "refactoring auth middleware") {
		t.Errorf("describe dropped the summary: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 80)
	got := truncate(long, 60)
	if len([]rune(got)) != 60 {
		t.Errorf("truncated length = %d, want 60", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated string missing ellipsis: %q", got)
	}
}
