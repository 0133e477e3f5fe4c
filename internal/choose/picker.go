package choose

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/timvw/pane-relay/internal/model"
)

var (
	pickerTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pickerSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	pickerCurrentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pickerMethodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	pickerDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type pickerKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

var defaultPickerKeys = pickerKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// pickerModel implements tea.Model for the candidate picker. The last
// row is always the synthetic "create new" entry.
type pickerModel struct {
	candidates []model.Candidate
	cursor     int
	cancelled  bool
	keys       pickerKeys
}

func newPickerModel(candidates []model.Candidate) pickerModel {
	return pickerModel{
		candidates: candidates,
		keys:       defaultPickerKeys,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.candidates) {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Select):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Cancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Send to which assistant instance?"))
	b.WriteString("\n\n")

	for i, c := range m.candidates {
		b.WriteString(m.renderRow(i, candidateRow(c)))
	}
	b.WriteString(m.renderRow(len(m.candidates), "Create a new instance"))

	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render("↑/↓ move · enter select · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m pickerModel) renderRow(index int, text string) string {
	cursor := "  "
	if index == m.cursor {
		cursor = "> "
		return cursor + pickerSelectedStyle.Render(text) + "\n"
	}
	return cursor + text + "\n"
}

// candidateRow renders one candidate: target, method tag, session
// marker, and whatever display line is available.
func candidateRow(c model.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Pane.Target())
	b.WriteString(" ")
	b.WriteString(pickerMethodStyle.Render("[" + c.Method.String() + "]"))
	if c.CurrentSession {
		b.WriteString(" ")
		b.WriteString(pickerCurrentStyle.Render("(current session)"))
	}
	if c.Summary != "" {
		b.WriteString(" ")
		b.WriteString(pickerDimStyle.Render(c.Summary))
	} else if c.LastLine != "" {
		b.WriteString(" ")
		b.WriteString(pickerDimStyle.Render(truncate(c.LastLine, 60)))
	}
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return fmt.Sprintf("%s…", string(runes[:max-1]))
}
