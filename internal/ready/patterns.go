package ready

import (
	"strings"
	"unicode"
)

// bottomLines is how many non-empty lines from the bottom of the capture
// are examined. Small enough that stale indicators from prior turns are
// excluded, large enough for the input box plus a status footer and a
// multi-line dialog.
const bottomLines = 12

// blocker pairs a content test with a human-readable not-ready reason.
type blocker struct {
	match  func(line string) bool
	reason string
}

// blockers are evaluated in order over the bottom lines. The order puts
// the most specific dialogs first so their reasons win over the generic
// spinner check.
var blockers = []blocker{
	{containsAny("Select a workspace"), "In workspace selection menu"},
	{containsAny("Do you want to proceed?", "needs your permission"), "Waiting on a permission prompt"},
	{containsAny("Do you want to make this edit"), "Waiting on an edit approval"},
	{containsAny("Press Enter to continue", "press enter", "Press Enter"), "Waiting for Enter"},
	{containsAny("Checking for updates", "Update installed", "Auto-updating"), "Update check in progress"},
	{containsAny("esc to interrupt", "ctrl+c to interrupt"), "Mid-response (interruptible)"},
	{isThinkingIndicator, "Thinking"},
	{hasBrailleSpinner, "Busy (spinner active)"},
	{isDialogSelector, "In a selection menu"},
	{containsAny("✗ ", "Error:"), "Showing an error banner"},
}

// blockingReason returns the first matching blocker reason, or "".
func blockingReason(bottom []string) string {
	for _, b := range blockers {
		for _, line := range bottom {
			if b.match(strings.TrimSpace(line)) {
				return b.reason
			}
		}
	}
	return ""
}

// hasEmptyPrompt reports an empty input prompt at the bottom: either a
// bare prompt glyph or the bordered input box with nothing typed.
func hasEmptyPrompt(bottom []string) bool {
	for _, line := range bottom {
		trimmed := strings.TrimSpace(line)
		if trimmed == "❯" || trimmed == ">" {
			return true
		}
		// Bordered input box row: "│ > │" with only whitespace between
		// the prompt glyph and the closing border.
		if inner, ok := promptBoxInner(trimmed); ok && inner == "" {
			return true
		}
	}
	return false
}

// hasPromptWithContent reports an input box that already holds text.
func hasPromptWithContent(bottom []string) bool {
	for _, line := range bottom {
		trimmed := strings.TrimSpace(line)
		if inner, ok := promptBoxInner(trimmed); ok && inner != "" {
			return true
		}
		if strings.HasPrefix(trimmed, "❯ ") && !isDialogSelector(trimmed) {
			return true
		}
	}
	return false
}

// hasPromptBorder reports the launcher's box-drawing border glyphs,
// the structural signature of its input area.
func hasPromptBorder(bottom []string) bool {
	for _, line := range bottom {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "╭─") || strings.HasPrefix(trimmed, "╰─") {
			return true
		}
	}
	return false
}

// HasPromptBorder reports whether the full capture shows the input box
// border glyphs anywhere in its bottom tail. Used by classification as
// the rendered-prompt probe; readiness is a separate, stricter question.
func HasPromptBorder(content string) bool {
	lines := strings.Split(content, "\n")
	return hasPromptBorder(bottomNonEmpty(lines, bottomLines))
}

// HasPromptMarker reports any interactive prompt marker near the bottom
// of a capture: a bare prompt character or a box-drawing row. Weaker
// than HasPromptBorder; when the border has scrolled off, the marker is
// often all that remains.
func HasPromptMarker(content string) bool {
	lines := strings.Split(content, "\n")
	bottom := bottomNonEmpty(lines, bottomLines)
	if hasPromptBorder(bottom) {
		return true
	}
	for _, line := range bottom {
		trimmed := strings.TrimSpace(line)
		if trimmed == "❯" || trimmed == ">" ||
			strings.HasPrefix(trimmed, "❯ ") || strings.HasPrefix(trimmed, "> ") ||
			strings.HasPrefix(trimmed, "│") {
			return true
		}
	}
	return false
}

// promptBoxInner extracts the text typed into a bordered prompt row
// ("│ > some text │"). ok is false when the line is not a prompt row.
func promptBoxInner(trimmed string) (inner string, ok bool) {
	if !strings.HasPrefix(trimmed, "│") {
		return "", false
	}
	body := strings.Trim(trimmed, "│")
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, ">") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, ">")), true
}

// isThinkingIndicator matches the launcher's working line: a "✻" prefix
// with a trailing ellipsis. "✻ Worked for ..." is past tense and does
// not count.
func isThinkingIndicator(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "✻") || strings.HasPrefix(trimmed, "✻ Worked") {
		return false
	}
	return strings.Contains(trimmed, "…") || strings.Contains(trimmed, "...")
}

// hasBrailleSpinner reports braille spinner glyphs, the busy animation
// used by the launcher and most terminal spinners.
func hasBrailleSpinner(trimmed string) bool {
	for _, r := range trimmed {
		if r >= '⠋' && r <= '⠿' {
			return true
		}
	}
	return false
}

// isDialogSelector matches a selection-menu cursor row ("❯ 1. Yes"),
// distinguishing it from an idle prompt with typed text.
func isDialogSelector(trimmed string) bool {
	const prefix = "❯ "
	if !strings.HasPrefix(trimmed, prefix) {
		return false
	}
	rest := trimmed[len(prefix):]
	return len(rest) >= 2 && unicode.IsDigit(rune(rest[0])) && rest[1] == '.'
}

// containsAny builds a line test for any of the given substrings.
func containsAny(subs ...string) func(string) bool {
	return func(line string) bool {
		for _, s := range subs {
			if strings.Contains(line, s) {
				return true
			}
		}
		return false
	}
}

// bottomNonEmpty returns the last n non-empty (after trimming) lines,
// skipping trailing blank lines that terminals commonly render.
func bottomNonEmpty(lines []string, n int) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}

// LastVisibleLine returns the last non-empty line of a capture, for
// candidate display.
func LastVisibleLine(content string) string {
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
