// Package payload formats the editor-provided working context into the
// text pasted at the assistant's prompt. The context arrives fully
// formed from the caller; nothing here validates or reconstructs it.
package payload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// Format renders a delivery payload from a working context and an
// optional free-form message. An empty context yields just the message.
func Format(wc model.WorkingContext, message string) string {
	var b strings.Builder

	if message != "" {
		b.WriteString(message)
	}

	if loc := location(wc); loc != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "@%s", loc)
	}

	if wc.SelectionText != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		lang := languageHint(wc.FilePath)
		fmt.Fprintf(&b, "```%s\n%s\n```", lang, strings.TrimRight(wc.SelectionText, "\n"))
	}

	return b.String()
}

// location renders "path:line:col" with the path relative to the
// repository root when possible.
func location(wc model.WorkingContext) string {
	if wc.FilePath == "" {
		return ""
	}
	path := wc.FilePath
	if wc.RepositoryRoot != "" {
		if rel, err := filepath.Rel(wc.RepositoryRoot, wc.FilePath); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	if wc.CursorLine > 0 {
		if wc.CursorColumn > 0 {
			return fmt.Sprintf("%s:%d:%d", path, wc.CursorLine, wc.CursorColumn)
		}
		return fmt.Sprintf("%s:%d", path, wc.CursorLine)
	}
	return path
}

// languageHint picks a fence language from the file extension. Unknown
// extensions leave the fence bare.
func languageHint(path string) string {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "go":
		return "go"
	case "py":
		return "python"
	case "js", "mjs", "cjs":
		return "javascript"
	case "ts", "tsx":
		return "typescript"
	case "rs":
		return "rust"
	case "rb":
		return "ruby"
	case "sh", "bash":
		return "bash"
	case "yaml", "yml":
		return "yaml"
	case "json":
		return "json"
	case "md":
		return "markdown"
	case "lua":
		return "lua"
	default:
		return ""
	}
}
