// Package summary produces one-line LLM descriptions of what each
// candidate pane is doing, shown in the chooser when multiple instances
// match a root. Summaries are strictly best-effort: a slow or failing
// provider yields an empty summary, never an error, and never delays
// the routing operation beyond the per-call timeout.
package summary

import (
	"context"
	"strings"
	"time"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/otel"
)

// Usage reports provider token consumption for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Summarizer turns captured pane content into a one-line description.
type Summarizer interface {
	// Summarize describes content in a single short line.
	Summarize(ctx context.Context, content string) (string, Usage, error)

	// Provider returns the provider name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model name used for summaries.
	Model() string
}

// Fill populates Summary on each candidate by capturing its recent
// content through capture and summarizing it. Each call gets its own
// timeout; timeouts and failures leave the summary empty.
func Fill(ctx context.Context, s Summarizer, capture func(ctx context.Context, target string) (string, error), candidates []model.Candidate, timeout time.Duration, metrics *otel.Metrics) {
	if s == nil {
		return
	}
	for i := range candidates {
		candidates[i].Summary = one(ctx, s, capture, candidates[i].Pane.ID, timeout, metrics)
	}
}

func one(ctx context.Context, s Summarizer, capture func(ctx context.Context, target string) (string, error), target string, timeout time.Duration, metrics *otel.Metrics) string {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := capture(ctx, target)
	if err != nil || strings.TrimSpace(content) == "" {
		return ""
	}

	line, usage, err := s.Summarize(ctx, content)
	if err != nil {
		return ""
	}
	metrics.RecordTokens(ctx, s.Provider(), s.Model(), usage.InputTokens, usage.OutputTokens)
	return firstLine(line)
}

// firstLine normalizes a provider response down to one trimmed line,
// dropping any markdown fences the model wrapped it in.
func firstLine(text string) string {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return line
	}
	return ""
}
