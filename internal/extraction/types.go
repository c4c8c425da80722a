// Package extraction derives assigned, dated action items from free-text
// meeting transcripts. It supports an AI-assisted path and a deterministic
// heuristic path behind one Extractor interface; the pipeline decides which
// result to trust.
package extraction

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/minuted/internal/roster"
)

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// ActionItem is one extracted {assignee, task, due date} candidate,
// pre-resolution. JSON tags match the shape the model is instructed to emit.
type ActionItem struct {
	AssigneeName  string `json:"employee_name,omitempty"`
	AssigneeEmail string `json:"employee_email,omitempty"`
	Task          string `json:"task"`
	DueDate       string `json:"deadline,omitempty"`
}

// MeetingSummary is the canonical shape every extraction path yields.
type MeetingSummary struct {
	Summary     string       `json:"summary"`
	ActionItems []ActionItem `json:"action_items"`
}

// Extractor derives a MeetingSummary from a transcript and roster snapshot.
type Extractor interface {
	Extract(ctx context.Context, transcript string, entries []roster.Entry, ref time.Time) (*MeetingSummary, error)
}

// Completer is the raw text-generation boundary. Implementations own no
// parsing: they return whatever text the model produced.
type Completer interface {
	// Complete sends the prompt and returns the raw response text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Available reports whether the completer is configured and ready.
	Available() bool
}

// Config holds text-generation provider configuration.
type Config struct {
	Provider string `koanf:"provider"` // "googleai", "openai", or "" (disabled)
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
	Timeout  int    `koanf:"timeout"` // seconds
}

// Normalize drops candidates with empty task text. An assignee without a
// task is noise, never output.
func Normalize(items []ActionItem) []ActionItem {
	out := make([]ActionItem, 0, len(items))
	for _, item := range items {
		if item.Task == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// firstSentence returns the leading sentence of content, capped at 200 chars.
func firstSentence(content string) string {
	for i, r := range content {
		if r == '.' || r == '!' || r == '?' {
			if i < len(content)-1 {
				return content[:i+1]
			}
		}
		if i >= 200 {
			return content[:200] + "..."
		}
	}
	if len(content) > 200 {
		return content[:200] + "..."
	}
	return content
}
