package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/minuted/internal/decode"
	"github.com/fyrsmithlabs/minuted/internal/roster"
)

// extractionPromptFormat instructs the model to return a single JSON object
// with summary and action_items, assigning tasks only to roster employees by
// their exact email addresses.
const extractionPromptFormat = `You are a meeting assistant that turns transcripts into assigned tasks.

TRANSCRIPT:
%s

AVAILABLE EMPLOYEES (assign tasks ONLY to these people, using their exact email addresses):
%s

Today's date is %s. Resolve relative deadlines ("coming Saturday", "by next week") against it.

INSTRUCTIONS:
1. Write a concise summary of the meeting.
2. Extract every task assigned to a specific employee, with its deadline if one was stated.
3. Use the special assignee name "everyone" for tasks addressed to all employees.
4. Do not invent email addresses; use only those in the list above.

Return exactly one JSON object with this structure and nothing else - no markdown, no code fences, no explanation:
{"summary": "string", "action_items": [{"employee_name": "string", "employee_email": "string", "task": "string", "deadline": "YYYY-MM-DD or null"}]}`

// AIExtractor implements Extractor over a raw text-generation boundary.
// The Completer returns unparsed text; recovery of the structured object is
// delegated to the decode package.
type AIExtractor struct {
	client Completer
}

// NewAIExtractor creates an AI-backed extractor.
func NewAIExtractor(client Completer) *AIExtractor {
	return &AIExtractor{client: client}
}

// Available reports whether the underlying completer is configured.
func (a *AIExtractor) Available() bool {
	return a.client != nil && a.client.Available()
}

// Extract formats the extraction prompt, performs the generation call, and
// recovers a MeetingSummary from the raw response. Call and decode failures
// surface as errors; the caller decides whether to fall back.
func (a *AIExtractor) Extract(ctx context.Context, transcript string, entries []roster.Entry, ref time.Time) (*MeetingSummary, error) {
	raw, err := a.client.Complete(ctx, buildExtractionPrompt(transcript, entries, ref))
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	var summary MeetingSummary
	if err := decode.JSON(raw, &summary); err != nil {
		return nil, fmt.Errorf("extraction response: %w", err)
	}

	summary.ActionItems = Normalize(summary.ActionItems)
	return &summary, nil
}

func buildExtractionPrompt(transcript string, entries []roster.Entry, ref time.Time) string {
	rosterJSON, err := json.Marshal(entries)
	if err != nil {
		rosterJSON = []byte("[]")
	}
	return fmt.Sprintf(extractionPromptFormat, transcript, rosterJSON, ref.Format(DateLayout))
}

// Ensure AIExtractor implements Extractor.
var _ Extractor = (*AIExtractor)(nil)
