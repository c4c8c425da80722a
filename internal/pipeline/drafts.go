package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minuted/internal/decode"
)

// draftPromptFormat asks the model for a bare JSON array of notification
// drafts, one per action item.
const draftPromptFormat = `You are given the following meeting summary and action items JSON:
%s

For each action item, compose a short, professional email draft.
Each email should contain the task, the deadline (if any), and one sentence of context from the meeting summary.
Return your response as a JSON array only, with objects shaped like:
[{"employee_email":"", "subject":"", "body":""}]
Do NOT include any other text or markdown.`

// draftNotifications produces one draft per resolved task that has an
// email. The AI path is tried first; on call or decode failure the stage
// error is recorded and deterministic drafts are synthesized from data the
// pipeline already holds, so the notification list degrades rather than
// empties.
func (p *Pipeline) draftNotifications(ctx context.Context, summary string, resolved []ResolvedTask, res *Result) []Draft {
	if len(resolved) == 0 {
		return []Draft{}
	}

	if p.drafts != nil && p.drafts.Available() {
		drafts, err := p.aiDrafts(ctx, summary, resolved)
		if err == nil {
			return drafts
		}
		p.fail(res, StageNotification, err)
	}

	return fallbackDrafts(summary, resolved)
}

func (p *Pipeline) aiDrafts(ctx context.Context, summary string, resolved []ResolvedTask) ([]Draft, error) {
	payload, err := json.Marshal(map[string]any{
		"meeting_summary": summary,
		"action_items":    resolved,
	})
	if err != nil {
		return nil, fmt.Errorf("draft payload: %w", err)
	}

	var raw string
	err = p.withTimeout(ctx, func(sc context.Context) error {
		var err error
		raw, err = p.drafts.Complete(sc, fmt.Sprintf(draftPromptFormat, payload))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("draft call: %w", err)
	}

	var parsed []Draft
	if err := decode.JSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("draft response: %w", err)
	}

	// Drop drafts without a recipient; the model sometimes emits
	// placeholders for unresolved assignees.
	drafts := make([]Draft, 0, len(parsed))
	for _, d := range parsed {
		if d.Email == "" {
			continue
		}
		drafts = append(drafts, d)
	}

	p.logger.Debug("drafted notifications", zap.Int("count", len(drafts)))
	return drafts, nil
}

// fallbackDrafts builds plain drafts from resolved tasks. Only tasks with a
// known email get a draft.
func fallbackDrafts(summary string, resolved []ResolvedTask) []Draft {
	drafts := make([]Draft, 0, len(resolved))
	for _, rt := range resolved {
		if rt.AssigneeEmail == "" {
			continue
		}
		body := fmt.Sprintf("Hi %s,\n\nFrom today's meeting you have a new task: %s.", rt.DisplayName, rt.Task)
		if rt.DueDate != "" {
			body += fmt.Sprintf(" It is due by %s.", rt.DueDate)
		}
		if summary != "" {
			body += fmt.Sprintf("\n\nMeeting context: %s", summary)
		}
		drafts = append(drafts, Draft{
			Email:   rt.AssigneeEmail,
			Subject: "Task: " + taskTitle(rt.Task),
			Body:    body,
		})
	}
	return drafts
}
