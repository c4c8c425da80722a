package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/minuted/internal/extraction"
)

// stubCompleter returns canned draft output.
type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s *stubCompleter) Available() bool { return true }

func resolvedFixture() []ResolvedTask {
	return []ResolvedTask{
		{
			ActionItem:  extraction.ActionItem{AssigneeName: "alice", AssigneeEmail: "alice@co.com", Task: "finish the report", DueDate: "2025-10-20"},
			RosterID:    "e1",
			DisplayName: "Alice",
		},
		{
			ActionItem:  extraction.ActionItem{AssigneeName: "mystery", Task: "follow up"},
			DisplayName: "mystery",
		},
	}
}

func newResult() *Result {
	return &Result{StageErrors: map[string]string{}}
}

func TestDraftNotificationsAIPath(t *testing.T) {
	storage := newFakeStorage()
	drafts := &stubCompleter{response: "```json\n[" +
		`{"employee_email":"alice@co.com","subject":"Your new task","body":"please finish the report"},` +
		`{"employee_email":"","subject":"placeholder","body":"unresolved"}` +
		"]\n```"}
	p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, DraftClient: drafts})

	res := newResult()
	got := p.draftNotifications(context.Background(), "summary", resolvedFixture(), res)

	assert.Empty(t, res.StageErrors)
	// The draft without a recipient is dropped.
	require.Len(t, got, 1)
	assert.Equal(t, "alice@co.com", got[0].Email)
	assert.Equal(t, "Your new task", got[0].Subject)
}

func TestDraftNotificationsFallback(t *testing.T) {
	t.Run("call failure", func(t *testing.T) {
		storage := newFakeStorage()
		drafts := &stubCompleter{err: errors.New("model down")}
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, DraftClient: drafts})

		res := newResult()
		got := p.draftNotifications(context.Background(), "the summary", resolvedFixture(), res)

		assert.Contains(t, res.StageErrors, StageNotification)
		// Only the task with a known email gets a fallback draft.
		require.Len(t, got, 1)
		assert.Equal(t, "alice@co.com", got[0].Email)
		assert.Contains(t, got[0].Subject, "finish the report")
		assert.Contains(t, got[0].Body, "2025-10-20")
		assert.Contains(t, got[0].Body, "the summary")
	})

	t.Run("undecodable response", func(t *testing.T) {
		storage := newFakeStorage()
		drafts := &stubCompleter{response: "sorry, no JSON today"}
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, DraftClient: drafts})

		res := newResult()
		got := p.draftNotifications(context.Background(), "s", resolvedFixture(), res)

		assert.Contains(t, res.StageErrors, StageNotification)
		assert.Len(t, got, 1)
	})

	t.Run("no draft client", func(t *testing.T) {
		storage := newFakeStorage()
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

		res := newResult()
		got := p.draftNotifications(context.Background(), "s", resolvedFixture(), res)

		assert.Empty(t, res.StageErrors)
		assert.Len(t, got, 1)
	})
}

func TestDraftNotificationsEmptyInput(t *testing.T) {
	storage := newFakeStorage()
	p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

	res := newResult()
	got := p.draftNotifications(context.Background(), "s", nil, res)
	assert.Empty(t, got)
	assert.Empty(t, res.StageErrors)
}
