package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/minuted/internal/extraction"
	"github.com/fyrsmithlabs/minuted/internal/roster"
	"github.com/fyrsmithlabs/minuted/internal/store"
)

// fakeStorage is an in-memory Storage with per-call failure injection.
type fakeStorage struct {
	rosterEntries []roster.Entry
	rosterErr     error
	meetingErr    error
	updateErr     error
	tasksErr      error

	meetingsCreated int
	summaries       map[string]string
	savedTasks      []store.Task
}

func newFakeStorage(entries ...roster.Entry) *fakeStorage {
	return &fakeStorage{rosterEntries: entries, summaries: map[string]string{}}
}

func (f *fakeStorage) GetRoster(ctx context.Context, companyID string) ([]roster.Entry, error) {
	return f.rosterEntries, f.rosterErr
}

func (f *fakeStorage) CreateMeeting(ctx context.Context, m *store.Meeting) (*store.Meeting, error) {
	if f.meetingErr != nil {
		return nil, f.meetingErr
	}
	f.meetingsCreated++
	created := *m
	created.ID = fmt.Sprintf("m%d", f.meetingsCreated)
	created.CreatedAt = time.Now()
	return &created, nil
}

func (f *fakeStorage) UpdateMeetingSummary(ctx context.Context, id, summary string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.summaries[id] = summary
	return nil
}

func (f *fakeStorage) CreateTasks(ctx context.Context, tasks []store.Task) ([]store.Task, error) {
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	created := make([]store.Task, 0, len(tasks))
	for i, t := range tasks {
		t.ID = fmt.Sprintf("t%d", i+1)
		t.CreatedAt = time.Now()
		created = append(created, t)
	}
	f.savedTasks = append(f.savedTasks, created...)
	return created, nil
}

// fakeResolver binds any email deterministically.
type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, name, email, companyID string) (roster.Binding, error) {
	if f.err != nil {
		return roster.Binding{DisplayName: name, Email: email}, f.err
	}
	if email == "" {
		return roster.Binding{DisplayName: name}, nil
	}
	return roster.Binding{RosterID: "r-" + email, DisplayName: name, Email: email}, nil
}

// stubExtractor returns a canned extraction result.
type stubExtractor struct {
	summary *extraction.MeetingSummary
	err     error
}

func (s *stubExtractor) Extract(ctx context.Context, transcript string, entries []roster.Entry, ref time.Time) (*extraction.MeetingSummary, error) {
	return s.summary, s.err
}

func fixedClock() time.Time {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = fixedClock
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Resolver: &fakeResolver{}})
	assert.Error(t, err)

	_, err = New(Config{Storage: newFakeStorage()})
	assert.Error(t, err)
}

func TestProcessEndToEnd(t *testing.T) {
	alice := roster.Entry{ID: "e1", Name: "Alice", Email: "alice@co.com", CompanyID: "c1"}
	storage := newFakeStorage(alice)
	p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

	res := p.Process(context.Background(), Request{
		Transcript: "Alice needs to finish the report by October 20th.",
		CompanyID:  "c1",
		UserID:     "u1",
	})

	assert.True(t, res.OK(), "stage errors: %v", res.StageErrors)

	require.NotNil(t, res.Meeting)
	assert.Equal(t, "m1", res.Meeting.ID)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, res.Summary, storage.summaries["m1"])

	require.Len(t, res.ResolvedTasks, 1)
	rt := res.ResolvedTasks[0]
	assert.Equal(t, "alice", rt.AssigneeName)
	assert.Equal(t, "finish the report", rt.Task)
	assert.Equal(t, "2025-10-20", rt.DueDate)
	assert.Equal(t, "r-alice@co.com", rt.RosterID)

	require.Len(t, res.DBTasks, 1)
	task := res.DBTasks[0]
	assert.Equal(t, "finish the report", task.Title)
	assert.Equal(t, "pending", task.Status)
	assert.Equal(t, "m1", task.MeetingID)
	assert.Equal(t, "c1", task.CompanyID)

	// No draft client configured: deterministic drafts are synthesized.
	require.Len(t, res.Emails, 1)
	assert.Equal(t, "alice@co.com", res.Emails[0].Email)
	assert.Contains(t, res.Emails[0].Subject, "finish the report")
	assert.Contains(t, res.Emails[0].Body, "2025-10-20")
}

func TestProcessEveryoneFanOut(t *testing.T) {
	entries := []roster.Entry{
		{ID: "e1", Name: "Alice", Email: "alice@co.com"},
		{ID: "e2", Name: "Bob", Email: "bob@co.com"},
		{ID: "e3", Name: "Carol", Email: "carol@co.com"},
	}
	storage := newFakeStorage(entries...)
	ai := &stubExtractor{summary: &extraction.MeetingSummary{
		Summary: "all hands",
		ActionItems: []extraction.ActionItem{
			{AssigneeName: "everyone", Task: "attend the office anniversary", DueDate: "2025-01-04"},
		},
	}}
	p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, AI: ai})

	res := p.Process(context.Background(), Request{Transcript: "t", CompanyID: "c1"})

	assert.True(t, res.OK(), "stage errors: %v", res.StageErrors)
	require.Len(t, res.ResolvedTasks, 3)

	seen := map[string]bool{}
	for _, rt := range res.ResolvedTasks {
		assert.Equal(t, "attend the office anniversary", rt.Task)
		assert.Equal(t, "2025-01-04", rt.DueDate)
		seen[rt.AssigneeEmail] = true
	}
	assert.Len(t, seen, 3)
	assert.Len(t, res.DBTasks, 3)
}

func TestProcessAIFallback(t *testing.T) {
	alice := roster.Entry{ID: "e1", Name: "Alice", Email: "alice@co.com"}

	t.Run("ai error falls back and records the stage", func(t *testing.T) {
		storage := newFakeStorage(alice)
		ai := &stubExtractor{err: errors.New("model unavailable")}
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, AI: ai})

		res := p.Process(context.Background(), Request{
			Transcript: "Alice needs to finish the report.",
			CompanyID:  "c1",
		})

		assert.Contains(t, res.StageErrors, StageExtraction)
		require.Len(t, res.ResolvedTasks, 1)
		assert.Equal(t, "finish the report", res.ResolvedTasks[0].Task)
	})

	t.Run("ai empty result falls back without a stage error", func(t *testing.T) {
		storage := newFakeStorage(alice)
		ai := &stubExtractor{summary: &extraction.MeetingSummary{Summary: "nothing"}}
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}, AI: ai})

		res := p.Process(context.Background(), Request{
			Transcript: "Alice needs to finish the report.",
			CompanyID:  "c1",
		})

		assert.True(t, res.OK(), "stage errors: %v", res.StageErrors)
		require.Len(t, res.ResolvedTasks, 1)
	})
}

func TestProcessStageIsolation(t *testing.T) {
	alice := roster.Entry{ID: "e1", Name: "Alice", Email: "alice@co.com"}

	t.Run("roster failure degrades extraction", func(t *testing.T) {
		storage := newFakeStorage()
		storage.rosterErr = errors.New("db down")
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

		res := p.Process(context.Background(), Request{Transcript: "Alice needs to finish.", CompanyID: "c1"})

		assert.Contains(t, res.StageErrors, StageRoster)
		assert.Empty(t, res.ResolvedTasks)
	})

	t.Run("meeting record failure does not block extraction", func(t *testing.T) {
		storage := newFakeStorage(alice)
		storage.meetingErr = errors.New("insert failed")
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

		res := p.Process(context.Background(), Request{
			Transcript: "Alice needs to finish the report.",
			CompanyID:  "c1",
		})

		assert.Contains(t, res.StageErrors, StageMeetingRecord)
		assert.Nil(t, res.Meeting)
		require.Len(t, res.ResolvedTasks, 1)
		assert.Empty(t, res.DBTasks[0].MeetingID)
	})

	t.Run("persistence failure keeps resolved tasks and drafts", func(t *testing.T) {
		storage := newFakeStorage(alice)
		storage.tasksErr = errors.New("write failed")
		p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

		res := p.Process(context.Background(), Request{
			Transcript: "Alice needs to finish the report.",
			CompanyID:  "c1",
		})

		assert.Contains(t, res.StageErrors, StagePersistence)
		assert.Empty(t, res.DBTasks)
		require.Len(t, res.ResolvedTasks, 1)
		assert.Len(t, res.Emails, 1)
	})

	t.Run("resolution failure keeps the item with a fallback binding", func(t *testing.T) {
		storage := newFakeStorage(alice)
		p := newTestPipeline(t, Config{
			Storage:  storage,
			Resolver: &fakeResolver{err: errors.New("lookup failed")},
		})

		res := p.Process(context.Background(), Request{
			Transcript: "Alice needs to finish the report.",
			CompanyID:  "c1",
		})

		assert.Contains(t, res.StageErrors, StageResolution)
		require.Len(t, res.ResolvedTasks, 1)
		assert.Empty(t, res.ResolvedTasks[0].RosterID)
		assert.Equal(t, "alice", res.ResolvedTasks[0].DisplayName)
		// Persistence still ran on the degraded binding.
		assert.Len(t, res.DBTasks, 1)
	})
}

func TestProcessReusesSuppliedMeetingID(t *testing.T) {
	alice := roster.Entry{ID: "e1", Name: "Alice", Email: "alice@co.com"}
	storage := newFakeStorage(alice)
	p := newTestPipeline(t, Config{Storage: storage, Resolver: &fakeResolver{}})

	res := p.Process(context.Background(), Request{
		Transcript: "Alice needs to finish the report.",
		CompanyID:  "c1",
		Meta:       Meta{MeetingID: "m-existing"},
	})

	assert.Zero(t, storage.meetingsCreated)
	require.NotNil(t, res.Meeting)
	assert.Equal(t, "m-existing", res.Meeting.ID)
	assert.Contains(t, storage.summaries, "m-existing")
}

func TestTaskTitleTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	assert.Equal(t, strings.Repeat("x", 50)+"...", taskTitle(long))
	assert.Equal(t, "short", taskTitle("short"))
}

func TestExpandEveryone(t *testing.T) {
	entries := []roster.Entry{
		{Name: "Alice", Email: "alice@co.com"},
		{Name: "Bob", Email: "bob@co.com"},
	}
	items := []extraction.ActionItem{
		{AssigneeName: "alice", AssigneeEmail: "alice@co.com", Task: "one"},
		{AssigneeName: "Everyone", Task: "all hands"},
	}

	out := expandEveryone(items, entries)
	require.Len(t, out, 3)
	assert.Equal(t, "one", out[0].Task)
	assert.Equal(t, "alice@co.com", out[1].AssigneeEmail)
	assert.Equal(t, "bob@co.com", out[2].AssigneeEmail)
	assert.Equal(t, "all hands", out[1].Task)
}
