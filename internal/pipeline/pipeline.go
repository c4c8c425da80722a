// Package pipeline sequences transcript processing: extraction, decoding,
// assignee resolution, persistence, and notification drafting. Every stage
// is isolated: a failing stage is recorded in the result's stage-error map
// and the pipeline continues with the best data available. Only missing
// input rejects a request outright.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minuted/internal/extraction"
	"github.com/fyrsmithlabs/minuted/internal/roster"
	"github.com/fyrsmithlabs/minuted/internal/store"
)

// Stage names used as keys in Result.StageErrors.
const (
	StageRoster         = "roster"
	StageMeetingRecord  = "meeting_record"
	StageExtraction     = "extraction"
	StageMeetingSummary = "meeting_summary"
	StageResolution     = "resolution"
	StagePersistence    = "persistence"
	StageNotification   = "notification"
)

const (
	defaultStageTimeout = 60 * time.Second

	// taskTitleLimit caps derived task titles.
	taskTitleLimit = 50

	// everyoneAssignee fans an item out to the whole roster.
	everyoneAssignee = "everyone"
)

// Request is one transcript-processing request accepted at the boundary.
// Transcript and CompanyID are required; their absence is an input error,
// not a stage error.
type Request struct {
	Transcript string `json:"transcript"`
	CompanyID  string `json:"company_id"`
	UserID     string `json:"user_id,omitempty"`
	Meta       Meta   `json:"meta,omitempty"`
}

// Meta carries optional request context from the boundary layer.
type Meta struct {
	Filename  string `json:"filename,omitempty"`
	MeetingID string `json:"meeting_id,omitempty"`
}

// ResolvedTask is an action item bound to a roster record (existing or
// newly created). RosterID is empty when resolution found or created no
// record.
type ResolvedTask struct {
	extraction.ActionItem
	RosterID    string `json:"roster_id,omitempty"`
	DisplayName string `json:"resolved_display_name"`
}

// Draft is one notification draft for an assignee.
type Draft struct {
	Email   string `json:"employee_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Result is the response envelope for one processed transcript. It is
// constructed fresh per request and never persisted itself.
type Result struct {
	Meeting       *store.Meeting          `json:"meeting,omitempty"`
	Summary       string                  `json:"summary"`
	ActionItems   []extraction.ActionItem `json:"action_items"`
	ResolvedTasks []ResolvedTask          `json:"resolved_tasks"`
	Emails        []Draft                 `json:"emails"`
	DBTasks       []store.Task            `json:"db_tasks"`
	StageErrors   map[string]string       `json:"errors"`
}

// OK reports whether every stage completed cleanly.
func (r *Result) OK() bool { return len(r.StageErrors) == 0 }

// Storage is the persistence boundary. Every call may fail independently.
type Storage interface {
	GetRoster(ctx context.Context, companyID string) ([]roster.Entry, error)
	CreateMeeting(ctx context.Context, m *store.Meeting) (*store.Meeting, error)
	UpdateMeetingSummary(ctx context.Context, id, summary string) error
	CreateTasks(ctx context.Context, tasks []store.Task) ([]store.Task, error)
}

// Resolver binds one assignee to a roster record.
type Resolver interface {
	Resolve(ctx context.Context, name, email, companyID string) (roster.Binding, error)
}

// Config wires the pipeline's collaborators. Storage and Resolver are
// required; everything else has a working default.
type Config struct {
	Storage  Storage
	Resolver Resolver

	// AI is the primary extractor; nil routes straight to the heuristic.
	AI extraction.Extractor

	// DraftClient generates notification drafts; nil or unavailable
	// clients fall back to deterministic drafts.
	DraftClient extraction.Completer

	Logger       *zap.Logger
	Metrics      *Metrics
	StageTimeout time.Duration

	// Clock supplies the reference date; defaults to time.Now.
	Clock func() time.Time
}

// Pipeline orchestrates the stages for one transcript-processing request.
// Stages run strictly sequentially; there is no shared mutable state across
// concurrent requests beyond Storage.
type Pipeline struct {
	ai        extraction.Extractor
	heuristic extraction.Extractor
	drafts    extraction.Completer
	storage   Storage
	resolver  Resolver
	logger    *zap.Logger
	metrics   *Metrics
	timeout   time.Duration
	now       func() time.Time
}

// New creates a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		ai:        cfg.AI,
		heuristic: extraction.NewHeuristicExtractor(),
		drafts:    cfg.DraftClient,
		storage:   cfg.Storage,
		resolver:  cfg.Resolver,
		logger:    logger,
		metrics:   cfg.Metrics,
		timeout:   timeout,
		now:       clock,
	}, nil
}

// Process runs the full stage sequence for one request and always returns a
// Result; degraded stages are reported in Result.StageErrors.
func (p *Pipeline) Process(ctx context.Context, req Request) *Result {
	res := &Result{
		ActionItems:   []extraction.ActionItem{},
		ResolvedTasks: []ResolvedTask{},
		Emails:        []Draft{},
		DBTasks:       []store.Task{},
		StageErrors:   map[string]string{},
	}
	ref := p.now()

	// Roster snapshot. A failed read degrades extraction but does not
	// abort: the AI path can still run without roster context.
	entries := p.loadRoster(ctx, req.CompanyID, res)

	transcript := extraction.CorrectNames(req.Transcript, entries)

	meeting := p.recordMeeting(ctx, req, transcript, res)

	summary := p.extract(ctx, transcript, entries, ref, res)
	res.Summary = summary.Summary
	res.ActionItems = summary.ActionItems

	if meeting != nil && summary.Summary != "" {
		if err := p.withTimeout(ctx, func(sc context.Context) error {
			return p.storage.UpdateMeetingSummary(sc, meeting.ID, summary.Summary)
		}); err != nil {
			p.fail(res, StageMeetingSummary, err)
		} else {
			meeting.Summary = summary.Summary
		}
	}
	res.Meeting = meeting

	// The "everyone" fan-out is an explicit pipeline expansion, applied
	// before resolution so the resolver only ever sees concrete people.
	items := expandEveryone(res.ActionItems, entries)

	res.ResolvedTasks = p.resolve(ctx, items, req.CompanyID, res)

	res.DBTasks = p.persistTasks(ctx, req, meeting, res.ResolvedTasks, res)

	res.Emails = p.draftNotifications(ctx, res.Summary, res.ResolvedTasks, res)

	if p.metrics != nil {
		p.metrics.observeResult(res)
	}
	p.logger.Info("pipeline completed",
		zap.String("company_id", req.CompanyID),
		zap.Int("action_items", len(res.ActionItems)),
		zap.Int("resolved_tasks", len(res.ResolvedTasks)),
		zap.Int("stage_errors", len(res.StageErrors)))

	return res
}

func (p *Pipeline) loadRoster(ctx context.Context, companyID string, res *Result) []roster.Entry {
	var entries []roster.Entry
	err := p.withTimeout(ctx, func(sc context.Context) error {
		var err error
		entries, err = p.storage.GetRoster(sc, companyID)
		return err
	})
	if err != nil {
		p.fail(res, StageRoster, err)
		return nil
	}
	return entries
}

func (p *Pipeline) recordMeeting(ctx context.Context, req Request, transcript string, res *Result) *store.Meeting {
	if req.Meta.MeetingID != "" {
		return &store.Meeting{ID: req.Meta.MeetingID, CompanyID: req.CompanyID}
	}

	var meeting *store.Meeting
	err := p.withTimeout(ctx, func(sc context.Context) error {
		var err error
		meeting, err = p.storage.CreateMeeting(sc, &store.Meeting{
			Filename:   req.Meta.Filename,
			Transcript: transcript,
			UserID:     req.UserID,
			CompanyID:  req.CompanyID,
		})
		return err
	})
	if err != nil {
		p.fail(res, StageMeetingRecord, err)
		return nil
	}
	return meeting
}

// extract tries the AI path first and falls back to the heuristic extractor
// on failure or an empty item set. The fallback lives here, not inside the
// AI adapter, so the policy is independently testable.
func (p *Pipeline) extract(ctx context.Context, transcript string, entries []roster.Entry, ref time.Time, res *Result) *extraction.MeetingSummary {
	if p.ai != nil {
		var summary *extraction.MeetingSummary
		err := p.withTimeout(ctx, func(sc context.Context) error {
			var err error
			summary, err = p.ai.Extract(sc, transcript, entries, ref)
			return err
		})
		if err == nil && len(summary.ActionItems) > 0 {
			return summary
		}
		if err != nil {
			p.fail(res, StageExtraction, fmt.Errorf("ai path: %w", err))
		}
	}

	summary, err := p.heuristic.Extract(ctx, transcript, entries, ref)
	if err != nil {
		p.fail(res, StageExtraction, fmt.Errorf("heuristic path: %w", err))
		return &extraction.MeetingSummary{ActionItems: []extraction.ActionItem{}}
	}
	return summary
}

func (p *Pipeline) resolve(ctx context.Context, items []extraction.ActionItem, companyID string, res *Result) []ResolvedTask {
	resolved := make([]ResolvedTask, 0, len(items))
	var failures []string
	for _, item := range items {
		binding, err := p.resolver.Resolve(ctx, item.AssigneeName, item.AssigneeEmail, companyID)
		if err != nil {
			// The item proceeds with whatever binding came back;
			// one bad lookup never blocks the others.
			failures = append(failures, err.Error())
		}
		display := binding.DisplayName
		if display == "" {
			display = item.AssigneeEmail
		}
		resolved = append(resolved, ResolvedTask{
			ActionItem:  item,
			RosterID:    binding.RosterID,
			DisplayName: display,
		})
	}
	if len(failures) > 0 {
		p.fail(res, StageResolution, fmt.Errorf("%s", strings.Join(failures, "; ")))
	}
	return resolved
}

func (p *Pipeline) persistTasks(ctx context.Context, req Request, meeting *store.Meeting, resolved []ResolvedTask, res *Result) []store.Task {
	if len(resolved) == 0 {
		return []store.Task{}
	}

	meetingID := ""
	if meeting != nil {
		meetingID = meeting.ID
	}

	records := make([]store.Task, 0, len(resolved))
	for _, rt := range resolved {
		records = append(records, store.Task{
			MeetingID:   meetingID,
			EmployeeID:  rt.RosterID,
			Title:       taskTitle(rt.Task),
			Description: rt.Task,
			AssignedTo:  rt.DisplayName,
			DueDate:     rt.DueDate,
			Status:      "pending",
			CompanyID:   req.CompanyID,
		})
	}

	var created []store.Task
	err := p.withTimeout(ctx, func(sc context.Context) error {
		var err error
		created, err = p.storage.CreateTasks(sc, records)
		return err
	})
	if err != nil {
		p.fail(res, StagePersistence, err)
		return []store.Task{}
	}
	return created
}

func (p *Pipeline) fail(res *Result, stage string, err error) {
	res.StageErrors[stage] = err.Error()
	if p.metrics != nil {
		p.metrics.observeStageFailure(stage)
	}
	p.logger.Warn("pipeline stage failed",
		zap.String("stage", stage),
		zap.Error(err))
}

func (p *Pipeline) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	sc, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(sc)
}

// expandEveryone replaces items assigned to "everyone" (case-insensitive)
// with one copy per roster entry, each carrying that entry's own email.
// Input order is preserved; the expansion never invents task text.
func expandEveryone(items []extraction.ActionItem, entries []roster.Entry) []extraction.ActionItem {
	out := make([]extraction.ActionItem, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item.AssigneeName, everyoneAssignee) &&
			!strings.EqualFold(item.AssigneeEmail, everyoneAssignee) {
			out = append(out, item)
			continue
		}
		for _, entry := range entries {
			fanned := item
			fanned.AssigneeName = entry.Name
			fanned.AssigneeEmail = entry.Email
			out = append(out, fanned)
		}
	}
	return out
}

func taskTitle(desc string) string {
	if len(desc) > taskTitleLimit {
		return desc[:taskTitleLimit] + "..."
	}
	return desc
}
