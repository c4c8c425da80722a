// Package store persists rosters, meetings, and tasks in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/minuted/internal/roster"
)

// Store wraps SQLite access for employees, meetings, and tasks.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and pooled
	// connections would each see a distinct ":memory:" database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			company_id TEXT NOT NULL,
			created_at TIMESTAMP,
			UNIQUE(email, company_id)
		);`,
		`CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			filename TEXT,
			transcript TEXT,
			summary TEXT,
			user_id TEXT,
			company_id TEXT NOT NULL,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			meeting_id TEXT,
			employee_id TEXT,
			title TEXT,
			task_description TEXT,
			assigned_to TEXT,
			due_date TEXT,
			status TEXT,
			company_id TEXT NOT NULL,
			created_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_meeting ON tasks(meeting_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_company ON tasks(company_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Meeting is one persisted meeting record.
type Meeting struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	CompanyID  string    `json:"company_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Task is one persisted task record.
type Task struct {
	ID          string    `json:"id"`
	MeetingID   string    `json:"meeting_id,omitempty"`
	EmployeeID  string    `json:"employee_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"task_description"`
	AssignedTo  string    `json:"assigned_to"`
	DueDate     string    `json:"due_date,omitempty"`
	Status      string    `json:"status"`
	CompanyID   string    `json:"company_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetRoster returns all employees in a company scope.
func (s *Store) GetRoster(ctx context.Context, companyID string) ([]roster.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, company_id FROM employees WHERE company_id=? ORDER BY created_at, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []roster.Entry
	for rows.Next() {
		var e roster.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.CompanyID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindByEmail returns the employee for (email, companyID), or
// roster.ErrNotFound.
func (s *Store) FindByEmail(ctx context.Context, email, companyID string) (*roster.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, company_id FROM employees WHERE email=? AND company_id=?`,
		email, companyID)
	var e roster.Entry
	switch err := row.Scan(&e.ID, &e.Name, &e.Email, &e.CompanyID); err {
	case nil:
		return &e, nil
	case sql.ErrNoRows:
		return nil, roster.ErrNotFound
	default:
		return nil, err
	}
}

// Create inserts a new employee scoped to companyID.
func (s *Store) Create(ctx context.Context, name, email, companyID string) (*roster.Entry, error) {
	e := roster.Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CompanyID: companyID,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees(id, name, email, company_id, created_at) VALUES(?,?,?,?,?)`,
		e.ID, e.Name, e.Email, e.CompanyID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateMeeting inserts a meeting record and returns it with id and
// timestamp populated.
func (s *Store) CreateMeeting(ctx context.Context, m *Meeting) (*Meeting, error) {
	created := *m
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings(id, filename, transcript, summary, user_id, company_id, created_at) VALUES(?,?,?,?,?,?,?)`,
		created.ID, created.Filename, created.Transcript, created.Summary, created.UserID, created.CompanyID, created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMeetingSummary sets the summary on an existing meeting.
func (s *Store) UpdateMeetingSummary(ctx context.Context, id, summary string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE meetings SET summary=? WHERE id=?`, summary, id)
	return err
}

// CreateTasks inserts the given tasks in one transaction and returns them
// with ids and timestamps populated. Input order is preserved.
func (s *Store) CreateTasks(ctx context.Context, tasks []Task) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	created := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		t.ID = uuid.NewString()
		t.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks(id, meeting_id, employee_id, title, task_description, assigned_to, due_date, status, company_id, created_at)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			t.ID, t.MeetingID, t.EmployeeID, t.Title, t.Description, t.AssignedTo, t.DueDate, t.Status, t.CompanyID, t.CreatedAt)
		if err != nil {
			return nil, err
		}
		created = append(created, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// Ensure Store implements the roster directory boundary.
var _ roster.Directory = (*Store)(nil)
