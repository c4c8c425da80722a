// Package roster maps extracted assignees to canonical employee records
// within a company scope, creating records on miss when an email is known.
package roster

import (
	"context"
	"errors"
)

// Entry is one employee record in a company roster.
// (email, company_id) is unique within the directory.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"company_id"`
}

// ErrNotFound indicates no entry matched a lookup.
var ErrNotFound = errors.New("roster entry not found")

// Directory is the lookup/creation boundary backed by the persistent store.
type Directory interface {
	// FindByEmail returns the entry for (email, companyID), or ErrNotFound.
	FindByEmail(ctx context.Context, email, companyID string) (*Entry, error)

	// Create inserts a new entry scoped to companyID and returns it.
	Create(ctx context.Context, name, email, companyID string) (*Entry, error)
}

// Binding is the result of resolving one assignee against the directory.
// RosterID is empty when no record was found or created.
type Binding struct {
	RosterID    string `json:"roster_id,omitempty"`
	DisplayName string `json:"resolved_display_name"`
	Email       string `json:"email,omitempty"`
}
