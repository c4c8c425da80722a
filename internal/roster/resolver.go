package roster

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Resolver binds assignee names/emails to directory entries.
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve maps one assignee to a Binding.
//
// With an email, the directory is consulted; on miss a new entry is created
// using the supplied name, or the local part of the email when no name was
// extracted. Creation failures are non-fatal: the returned Binding carries
// no roster id and the supplied name/email as display fallback, and the
// error is returned for stage-level recording.
//
// Without an email no lookup is attempted and the binding stays unbound.
func (r *Resolver) Resolve(ctx context.Context, name, email, companyID string) (Binding, error) {
	if email == "" {
		return Binding{DisplayName: name}, nil
	}

	entry, err := r.dir.FindByEmail(ctx, email, companyID)
	if err == nil {
		return Binding{RosterID: entry.ID, DisplayName: entry.Name, Email: entry.Email}, nil
	}
	if err != ErrNotFound {
		r.logger.Warn("roster lookup failed",
			zap.String("email", email),
			zap.String("company_id", companyID),
			zap.Error(err))
		return fallbackBinding(name, email), fmt.Errorf("lookup %s: %w", email, err)
	}

	created, err := r.dir.Create(ctx, deriveName(name, email), email, companyID)
	if err != nil {
		r.logger.Warn("roster create failed",
			zap.String("email", email),
			zap.String("company_id", companyID),
			zap.Error(err))
		return fallbackBinding(name, email), fmt.Errorf("create %s: %w", email, err)
	}

	r.logger.Info("created roster entry",
		zap.String("id", created.ID),
		zap.String("email", created.Email))
	return Binding{RosterID: created.ID, DisplayName: created.Name, Email: created.Email}, nil
}

// deriveName prefers the extracted name, else the email local part.
func deriveName(name, email string) string {
	if name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func fallbackBinding(name, email string) Binding {
	display := name
	if display == "" {
		display = email
	}
	return Binding{DisplayName: display, Email: email}
}
