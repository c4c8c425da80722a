package extraction

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates a generation call on an unconfigured completer.
var ErrNotConfigured = errors.New("text-generation provider not configured")

// NoOpCompleter is the stand-in when no provider is configured. Callers
// should check Available() and route to the heuristic path instead.
type NoOpCompleter struct{}

// Complete always fails with ErrNotConfigured.
func (n *NoOpCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrNotConfigured
}

// Available returns false for NoOpCompleter.
func (n *NoOpCompleter) Available() bool {
	return false
}

// Ensure NoOpCompleter implements Completer.
var _ Completer = (*NoOpCompleter)(nil)
