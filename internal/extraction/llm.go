package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Default provider configuration.
const (
	defaultGoogleAIModel = "gemini-2.0-flash"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultTimeout       = 60 * time.Second

	// Low temperature for consistent extraction.
	completionTemperature = 0.2
)

// llmCompleter implements Completer over a langchaingo model.
type llmCompleter struct {
	model   llms.Model
	timeout time.Duration
}

// NewCompleter creates a Completer for the configured provider. An empty
// API key yields a NoOpCompleter so callers can rely on Available() instead
// of configuration checks.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return &NoOpCompleter{}, nil
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	switch cfg.Provider {
	case "", "googleai":
		model := cfg.Model
		if model == "" {
			model = defaultGoogleAIModel
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("creating googleai client: %w", err)
		}
		return &llmCompleter{model: llm, timeout: timeout}, nil

	case "openai":
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		return &llmCompleter{model: llm, timeout: timeout}, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// Complete performs a single generation call under the configured timeout.
func (c *llmCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(completionTemperature))
	if err != nil {
		return "", fmt.Errorf("generation call: %w", err)
	}
	return text, nil
}

// Available reports true; an llmCompleter is only constructed with a key.
func (c *llmCompleter) Available() bool {
	return true
}

// Ensure llmCompleter implements Completer.
var _ Completer = (*llmCompleter)(nil)
