// Package decode recovers structured JSON from noisy model output.
//
// Model responses frequently wrap the payload in prose, markdown code
// fences, or typographic quotes. JSON tries a fixed sequence of recovery
// strategies and never panics; an unrecoverable input yields
// ErrUnrecoverable so callers can degrade instead of aborting.
package decode

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnrecoverable indicates no strategy produced a parseable payload.
var ErrUnrecoverable = errors.New("no decodable JSON payload found")

var quoteNormalizer = strings.NewReplacer(
	"“", `"`, // left double
	"”", `"`, // right double
	"‘", "'", // left single
	"’", "'", // right single
)

// JSON decodes raw into v, trying in order: the whole trimmed string, the
// outermost {...} span, that span with smart quotes normalized, then the
// same for the outermost [...] span. The first successful parse wins.
func JSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrUnrecoverable
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		span, ok := outermost(trimmed, pair[0], pair[1])
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(quoteNormalizer.Replace(span)), v); err == nil {
			return nil
		}
	}
	return ErrUnrecoverable
}

// outermost returns the substring from the first opening delimiter to the
// last closing delimiter after it.
func outermost(s string, opener, closer byte) (string, bool) {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
