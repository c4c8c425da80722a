package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/minuted/internal/roster"
)

func TestCorrectNames(t *testing.T) {
	entries := []roster.Entry{
		{Name: "Alice Smith", Email: "alice@co.com"},
		{Name: "Sebastian", Email: "sebastian@co.com"},
	}

	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{
			name:       "near miss spelling is corrected",
			transcript: "Alise needs to finish the report.",
			want:       "Alice needs to finish the report.",
		},
		{
			name:       "longer names tolerate two edits",
			transcript: "Sebastain will present, and Sabastian takes notes.",
			want:       "Sebastian will present, and Sebastian takes notes.",
		},
		{
			name:       "different initial is never rewritten",
			transcript: "We should slice the work differently.",
			want:       "We should slice the work differently.",
		},
		{
			name:       "exact match is left untouched",
			transcript: "Alice already knows.",
			want:       "Alice already knows.",
		},
		{
			name:       "short words are never corrected",
			transcript: "Send a memo to the team.",
			want:       "Send a memo to the team.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrectNames(tt.transcript, entries))
		})
	}
}

func TestCorrectNamesEmptyRoster(t *testing.T) {
	transcript := "Alise needs to finish the report."
	assert.Equal(t, transcript, CorrectNames(transcript, nil))
}
