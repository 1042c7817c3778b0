package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "plain terms",
			input:    "invoice march",
			expected: Query{RawInput: "invoice march", Terms: "invoice march", Limit: DefaultLimit},
		},
		{
			name:     "field and limit flags",
			input:    "invoice --in subject --limit 5",
			expected: Query{RawInput: "invoice --in subject --limit 5", Terms: "invoice", Field: SubjectField, Limit: 5},
		},
		{
			name:     "unknown field is ignored",
			input:    "--in title invoice",
			expected: Query{RawInput: "--in title invoice", Terms: "invoice", Limit: DefaultLimit},
		},
		{
			name:     "limit is capped",
			input:    "invoice --limit 1000",
			expected: Query{RawInput: "invoice --limit 1000", Terms: "invoice", Limit: MaxLimit},
		},
		{
			name:     "trailing flag is a term",
			input:    "invoice --limit",
			expected: Query{RawInput: "invoice --limit", Terms: "invoice --limit", Limit: DefaultLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NewSearchQuery(tt.input))
		})
	}
}

func TestQuery_IsEmpty(t *testing.T) {
	require.True(t, NewSearchQuery("--limit 3").IsEmpty())
	require.False(t, NewSearchQuery("hello").IsEmpty())
}
