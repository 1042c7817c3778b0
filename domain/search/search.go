package search

import (
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Field restricts the search to one part of the message.
type Field string

const (
	AnyField     Field = ""
	SubjectField Field = "subject"
	ContentField Field = "content"
)

// Query represents the structured parameters of a mailbox search.
// It decouples the raw user input from the actual index requirements.
type Query struct {
	RawInput string // The original input of the user
	Terms    string // The actual text to search in the index
	Field    Field  // Restrict the match to subject or content
	Limit    int    // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: invoice march --in subject --limit 5
func NewSearchQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --in subject or --limit 5
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "in":
				switch Field(val) {
				case SubjectField, ContentField:
					query.Field = Field(val)
				}
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = min(limit, MaxLimit)
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// IsEmpty reports whether there is nothing to search for.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Terms) == ""
}
