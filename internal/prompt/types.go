// Package prompt maintains a population of reusable prompt patterns per
// thought type, selects among them in proportion to their track record,
// and mutates successful patterns into new variants over time.
package prompt

import "time"

// Pattern is one reusable prompt template tied to a thought type.
type Pattern struct {
	ID        string    `json:"id"`
	ThoughtType string  `json:"thought_type"`
	Template  string    `json:"template"`
	ParentID  string    `json:"parent_id,omitempty"`
	UsageCount int      `json:"usage_count"`
	Score     float64   `json:"score"` // EWMA of feedback signals, [0,1]
	CreatedAt time.Time `json:"created_at"`
	Seed      bool      `json:"seed"` // seed patterns are never retired or mutated away
}

// Selection is what Select returns: the pattern chosen and its rendered
// output.
type Selection struct {
	PatternID string
	Rendered  string
}
