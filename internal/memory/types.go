// Package memory is the authoritative thought store: it owns thought
// content, the association graph between thoughts, and the
// activation/decay model that keeps retrieval biased toward what's
// still relevant.
package memory

import "time"

// ThoughtType is the open set of tags a thought can carry.
type ThoughtType string

const (
	TypeReflection ThoughtType = "reflection"
	TypeDream      ThoughtType = "dream"
	TypeMonologue  ThoughtType = "monologue"
	TypeExistential ThoughtType = "existential"
	TypePulse      ThoughtType = "pulse"
	TypeUser       ThoughtType = "user"
	TypeDialogue   ThoughtType = "dialogue"
)

// AssociationKind names the flavor of an edge between two thoughts.
type AssociationKind string

const (
	KindSemantic   AssociationKind = "semantic"
	KindTemporal   AssociationKind = "temporal"
	KindContextual AssociationKind = "contextual"
	KindCausal     AssociationKind = "causal"
)

// Association is a weighted, typed, directed edge from one thought to
// another. Cycles are permitted; self-loops are not.
type Association struct {
	Target string          `json:"target"`
	Weight float64         `json:"weight"`
	Kind   AssociationKind `json:"kind"`
}

// Thought is the atom of memory: a unit of generated or received text
// plus the metadata that places it in time, type, and provenance.
// Content never mutates after Save; Activation and Associations do.
type Thought struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
	Seq        uint64      `json:"seq"` // monotonic creation counter
	Type       ThoughtType `json:"type"`
	Origin     string      `json:"origin"` // job or caller that produced it
	Activation float64     `json:"activation"`
	LastAccess time.Time   `json:"last_access"`
	LastDecayed time.Time  `json:"last_decayed"`
	ParentID   string      `json:"parent_id,omitempty"`
	Metadata   Value       `json:"metadata,omitempty"`

	// Associations lives in its own file on disk (thought_associations.json);
	// it's populated here in memory for convenience but never marshaled
	// alongside the thought record itself.
	Associations []Association `json:"-"`
}

// Metadata is open-ended in the source: a caller might attach a single
// scalar, a list, or a nested bag of fields. Value models that as a
// tagged tree instead of heterogeneous map[string]any records, so
// consumers get typed accessors instead of blind type assertions.
type Value struct {
	Scalar   string           `json:"scalar,omitempty"`
	Sequence []Value          `json:"sequence,omitempty"`
	Map      map[string]Value `json:"map,omitempty"`
}

// ScalarValue wraps a plain string as a Value.
func ScalarValue(s string) Value { return Value{Scalar: s} }

// MapValue wraps a string-keyed bag as a Value.
func MapValue(m map[string]string) Value {
	v := Value{Map: make(map[string]Value, len(m))}
	for k, s := range m {
		v.Map[k] = ScalarValue(s)
	}
	return v
}

// String returns the scalar content, or "" if this Value isn't a scalar.
func (v Value) String() string { return v.Scalar }

// Field returns the named field of a map Value, and whether it was present.
func (v Value) Field(key string) (Value, bool) {
	if v.Map == nil {
		return Value{}, false
	}
	f, ok := v.Map[key]
	return f, ok
}

// FieldString is a convenience for Field(key).String() with an ok flag.
func (v Value) FieldString(key string) (string, bool) {
	f, ok := v.Field(key)
	if !ok {
		return "", false
	}
	return f.String(), true
}

// RetrieveMode selects the ranking strategy for Retrieve.
type RetrieveMode string

const (
	ModeSimilarity         RetrieveMode = "similarity"
	ModeActivationWeighted RetrieveMode = "activation-weighted"
	ModeSpreading          RetrieveMode = "spreading"
)
