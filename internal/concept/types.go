// Package concept clusters the active thought population into named,
// persistent concepts, reconciles new clusters against existing concepts,
// and tracks each concept's lifecycle from emerging to central to fading.
package concept

import "time"

// Stage is a concept's position in its lifecycle.
type Stage string

const (
	StageEmerging    Stage = "emerging"
	StageEstablished Stage = "established"
	StageCentral     Stage = "central"
	StageFading      Stage = "fading"
)

// Edge is a directed concept-to-concept relationship. The underlying
// relationship is semantically undirected; storing it directed halves
// the edge list each concept has to scan.
type Edge struct {
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Concept is a persistent cluster of thoughts sharing an embedding
// neighborhood.
type Concept struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Stage       Stage     `json:"stage"`
	Centroid    []float32 `json:"centroid"`
	Members     []string  `json:"members"` // thought ids, set semantics
	FirstSeen   time.Time `json:"first_seen"`
	LastUpdated time.Time `json:"last_updated"`
	Edges       []Edge    `json:"edges,omitempty"`

	// BelowMinCycles counts consecutive evolution cycles where member
	// count stayed under MinClusterSize, driving the fading transition.
	BelowMinCycles int `json:"below_min_cycles"`
	// CyclesExisted counts every cycle this concept has survived,
	// driving the emerging->established transition.
	CyclesExisted int `json:"cycles_existed"`
}

// Salience is the sum of member thought activations; callers supply the
// activation lookup, so Concept itself holds no reference to the memory
// graph.
func (c *Concept) Salience(activation func(thoughtID string) float64) float64 {
	var sum float64
	for _, id := range c.Members {
		sum += activation(id)
	}
	return sum
}

func (c *Concept) hasMember(id string) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}

func (c *Concept) addMember(id string) {
	if !c.hasMember(id) {
		c.Members = append(c.Members, id)
	}
}
