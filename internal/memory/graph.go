package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/embedding"
	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/store"
	"github.com/google/uuid"
)

// Tuning constants, all exposed so a redesign or a test can override them
// without touching the algorithms below.
const (
	NeighborCount       = 8     // M: top-M similar thoughts linked on save
	SimilarityThreshold = 0.55  // τ: minimum cosine similarity to link
	TemporalCount       = 3     // T: most recent thoughts linked temporally
	ActivationAlpha     = 0.7   // α: similarity weight in activation-weighted retrieval
	SpreadingDamping    = 0.5   // d: per-hop damping in spreading retrieval
	SpreadingMaxDepth   = 2
	ReinforceAmount     = 0.25 // r
	ReinforcePropagation = ReinforceAmount / 2

	DecayGracePeriod   = time.Hour
	ActivationHalfLife = 7 * 24 * time.Hour
	AssociationHalfLife = 30 * 24 * time.Hour
	AssociationEpsilon = 0.01
)

// Metadata carries caller-supplied context for Save: the focus key drives
// contextual associations, and arbitrary extra fields ride along on the
// stored thought as a Value tree.
type Metadata struct {
	Focus string
	Extra map[string]string
}

// Graph is the authoritative thought store and association graph. It
// owns the single writer path the substrate's cooperative loop serializes
// through; the mutex below only guards against the reader pool described
// for HTTP callers, not against concurrent writers.
type Graph struct {
	mu       sync.RWMutex
	dataDir  string
	embedder embedding.Embedder
	index    *embedding.Index
	thoughts map[string]*Thought
	order    []string // insertion order, parallel to creation Seq
	nextSeq  uint64
}

// New constructs an empty Graph. Call Load to hydrate from disk.
func New(dataDir string, embedder embedding.Embedder) *Graph {
	return &Graph{
		dataDir:  dataDir,
		embedder: embedder,
		index:    embedding.NewIndex(embedder.Dims()),
		thoughts: make(map[string]*Thought),
	}
}

// Load hydrates the graph from the on-disk thought store, associations
// file, and vector index. A missing vector index (or one that fails to
// parse) triggers a rebuild from the thought store, per the corrupt-state
// recovery policy.
func (g *Graph) Load() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var thoughts []*Thought
	ok, err := store.LoadJSON(config.ThoughtsPath(g.dataDir), &thoughts)
	if err != nil {
		return fmt.Errorf("load thoughts: %w", err)
	}
	if ok {
		for _, t := range thoughts {
			if t.LastDecayed.IsZero() {
				t.LastDecayed = t.LastAccess
			}
			g.thoughts[t.ID] = t
			g.order = append(g.order, t.ID)
			if t.Seq >= g.nextSeq {
				g.nextSeq = t.Seq + 1
			}
		}
		sort.Slice(g.order, func(i, j int) bool {
			return g.thoughts[g.order[i]].Seq < g.thoughts[g.order[j]].Seq
		})

		var assocs map[string][]Association
		assocOK, assocErr := store.LoadJSON(config.AssociationsPath(g.dataDir), &assocs)
		if assocErr != nil {
			return fmt.Errorf("load associations: %w", assocErr)
		}
		if assocOK {
			for id, a := range assocs {
				if t, ok := g.thoughts[id]; ok {
					t.Associations = a
				}
			}
		}
	}

	idx, idxOK, idxErr := embedding.Load(config.VectorIndexPath(g.dataDir))
	if idxErr == nil && idxOK {
		g.index = idx
		return nil
	}
	if idxErr != nil {
		logger.Component("memory").Warn("vector index corrupt, rebuilding from thought store", "error", idxErr)
	}
	return g.rebuildIndexLocked()
}

// rebuildIndexLocked re-embeds every stored thought into a fresh index.
// Callers must hold g.mu.
func (g *Graph) rebuildIndexLocked() error {
	g.index = embedding.NewIndex(g.embedder.Dims())
	for _, id := range g.order {
		t := g.thoughts[id]
		vecs, err := g.embedder.Embed([]string{t.Content})
		if err != nil {
			logger.Component("memory").Warn("rebuild: embed failed, thought stays index-less", "thought_id", id, "error", err)
			continue
		}
		g.index.Add(id, embedding.Normalize(vecs[0]))
	}
	return nil
}

// Save assigns an id and timestamp, embeds the content best-effort, and
// establishes semantic, temporal, and contextual associations before
// persisting.
func (g *Graph) Save(content string, meta Metadata, typ ThoughtType, origin string) (*Thought, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	t := &Thought{
		ID:         uuid.NewString(),
		Content:    content,
		CreatedAt:  now,
		Seq:        g.nextSeq,
		Type:       typ,
		Origin:     origin,
		Activation:  1.0,
		LastAccess:  now,
		LastDecayed: now,
	}
	if meta.Extra != nil {
		t.Metadata = MapValue(meta.Extra)
	}
	g.nextSeq++

	var vec []float32
	if vecs, err := g.embedder.Embed([]string{content}); err != nil {
		logger.Component("memory").Warn("save: embedding backend unavailable, thought persisted without vector", "error", err)
	} else {
		vec = embedding.Normalize(vecs[0])
	}

	g.thoughts[t.ID] = t
	g.order = append(g.order, t.ID)

	if vec != nil {
		g.index.Add(t.ID, vec)
		g.linkSemanticLocked(t, vec)
	}
	g.linkTemporalLocked(t)
	g.linkContextualLocked(t, meta)

	if err := g.persistLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

func (g *Graph) linkSemanticLocked(t *Thought, vec []float32) {
	hits := g.index.Search(vec, NeighborCount+1) // +1: the thought's own just-added row
	for _, h := range hits {
		if h.ID == t.ID {
			continue
		}
		other, ok := g.index.Get(h.ID)
		if !ok {
			continue
		}
		sim := float64(embedding.Cosine(vec, other))
		if sim < SimilarityThreshold {
			continue
		}
		g.addAssociationLocked(t, h.ID, sim, KindSemantic)
	}
}

func (g *Graph) linkTemporalLocked(t *Thought) {
	count := 0
	for i := len(g.order) - 2; i >= 0 && count < TemporalCount; i-- {
		prevID := g.order[i]
		if prevID == t.ID {
			continue
		}
		prev := g.thoughts[prevID]
		gap := t.CreatedAt.Sub(prev.CreatedAt)
		weight := math.Exp(-gap.Hours() / 24)
		if weight <= 0 {
			continue
		}
		g.addAssociationLocked(t, prevID, weight, KindTemporal)
		count++
	}
}

func (g *Graph) linkContextualLocked(t *Thought, meta Metadata) {
	if meta.Focus == "" {
		return
	}
	for _, id := range g.order {
		if id == t.ID {
			continue
		}
		other := g.thoughts[id]
		if other.Type != t.Type {
			continue
		}
		focus, ok := other.Metadata.FieldString("focus")
		if !ok || focus != meta.Focus {
			continue
		}
		g.addAssociationLocked(t, id, 0.5, KindContextual)
	}
}

// addAssociationLocked adds or strengthens a directed edge, summing
// weights when the same target is hit by multiple kinds and clamping
// the final weight to 1. Self-loops are rejected.
func (g *Graph) addAssociationLocked(from *Thought, targetID string, weight float64, kind AssociationKind) {
	if from.ID == targetID {
		return
	}
	for i, a := range from.Associations {
		if a.Target == targetID {
			from.Associations[i].Weight = math.Min(1, a.Weight+weight)
			return
		}
	}
	from.Associations = append(from.Associations, Association{
		Target: targetID,
		Weight: math.Min(1, weight),
		Kind:   kind,
	})
}

// Index exposes the underlying vector index to collaborators (concept
// clustering) that need the whole embedded population, not just
// nearest-neighbor queries.
func (g *Graph) Index() *embedding.Index {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index
}

// ActiveThoughts returns every thought whose activation is at least
// theta, the population concept clustering operates over.
func (g *Graph) ActiveThoughts(theta float64) []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Thought, 0, len(g.thoughts))
	for _, id := range g.order {
		t := g.thoughts[id]
		if t.Activation >= theta {
			out = append(out, t)
		}
	}
	return out
}

// Get returns a thought by id.
func (g *Graph) Get(id string) (*Thought, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.thoughts[id]
	if !ok {
		return nil, fmt.Errorf("%w: thought %s", store.ErrNotFound, id)
	}
	return t, nil
}

// Recent returns the n most recently created thoughts, optionally
// filtered by type. Most recent first.
func (g *Graph) Recent(n int, typ ThoughtType) []*Thought {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Thought, 0, n)
	for i := len(g.order) - 1; i >= 0 && len(out) < n; i-- {
		t := g.thoughts[g.order[i]]
		if typ != "" && t.Type != typ {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Reinforce bumps a thought's activation toward the ceiling and
// propagates half that bump to directly connected thoughts.
func (g *Graph) Reinforce(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.thoughts[id]
	if !ok {
		return fmt.Errorf("%w: thought %s", store.ErrNotFound, id)
	}
	t.Activation = math.Min(1, t.Activation+ReinforceAmount)
	t.LastAccess = time.Now()

	for _, a := range t.Associations {
		if target, ok := g.thoughts[a.Target]; ok {
			target.Activation = math.Min(1, target.Activation+ReinforcePropagation)
		}
	}
	return g.persistLocked()
}

// Decay applies exponential activation decay (half-life ≈ 7 days) to
// every thought past the grace period, and association-weight decay
// (half-life ≈ 30 days) to every edge, dropping edges below epsilon.
//
// Decay is driven by the periodic pulse job, so it runs repeatedly
// against the same thought over its lifetime: the elapsed time fed into
// the exponent is measured since LastDecayed (this thought's own last
// decay application), not since LastAccess, so each tick only accounts
// for the time that's actually passed since decay was last applied.
// Using LastAccess there instead would re-apply the same growing age to
// an already-shrunk activation on every tick, compounding well past the
// intended half-life.
func (g *Graph) Decay(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	activationLambda := math.Ln2 / ActivationHalfLife.Hours()
	assocLambda := math.Ln2 / AssociationHalfLife.Hours()

	for _, t := range g.thoughts {
		if now.Sub(t.LastAccess) < DecayGracePeriod {
			continue
		}
		elapsed := now.Sub(t.LastDecayed)
		if elapsed <= 0 {
			continue
		}

		t.Activation *= math.Exp(-activationLambda * elapsed.Hours())
		t.Activation = math.Max(0, math.Min(1, t.Activation))

		kept := t.Associations[:0]
		for _, a := range t.Associations {
			a.Weight *= math.Exp(-assocLambda * elapsed.Hours())
			if a.Weight >= AssociationEpsilon {
				kept = append(kept, a)
			}
		}
		t.Associations = kept
		t.LastDecayed = now
	}
	return g.persistLocked()
}

func (g *Graph) persistLocked() error {
	thoughts := make([]*Thought, 0, len(g.order))
	assocs := make(map[string][]Association, len(g.order))
	for _, id := range g.order {
		t := g.thoughts[id]
		thoughts = append(thoughts, t)
		if len(t.Associations) > 0 {
			assocs[id] = t.Associations
		}
	}
	if err := store.SaveJSON(config.ThoughtsPath(g.dataDir), thoughts); err != nil {
		return fmt.Errorf("persist thoughts: %w", err)
	}
	if err := store.SaveJSON(config.AssociationsPath(g.dataDir), assocs); err != nil {
		return fmt.Errorf("persist associations: %w", err)
	}
	if err := g.index.Save(config.VectorIndexPath(g.dataDir)); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}
	if g.index.TombstoneRatio() > embedding.RebuildThreshold {
		g.index.Rebuild()
	}
	return nil
}
