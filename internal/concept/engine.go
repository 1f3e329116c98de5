package concept

import (
	"fmt"
	"sync"
	"time"

	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/memory"
	"github.com/ehrlich-b/noetic/internal/store"
	"github.com/google/uuid"
)

// MaxConceptsPerThought is K: the invariant cap on how many concepts a
// single thought may belong to.
const MaxConceptsPerThought = 3

// IntegrateThreshold is the centroid-similarity floor for attaching a
// thought to an existing concept outside of a full evolution cycle.
const IntegrateThreshold = 0.6

func newConceptID() string { return uuid.NewString() }

// Engine owns the concept population: clustering, reconciliation,
// lifecycle transitions, and the concept graph. It reads thoughts and
// their vectors from a memory.Graph but never mutates it.
type Engine struct {
	mu       sync.Mutex
	dataDir  string
	graph    *memory.Graph
	scratch  *Scratch
	concepts map[string]*Concept
	memberOf map[string][]string // thought id -> concept ids, rebuilt on load
}

// New constructs an Engine. The debugging scratch store is opened later
// by Load, best-effort.
func New(dataDir string, graph *memory.Graph) *Engine {
	return &Engine{
		dataDir:  dataDir,
		graph:    graph,
		concepts: make(map[string]*Concept),
		memberOf: make(map[string][]string),
	}
}

// Load hydrates concepts from disk and opens the scratch database
// best-effort; a scratch-open failure is logged, not fatal.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var concepts []*Concept
	ok, err := store.LoadJSON(config.ConceptsPath(e.dataDir), &concepts)
	if err != nil {
		return fmt.Errorf("load concepts: %w", err)
	}
	if ok {
		for _, c := range concepts {
			e.concepts[c.ID] = c
			for _, m := range c.Members {
				e.memberOf[m] = append(e.memberOf[m], c.ID)
			}
		}
	}

	scratch, err := OpenScratch(config.ConceptScratchPath(e.dataDir))
	if err != nil {
		logger.Component("concept").Warn("scratch store unavailable, clustering will run without an audit log", "error", err)
	} else {
		e.scratch = scratch
	}
	return nil
}

func (e *Engine) persistLocked() error {
	out := make([]*Concept, 0, len(e.concepts))
	for _, c := range e.concepts {
		out = append(out, c)
	}
	if err := store.SaveJSON(config.ConceptsPath(e.dataDir), out); err != nil {
		return fmt.Errorf("persist concepts: %w", err)
	}
	return nil
}

// IntegrationResult reports what Integrate decided for one thought.
type IntegrationResult struct {
	Concepts      []ConceptScore
	NewlyAssigned bool
}

// ConceptScore pairs a concept id with the similarity that earned it.
type ConceptScore struct {
	ConceptID string
	Score     float64
}

// Integrate attaches a thought to up to MaxConceptsPerThought concepts
// whose centroid similarity passes IntegrateThreshold. Concept
// centroids are not recomputed here — only at evolution-cycle time —
// to keep centroids stable between cycles.
func (e *Engine) Integrate(t *memory.Thought, vec []float32) (IntegrationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vec == nil {
		return IntegrationResult{}, nil
	}

	var candidates []conceptScore
	for _, c := range e.concepts {
		if c.Stage == StageFading {
			continue
		}
		sim := CosineSimilarity(vec, c.Centroid)
		if sim >= IntegrateThreshold {
			candidates = append(candidates, conceptScore{c: c, sim: sim})
		}
	}
	sortScoredDesc(candidates)
	if len(candidates) > MaxConceptsPerThought {
		candidates = candidates[:MaxConceptsPerThought]
	}

	result := IntegrationResult{NewlyAssigned: len(candidates) > 0}
	for _, s := range candidates {
		s.c.addMember(t.ID)
		s.c.LastUpdated = time.Now()
		e.memberOf[t.ID] = append(e.memberOf[t.ID], s.c.ID)
		result.Concepts = append(result.Concepts, ConceptScore{ConceptID: s.c.ID, Score: s.sim})
	}
	if len(candidates) > 0 {
		return result, e.persistLocked()
	}
	return result, nil
}

type conceptScore struct {
	c   *Concept
	sim float64
}

func sortScoredDesc(s []conceptScore) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].sim > s[j-1].sim; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// List returns concepts, optionally filtered by stage ("" = all).
func (e *Engine) List(stage Stage) []*Concept {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Concept, 0, len(e.concepts))
	for _, c := range e.concepts {
		if stage != "" && c.Stage != stage {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Neighbors returns the concept graph edges for conceptID.
func (e *Engine) Neighbors(conceptID string) ([]Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.concepts[conceptID]
	if !ok {
		return nil, fmt.Errorf("%w: concept %s", store.ErrNotFound, conceptID)
	}
	return c.Edges, nil
}

// ForceEvolve runs one full evolution cycle immediately: cluster the
// active thought population, reconcile clusters against existing
// concepts, advance lifecycle stages, and recompute the concept graph.
func (e *Engine) ForceEvolve() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.graph.ActiveThoughts(ActivationFloor)
	points := make(map[string][]float32, len(active))
	contentByID := make(map[string]string, len(active))
	for _, t := range active {
		if v, ok := e.graph.Index().Get(t.ID); ok {
			points[t.ID] = v
			contentByID[t.ID] = t.Content
		}
	}

	clusters := Cluster(points, MinClusterSize)
	noise := len(points)
	for _, cl := range clusters {
		noise -= len(cl)
	}
	if e.scratch != nil {
		if err := e.scratch.RecordRun(clusters, noise, 0); err != nil {
			logger.Component("concept").Warn("scratch: failed to record run", "error", err)
		}
	}

	existing := make([]*Concept, 0, len(e.concepts))
	for _, c := range e.concepts {
		existing = append(existing, c)
	}

	for _, cluster := range clusters {
		vecs := make([][]float32, 0, len(cluster))
		contents := make([]string, 0, len(cluster))
		for _, id := range cluster {
			vecs = append(vecs, points[id])
			contents = append(contents, contentByID[id])
		}
		centroid := Centroid(vecs)
		label := DeriveLabel(contents)

		result := Reconcile(existing, cluster, centroid, label, time.Now)
		if result.created != nil {
			e.concepts[result.created.ID] = result.created
			existing = append(existing, result.created)
		}
	}

	e.rebuildMemberIndexLocked()

	salience := make(map[string]float64, len(e.concepts))
	activation := func(id string) float64 {
		if t, err := e.graph.Get(id); err == nil {
			return t.Activation
		}
		return 0
	}
	all := make([]*Concept, 0, len(e.concepts))
	for _, c := range e.concepts {
		salience[c.ID] = c.Salience(activation)
		all = append(all, c)
	}

	kept, deleted := AdvanceLifecycle(all, salience)
	for _, d := range deleted {
		delete(e.concepts, d.ID)
	}
	RecomputeEdges(kept)

	e.rebuildMemberIndexLocked()
	return e.persistLocked()
}

func (e *Engine) rebuildMemberIndexLocked() {
	e.memberOf = make(map[string][]string)
	for _, c := range e.concepts {
		for _, m := range c.Members {
			e.memberOf[m] = append(e.memberOf[m], c.ID)
		}
	}
}
