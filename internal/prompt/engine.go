package prompt

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/store"
	"github.com/google/uuid"
)

// FeedbackDecay is the EWMA weight given to a fresh feedback signal.
const FeedbackDecay = 0.2

// StarvationPrior is the minimum selection weight every pattern keeps
// regardless of score, so a pattern that has never been tried still has
// a chance to be picked instead of being starved out forever.
const StarvationPrior = 0.1

// RetirementThreshold is the score below which a non-seed, non-parent
// derived pattern is dropped during evolve().
const RetirementThreshold = 0.15

// seedTemplates is one immutable starting pattern per thought type.
var seedTemplates = map[string]string{
	"reflection":  "Consider what {{context}} means and why it matters now.",
	"dream":       "Describe what you currently notice across: {{context}}.",
	"monologue":   "Recall anything related to {{context}} and voice a passing thought about it.",
	"existential": "Summarize {{context}} into a question about what it is all for.",
}

// Engine owns the pattern population for every thought type.
type Engine struct {
	mu       sync.Mutex
	dataDir  string
	rng      *rand.Rand
	patterns map[string]*Pattern // id -> pattern
}

// New constructs an Engine backed by dataDir for persistence.
func New(dataDir string) *Engine {
	return &Engine{
		dataDir:  dataDir,
		rng:      rand.New(rand.NewSource(1)),
		patterns: make(map[string]*Pattern),
	}
}

// Load hydrates the pattern population from disk, seeding one immutable
// pattern per thought type on first run.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var patterns []*Pattern
	ok, err := store.LoadJSON(config.PatternsPath(e.dataDir), &patterns)
	if err != nil {
		return fmt.Errorf("load prompt patterns: %w", err)
	}
	if ok {
		for _, p := range patterns {
			e.patterns[p.ID] = p
		}
	}

	for thoughtType, tmpl := range seedTemplates {
		if e.hasSeedLocked(thoughtType) {
			continue
		}
		seed := &Pattern{
			ID:          uuid.NewString(),
			ThoughtType: thoughtType,
			Template:    tmpl,
			Score:       0.5,
			CreatedAt:   time.Now(),
			Seed:        true,
		}
		e.patterns[seed.ID] = seed
	}
	return e.persistLocked()
}

func (e *Engine) hasSeedLocked(thoughtType string) bool {
	for _, p := range e.patterns {
		if p.Seed && p.ThoughtType == thoughtType {
			return true
		}
	}
	return false
}

func (e *Engine) persistLocked() error {
	out := make([]*Pattern, 0, len(e.patterns))
	for _, p := range e.patterns {
		out = append(out, p)
	}
	if err := store.SaveJSON(config.PatternsPath(e.dataDir), out); err != nil {
		return fmt.Errorf("persist prompt patterns: %w", err)
	}
	return nil
}

// Select picks a pattern for thoughtType with probability proportional
// to (score + StarvationPrior), renders it against vars, and records the
// use.
func (e *Engine) Select(thoughtType string, vars map[string]string) (Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var candidates []*Pattern
	var total float64
	for _, p := range e.patterns {
		if p.ThoughtType != thoughtType {
			continue
		}
		candidates = append(candidates, p)
		total += p.Score + StarvationPrior
	}
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("%w: no patterns registered for thought type %q", store.ErrNotFound, thoughtType)
	}

	pick := e.rng.Float64() * total
	var chosen *Pattern
	for _, p := range candidates {
		pick -= p.Score + StarvationPrior
		if pick <= 0 {
			chosen = p
			break
		}
	}
	if chosen == nil {
		chosen = candidates[len(candidates)-1]
	}

	rendered := Interpolate(chosen.Template, vars)
	if missing := Unresolved(rendered); len(missing) > 0 {
		return Selection{}, fmt.Errorf("%w: pattern %s leaves placeholders %v unresolved", store.ErrPatternMismatch, chosen.ID, missing)
	}

	chosen.UsageCount++
	if err := e.persistLocked(); err != nil {
		return Selection{}, err
	}
	return Selection{PatternID: chosen.ID, Rendered: rendered}, nil
}

// Feedback folds signal (expected in [0,1], caller-normalized) into the
// pattern's running score via an exponentially weighted moving average.
func (e *Engine) Feedback(patternID string, signal float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.patterns[patternID]
	if !ok {
		return fmt.Errorf("%w: pattern %s", store.ErrNotFound, patternID)
	}
	p.Score = (1-FeedbackDecay)*p.Score + FeedbackDecay*signal
	return e.persistLocked()
}

// Extract proposes a new candidate pattern from a realized thought's
// content for a thought type, abstracting every occurrence of the context
// value that produced it back into a {{context}} placeholder. Callers
// decide separately whether to register it via evolve-style bookkeeping;
// Extract itself never mutates the population.
func Extract(content, thoughtType, context string) *Pattern {
	if content == "" {
		return nil
	}
	template := content
	if context != "" {
		template = strings.ReplaceAll(content, context, "{{context}}")
	}
	return &Pattern{
		ID:          uuid.NewString(),
		ThoughtType: thoughtType,
		Template:    template,
		CreatedAt:   time.Now(),
	}
}

// Evolve mutates the highest-scoring pattern per thought type through
// each of the fixed mutator strategies, registers the children, and
// retires low-scoring non-seed patterns that have accumulated enough
// usage to trust their score.
func (e *Engine) Evolve() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	byType := make(map[string][]*Pattern)
	for _, p := range e.patterns {
		byType[p.ThoughtType] = append(byType[p.ThoughtType], p)
	}

	for thoughtType, group := range byType {
		best := bestScoring(group)
		if best == nil {
			continue
		}
		for _, m := range mutatorsFor {
			variant := m(best.Template)
			if variant == best.Template {
				continue
			}
			child := &Pattern{
				ID:          uuid.NewString(),
				ThoughtType: thoughtType,
				Template:    variant,
				ParentID:    best.ID,
				Score:       best.Score * ParentScoreDecay,
				CreatedAt:   time.Now(),
			}
			e.patterns[child.ID] = child
		}
	}

	for id, p := range e.patterns {
		if p.Seed || p.ParentID == "" {
			continue
		}
		if p.UsageCount >= 5 && p.Score < RetirementThreshold {
			delete(e.patterns, id)
		}
	}

	return e.persistLocked()
}

func bestScoring(group []*Pattern) *Pattern {
	var best *Pattern
	for _, p := range group {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	return best
}

// List returns every pattern registered for thoughtType ("" = all).
func (e *Engine) List(thoughtType string) []*Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Pattern, 0, len(e.patterns))
	for _, p := range e.patterns {
		if thoughtType != "" && p.ThoughtType != thoughtType {
			continue
		}
		out = append(out, p)
	}
	return out
}
