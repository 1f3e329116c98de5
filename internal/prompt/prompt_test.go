package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/ehrlich-b/noetic/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e := New(dir)
	if err := e.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestLoadSeedsOnePatternPerThoughtType(t *testing.T) {
	e := newTestEngine(t)
	for thoughtType := range seedTemplates {
		found := false
		for _, p := range e.List(thoughtType) {
			if p.Seed {
				found = true
			}
		}
		if !found {
			t.Errorf("thought type %q: no seed pattern found", thoughtType)
		}
	}
}

func TestSelectRendersPlaceholders(t *testing.T) {
	e := newTestEngine(t)
	sel, err := e.Select("reflection", map[string]string{"context": "a quiet morning"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if strings.Contains(sel.Rendered, "{{") {
		t.Errorf("Select: rendered output still has an unresolved placeholder: %q", sel.Rendered)
	}
	if !strings.Contains(sel.Rendered, "a quiet morning") {
		t.Errorf("Select: rendered output missing substituted value: %q", sel.Rendered)
	}
}

func TestSelectUnknownThoughtTypeIsNotFound(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Select("nonexistent", nil); err == nil {
		t.Fatal("Select: want error for unregistered thought type")
	}
}

func TestSelectReturnsPatternMismatchForUnresolvedPlaceholder(t *testing.T) {
	e := newTestEngine(t)
	// No "context" supplied at all, so the seed template's placeholder
	// can never resolve.
	if _, err := e.Select("reflection", map[string]string{}); !errors.Is(err, store.ErrPatternMismatch) {
		t.Fatalf("Select: got %v, want %v", err, store.ErrPatternMismatch)
	}
}

func TestEvolvedChildrenStillRenderWithOnlyContextVar(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Evolve(); err != nil {
		t.Fatalf("Evolve: %v", err)
	}

	vars := map[string]string{"context": "a quiet morning"}
	for _, p := range e.List("reflection") {
		rendered := Interpolate(p.Template, vars)
		if missing := Unresolved(rendered); len(missing) > 0 {
			t.Errorf("pattern %s (parent=%s): unresolved placeholders %v after evolve with only %v supplied", p.ID, p.ParentID, missing, vars)
		}
	}
}

func TestFeedbackMovesScoreTowardSignal(t *testing.T) {
	e := newTestEngine(t)
	var id string
	for _, p := range e.List("existential") {
		id = p.ID
		break
	}
	before := e.patterns[id].Score
	if err := e.Feedback(id, 1.0); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	after := e.patterns[id].Score
	if after <= before {
		t.Errorf("Feedback: score did not move toward positive signal: before=%v after=%v", before, after)
	}
}

func TestEvolveProducesChildrenFromBestPattern(t *testing.T) {
	e := newTestEngine(t)
	var seedID string
	for _, p := range e.List("monologue") {
		seedID = p.ID
	}
	if err := e.Feedback(seedID, 1.0); err != nil {
		t.Fatalf("Feedback: %v", err)
	}

	before := len(e.List("monologue"))
	if err := e.Evolve(); err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	after := len(e.List("monologue"))
	if after <= before {
		t.Errorf("Evolve: want new derived patterns, got %d -> %d", before, after)
	}

	for _, p := range e.List("monologue") {
		if p.ParentID == seedID && p.Score <= 0 {
			t.Errorf("child pattern %s: want inherited nonzero score, got %v", p.ID, p.Score)
		}
	}
}

func TestEvolveRetiresLowScoringUsedDerivedPatterns(t *testing.T) {
	e := newTestEngine(t)
	child := &Pattern{ID: "child-1", ThoughtType: "existential", Template: "x", ParentID: "parent", Score: 0.01, UsageCount: 10}
	e.patterns[child.ID] = child

	if err := e.Evolve(); err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if _, ok := e.patterns[child.ID]; ok {
		t.Error("Evolve: want low-scoring, well-used derived pattern retired")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e1 := New(dir)
	if err := e1.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := e1.Select("existential", map[string]string{"context": "x"}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	e2 := New(dir)
	if err := e2.Load(); err != nil {
		t.Fatalf("reload Load: %v", err)
	}
	if len(e2.patterns) != len(e1.patterns) {
		t.Errorf("reload: got %d patterns, want %d", len(e2.patterns), len(e1.patterns))
	}
}
