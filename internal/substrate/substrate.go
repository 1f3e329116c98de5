// Package substrate wires memory, concept, prompt, and scheduler into
// one constructed value exposing the in-process API. It is never a
// singleton: callers build one per data directory, which is how tests
// run several substrates side by side against separate temp dirs.
package substrate

import (
	"context"
	"fmt"
	"time"

	"github.com/ehrlich-b/noetic/internal/concept"
	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/embedding"
	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/memory"
	"github.com/ehrlich-b/noetic/internal/oracle"
	"github.com/ehrlich-b/noetic/internal/prompt"
	"github.com/ehrlich-b/noetic/internal/scheduler"
	"github.com/ehrlich-b/noetic/internal/store"
)

// Substrate is the assembled cognitive system: one memory graph, one
// concept engine, one prompt store, one scheduler, all sharing a data
// directory and an exclusive directory lock.
type Substrate struct {
	cfg     *config.Config
	dataDir string
	lock    *store.DirLock

	Memory    *memory.Graph
	Concepts  *concept.Engine
	Prompts   *prompt.Engine
	Scheduler *scheduler.Scheduler
	Oracle    oracle.Generator
}

// Open acquires the data directory's exclusive lock, loads every
// component's persisted state, and registers the standard scheduled
// jobs. Callers must call Close when done.
func Open(cfg *config.Config) (*Substrate, error) {
	if err := config.EnsureDataDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("substrate: ensure data dir: %w", err)
	}

	lock, err := store.AcquireDirLock(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("substrate: acquire lock: %w", err)
	}

	embedder, err := embedding.NewFromProvider(cfg.EmbeddingBackend, cfg.EmbeddingModel, cfg.EmbeddingBaseURL)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("substrate: construct embedder: %w", err)
	}

	s := &Substrate{
		cfg:       cfg,
		dataDir:   cfg.DataDir,
		lock:      lock,
		Memory:    memory.New(cfg.DataDir, embedder),
		Concepts:  nil,
		Prompts:   prompt.New(cfg.DataDir),
		Scheduler: scheduler.New(cfg.DataDir),
		Oracle:    oracle.New(cfg.OracleBackend, cfg.OracleAPIKey, ""),
	}
	s.Concepts = concept.New(cfg.DataDir, s.Memory)

	if err := s.Memory.Load(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("substrate: load memory: %w", err)
	}
	if err := s.Concepts.Load(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("substrate: load concepts: %w", err)
	}
	if err := s.Prompts.Load(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("substrate: load prompts: %w", err)
	}

	restored, err := s.Scheduler.Load()
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("substrate: load scheduler state: %w", err)
	}
	s.registerJobs(restored)

	return s, nil
}

// Close stops the scheduler and releases the directory lock.
func (s *Substrate) Close() error {
	s.Scheduler.Stop()
	return s.lock.Release()
}

// Start launches the scheduler's tick loops.
func (s *Substrate) Start(ctx context.Context) {
	s.Scheduler.Start(ctx)
}

// registerJobs wires the five standard jobs into the scheduler. Only
// dream, monologue, and existential couple to a specific mood
// dimension beyond the generic mood factor every job feels: dreams
// stretch under high calm, monologue chatters more under high
// curiosity, and existential questions shorten under high tension.
// Reflection and pulse stay mood-neutral baselines.
func (s *Substrate) registerJobs(restored map[string]*scheduler.Job) {
	s.Scheduler.Register("reflection", time.Duration(s.cfg.ReflectionInterval)*time.Second, 1.0, "", 0, s.runReflection, restored["reflection"])
	s.Scheduler.Register("dream", time.Duration(s.cfg.DreamInterval)*time.Second, 1.2, "calm", 1.0, s.runDream, restored["dream"])
	s.Scheduler.Register("monologue", time.Duration(s.cfg.MonologueInterval)*time.Second, 0.8, "curiosity", -1.0, s.runMonologue, restored["monologue"])
	s.Scheduler.Register("existential", time.Duration(s.cfg.ExistentialInterval)*time.Second, 1.0, "tension", -1.0, s.runExistential, restored["existential"])
	s.Scheduler.Register("pulse", time.Duration(s.cfg.PulseInterval)*time.Second, 0.9, "", 0, s.runPulse, restored["pulse"])
}

// runReflection selects a reflection prompt, calls the oracle, and
// folds the result back into memory and the concept population.
func (s *Substrate) runReflection() (float64, error) {
	recent := s.Memory.Recent(8, "")
	promptContext := summarizeRecent(recent)

	sel, err := s.Prompts.Select(string(memoryTypeReflection), map[string]string{"context": promptContext})
	if err != nil {
		return 0, fmt.Errorf("reflection: select prompt: %w", err)
	}

	reply, err := s.Oracle.Generate(context.Background(), sel.Rendered)
	if err != nil {
		return 0, fmt.Errorf("reflection: generate: %w", err)
	}

	if err := s.recordThought(reply, memoryTypeReflection, "scheduler:reflection"); err != nil {
		return 0, err
	}
	const signal = 0.6
	return signal, s.Prompts.Feedback(sel.PatternID, signal)
}

func (s *Substrate) runDream() (float64, error) {
	active := s.Memory.ActiveThoughts(concept.ActivationFloor)
	promptContext := summarizeThoughts(active)

	sel, err := s.Prompts.Select(string(memoryTypeDream), map[string]string{"context": promptContext})
	if err != nil {
		return 0, fmt.Errorf("dream: select prompt: %w", err)
	}
	reply, err := s.Oracle.Generate(context.Background(), sel.Rendered)
	if err != nil {
		return 0, fmt.Errorf("dream: generate: %w", err)
	}
	if err := s.recordThought(reply, memoryTypeDream, "scheduler:dream"); err != nil {
		return 0, err
	}
	const signal = 0.5
	if err := s.Prompts.Feedback(sel.PatternID, signal); err != nil {
		return 0, err
	}
	return signal, s.Concepts.ForceEvolve()
}

func (s *Substrate) runMonologue() (float64, error) {
	recent := s.Memory.Recent(3, "")
	promptContext := summarizeRecent(recent)
	sel, err := s.Prompts.Select(string(memoryTypeMonologue), map[string]string{"context": promptContext})
	if err != nil {
		return 0, fmt.Errorf("monologue: select prompt: %w", err)
	}
	reply, err := s.Oracle.Generate(context.Background(), sel.Rendered)
	if err != nil {
		return 0, fmt.Errorf("monologue: generate: %w", err)
	}
	if err := s.recordThought(reply, memoryTypeMonologue, "scheduler:monologue"); err != nil {
		return 0, err
	}
	const signal = 0.5
	return signal, s.Prompts.Feedback(sel.PatternID, signal)
}

func (s *Substrate) runExistential() (float64, error) {
	concepts := s.Concepts.List("")
	promptContext := summarizeConcepts(concepts)
	sel, err := s.Prompts.Select(string(memoryTypeExistential), map[string]string{"context": promptContext})
	if err != nil {
		return 0, fmt.Errorf("existential: select prompt: %w", err)
	}
	reply, err := s.Oracle.Generate(context.Background(), sel.Rendered)
	if err != nil {
		return 0, fmt.Errorf("existential: generate: %w", err)
	}
	if err := s.recordThought(reply, memoryTypeExistential, "scheduler:existential"); err != nil {
		return 0, err
	}
	const signal = 0.4
	return signal, s.Prompts.Feedback(sel.PatternID, signal)
}

func (s *Substrate) runPulse() (float64, error) {
	return scheduler.NeutralFeedback, s.Memory.Decay(time.Now())
}

// recordThought saves a thought and integrates it into the concept
// population, fetching the embedding the save just indexed.
func (s *Substrate) recordThought(content string, typ memory.ThoughtType, origin string) error {
	t, err := s.Memory.Save(content, memory.Metadata{}, typ, origin)
	if err != nil {
		return fmt.Errorf("%s: save thought: %w", origin, err)
	}
	vec, _ := s.Memory.Index().Get(t.ID)
	if _, err := s.Concepts.Integrate(t, vec); err != nil {
		logger.Component("substrate").Warn("concept integration failed", "thought", t.ID, "error", err)
	}
	return nil
}

const (
	memoryTypeReflection  = memory.TypeReflection
	memoryTypeDream       = memory.TypeDream
	memoryTypeMonologue   = memory.TypeMonologue
	memoryTypeExistential = memory.TypeExistential
)

func summarizeRecent(thoughts []*memory.Thought) string {
	if len(thoughts) == 0 {
		return "(nothing recent)"
	}
	out := ""
	for i, t := range thoughts {
		if i > 0 {
			out += " "
		}
		out += t.Content
	}
	return out
}

func summarizeThoughts(thoughts []*memory.Thought) string {
	return summarizeRecent(thoughts)
}

func summarizeConcepts(concepts []*concept.Concept) string {
	if len(concepts) == 0 {
		return "(no concepts yet)"
	}
	out := ""
	for i, c := range concepts {
		if i > 0 {
			out += ", "
		}
		out += c.Label
	}
	return out
}
