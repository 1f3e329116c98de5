// Package oracle is the thin shell around external language model calls.
// Nothing in memory, concept, prompt, or scheduler imports this package;
// only the scheduler jobs' run functions and the HTTP /oracle handler
// call into it, so the core
// substrate keeps working (in similarity/activation retrieval mode)
// even with no model backend configured at all.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Generator produces a completion for a single rendered prompt. It
// intentionally has no notion of chat turns or tool calls: oracle only
// ever answers one rendered prompt string from the prompt store.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New builds a Generator for backend ("dummy", "openai", "anthropic"),
// falling back to the dummy backend for an unrecognized name so a
// misconfigured deployment degrades instead of failing to start.
func New(backend, apiKey, model string) Generator {
	switch backend {
	case "openai":
		return newOpenAI(apiKey, model)
	case "anthropic":
		return newAnthropic(apiKey, model)
	default:
		return NewDummy(200 * time.Millisecond)
	}
}

// Dummy is a deterministic, network-free Generator used in tests and as
// a safe default.
type Dummy struct {
	delay time.Duration
}

// NewDummy constructs a Dummy that sleeps delay before replying, so
// callers exercising timeout or cancellation paths have something to
// race against.
func NewDummy(delay time.Duration) *Dummy {
	return &Dummy{delay: delay}
}

func (d *Dummy) Name() string { return "dummy" }

func (d *Dummy) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", fmt.Errorf("oracle: empty prompt")
	}
	return fmt.Sprintf("considered: %s", trimmed), nil
}
