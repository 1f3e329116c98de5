package oracle

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDummyGenerateEchoesPrompt(t *testing.T) {
	d := NewDummy(0)
	out, err := d.Generate(context.Background(), "what matters today")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, "what matters today") {
		t.Fatalf("Generate: got %q, want completion echoing the prompt", out)
	}
}

func TestDummyGenerateRejectsEmptyPrompt(t *testing.T) {
	d := NewDummy(0)
	if _, err := d.Generate(context.Background(), "   "); err == nil {
		t.Fatal("Generate: want error for empty prompt")
	}
}

func TestDummyGenerateRespectsCancellation(t *testing.T) {
	d := NewDummy(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Generate(ctx, "hello"); err == nil {
		t.Fatal("Generate: want error when context is already cancelled")
	}
}

func TestNewFallsBackToDummyForUnknownBackend(t *testing.T) {
	g := New("not-a-real-backend", "", "")
	if g.Name() != "dummy" {
		t.Errorf("New: got backend %q, want dummy fallback", g.Name())
	}
}
