package embedding

import (
	"path/filepath"
	"testing"
)

func TestIndexSearchReturnsClosest(t *testing.T) {
	idx := NewIndex(2)
	idx.Add("a", []float32{0, 0})
	idx.Add("b", []float32{1, 0})
	idx.Add("c", []float32{5, 5})

	got := idx.Search([]float32{0, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("Search: got %d results, want 2", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("Search: nearest = %q, want %q", got[0].ID, "a")
	}
	if got[1].ID != "b" {
		t.Errorf("Search: second nearest = %q, want %q", got[1].ID, "b")
	}
}

func TestIndexDeleteTombstonesRow(t *testing.T) {
	idx := NewIndex(2)
	idx.Add("a", []float32{0, 0})
	idx.Add("b", []float32{1, 0})

	idx.Delete("a")
	if idx.Len() != 1 {
		t.Fatalf("Len after delete: got %d, want 1", idx.Len())
	}

	got := idx.Search([]float32{0, 0}, 5)
	for _, n := range got {
		if n.ID == "a" {
			t.Errorf("Search: tombstoned id %q still returned", n.ID)
		}
	}
}

func TestIndexRebuildCompactsTombstones(t *testing.T) {
	idx := NewIndex(2)
	idx.Add("a", []float32{0, 0})
	idx.Add("b", []float32{1, 0})
	idx.Delete("a")

	idx.Rebuild()

	if got := idx.TombstoneRatio(); got != 0 {
		t.Errorf("TombstoneRatio after rebuild: got %v, want 0", got)
	}
	if idx.Len() != 1 {
		t.Errorf("Len after rebuild: got %d, want 1", idx.Len())
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vector_index.bin")

	idx := NewIndex(3)
	idx.Add("a", []float32{1, 2, 3})
	idx.Add("b", []float32{4, 5, 6})
	idx.Delete("b")

	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("Load: want ok=true")
	}
	if loaded.Len() != 1 {
		t.Errorf("loaded Len: got %d, want 1", loaded.Len())
	}
	got := loaded.Search([]float32{1, 2, 3}, 1)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("loaded Search: got %+v, want single hit %q", got, "a")
	}
}

func TestIndexLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Load(filepath.Join(dir, "missing.bin"))
	if err != nil {
		t.Fatalf("Load missing file: unexpected error %v", err)
	}
	if ok {
		t.Errorf("Load missing file: want ok=false")
	}
}
