package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")

	in := sample{Name: "stars", Count: 3}
	if err := SaveJSON(path, in); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	var out sample
	ok, err := LoadJSON(path, &out)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if !ok {
		t.Fatalf("LoadJSON: want ok=true")
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	dir := t.TempDir()
	var out sample
	ok, err := LoadJSON(filepath.Join(dir, "missing.json"), &out)
	if err != nil {
		t.Fatalf("LoadJSON missing file: unexpected error %v", err)
	}
	if ok {
		t.Errorf("LoadJSON missing file: want ok=false")
	}
}

func TestLoadJSONCorruptChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")

	if err := SaveJSON(path, sample{Name: "a", Count: 1}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	// Corrupt the payload without touching the checksum sidecar.
	if err := os.WriteFile(path, []byte(`{"name":"b","count":2}`), 0644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	var out sample
	_, err := LoadJSON(path, &out)
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("LoadJSON corrupted: got err=%v, want ErrCorruptState", err)
	}
}

func TestDirLockExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireDirLock(dir)
	if err != nil {
		t.Fatalf("first AcquireDirLock: %v", err)
	}
	defer first.Release()

	_, err = AcquireDirLock(dir)
	if !errors.Is(err, ErrDirectoryLocked) {
		t.Fatalf("second AcquireDirLock: got err=%v, want ErrDirectoryLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := AcquireDirLock(dir)
	if err != nil {
		t.Fatalf("AcquireDirLock after release: %v", err)
	}
	second.Release()
}
