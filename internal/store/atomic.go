package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// writeLocks serializes writes to the same path across goroutines in this
// process. The cooperative single-loop model means contention here is
// rare, but callers off the main loop (e.g. the reader pool) may still
// race a flush.
var writeLocks sync.Map // path -> *sync.Mutex

func lockFor(path string) *sync.Mutex {
	v, _ := writeLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SaveJSON atomically writes v as indented JSON to path: write to a temp
// file in the same directory, fsync, rename over the destination. A
// sibling ".sum" file records a blake2b checksum of the payload so Load
// can detect truncation that still parses as valid (but wrong) JSON.
func SaveJSON(path string, v any) error {
	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPersistence, path, err)
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}
	sum := blake2b.Sum256(data)
	if err := writeAtomic(path+".sum", []byte(hex.EncodeToString(sum[:]))); err != nil {
		return err
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrPersistence, path, err)
	}
	tmpName := tmp.Name()
	// On any early return below, clean up the temp file; once the rename
	// succeeds tmpName no longer exists so this is a no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: fsync %s: %v", ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into %s: %v", ErrPersistence, path, err)
	}
	return nil
}

// LoadJSON reads and unmarshals path into v. A missing file is not an
// error — v is left untouched and ok=false is returned so callers can
// distinguish "nothing persisted yet" from corruption. A present but
// unparsable or checksum-mismatched file returns ErrCorruptState.
func LoadJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", ErrPersistence, path, err)
	}

	if sumData, sumErr := os.ReadFile(path + ".sum"); sumErr == nil {
		want := string(sumData)
		got := blake2b.Sum256(data)
		if want != hex.EncodeToString(got[:]) {
			return false, fmt.Errorf("%w: checksum mismatch for %s", ErrCorruptState, path)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: parse %s: %v", ErrCorruptState, path, err)
	}
	return true, nil
}
