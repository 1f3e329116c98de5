package embedding

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/ehrlich-b/noetic/internal/store"
)

// Index is a flat L2 vector index. Corpora stay in the tens of thousands
// of rows, so brute-force search beats the bookkeeping of an approximate
// index — recall matters more than latency here. Deletions are
// tombstoned in place; Rebuild compacts once tombstones pile up.
type Index struct {
	mu        sync.RWMutex
	dims      int
	vectors   [][]float32
	ids       []string
	tombstone []bool
	live      int
}

// NewIndex returns an empty index for vectors of the given dimensionality.
func NewIndex(dims int) *Index {
	return &Index{dims: dims}
}

// Add appends id/vec as a new row. Re-adding an id already present is
// treated as a fresh row; callers are expected to tombstone the old one
// first if replacement is intended.
func (idx *Index) Add(id string, vec []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ids = append(idx.ids, id)
	idx.vectors = append(idx.vectors, vec)
	idx.tombstone = append(idx.tombstone, false)
	idx.live++
}

// Delete tombstones every row matching id. The vector stays resident but
// is skipped by Search until a Rebuild compacts it away.
func (idx *Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, existing := range idx.ids {
		if existing == id && !idx.tombstone[i] {
			idx.tombstone[i] = true
			idx.live--
		}
	}
}

// Neighbor is one hit from Search.
type Neighbor struct {
	ID       string
	Distance float32
}

// Search returns the k rows with smallest L2 distance to vec, skipping
// tombstoned rows.
func (idx *Index) Search(vec []float32, k int) []Neighbor {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := make([]Neighbor, 0, idx.live)
	for i, v := range idx.vectors {
		if idx.tombstone[i] {
			continue
		}
		candidates = append(candidates, Neighbor{ID: idx.ids[i], Distance: l2(vec, v)})
	}
	sortNeighbors(candidates)
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}

// Get returns the vector stored for id, if any live row matches.
func (idx *Index) Get(id string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for i, existing := range idx.ids {
		if existing == id && !idx.tombstone[i] {
			return idx.vectors[i], true
		}
	}
	return nil, false
}

// All returns every live id paired with its vector. Used by callers
// (concept clustering) that need the whole population rather than a
// nearest-neighbor query.
func (idx *Index) All() map[string][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string][]float32, idx.live)
	for i, id := range idx.ids {
		if idx.tombstone[i] {
			continue
		}
		out[id] = idx.vectors[i]
	}
	return out
}

// TombstoneRatio reports the fraction of rows marked deleted.
func (idx *Index) TombstoneRatio() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.ids) == 0 {
		return 0
	}
	dead := len(idx.ids) - idx.live
	return float64(dead) / float64(len(idx.ids))
}

// RebuildThreshold is the tombstone fraction past which callers should
// invoke Rebuild.
const RebuildThreshold = 0.20

// Rebuild compacts tombstoned rows out of the backing slices in place.
func (idx *Index) Rebuild() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ids := make([]string, 0, idx.live)
	vecs := make([][]float32, 0, idx.live)
	for i, t := range idx.tombstone {
		if t {
			continue
		}
		ids = append(ids, idx.ids[i])
		vecs = append(vecs, idx.vectors[i])
	}
	idx.ids = ids
	idx.vectors = vecs
	idx.tombstone = make([]bool, len(ids))
	idx.live = len(ids)
}

// Len returns the number of live (non-tombstoned) rows.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.live
}

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func sortNeighbors(n []Neighbor) {
	// Insertion sort by ascending distance; stable, so equal distances
	// keep row order.
	for i := 1; i < len(n); i++ {
		for j := i; j > 0 && n[j].Distance < n[j-1].Distance; j-- {
			n[j], n[j-1] = n[j-1], n[j]
		}
	}
}

// indexFileMagic tags the binary vector_index.bin format: magic, dims,
// row count, then rows of (id-length-prefixed string, tombstone byte,
// float32 vector) — extended with per-row ids and tombstones since this
// index, unlike a pure embedding cache, must survive process restarts
// with its id mapping intact.
const indexFileMagic = "NSVX"

// Save persists the index to path as a binary blob, atomically.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	buf := make([]byte, 0, 16+len(idx.ids)*(idx.dims*4+16))
	buf = append(buf, []byte(indexFileMagic)...)
	buf = appendUint32(buf, uint32(idx.dims))
	buf = appendUint32(buf, uint32(len(idx.ids)))

	for i, id := range idx.ids {
		buf = appendUint32(buf, uint32(len(id)))
		buf = append(buf, []byte(id)...)
		if idx.tombstone[i] {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		for _, f := range idx.vectors[i] {
			buf = appendUint32(buf, math.Float32bits(f))
		}
	}

	return rawAtomicWrite(path, buf)
}

// Load reconstructs an index from a file written by Save. A missing
// file is not an error — callers fall back to an empty index and
// rebuild from the thought store.
func Load(path string) (*Index, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: open %s: %v", store.ErrPersistence, path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, 4)
	if _, err := readFull(r, magic); err != nil || string(magic) != indexFileMagic {
		return nil, false, fmt.Errorf("%w: bad magic in %s", store.ErrCorruptState, path)
	}

	dims, err := readUint32(r)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read dims: %v", store.ErrCorruptState, err)
	}
	count, err := readUint32(r)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read count: %v", store.ErrCorruptState, err)
	}

	idx := &Index{dims: int(dims)}
	for i := uint32(0); i < count; i++ {
		idLen, err := readUint32(r)
		if err != nil {
			return nil, false, fmt.Errorf("%w: read id length: %v", store.ErrCorruptState, err)
		}
		idBytes := make([]byte, idLen)
		if _, err := readFull(r, idBytes); err != nil {
			return nil, false, fmt.Errorf("%w: read id: %v", store.ErrCorruptState, err)
		}
		tomb := make([]byte, 1)
		if _, err := readFull(r, tomb); err != nil {
			return nil, false, fmt.Errorf("%w: read tombstone flag: %v", store.ErrCorruptState, err)
		}
		vec := make([]float32, dims)
		for d := uint32(0); d < dims; d++ {
			bits, err := readUint32(r)
			if err != nil {
				return nil, false, fmt.Errorf("%w: read vector component: %v", store.ErrCorruptState, err)
			}
			vec[d] = math.Float32frombits(bits)
		}

		idx.ids = append(idx.ids, string(idBytes))
		idx.vectors = append(idx.vectors, vec)
		dead := tomb[0] == 1
		idx.tombstone = append(idx.tombstone, dead)
		if !dead {
			idx.live++
		}
	}

	return idx, true, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// rawAtomicWrite writes data to path via temp-file-then-rename, mirroring
// store.SaveJSON's approach for the binary (non-JSON) index file.
func rawAtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", store.ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", store.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", store.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: fsync: %v", store.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", store.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename: %v", store.ErrPersistence, err)
	}
	return nil
}
