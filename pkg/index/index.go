// Package index implements a flat inner-product vector index whose i-th
// vector corresponds positionally to the i-th metadata record.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xhad/cvchat/internal/models"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("vectors and records length mismatch")
	ErrCorrupt           = errors.New("corrupt index files")
	ErrInvalidK          = errors.New("k must be positive")
)

// FlatIndex stores L2-normalized vectors and ranks them by inner product, so
// scores are cosine similarities. Add and Load take the write lock; Search,
// Save and the read accessors share the read lock.
type FlatIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors []float32 // len(records) * dim, row-major
	records []models.Record
}

func New(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

func (ix *FlatIndex) Dimension() int {
	return ix.dim
}

// Len returns the number of stored vectors.
func (ix *FlatIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Add appends normalized copies of vectors and their records in order.
// Nothing is appended when the batch is malformed.
func (ix *FlatIndex) Add(vectors [][]float32, records []models.Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d vectors, %d records", ErrLengthMismatch, len(vectors), len(records))
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(v), ix.dim)
		}
	}

	flat := make([]float32, 0, len(vectors)*ix.dim)
	for _, v := range vectors {
		flat = append(flat, Normalize(v)...)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = append(ix.vectors, flat...)
	ix.records = append(ix.records, records...)
	return nil
}

// Search returns up to k entries ranked by descending cosine similarity.
// Ties keep insertion order.
func (ix *FlatIndex) Search(query []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	q := Normalize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.records)
	if n == 0 {
		return []models.SearchResult{}, nil
	}

	scores := make([]float32, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		scores[i] = Dot(q, ix.row(i))
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > n {
		k = n
	}
	results := make([]models.SearchResult, 0, k)
	for _, i := range order[:k] {
		rec := ix.records[i]
		results = append(results, models.SearchResult{
			Content:  rec.Content,
			Metadata: rec.Metadata,
			Score:    scores[i],
		})
	}
	return results, nil
}

// Clone returns an independent copy of the index.
func (ix *FlatIndex) Clone() *FlatIndex {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return &FlatIndex{
		dim:     ix.dim,
		vectors: append([]float32(nil), ix.vectors...),
		records: append([]models.Record(nil), ix.records...),
	}
}

// Records returns a copy of the metadata list.
func (ix *FlatIndex) Records() []models.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]models.Record, len(ix.records))
	copy(out, ix.records)
	return out
}

// Snapshot returns copies of the records and their normalized vectors.
func (ix *FlatIndex) Snapshot() ([]models.Record, [][]float32) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	records := make([]models.Record, len(ix.records))
	copy(records, ix.records)
	vectors := make([][]float32, len(ix.records))
	for i := range vectors {
		vectors[i] = append([]float32(nil), ix.row(i)...)
	}
	return records, vectors
}

// Sources returns the distinct record sources, sorted.
func (ix *FlatIndex) Sources() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	seen := make(map[string]bool)
	sources := []string{}
	for _, rec := range ix.records {
		if !seen[rec.Metadata.Source] {
			seen[rec.Metadata.Source] = true
			sources = append(sources, rec.Metadata.Source)
		}
	}
	sort.Strings(sources)
	return sources
}

func (ix *FlatIndex) row(i int) []float32 {
	return ix.vectors[i*ix.dim : (i+1)*ix.dim]
}
