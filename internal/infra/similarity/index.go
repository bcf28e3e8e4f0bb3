// Package similarity provides a small in-memory vector index used to drop
// near-duplicate sources found by concurrent searches.
package similarity

import (
	"math"
	"sync"
)

// DefaultThreshold matches the dedup cutoff used by the pipeline when the
// config leaves it unset.
const DefaultThreshold = 0.9

// Index holds float32 vectors and answers nearest-cosine queries. It is
// scoped to a single generation request and safe for concurrent use.
type Index struct {
	mu        sync.Mutex
	threshold float64
	vectors   [][]float32
}

func NewIndex(threshold float64) *Index {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Index{threshold: threshold}
}

// AddIfNovel inserts v and returns true unless an existing vector is within
// the similarity threshold, in which case v is dropped.
func (ix *Index) AddIfNovel(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, existing := range ix.vectors {
		if Cosine(existing, v) >= ix.threshold {
			return false
		}
	}
	ix.vectors = append(ix.vectors, v)
	return true
}

// Len reports how many vectors were kept.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.vectors)
}

// Cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
