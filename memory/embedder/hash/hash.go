// Package hash provides a deterministic embedder that needs no model files.
//
// Vectors are derived from an FNV hash of the input text, so identical texts
// always embed identically. The geometry carries no semantic meaning; it is
// meant for local development and tests, with the memory.Embedder seam left
// open for a real model in production.
package hash

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates hash-seeded pseudo-random unit vectors.
type Embedder struct {
	dimensions int
}

// New creates a hash embedder with 384 dimensions, matching the footprint of
// common small sentence-transformer models.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed converts text to a deterministic embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))

	// LCG seeded by the hash fills the vector.
	seed := h.Sum64()
	embedding := make([]float32, e.dimensions)
	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
