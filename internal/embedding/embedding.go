// Package embedding provides the face embedding vector type and the
// similarity, matching and aggregation primitives shared between CLI,
// store and web handlers.
package embedding

import "math"

const (
	// Size is the number of components in a face embedding.
	Size = 128

	// SimilarityThreshold is the minimum cosine similarity for two
	// embeddings to be considered the same identity. Callers needing a
	// different cut must wrap the matching primitives, not change this.
	SimilarityThreshold = 0.75
)

// Embedding is an L2-normalized face feature vector. Values are treated
// as immutable once produced; operations return new slices except where
// documented otherwise.
type Embedding []float64

// Norm returns the L2 norm of the embedding.
func Norm(v Embedding) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of a and b.
// Vectors of different lengths have a dot product of 0.
func Dot(a, b Embedding) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns v scaled to unit L2 norm. A vector with zero norm is
// returned unchanged; the function never fails regardless of input length.
func Normalize(v Embedding) Embedding {
	norm := Norm(v)
	if norm == 0 {
		return v
	}
	out := make(Embedding, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
