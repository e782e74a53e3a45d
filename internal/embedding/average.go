package embedding

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when embeddings of different lengths
// are aggregated.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Average aggregates multiple embeddings of the same face into one.
// An empty input yields an empty result. A single embedding is returned
// as-is without renormalization. Two or more embeddings are averaged
// elementwise and the mean is L2-normalized.
func Average(embeddings []Embedding) (Embedding, error) {
	if len(embeddings) == 0 {
		return nil, nil
	}
	if len(embeddings) == 1 {
		return embeddings[0], nil
	}

	dim := len(embeddings[0])
	sum := make(Embedding, dim)
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d components, want %d",
				ErrDimensionMismatch, i, len(e), dim)
		}
		for j, x := range e {
			sum[j] += x
		}
	}

	n := float64(len(embeddings))
	for j := range sum {
		sum[j] /= n
	}

	return Normalize(sum), nil
}
