// Package store persists face embeddings and provides similarity search
// over them. Backends implement the FaceReader/FaceWriter interfaces; the
// caller picks a backend explicitly and injects it where needed.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// ErrNotFound is returned when a face does not exist in the store.
var ErrNotFound = errors.New("face not found")

// StoredFace represents a face embedding stored in a backend.
type StoredFace struct {
	ID        int64
	Path      string // source image the face was taken from
	Label     string // assigned person name, empty if unlabeled
	Embedding embedding.Embedding
	Dim       int
	CreatedAt time.Time
}

// FaceReader provides read-only access to stored faces
type FaceReader interface {
	// Get retrieves a face by ID, returns ErrNotFound if missing
	Get(ctx context.Context, id int64) (*StoredFace, error)
	// List returns all stored faces ordered by ID
	List(ctx context.Context) ([]StoredFace, error)
	// ListByLabel returns all faces assigned to the given label, ordered by ID.
	// Labels are normalized before comparison (lowercase, no diacritics,
	// dashes to spaces) so "jan-novak" matches "Jan Novák".
	ListByLabel(ctx context.Context, label string) ([]StoredFace, error)
	// Labels returns the distinct non-empty labels in the store
	Labels(ctx context.Context) ([]string, error)
	// Count returns the total number of faces stored
	Count(ctx context.Context) (int, error)
	// FindSimilar finds the faces closest to the target embedding and returns
	// them with their cosine distances, nearest first
	FindSimilar(ctx context.Context, target embedding.Embedding, limit int) ([]StoredFace, []float64, error)
}

// FaceWriter provides write access to stored faces
type FaceWriter interface {
	FaceReader

	// Save stores a face and returns its assigned ID
	Save(ctx context.Context, face *StoredFace) (int64, error)

	// AssignLabel sets the label for a face
	AssignLabel(ctx context.Context, id int64, label string) error

	// Delete removes a face by ID
	Delete(ctx context.Context, id int64) error
}

// Store is a complete storage backend.
type Store interface {
	FaceWriter

	// Close releases the underlying connections
	Close() error
}

// ToFloat32 narrows an embedding for backends that store float32 vectors.
func ToFloat32(e embedding.Embedding) []float32 {
	out := make([]float32, len(e))
	for i, v := range e {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 widens a stored float32 vector back into an embedding.
func FromFloat32(v []float32) embedding.Embedding {
	out := make(embedding.Embedding, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
