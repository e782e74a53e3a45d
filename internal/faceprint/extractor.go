package faceprint

import (
	"context"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// Extractor computes a face embedding from encoded image bytes. The grid
// extractor is the default; deployments can swap in a different backend
// (such as a remote neural model) without touching callers.
type Extractor interface {
	// Name identifies the backend for logs and API responses.
	Name() string
	// Extract decodes the image and computes its embedding.
	Extract(ctx context.Context, imageData []byte) (embedding.Embedding, error)
}

// Grid is the built-in extractor: pure pixel statistics, no model and no
// network access.
type Grid struct{}

// Name returns the backend identifier.
func (Grid) Name() string {
	return "grid"
}

// Extract decodes the image bytes and computes the grid embedding.
func (Grid) Extract(_ context.Context, imageData []byte) (embedding.Embedding, error) {
	src, err := Decode(imageData)
	if err != nil {
		return nil, err
	}
	return Generate(src)
}
