// Package identity maintains the registry of known people and groups
// unlabeled faces into identity clusters.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// Person is a known identity. Its centroid aggregates all enrolled face
// samples and is what queries are matched against.
type Person struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Centroid  embedding.Embedding `json:"centroid,omitempty"`
	Samples   int                 `json:"samples"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
