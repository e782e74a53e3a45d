// Package memory provides an in-memory store backend. It backs the CLI when
// no database is configured and serves as a lightweight double in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// Store keeps faces in memory, guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	faces  map[int64]*store.StoredFace
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		faces: make(map[int64]*store.StoredFace),
	}
}

// Get retrieves a face by ID.
func (s *Store) Get(ctx context.Context, id int64) (*store.StoredFace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	face, ok := s.faces[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *face
	return &out, nil
}

// List returns all faces ordered by ID.
func (s *Store) List(ctx context.Context) ([]store.StoredFace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedByID(), nil
}

// ListByLabel returns all faces with the given label, ordered by ID.
// Labels are compared in normalized form.
func (s *Store) ListByLabel(ctx context.Context, label string) ([]store.StoredFace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := identity.NormalizePersonName(label)
	var out []store.StoredFace
	for _, face := range s.sortedByID() {
		if identity.NormalizePersonName(face.Label) == want {
			out = append(out, face)
		}
	}
	return out, nil
}

// Labels returns the distinct non-empty labels, sorted.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, face := range s.faces {
		if face.Label == "" || seen[face.Label] {
			continue
		}
		seen[face.Label] = true
		labels = append(labels, face.Label)
	}
	sort.Strings(labels)
	return labels, nil
}

// Count returns the number of stored faces.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faces), nil
}

// FindSimilar scans all faces and returns the closest ones with their
// cosine distances, nearest first.
func (s *Store) FindSimilar(
	ctx context.Context, target embedding.Embedding, limit int,
) ([]store.StoredFace, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil, nil
	}

	faces := s.sortedByID()
	distances := make([]float64, len(faces))
	for i := range faces {
		distances[i] = 1.0 - embedding.CosineSimilarity(target, faces[i].Embedding)
	}

	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return distances[order[i]] < distances[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}

	outFaces := make([]store.StoredFace, len(order))
	outDistances := make([]float64, len(order))
	for i, idx := range order {
		outFaces[i] = faces[idx]
		outDistances[i] = distances[idx]
	}
	return outFaces, outDistances, nil
}

// Save stores a face and returns its assigned ID.
func (s *Store) Save(ctx context.Context, face *store.StoredFace) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *face
	stored.ID = s.nextID
	stored.Embedding = append(embedding.Embedding(nil), face.Embedding...)
	if stored.Dim == 0 {
		stored.Dim = len(stored.Embedding)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.faces[stored.ID] = &stored
	return stored.ID, nil
}

// AssignLabel sets the label for a face.
func (s *Store) AssignLabel(ctx context.Context, id int64, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	face, ok := s.faces[id]
	if !ok {
		return store.ErrNotFound
	}
	face.Label = label
	return nil
}

// Delete removes a face by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.faces[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.faces, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// sortedByID snapshots the faces ordered by ID. Callers must hold the lock.
func (s *Store) sortedByID() []store.StoredFace {
	out := make([]store.StoredFace, 0, len(s.faces))
	for _, face := range s.faces {
		out = append(out, *face)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Verify interface compliance.
var _ store.Store = (*Store)(nil)
