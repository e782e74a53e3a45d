package identity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

var (
	// ErrNotFound is returned when no person matches the given ID.
	ErrNotFound = errors.New("person not found")
	// ErrDuplicateName is returned when enrolling a name that is already taken.
	ErrDuplicateName = errors.New("person already enrolled")
)

// Registry holds known people and answers identity queries against their
// centroid embeddings. Construct one with NewRegistry and share the
// instance; all methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	people  []Person
	samples map[uuid.UUID][]embedding.Embedding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		samples: make(map[uuid.UUID][]embedding.Embedding),
	}
}

// Enroll registers a new person from one or more face samples. The
// centroid is the aggregate of the samples. Names must be unique under
// NormalizePersonName.
func (r *Registry) Enroll(name string, samples []embedding.Embedding) (Person, error) {
	if name == "" {
		return Person{}, errors.New("person name must not be empty")
	}
	if len(samples) == 0 {
		return Person{}, fmt.Errorf("enroll %q: at least one face sample required", name)
	}

	centroid, err := embedding.Average(samples)
	if err != nil {
		return Person{}, fmt.Errorf("enroll %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := NormalizePersonName(name)
	for _, p := range r.people {
		if NormalizePersonName(p.Name) == normalized {
			return Person{}, fmt.Errorf("enroll %q: %w", name, ErrDuplicateName)
		}
	}

	now := time.Now()
	person := Person{
		ID:        uuid.New(),
		Name:      name,
		Centroid:  centroid,
		Samples:   len(samples),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.people = append(r.people, person)
	r.samples[person.ID] = append([]embedding.Embedding(nil), samples...)

	return person, nil
}

// Identify finds the enrolled person whose centroid best matches the
// embedding. Candidates are scanned in enrollment order, so ties go to
// the earliest enrollment. Returns false when no centroid reaches the
// identity threshold.
func (r *Registry) Identify(e embedding.Embedding) (Person, float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	centroids := make([]embedding.Embedding, len(r.people))
	for i, p := range r.people {
		centroids[i] = p.Centroid
	}

	match := embedding.BestMatch(e, centroids)
	if match == nil {
		return Person{}, 0, false
	}
	return r.people[match.Index], match.Score, true
}

// Observe adds another face sample to an enrolled person and recomputes
// the centroid from all samples seen so far.
func (r *Registry) Observe(id uuid.UUID, e embedding.Embedding) (Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.people {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Person{}, fmt.Errorf("observe %s: %w", id, ErrNotFound)
	}

	samples := append(r.samples[id], e)
	centroid, err := embedding.Average(samples)
	if err != nil {
		return Person{}, fmt.Errorf("observe %s: %w", id, err)
	}

	r.samples[id] = samples
	r.people[idx].Centroid = centroid
	r.people[idx].Samples = len(samples)
	r.people[idx].UpdatedAt = time.Now()

	return r.people[idx], nil
}

// Get returns the person with the given ID.
func (r *Registry) Get(id uuid.UUID) (Person, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.people {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// FindByName looks a person up by normalized name, so "jan-novak"
// finds "Jan Novák".
func (r *Registry) FindByName(name string) (Person, bool) {
	normalized := NormalizePersonName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.people {
		if NormalizePersonName(p.Name) == normalized {
			return p, true
		}
	}
	return Person{}, false
}

// People returns a snapshot of all enrolled people in enrollment order.
func (r *Registry) People() []Person {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Person(nil), r.people...)
}

// Count returns the number of enrolled people.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.people)
}
