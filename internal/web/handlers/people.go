package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
)

// PeopleHandler handles person registry endpoints.
type PeopleHandler struct {
	registry *identity.Registry
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(registry *identity.Registry) *PeopleHandler {
	return &PeopleHandler{
		registry: registry,
	}
}

// PersonResponse represents an enrolled person in API responses.
// The centroid is included only when a single person is fetched.
type PersonResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Samples   int       `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Centroid  []float64 `json:"centroid,omitempty"`
}

func personToResponse(p identity.Person, includeCentroid bool) PersonResponse {
	resp := PersonResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Samples:   p.Samples,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if includeCentroid {
		resp.Centroid = p.Centroid
	}
	return resp
}

// parsePersonID reads the {id} URL parameter.
func parsePersonID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// List returns all enrolled people.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people := h.registry.People()

	response := make([]PersonResponse, len(people))
	for i, p := range people {
		response[i] = personToResponse(p, false)
	}

	respondJSON(w, http.StatusOK, response)
}

// EnrollRequest represents the request body for enrolling a person.
type EnrollRequest struct {
	Name       string      `json:"name"`
	Embeddings [][]float64 `json:"embeddings"`
}

// Enroll registers a new person from posted face embeddings.
func (h *PeopleHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Embeddings) == 0 {
		respondError(w, http.StatusBadRequest, "at least one embedding is required")
		return
	}

	samples := make([]embedding.Embedding, len(req.Embeddings))
	for i, e := range req.Embeddings {
		samples[i] = embedding.Embedding(e)
	}

	person, err := h.registry.Enroll(req.Name, samples)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicateName):
			respondError(w, http.StatusConflict, "person already enrolled")
		case errors.Is(err, embedding.ErrDimensionMismatch):
			respondError(w, http.StatusBadRequest, "embedding dimension mismatch")
		default:
			respondError(w, http.StatusInternalServerError, "failed to enroll person")
		}
		return
	}

	respondJSON(w, http.StatusCreated, personToResponse(person, true))
}

// Get returns a single person including their centroid.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, found := h.registry.Get(id)
	if !found {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	respondJSON(w, http.StatusOK, personToResponse(person, true))
}

// IdentifyRequest represents the request body for identifying an embedding.
type IdentifyRequest struct {
	Embedding []float64 `json:"embedding"`
}

// IdentifyResponse represents the result of an identification query.
type IdentifyResponse struct {
	Matched   bool            `json:"matched"`
	Person    *PersonResponse `json:"person,omitempty"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
}

// Identify finds the enrolled person best matching a posted embedding.
func (h *PeopleHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	person, score, matched := h.registry.Identify(embedding.Embedding(req.Embedding))

	resp := IdentifyResponse{
		Matched:   matched,
		Score:     score,
		Threshold: embedding.SimilarityThreshold,
	}
	if matched {
		p := personToResponse(person, false)
		resp.Person = &p
	}

	respondJSON(w, http.StatusOK, resp)
}

// SampleRequest represents the request body for adding a face sample.
type SampleRequest struct {
	Embedding []float64 `json:"embedding"`
}

// AddSample attaches another face sample to an enrolled person and
// recomputes their centroid.
func (h *PeopleHandler) AddSample(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePersonID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	var req SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	person, err := h.registry.Observe(id, embedding.Embedding(req.Embedding))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			respondError(w, http.StatusNotFound, "person not found")
		case errors.Is(err, embedding.ErrDimensionMismatch):
			respondError(w, http.StatusBadRequest, "embedding dimension mismatch")
		default:
			respondError(w, http.StatusInternalServerError, "failed to add sample")
		}
		return
	}

	respondJSON(w, http.StatusOK, personToResponse(person, true))
}
