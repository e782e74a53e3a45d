package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// StatsHandler reports collection counters.
type StatsHandler struct {
	faces    store.FaceReader
	index    *store.Index
	registry *identity.Registry
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(faces store.FaceReader, index *store.Index, registry *identity.Registry) *StatsHandler {
	return &StatsHandler{
		faces:    faces,
		index:    index,
		registry: registry,
	}
}

// StatsResponse represents collection counters in API responses.
type StatsResponse struct {
	Faces   int `json:"faces"`
	Indexed int `json:"indexed"`
	Labels  int `json:"labels"`
	People  int `json:"people"`
}

// Get returns counters for stored faces, the search index and the registry.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse

	if h.faces != nil {
		if count, err := h.faces.Count(r.Context()); err == nil {
			resp.Faces = count
		}
		if labels, err := h.faces.Labels(r.Context()); err == nil {
			resp.Labels = len(labels)
		}
	}
	if h.index != nil {
		resp.Indexed = h.index.Count()
	}
	if h.registry != nil {
		resp.People = h.registry.Count()
	}

	respondJSON(w, http.StatusOK, resp)
}
