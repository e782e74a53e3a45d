package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-sorter/internal/store"
)

// FacesHandler handles stored face endpoints.
type FacesHandler struct {
	faces store.Store
	index *store.Index
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(faces store.Store, index *store.Index) *FacesHandler {
	return &FacesHandler{
		faces: faces,
		index: index,
	}
}

// FaceResponse represents a stored face in API responses.
// The embedding is included only when a single face is fetched.
type FaceResponse struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Label     string    `json:"label,omitempty"`
	Dim       int       `json:"dim"`
	CreatedAt time.Time `json:"created_at"`
	Embedding []float64 `json:"embedding,omitempty"`
}

func faceToResponse(f *store.StoredFace, includeEmbedding bool) FaceResponse {
	resp := FaceResponse{
		ID:        f.ID,
		Path:      f.Path,
		Label:     f.Label,
		Dim:       f.Dim,
		CreatedAt: f.CreatedAt,
	}
	if includeEmbedding {
		resp.Embedding = f.Embedding
	}
	return resp
}

// parseFaceID reads the {id} URL parameter.
func parseFaceID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List returns stored faces, optionally filtered by label.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		respondError(w, http.StatusServiceUnavailable, "face store not available")
		return
	}

	var (
		faces []store.StoredFace
		err   error
	)
	if label := r.URL.Query().Get("label"); label != "" {
		faces, err = h.faces.ListByLabel(r.Context(), label)
	} else {
		faces, err = h.faces.List(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list faces")
		return
	}

	response := make([]FaceResponse, len(faces))
	for i := range faces {
		response[i] = faceToResponse(&faces[i], false)
	}

	respondJSON(w, http.StatusOK, response)
}

// Get returns a single stored face including its embedding.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		respondError(w, http.StatusServiceUnavailable, "face store not available")
		return
	}

	id, ok := parseFaceID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	face, err := h.faces.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "face not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get face")
		return
	}

	respondJSON(w, http.StatusOK, faceToResponse(face, true))
}

// LabelRequest represents the request body for labeling a face.
type LabelRequest struct {
	Label string `json:"label"`
}

// AssignLabel sets the label of a stored face.
func (h *FacesHandler) AssignLabel(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		respondError(w, http.StatusServiceUnavailable, "face store not available")
		return
	}

	id, ok := parseFaceID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Label == "" {
		respondError(w, http.StatusBadRequest, "label is required")
		return
	}

	if err := h.faces.AssignLabel(r.Context(), id, req.Label); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "face not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to assign label")
		return
	}

	// Keep match results consistent with the store.
	if h.index != nil {
		h.index.UpdateLabel(id, req.Label)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"label": req.Label,
	})
}

// Delete removes a stored face.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.faces == nil {
		respondError(w, http.StatusServiceUnavailable, "face store not available")
		return
	}

	id, ok := parseFaceID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	if err := h.faces.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "face not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete face")
		return
	}

	if h.index != nil {
		h.index.Delete(id)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": id,
	})
}
