package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
)

// GroupRequest represents the request body for clustering embeddings.
type GroupRequest struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// GroupResult represents one identity cluster. Members index into the
// posted embeddings slice.
type GroupResult struct {
	Members  []int     `json:"members"`
	Size     int       `json:"size"`
	Centroid []float64 `json:"centroid"`
}

// GroupResponse represents the clustering response.
type GroupResponse struct {
	Embeddings int           `json:"embeddings"`
	Groups     []GroupResult `json:"groups"`
}

// Group clusters posted embeddings into identity groups.
func (h *PeopleHandler) Group(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embeddings) == 0 {
		respondError(w, http.StatusBadRequest, "at least one embedding is required")
		return
	}

	embs := make([]embedding.Embedding, len(req.Embeddings))
	for i, e := range req.Embeddings {
		embs[i] = embedding.Embedding(e)
	}

	groups, err := identity.GroupEmbeddings(embs)
	if err != nil {
		if errors.Is(err, embedding.ErrDimensionMismatch) {
			respondError(w, http.StatusBadRequest, "embedding dimension mismatch")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to group embeddings")
		return
	}

	results := make([]GroupResult, len(groups))
	for i, g := range groups {
		results[i] = GroupResult{
			Members:  g.Members,
			Size:     len(g.Members),
			Centroid: g.Centroid,
		}
	}

	respondJSON(w, http.StatusOK, GroupResponse{
		Embeddings: len(embs),
		Groups:     results,
	})
}
