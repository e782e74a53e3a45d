package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/face-sorter/internal/constants"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
)

// EmbeddingsHandler handles embedding extraction and comparison endpoints.
type EmbeddingsHandler struct {
	extractor faceprint.Extractor
}

// NewEmbeddingsHandler creates a new embeddings handler.
func NewEmbeddingsHandler(extractor faceprint.Extractor) *EmbeddingsHandler {
	return &EmbeddingsHandler{
		extractor: extractor,
	}
}

// EmbeddingResponse represents an extracted embedding in API responses.
type EmbeddingResponse struct {
	Model     string    `json:"model"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
}

// readUploadedImage reads the "image" file from a multipart request.
func readUploadedImage(r *http.Request) ([]byte, string) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, "failed to parse multipart form"
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, "image file is required"
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "failed to read image file"
	}
	if len(data) == 0 {
		return nil, "image file is empty"
	}
	return data, ""
}

// Create extracts an embedding from an uploaded image.
func (h *EmbeddingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		respondError(w, http.StatusServiceUnavailable, "extractor not available")
		return
	}

	data, errMsg := readUploadedImage(r)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	emb, err := h.extractor.Extract(r.Context(), data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "failed to extract embedding")
		return
	}

	respondJSON(w, http.StatusOK, EmbeddingResponse{
		Model:     h.extractor.Name(),
		Dim:       len(emb),
		Embedding: emb,
	})
}

// SimilarityRequest represents a similarity comparison request.
type SimilarityRequest struct {
	EmbeddingA []float64 `json:"embedding_a"`
	EmbeddingB []float64 `json:"embedding_b"`
}

// SimilarityResponse represents the result of comparing two embeddings.
type SimilarityResponse struct {
	Similarity   float64 `json:"similarity"`
	SameIdentity bool    `json:"same_identity"`
	Threshold    float64 `json:"threshold"`
}

// Similarity compares two posted embeddings.
func (h *EmbeddingsHandler) Similarity(w http.ResponseWriter, r *http.Request) {
	var req SimilarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.EmbeddingA) == 0 || len(req.EmbeddingB) == 0 {
		respondError(w, http.StatusBadRequest, "embedding_a and embedding_b are required")
		return
	}

	a := embedding.Embedding(req.EmbeddingA)
	b := embedding.Embedding(req.EmbeddingB)

	respondJSON(w, http.StatusOK, SimilarityResponse{
		Similarity:   embedding.CosineSimilarity(a, b),
		SameIdentity: embedding.SameIdentity(a, b),
		Threshold:    embedding.SimilarityThreshold,
	})
}
