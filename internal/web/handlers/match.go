package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-sorter/internal/constants"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// Match targets
const (
	matchAgainstFaces  = "faces"
	matchAgainstPeople = "people"
)

// MatchHandler answers similarity queries against the face index and the
// person registry. Queries arrive either as a JSON embedding or as a
// multipart image that is run through the extractor first.
type MatchHandler struct {
	extractor faceprint.Extractor
	index     *store.Index
	registry  *identity.Registry
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(extractor faceprint.Extractor, index *store.Index, registry *identity.Registry) *MatchHandler {
	return &MatchHandler{
		extractor: extractor,
		index:     index,
		registry:  registry,
	}
}

// MatchRequest represents a JSON match request.
type MatchRequest struct {
	Embedding []float64 `json:"embedding"`
	Against   string    `json:"against"`
	Limit     int       `json:"limit"`
}

// FaceMatchResult represents a stored face that matched the query.
type FaceMatchResult struct {
	FaceID int64   `json:"face_id"`
	Path   string  `json:"path"`
	Label  string  `json:"label,omitempty"`
	Score  float64 `json:"score"`
}

// PersonMatchResult represents a known person that matched the query.
type PersonMatchResult struct {
	PersonID string  `json:"person_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// MatchResponse represents the match response.
type MatchResponse struct {
	Against    string              `json:"against"`
	Threshold  float64             `json:"threshold"`
	Matched    bool                `json:"matched"`
	BestFace   *FaceMatchResult    `json:"best_face,omitempty"`
	BestPerson *PersonMatchResult  `json:"best_person,omitempty"`
	Faces      []FaceMatchResult   `json:"faces,omitempty"`
	People     []PersonMatchResult `json:"people,omitempty"`
}

// normalizeMatchParams applies defaults and bounds to the against/limit options.
func normalizeMatchParams(against string, limit int) (string, int, string) {
	if against == "" {
		against = matchAgainstFaces
	}
	if against != matchAgainstFaces && against != matchAgainstPeople {
		return "", 0, `against must be "faces" or "people"`
	}
	if limit <= 0 {
		limit = constants.DefaultMatchLimit
	}
	if limit > constants.MaxMatchLimit {
		limit = constants.MaxMatchLimit
	}
	return against, limit, ""
}

// parseRequest extracts the query embedding and options from either a JSON
// body or a multipart image upload.
func (h *MatchHandler) parseRequest(r *http.Request) (embedding.Embedding, string, int, int, string) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if h.extractor == nil {
			return nil, "", 0, http.StatusServiceUnavailable, "extractor not available"
		}
		data, errMsg := readUploadedImage(r)
		if errMsg != "" {
			return nil, "", 0, http.StatusBadRequest, errMsg
		}
		emb, err := h.extractor.Extract(r.Context(), data)
		if err != nil {
			return nil, "", 0, http.StatusUnprocessableEntity, "failed to extract embedding"
		}
		limit, _ := strconv.Atoi(r.FormValue("limit"))
		against, limit, errMsg := normalizeMatchParams(r.FormValue("against"), limit)
		if errMsg != "" {
			return nil, "", 0, http.StatusBadRequest, errMsg
		}
		return emb, against, limit, 0, ""
	}

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", 0, http.StatusBadRequest, errInvalidRequestBody
	}
	if len(req.Embedding) == 0 {
		return nil, "", 0, http.StatusBadRequest, "embedding is required"
	}
	against, limit, errMsg := normalizeMatchParams(req.Against, req.Limit)
	if errMsg != "" {
		return nil, "", 0, http.StatusBadRequest, errMsg
	}
	return embedding.Embedding(req.Embedding), against, limit, 0, ""
}

// matchFaces ranks indexed faces against the target embedding.
func (h *MatchHandler) matchFaces(target embedding.Embedding, limit int) ([]FaceMatchResult, *FaceMatchResult) {
	if h.index.IsEmpty() {
		return nil, nil
	}

	// Over-fetch so there are enough candidates left after threshold filtering.
	ids, _, err := h.index.Search(target, limit*store.HNSWSearchMultiplier)
	if err != nil {
		return nil, nil
	}

	results := make([]FaceMatchResult, 0, limit)
	for _, id := range ids {
		face := h.index.GetFace(id)
		if face == nil {
			continue
		}
		score := embedding.CosineSimilarity(target, face.Embedding)
		if score < embedding.SimilarityThreshold {
			continue
		}
		results = append(results, FaceMatchResult{
			FaceID: face.ID,
			Path:   face.Path,
			Label:  face.Label,
			Score:  score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].FaceID < results[j].FaceID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	best := h.index.BestMatch(target)
	if best == nil {
		return results, nil
	}
	return results, &FaceMatchResult{
		FaceID: best.Face.ID,
		Path:   best.Face.Path,
		Label:  best.Face.Label,
		Score:  best.Score,
	}
}

// matchPeople ranks registered people against the target embedding.
func (h *MatchHandler) matchPeople(target embedding.Embedding, limit int) ([]PersonMatchResult, *PersonMatchResult) {
	results := make([]PersonMatchResult, 0, limit)
	for _, person := range h.registry.People() {
		score := embedding.CosineSimilarity(target, person.Centroid)
		if score < embedding.SimilarityThreshold {
			continue
		}
		results = append(results, PersonMatchResult{
			PersonID: person.ID.String(),
			Name:     person.Name,
			Score:    score,
		})
	}

	// Stable sort keeps enrollment order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	person, score, ok := h.registry.Identify(target)
	if !ok {
		return results, nil
	}
	return results, &PersonMatchResult{
		PersonID: person.ID.String(),
		Name:     person.Name,
		Score:    score,
	}
}

// Match runs a similarity query against stored faces or known people.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	target, against, limit, errStatus, errMsg := h.parseRequest(r)
	if errMsg != "" {
		respondError(w, errStatus, errMsg)
		return
	}

	resp := MatchResponse{
		Against:   against,
		Threshold: embedding.SimilarityThreshold,
	}

	switch against {
	case matchAgainstFaces:
		if h.index == nil {
			respondError(w, http.StatusServiceUnavailable, "face index not available")
			return
		}
		resp.Faces, resp.BestFace = h.matchFaces(target, limit)
		resp.Matched = resp.BestFace != nil
	case matchAgainstPeople:
		if h.registry == nil {
			respondError(w, http.StatusServiceUnavailable, "person registry not available")
			return
		}
		resp.People, resp.BestPerson = h.matchPeople(target, limit)
		resp.Matched = resp.BestPerson != nil
	}

	respondJSON(w, http.StatusOK, resp)
}
