package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

func TestMatchHandler_FacesExactMatch(t *testing.T) {
	faces := makeTestFaces(5)
	handler := NewMatchHandler(nil, newTestIndex(t, faces), nil)

	body, _ := json.Marshal(MatchRequest{Embedding: testVector(2)})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if response.Against != "faces" {
		t.Errorf("expected against 'faces', got '%s'", response.Against)
	}
	if !response.Matched {
		t.Fatal("expected a match for a stored embedding")
	}
	if response.BestFace == nil {
		t.Fatal("expected best_face to be set")
	}
	// makeTestFaces assigns ID i+1 to testVector(i).
	if response.BestFace.FaceID != 3 {
		t.Errorf("expected best face ID 3, got %d", response.BestFace.FaceID)
	}
	if response.BestFace.Score < embedding.SimilarityThreshold {
		t.Errorf("best score %v below threshold", response.BestFace.Score)
	}
	if len(response.Faces) == 0 {
		t.Fatal("expected ranked face matches")
	}
	if response.Faces[0].FaceID != 3 {
		t.Errorf("expected top ranked face ID 3, got %d", response.Faces[0].FaceID)
	}
}

func TestMatchHandler_FacesBelowThreshold(t *testing.T) {
	faces := make([]store.StoredFace, 4)
	for i := range faces {
		faces[i] = store.StoredFace{ID: int64(i + 1), Path: "/photos/face.jpg", Embedding: axisVector(i)}
	}
	handler := NewMatchHandler(nil, newTestIndex(t, faces), nil)

	// Orthogonal to every stored face.
	body, _ := json.Marshal(MatchRequest{Embedding: axisVector(10)})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if response.Matched {
		t.Error("expected no match for an orthogonal embedding")
	}
	if response.BestFace != nil {
		t.Errorf("expected no best face, got ID %d", response.BestFace.FaceID)
	}
	if len(response.Faces) != 0 {
		t.Errorf("expected no ranked matches, got %d", len(response.Faces))
	}
}

func TestMatchHandler_FacesLimitAndTieBreak(t *testing.T) {
	// Five faces sharing one embedding: every score ties at the top.
	shared := testVector(7)
	faces := make([]store.StoredFace, 5)
	for i := range faces {
		faces[i] = store.StoredFace{ID: int64(i + 1), Path: "/photos/face.jpg", Embedding: shared}
	}
	handler := NewMatchHandler(nil, newTestIndex(t, faces), nil)

	body, _ := json.Marshal(MatchRequest{Embedding: shared, Limit: 2})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if len(response.Faces) != 2 {
		t.Fatalf("expected 2 ranked matches, got %d", len(response.Faces))
	}
	// Equal scores order by ascending face ID.
	if response.Faces[0].FaceID != 1 || response.Faces[1].FaceID != 2 {
		t.Errorf("expected face IDs [1 2], got [%d %d]", response.Faces[0].FaceID, response.Faces[1].FaceID)
	}
	if response.BestFace == nil || response.BestFace.FaceID != 1 {
		t.Error("expected lowest face ID to win the tie for best match")
	}
}

func TestMatchHandler_FacesEmptyIndex(t *testing.T) {
	handler := NewMatchHandler(nil, store.NewIndex(), nil)

	body, _ := json.Marshal(MatchRequest{Embedding: testVector(0)})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if response.Matched {
		t.Error("expected no match from an empty index")
	}
}

func TestMatchHandler_NoIndex(t *testing.T) {
	handler := NewMatchHandler(nil, nil, identity.NewRegistry())

	body, _ := json.Marshal(MatchRequest{Embedding: testVector(0)})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "face index not available")
}

func TestMatchHandler_People(t *testing.T) {
	registry := identity.NewRegistry()
	person, err := registry.Enroll("Jan Novák", []embedding.Embedding{testVector(1)})
	if err != nil {
		t.Fatalf("failed to enroll person: %v", err)
	}

	handler := NewMatchHandler(nil, nil, registry)

	body, _ := json.Marshal(MatchRequest{Embedding: testVector(1), Against: "people"})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if response.Against != "people" {
		t.Errorf("expected against 'people', got '%s'", response.Against)
	}
	if !response.Matched {
		t.Fatal("expected a match for an enrolled sample")
	}
	if response.BestPerson == nil {
		t.Fatal("expected best_person to be set")
	}
	if response.BestPerson.PersonID != person.ID.String() {
		t.Errorf("expected person %s, got %s", person.ID, response.BestPerson.PersonID)
	}
	if response.BestPerson.Name != "Jan Novák" {
		t.Errorf("expected name 'Jan Novák', got '%s'", response.BestPerson.Name)
	}
	if len(response.People) != 1 {
		t.Errorf("expected 1 ranked person, got %d", len(response.People))
	}
}

func TestMatchHandler_PeopleNoMatch(t *testing.T) {
	registry := identity.NewRegistry()
	if _, err := registry.Enroll("Jan Novák", []embedding.Embedding{axisVector(0)}); err != nil {
		t.Fatalf("failed to enroll person: %v", err)
	}

	handler := NewMatchHandler(nil, nil, registry)

	body, _ := json.Marshal(MatchRequest{Embedding: axisVector(5), Against: "people"})
	req := jsonRequest("POST", "/api/v1/match", string(body))
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if response.Matched {
		t.Error("expected no match for an orthogonal embedding")
	}
	if response.BestPerson != nil {
		t.Errorf("expected no best person, got %s", response.BestPerson.Name)
	}
}

func TestMatchHandler_MultipartImage(t *testing.T) {
	faces := makeTestFaces(3)
	extractor := &fakeExtractor{emb: testVector(1)}
	handler := NewMatchHandler(extractor, newTestIndex(t, faces), nil)

	req := multipartImageRequest(t, "/api/v1/match", makeTestPNG(t), nil)
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response MatchResponse
	parseJSONResponse(t, recorder, &response)

	if !response.Matched {
		t.Fatal("expected a match for the extracted embedding")
	}
	if response.BestFace == nil || response.BestFace.FaceID != 2 {
		t.Error("expected best face ID 2 for testVector(1)")
	}
}

func TestMatchHandler_MultipartNoExtractor(t *testing.T) {
	handler := NewMatchHandler(nil, newTestIndex(t, makeTestFaces(1)), nil)

	req := multipartImageRequest(t, "/api/v1/match", makeTestPNG(t), nil)
	recorder := httptest.NewRecorder()

	handler.Match(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "extractor not available")
}

func TestMatchHandler_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError string
	}{
		{
			name:        "invalid json",
			body:        `{invalid}`,
			expectError: "invalid request body",
		},
		{
			name:        "missing embedding",
			body:        `{"against": "faces"}`,
			expectError: "embedding is required",
		},
		{
			name:        "unknown against value",
			body:        `{"embedding": [1, 0], "against": "albums"}`,
			expectError: `against must be "faces" or "people"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewMatchHandler(nil, newTestIndex(t, makeTestFaces(1)), nil)

			req := jsonRequest("POST", "/api/v1/match", tc.body)
			recorder := httptest.NewRecorder()

			handler.Match(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tc.expectError)
		})
	}
}

// Helper functions

// axisVector builds a unit vector along component i.
func axisVector(i int) embedding.Embedding {
	v := make(embedding.Embedding, embedding.Size)
	v[i%embedding.Size] = 1.0
	return v
}
