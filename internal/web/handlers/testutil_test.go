package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// fakeExtractor returns a fixed embedding or error for every image.
type fakeExtractor struct {
	emb embedding.Embedding
	err error
}

func (f *fakeExtractor) Name() string {
	return "fake"
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (embedding.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.emb, nil
}

// errFakeExtract is the error returned by failing fake extractors.
var errFakeExtract = errors.New("extraction failed")

// testVector builds a deterministic normalized embedding. Distinct seeds
// produce distinct directions.
func testVector(seed int) embedding.Embedding {
	v := make(embedding.Embedding, embedding.Size)
	for j := 0; j < embedding.Size; j++ {
		v[j] = float64((seed*31+j*7)%64) + 1.0
	}
	return embedding.Normalize(v)
}

// makeTestFaces builds n stored faces with embeddings from testVector.
func makeTestFaces(n int) []store.StoredFace {
	faces := make([]store.StoredFace, n)
	for i := 0; i < n; i++ {
		faces[i] = store.StoredFace{
			ID:        int64(i + 1),
			Path:      "/photos/face.jpg",
			Embedding: testVector(i),
			Dim:       embedding.Size,
			CreatedAt: time.Now().UTC(),
		}
	}
	return faces
}

// newTestIndex builds an in-memory search index over the given faces.
func newTestIndex(t *testing.T, faces []store.StoredFace) *store.Index {
	t.Helper()
	idx := store.NewIndex()
	if err := idx.Build(faces); err != nil {
		t.Fatalf("failed to build test index: %v", err)
	}
	return idx
}

// makeTestPNG encodes a small gray PNG image.
func makeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 127})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// multipartImageRequest builds a multipart request with an "image" file part
// and optional extra form fields.
func multipartImageRequest(t *testing.T, path string, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "face.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(imageData); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// jsonRequest builds a JSON request from a raw body string.
func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type.
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
