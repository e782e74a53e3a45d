package faceprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

const (
	defaultRemoteURL   = "http://localhost:8000"
	defaultRemoteModel = "arcface" // model name for reference only
)

// Remote computes embeddings through an external embedding service.
// The service owns the model; this client only ships image bytes and
// validates the returned vector.
type Remote struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewRemote creates a client for the embedding service.
func NewRemote(baseURL, model string) *Remote {
	if baseURL == "" {
		baseURL = defaultRemoteURL
	}
	if model == "" {
		model = defaultRemoteModel
	}
	return &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

// Name returns the model name being used.
func (r *Remote) Name() string {
	return r.model
}

// remoteResponse represents the response from the embedding service
type remoteResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`
}

// Extract posts the image to the embedding service and returns the vector.
func (r *Remote) Extract(ctx context.Context, imageData []byte) (embedding.Embedding, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embed/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var remoteResp remoteResponse
	if err := json.Unmarshal(body, &remoteResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(remoteResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if len(remoteResp.Embedding) != embedding.Size {
		return nil, fmt.Errorf("unexpected embedding size %d, want %d",
			len(remoteResp.Embedding), embedding.Size)
	}

	return embedding.Embedding(remoteResp.Embedding), nil
}
