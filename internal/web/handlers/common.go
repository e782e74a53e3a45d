// Package handlers provides HTTP handlers for the web API.
// Handler methods are organized by resource:
//   - embeddings.go: embedding extraction and similarity (Create, Similarity)
//   - match.go: similarity search against stored faces and known people (Match)
//   - faces.go: stored face retrieval and labeling (List, Get, AssignLabel, Delete)
//   - people.go: person registry operations (List, Enroll, Get, Identify, AddSample)
//   - groups.go: clustering of posted embeddings (Group)
//   - stats.go: collection counters (Get)
package handlers

import (
	"encoding/json"
	"net/http"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
