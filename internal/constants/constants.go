// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultMatchLimit is the default number of ranked results returned
	// by similarity search endpoints and commands
	DefaultMatchLimit = 10

	// MaxMatchLimit caps how many ranked results a single request may ask for
	MaxMatchLimit = 100
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for
	// directory embedding runs
	WorkerPoolSize = 8
)

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)
