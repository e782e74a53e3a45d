// Package faceprint computes perceptual identity embeddings from
// pre-cropped face images.
package faceprint

import (
	"fmt"
	"math"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

const (
	// InputSize is the width and height every face crop is scaled to
	// before feature extraction.
	InputSize = 112

	gridCells = 8                     // cells per grid axis
	cellSize  = InputSize / gridCells // pixels per cell axis
)

// ImageSource provides the pixel access the grid features need. Implementations
// must be deterministic: the same source yields the same pixels on every read.
type ImageSource interface {
	// Bounds returns the image width and height in pixels.
	Bounds() (width, height int)
	// Resize returns a new source scaled to the given dimensions.
	Resize(width, height int) ImageSource
	// LuminanceAt returns the grayscale luminance (0-255) at x, y.
	LuminanceAt(x, y int) float64
}

// Generate computes a 128-component identity embedding for a face crop.
// The same pixels always produce the same embedding, and failures surface
// as errors rather than degenerate vectors.
func Generate(img ImageSource) (embedding.Embedding, error) {
	width, height := img.Bounds()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	// 1. Scale to the canonical input size.
	if width != InputSize || height != InputSize {
		img = img.Resize(InputSize, InputSize)
	}

	// 2. Walk the 8x8 grid of 14x14 cells row by row, recording the
	//    normalized mean and standard deviation of each cell's luminance.
	features := make(embedding.Embedding, 0, embedding.Size)
	for cy := 0; cy < gridCells; cy++ {
		for cx := 0; cx < gridCells; cx++ {
			mean, variance := cellStats(img, cx*cellSize, cy*cellSize)
			features = append(features, mean/127.5-1.0)
			features = append(features, math.Sqrt(math.Abs(variance))/127.5)
		}
	}

	// 3. Project onto the unit sphere.
	return embedding.Normalize(features), nil
}

// cellStats computes the mean and population variance of the luminance
// over one grid cell starting at the given pixel offset.
func cellStats(img ImageSource, x0, y0 int) (mean, variance float64) {
	const n = cellSize * cellSize

	var sum float64
	for y := y0; y < y0+cellSize; y++ {
		for x := x0; x < x0+cellSize; x++ {
			sum += img.LuminanceAt(x, y)
		}
	}
	mean = sum / n

	var sqDiff float64
	for y := y0; y < y0+cellSize; y++ {
		for x := x0; x < x0+cellSize; x++ {
			d := img.LuminanceAt(x, y) - mean
			sqDiff += d * d
		}
	}
	// Rounding can push the accumulated variance a hair below zero; the
	// caller takes abs before the square root.
	variance = sqDiff / n

	return mean, variance
}
