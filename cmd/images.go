package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
)

// defaultImageExts are the file extensions scanned by directory commands.
var defaultImageExts = []string{"jpg", "jpeg", "png", "gif", "bmp"}

// listImages returns the image files directly under dir with one of the
// given extensions. os.ReadDir sorts by filename, so the result order is
// deterministic.
func listImages(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// extractFile reads an image file and computes its embedding.
func extractFile(ctx context.Context, extractor faceprint.Extractor, path string) (embedding.Embedding, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user arguments
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	emb, err := extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract embedding from %s: %w", path, err)
	}
	return emb, nil
}
