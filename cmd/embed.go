package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
)

var embedCmd = &cobra.Command{
	Use:   "embed [image]...",
	Short: "Compute face embeddings for image files",
	Long: `Compute face embeddings for one or more image files and print them
as JSON. With no arguments (or "-") the image is read from stdin.

The built-in grid extractor runs fully offline. Set EXTRACTOR_URL to use
a remote embedding service instead.

Examples:
  # Embed a single image
  face-sorter embed face.jpg

  # Embed several images at once
  face-sorter embed a.jpg b.jpg c.png

  # Read the image from stdin
  cat face.jpg | face-sorter embed`,
	Args: cobra.ArbitraryArgs,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

// EmbedResult is one computed embedding in the embed command output.
type EmbedResult struct {
	Path      string    `json:"path"`
	Model     string    `json:"model"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	if len(args) == 0 {
		args = []string{"-"}
	}

	results := make([]EmbedResult, 0, len(args))
	for _, path := range args {
		var emb embedding.Embedding
		var err error

		if path == "-" {
			emb, err = extractStdin(ctx, extractor)
		} else {
			emb, err = extractFile(ctx, extractor, path)
		}
		if err != nil {
			return err
		}

		results = append(results, EmbedResult{
			Path:      path,
			Model:     extractor.Name(),
			Dim:       len(emb),
			Embedding: emb,
		})
	}

	return outputJSON(results)
}

// extractStdin reads image bytes from stdin and computes their embedding.
func extractStdin(ctx context.Context, extractor faceprint.Extractor) (embedding.Embedding, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("no image data on stdin")
	}
	emb, err := extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract embedding from stdin: %w", err)
	}
	return emb, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
