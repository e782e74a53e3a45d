package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/constants"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
	"github.com/kozaktomas/face-sorter/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Embed a directory of face images into the face store",
	Long: `Compute embeddings for every face image in a directory and save them
to the configured face store. Images whose path is already stored are
skipped, so the command can be stopped and resumed.

When HNSW_INDEX_PATH is set, the search index is rebuilt and persisted
after indexing so the API server starts with a warm index.

Examples:
  # Index a directory with the default worker pool
  face-sorter index ./faces

  # Limit concurrency
  face-sorter index ./faces --concurrency 2

  # JSON output for scripting
  face-sorter index ./faces --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	indexCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
	indexCmd.Flags().StringSlice("ext", defaultImageExts, "Image extensions to scan (can be specified multiple times)")
}

// IndexResult represents the result of an index run.
type IndexResult struct {
	Success       bool   `json:"success"`
	Backend       string `json:"backend"`
	Scanned       int    `json:"scanned"`
	Indexed       int    `json:"indexed"`
	Skipped       int    `json:"skipped"`
	Errors        int    `json:"errors"`
	Total         int    `json:"total"`
	DurationMs    int64  `json:"duration_ms"`
	DurationHuman string `json:"duration_human,omitempty"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")
	exts := mustGetStringSlice(cmd, "ext")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	if !jsonOutput {
		fmt.Printf("Using %s face store\n", backend)
		if backend == "memory" {
			fmt.Println("Warning: no database configured, faces will not persist (set DATABASE_URL or MARIADB_DSN)")
		}
	}

	paths, err := listImages(args[0], exts)
	if err != nil {
		return err
	}

	// Filter out paths that are already stored.
	existing, err := faces.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored faces: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, face := range existing {
		known[face.Path] = struct{}{}
	}

	var toProcess []string
	for _, path := range paths {
		if _, ok := known[path]; !ok {
			toProcess = append(toProcess, path)
		}
	}
	skipped := len(paths) - len(toProcess)

	if len(toProcess) == 0 {
		result := IndexResult{
			Success: true, Backend: backend, Scanned: len(paths), Skipped: skipped,
			Total: len(existing), DurationMs: time.Since(startTime).Milliseconds(),
		}
		if jsonOutput {
			return outputJSON(result)
		}
		fmt.Println("All images already indexed.")
		return nil
	}

	if !jsonOutput {
		fmt.Printf("Images to process: %d (skipping %d already indexed)\n\n", len(toProcess), skipped)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(toProcess),
			progressbar.OptionSetDescription("Indexing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	extractor := newExtractor(cfg)

	var indexed int64
	var errorCount int64
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range toProcess {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := indexImage(ctx, faces, extractor, path); err != nil {
				atomic.AddInt64(&errorCount, 1)
			} else {
				atomic.AddInt64(&indexed, 1)
			}

			if bar != nil {
				bar.Add(1)
			}
		}(path)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	if err := persistIndex(ctx, faces, cfg.Database.HNSWIndexPath, jsonOutput); err != nil {
		return err
	}

	total, _ := faces.Count(ctx)
	duration := time.Since(startTime)
	result := IndexResult{
		Success:       true,
		Backend:       backend,
		Scanned:       len(paths),
		Indexed:       int(indexed),
		Skipped:       skipped,
		Errors:        int(errorCount),
		Total:         total,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nIndexing complete!")
	fmt.Printf("  Indexed:  %d\n", result.Indexed)
	fmt.Printf("  Skipped:  %d\n", result.Skipped)
	if result.Errors > 0 {
		fmt.Printf("  Errors:   %d\n", result.Errors)
	}
	fmt.Printf("  In store: %d\n", result.Total)
	fmt.Printf("  Duration: %s\n", result.DurationHuman)

	return nil
}

// indexImage extracts one image and saves the face to the store.
func indexImage(ctx context.Context, faces store.FaceWriter, extractor faceprint.Extractor, path string) error {
	emb, err := extractFile(ctx, extractor, path)
	if err != nil {
		return err
	}

	face := &store.StoredFace{
		Path:      path,
		Embedding: emb,
		Dim:       len(emb),
	}
	if _, err := faces.Save(ctx, face); err != nil {
		return fmt.Errorf("failed to save face for %s: %w", path, err)
	}
	return nil
}

// persistIndex rebuilds the search index from the store and saves it when
// an index path is configured.
func persistIndex(ctx context.Context, faces store.FaceReader, path string, jsonOutput bool) error {
	if path == "" {
		return nil
	}

	all, err := faces.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored faces: %w", err)
	}

	index := store.NewIndex()
	if err := index.Build(all); err != nil {
		return fmt.Errorf("failed to build face index: %w", err)
	}
	if err := index.Save(path, index.Metadata()); err != nil {
		return fmt.Errorf("failed to save face index: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("Face index saved to %s (%d faces)\n", path, index.Count())
	}
	return nil
}

// formatDuration formats a duration as a human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
