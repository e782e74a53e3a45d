package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/constants"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
	"github.com/kozaktomas/face-sorter/internal/identity"
)

var groupCmd = &cobra.Command{
	Use:   "group <dir>",
	Short: "Group face images in a directory by identity",
	Long: `Group the face images in a directory into identity clusters.
Each face joins the existing group whose centroid it best matches at or
above the identity threshold, otherwise it opens a new group.

Examples:
  # Group faces with the default worker pool
  face-sorter group ./faces

  # Limit concurrency
  face-sorter group ./faces --concurrency 2

  # Write the report as JSON or YAML
  face-sorter group ./faces --json
  face-sorter group ./faces --yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGroup,
}

func init() {
	rootCmd.AddCommand(groupCmd)

	groupCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	groupCmd.Flags().Bool("json", false, "Output the report as JSON")
	groupCmd.Flags().Bool("yaml", false, "Output the report as YAML")
	groupCmd.Flags().StringSlice("ext", defaultImageExts, "Image extensions to scan (can be specified multiple times)")
}

// GroupEntry is one identity cluster in the group report.
type GroupEntry struct {
	ID      int      `json:"id" yaml:"id"`
	Size    int      `json:"size" yaml:"size"`
	Members []string `json:"members" yaml:"members"`
}

// GroupReport is the group command output.
type GroupReport struct {
	Directory string       `json:"directory" yaml:"directory"`
	Images    int          `json:"images" yaml:"images"`
	Groups    []GroupEntry `json:"groups" yaml:"groups"`
	Errors    []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func runGroup(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")
	yamlOutput := mustGetBool(cmd, "yaml")
	exts := mustGetStringSlice(cmd, "ext")

	if jsonOutput && yamlOutput {
		return errors.New("--json and --yaml are mutually exclusive")
	}
	quiet := jsonOutput || yamlOutput

	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	paths, err := listImages(args[0], exts)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	if !quiet {
		fmt.Printf("Found %d images in %s\n\n", len(paths), args[0])
	}

	embs, extractErrs := extractAll(ctx, extractor, paths, concurrency, quiet)

	// Keep only successful extractions, preserving filename order so the
	// grouping stays deterministic.
	var grouped []embedding.Embedding
	var groupedPaths []string
	var errorMessages []string
	for i, emb := range embs {
		if extractErrs[i] != nil {
			errorMessages = append(errorMessages, extractErrs[i].Error())
			continue
		}
		grouped = append(grouped, emb)
		groupedPaths = append(groupedPaths, paths[i])
	}
	if len(grouped) == 0 {
		return fmt.Errorf("no usable images in %s", args[0])
	}

	groups, err := identity.GroupEmbeddings(grouped)
	if err != nil {
		return fmt.Errorf("failed to group faces: %w", err)
	}

	report := GroupReport{
		Directory: args[0],
		Images:    len(grouped),
		Groups:    make([]GroupEntry, len(groups)),
		Errors:    errorMessages,
	}
	for i, g := range groups {
		members := make([]string, len(g.Members))
		for j, m := range g.Members {
			members[j] = groupedPaths[m]
		}
		report.Groups[i] = GroupEntry{ID: i + 1, Size: len(members), Members: members}
	}

	switch {
	case jsonOutput:
		return outputJSON(report)
	case yamlOutput:
		return outputYAML(report)
	default:
		printGroupReport(&report)
		return nil
	}
}

// extractAll computes embeddings for all paths with a bounded worker pool.
// Results and errors are returned positionally aligned with paths.
func extractAll(ctx context.Context, extractor faceprint.Extractor, paths []string, concurrency int, quiet bool) ([]embedding.Embedding, []error) {
	embs := make([]embedding.Embedding, len(paths))
	errs := make([]error, len(paths))

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Extracting embeddings"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			embs[i], errs[i] = extractFile(ctx, extractor, path)

			if bar != nil {
				bar.Add(1)
			}
		}(i, path)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	return embs, errs
}

// printGroupReport prints the human-readable grouping report.
func printGroupReport(report *GroupReport) {
	fmt.Printf("Found %d groups across %d images:\n", len(report.Groups), report.Images)

	for _, g := range report.Groups {
		fmt.Printf("\nGroup %d (%d faces):\n", g.ID, g.Size)
		for _, member := range g.Members {
			fmt.Printf("  %s\n", member)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Printf("\nSkipped %d images:\n", len(report.Errors))
		for _, msg := range report.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}
}

func outputYAML(data any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}
	return nil
}
