package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
)

var matchCmd = &cobra.Command{
	Use:   "match <target> <candidates-dir>",
	Short: "Find the candidate face that best matches a target image",
	Long: `Match a target face image against every image in a candidates
directory. Candidates are scored by cosine similarity; the best score at
or above the identity threshold wins, and ties go to the candidate that
sorts first by filename.

Examples:
  # Match a face against a directory of candidates
  face-sorter match face.jpg ./people

  # Only scan specific extensions
  face-sorter match face.jpg ./people --ext jpg --ext png

  # JSON output for scripting
  face-sorter match face.jpg ./people --json`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Bool("json", false, "Output as JSON")
	matchCmd.Flags().StringSlice("ext", defaultImageExts, "Image extensions to scan (can be specified multiple times)")
}

// CandidateScore is one scored candidate in the match command output.
type CandidateScore struct {
	Path       string  `json:"path"`
	Similarity float64 `json:"similarity"`
	Matched    bool    `json:"matched"`
}

// MatchCmdOutput is the JSON output of the match command.
type MatchCmdOutput struct {
	Target     string           `json:"target"`
	Candidates int              `json:"candidates"`
	Threshold  float64          `json:"threshold"`
	Best       *CandidateScore  `json:"best,omitempty"`
	Scores     []CandidateScore `json:"scores"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	exts := mustGetStringSlice(cmd, "ext")

	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	target, err := extractFile(ctx, extractor, args[0])
	if err != nil {
		return err
	}

	paths, err := listImages(args[1], exts)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", args[1])
	}

	// Extract candidates in filename order; skipped files keep the order
	// of the survivors intact, so ties still go to the earliest filename.
	var candidates []embedding.Embedding
	var candidatePaths []string
	for _, path := range paths {
		emb, err := extractFile(ctx, extractor, path)
		if err != nil {
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Warning: skipping %v\n", err)
			}
			continue
		}
		candidates = append(candidates, emb)
		candidatePaths = append(candidatePaths, path)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no usable images in %s", args[1])
	}

	scores := make([]CandidateScore, len(candidates))
	for i, emb := range candidates {
		similarity := embedding.CosineSimilarity(target, emb)
		scores[i] = CandidateScore{
			Path:       candidatePaths[i],
			Similarity: similarity,
			Matched:    similarity >= embedding.SimilarityThreshold,
		}
	}

	output := MatchCmdOutput{
		Target:     args[0],
		Candidates: len(candidates),
		Threshold:  embedding.SimilarityThreshold,
	}
	if match := embedding.BestMatch(target, candidates); match != nil {
		best := scores[match.Index]
		output.Best = &best
	}

	// Rank by similarity, stable so equal scores keep filename order.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	output.Scores = scores

	if jsonOutput {
		return outputJSON(output)
	}

	printMatchTable(&output)
	return nil
}

// printMatchTable prints the ranked candidate scores and the verdict.
func printMatchTable(output *MatchCmdOutput) {
	fmt.Printf("Comparing %s against %d candidates (threshold %.2f):\n\n",
		output.Target, output.Candidates, output.Threshold)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CANDIDATE\tSIMILARITY\tMATCH")
	fmt.Fprintln(w, "---------\t----------\t-----")
	for _, s := range output.Scores {
		matched := "-"
		if s.Matched {
			matched = "yes"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", s.Path, s.Similarity, matched)
	}
	w.Flush()

	if output.Best != nil {
		fmt.Printf("\nBest match: %s (similarity %.4f)\n", output.Best.Path, output.Best.Similarity)
	} else {
		fmt.Printf("\nNo candidate matched above the threshold.\n")
	}
}
