package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image-a> <image-b>",
	Short: "Compare two face images and report whether they match",
	Long: `Compare two face images by cosine similarity of their embeddings.
Scores at or above the identity threshold count as the same person.

Examples:
  # Compare two images
  face-sorter compare a.jpg b.jpg

  # JSON output for scripting
  face-sorter compare a.jpg b.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

// CompareOutput reports the similarity verdict between two face images.
type CompareOutput struct {
	ImageA       string  `json:"image_a"`
	ImageB       string  `json:"image_b"`
	Similarity   float64 `json:"similarity"`
	Threshold    float64 `json:"threshold"`
	SameIdentity bool    `json:"same_identity"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	embA, err := extractFile(ctx, extractor, args[0])
	if err != nil {
		return err
	}
	embB, err := extractFile(ctx, extractor, args[1])
	if err != nil {
		return err
	}

	similarity := embedding.CosineSimilarity(embA, embB)
	output := CompareOutput{
		ImageA:       args[0],
		ImageB:       args[1],
		Similarity:   similarity,
		Threshold:    embedding.SimilarityThreshold,
		SameIdentity: similarity >= embedding.SimilarityThreshold,
	}

	if jsonOutput {
		return outputJSON(output)
	}

	verdict := "different identities"
	if output.SameIdentity {
		verdict = "same identity"
	}
	fmt.Printf("Similarity: %.4f\n", output.Similarity)
	fmt.Printf("Threshold:  %.2f\n", output.Threshold)
	fmt.Printf("Verdict:    %s\n", verdict)

	return nil
}
