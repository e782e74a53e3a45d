package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
)

var peopleIdentifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify the person in a face image",
	Long: `Identify a face image against the enrolled people. The face matches
the person whose centroid scores highest at or above the identity
threshold; ties go to the earliest enrollment.

Examples:
  # Identify a face
  face-sorter people identify face.jpg

  # JSON output for scripting
  face-sorter people identify face.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPeopleIdentify,
}

func init() {
	peopleCmd.AddCommand(peopleIdentifyCmd)

	peopleIdentifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentifyCmdOutput reports the identification result for one image.
type IdentifyCmdOutput struct {
	Image      string  `json:"image"`
	Matched    bool    `json:"matched"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Threshold  float64 `json:"threshold"`
}

func runPeopleIdentify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	faces, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	registry, err := buildRegistry(ctx, faces)
	if err != nil {
		return err
	}
	if registry.Count() == 0 && !jsonOutput {
		fmt.Println("No people enrolled. Run 'face-sorter people enroll <name> <image>...' first.")
	}

	emb, err := extractFile(ctx, extractor, args[0])
	if err != nil {
		return err
	}

	output := IdentifyCmdOutput{
		Image:     args[0],
		Threshold: embedding.SimilarityThreshold,
	}
	if person, score, ok := registry.Identify(emb); ok {
		output.Matched = true
		output.Name = person.Name
		output.Similarity = score
	}

	if jsonOutput {
		return outputJSON(output)
	}

	if output.Matched {
		fmt.Printf("Best match: %s (similarity %.4f)\n", output.Name, output.Similarity)
	} else {
		fmt.Printf("No enrolled person matched (threshold %.2f)\n", output.Threshold)
	}
	return nil
}
