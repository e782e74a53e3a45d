package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/store"
)

var peopleEnrollCmd = &cobra.Command{
	Use:   "enroll <name> <image>...",
	Short: "Enroll a person from face images",
	Long: `Enroll a person by saving their face images to the store under the
given name. Enrolling an existing person adds more faces, which refines
the centroid used for identification.

Examples:
  # Enroll a person from three face images
  face-sorter people enroll "Jan Novák" a.jpg b.jpg c.jpg

  # Add another face later
  face-sorter people enroll "Jan Novák" d.jpg`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPeopleEnroll,
}

func init() {
	peopleCmd.AddCommand(peopleEnrollCmd)

	peopleEnrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// EnrollCmdResult reports the outcome of a people enroll run.
type EnrollCmdResult struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Faces   int    `json:"faces"`
	Total   int    `json:"total"`
}

func runPeopleEnroll(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	name := args[0]
	images := args[1:]
	if name == "" {
		return errors.New("person name must not be empty")
	}

	ctx := context.Background()
	cfg := config.Load()
	extractor := newExtractor(cfg)

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	if !jsonOutput && backend == "memory" {
		fmt.Println("Warning: no database configured, enrollment will not persist (set DATABASE_URL or MARIADB_DSN)")
	}

	for _, path := range images {
		emb, err := extractFile(ctx, extractor, path)
		if err != nil {
			return err
		}

		face := &store.StoredFace{
			Path:      path,
			Label:     name,
			Embedding: emb,
			Dim:       len(emb),
		}
		if _, err := faces.Save(ctx, face); err != nil {
			return fmt.Errorf("failed to save face for %s: %w", path, err)
		}
	}

	labeled, err := faces.ListByLabel(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list faces for %q: %w", name, err)
	}

	result := EnrollCmdResult{
		Success: true,
		Name:    name,
		Faces:   len(images),
		Total:   len(labeled),
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Enrolled %s with %d faces (%d total)\n", result.Name, result.Faces, result.Total)
	return nil
}
