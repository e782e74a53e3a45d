package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-sorter/internal/config"
)

var peopleExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the enrolled people as YAML",
	Long: `Export the enrolled people with their centroid embeddings as a YAML
document, for inspection or for seeding another deployment.

Examples:
  # Print the roster to stdout
  face-sorter people export

  # Write it to a file
  face-sorter people export --output people.yaml`,
	RunE: runPeopleExport,
}

func init() {
	peopleCmd.AddCommand(peopleExportCmd)

	peopleExportCmd.Flags().String("output", "", "Write to a file instead of stdout")
}

// PersonExport is one person in the people export document.
type PersonExport struct {
	Name     string    `yaml:"name"`
	Samples  int       `yaml:"samples"`
	Centroid []float64 `yaml:"centroid,flow"`
}

// PeopleExport is the YAML document written by people export.
type PeopleExport struct {
	ExportedAt time.Time      `yaml:"exported_at"`
	People     []PersonExport `yaml:"people"`
}

func runPeopleExport(cmd *cobra.Command, args []string) error {
	outputPath := mustGetString(cmd, "output")

	ctx := context.Background()
	cfg := config.Load()

	faces, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	registry, err := buildRegistry(ctx, faces)
	if err != nil {
		return err
	}

	doc := PeopleExport{ExportedAt: time.Now().UTC()}
	for _, person := range registry.People() {
		doc.People = append(doc.People, PersonExport{
			Name:     person.Name,
			Samples:  person.Samples,
			Centroid: person.Centroid,
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(outputPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	fmt.Printf("Exported %d people to %s\n", len(doc.People), outputPath)
	return nil
}
