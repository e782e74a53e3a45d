package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage people enrolled in the face store",
	Long: `Commands for enrolling, listing and identifying people. A person is a
label on stored faces; the registry aggregates each label's faces into a
centroid that identification queries match against.`,
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people and their face counts",
	RunE:  runPeopleList,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd)

	peopleListCmd.Flags().Bool("json", false, "Output as JSON")
}

// PersonSummary is one enrolled person in the people list output.
type PersonSummary struct {
	Name  string `json:"name"`
	Faces int    `json:"faces"`
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	// The registry merges labels that normalize to the same person, so the
	// listing agrees with what identify would match against.
	registry, err := buildRegistry(ctx, faces)
	if err != nil {
		return err
	}

	people := make([]PersonSummary, 0, registry.Count())
	for _, person := range registry.People() {
		people = append(people, PersonSummary{Name: person.Name, Faces: person.Samples})
	}

	if jsonOutput {
		return outputJSON(people)
	}

	if len(people) == 0 {
		fmt.Printf("No people enrolled in the %s face store.\n", backend)
		fmt.Println("Run 'face-sorter people enroll <name> <image>...' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFACES")
	fmt.Fprintln(w, "----\t-----")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%d\n", p.Name, p.Faces)
	}
	w.Flush()

	return nil
}
