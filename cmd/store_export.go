package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/store"
)

var storeExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all stored faces to a backup file",
	Long: `Export every face in the configured store to a binary backup file.
The backup can be restored with 'store import', including into a store
running on a different backend.

Examples:
  # Back up the store
  face-sorter store export faces.gob`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreExport,
}

func init() {
	storeCmd.AddCommand(storeExportCmd)
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	f, err := os.Create(args[0]) //nolint:gosec // path comes from user arguments
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	count, err := store.WriteExport(ctx, f, faces)
	if err != nil {
		return fmt.Errorf("failed to export faces: %w", err)
	}

	fmt.Printf("Exported %d faces from the %s store to %s\n", count, backend, args[0])
	return nil
}
