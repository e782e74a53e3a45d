package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/store"
)

var storeImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import faces from a backup file",
	Long: `Import faces from a backup written by 'store export' into the
configured store. Imported faces get fresh IDs assigned by the
destination backend.

Examples:
  # Restore a backup
  face-sorter store import faces.gob`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreImport,
}

func init() {
	storeCmd.AddCommand(storeImportCmd)
}

func runStoreImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	f, err := os.Open(args[0]) //nolint:gosec // path comes from user arguments
	if err != nil {
		return fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	data, err := store.ReadExport(f)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()

	if backend == "memory" {
		fmt.Println("Warning: no database configured, imported faces will not persist (set DATABASE_URL or MARIADB_DSN)")
	}

	imported, err := store.Import(ctx, faces, data)
	if err != nil {
		return fmt.Errorf("failed to import faces: %w", err)
	}

	fmt.Printf("Imported %d faces into the %s store (exported at %s)\n",
		imported, backend, data.ExportedAt.Format("2006-01-02 15:04:05"))
	return nil
}
