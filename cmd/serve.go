package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the face matching API server",
	Long: `Start the Face Sorter API server.
The server exposes embedding extraction, similarity scoring, face
matching, grouping and people management over a JSON API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	faces, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer faces.Close()
	fmt.Printf("Using %s face store\n", backend)

	if cfg.Database.HNSWIndexPath != "" {
		fmt.Printf("Loading face index from %s...\n", cfg.Database.HNSWIndexPath)
	} else {
		fmt.Println("Building in-memory face index...")
	}
	index, err := loadOrBuildIndex(ctx, faces, cfg.Database.HNSWIndexPath)
	if err != nil {
		return fmt.Errorf("failed to prepare face index: %w", err)
	}
	fmt.Printf("Face index ready with %d faces\n", index.Count())

	registry, err := buildRegistry(ctx, faces)
	if err != nil {
		return fmt.Errorf("failed to build person registry: %w", err)
	}
	fmt.Printf("Person registry ready with %d people\n", registry.Count())

	extractor := newExtractor(cfg)
	fmt.Printf("Embedding backend: %s\n", extractor.Name())

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, extractor, faces, index, registry)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveIndex(index, cfg.Database.HNSWIndexPath)

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Sorter API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
