package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-sorter",
	Short: "A CLI tool for matching and organizing faces by identity",
	Long: `Face Sorter computes compact face embeddings, scores their similarity
and organizes faces into identities. It works fully offline with the
built-in grid extractor, or against a remote embedding service when
EXTRACTOR_URL is set.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
