package cmd

import (
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Face store management commands",
	Long:  `Commands for backing up and restoring the face store.`,
}

func init() {
	rootCmd.AddCommand(storeCmd)
}
