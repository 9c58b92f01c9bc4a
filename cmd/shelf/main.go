package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelf-works/shelf/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelf",
		Short: "Shelf CLI - Personal knowledge base",
		Long: `Shelf CLI provides commands to upload documents, manage their text
chunks, and ask questions about their contents.

Environment variables:
  SHELF_API_TOKEN   API token for authentication (required)
  SHELF_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "API token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ChunksCmd())
	rootCmd.AddCommand(client.RenameCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.WatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
