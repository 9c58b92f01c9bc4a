package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ChunkItemResponse represents a text chunk returned by the API.
type ChunkItemResponse struct {
	ID        string  `json:"id"`
	FileID    string  `json:"file_id"`
	Content   string  `json:"content"`
	Index     float64 `json:"index"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// ChunksCmd creates the chunks command.
func ChunksCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "chunks <file-id>",
		Short: "List a file's text chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChunks(cmd, args[0], full, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print full chunk content instead of a preview")

	return cmd
}

func runChunks(cmd *cobra.Command, fileID string, full, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/files/" + fileID + "/chunks")
	if err != nil {
		return fmt.Errorf("chunks failed: %w", err)
	}

	var chunks []ChunkItemResponse
	if err := json.Unmarshal(resp.Data, &chunks); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(chunks)
		return nil
	}

	if len(chunks) == 0 {
		fmt.Println("No chunks found.")
		return nil
	}

	for _, chunk := range chunks {
		if full {
			fmt.Printf("--- %s (index %.4g)\n%s\n\n", chunk.ID, chunk.Index, chunk.Content)
		} else {
			fmt.Printf("%-36s  %8.4g  %s\n", chunk.ID, chunk.Index, truncate(chunk.Content, 80))
		}
	}
	return nil
}
