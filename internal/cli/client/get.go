package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Show a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, fileID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/files/" + fileID)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var file FileItemResponse
	if err := json.Unmarshal(resp.Data, &file); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(file)
		return nil
	}

	fmt.Printf("ID:        %s\n", file.ID)
	fmt.Printf("Title:     %s\n", file.Title)
	fmt.Printf("Type:      %s\n", file.Type)
	fmt.Printf("Status:    %s\n", file.Status)
	fmt.Printf("Size:      %s\n", formatSize(file.SizeBytes))
	fmt.Printf("Chunks:    %d\n", file.ChunkCount)
	fmt.Printf("Created:   %s\n", file.CreatedAt)
	fmt.Printf("Updated:   %s\n", file.UpdatedAt)
	return nil
}
