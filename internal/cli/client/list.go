package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// ListAPIResponse represents the file list response.
type ListAPIResponse struct {
	Items   []FileItemResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		Long:  "Lists your files with processing status and chunk counts, most recently updated first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	resp, err := api.Get("/files?" + query.Encode())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var result ListAPIResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse list response: %w", err)
	}

	if outputJSON {
		printJSON(result)
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Println("No files found.")
		return nil
	}

	fmt.Printf("%-36s  %-30s  %-10s  %-8s  %6s\n", "ID", "TITLE", "STATUS", "SIZE", "CHUNKS")
	for _, item := range result.Items {
		fmt.Printf("%-36s  %-30s  %-10s  %-8s  %6d\n",
			item.ID, truncate(item.Title, 30), item.Status, formatSize(item.SizeBytes), item.ChunkCount)
	}

	if result.HasMore {
		fmt.Printf("\nMore results available, use --cursor %s\n", result.Cursor)
	}
	return nil
}
