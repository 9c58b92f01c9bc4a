package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// FileItemResponse represents a file record returned by the API.
type FileItemResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// UploadOutcomeResponse represents the per-file result of a batch upload.
type UploadOutcomeResponse struct {
	Filename string            `json:"filename"`
	File     *FileItemResponse `json:"file,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// UploadAPIResponse represents the batch upload response.
type UploadAPIResponse struct {
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Files     []UploadOutcomeResponse `json:"files"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents",
		Long:  "Uploads one or more documents for processing. Chunks become available once processing completes.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args, outputJSON)
		},
	}

	return cmd
}

func runUpload(cmd *cobra.Command, paths []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostMultipart("/files", "files", paths)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var result UploadAPIResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}

	if outputJSON {
		printJSON(result)
		return nil
	}

	for _, outcome := range result.Files {
		if outcome.Error != "" {
			fmt.Printf("  %s: FAILED (%s)\n", outcome.Filename, outcome.Error)
			continue
		}
		fmt.Printf("  %s: %s (%s)\n", outcome.Filename, outcome.File.ID, outcome.File.Status)
	}
	fmt.Printf("%d uploaded, %d failed\n", result.Succeeded, result.Failed)

	if result.Failed > 0 && result.Succeeded == 0 {
		return fmt.Errorf("all uploads failed")
	}
	return nil
}
