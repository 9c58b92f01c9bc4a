package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// RenameCmd creates the rename command.
func RenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <file-id> <title>",
		Short: "Rename a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRename(cmd, args[0], args[1], outputJSON)
		},
	}

	return cmd
}

func runRename(cmd *cobra.Command, fileID, title string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Patch("/files/"+fileID, map[string]string{"title": title})
	if err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}

	var file FileItemResponse
	if err := json.Unmarshal(resp.Data, &file); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		printJSON(file)
		return nil
	}

	fmt.Printf("Renamed %s to %q\n", file.ID, file.Title)
	return nil
}
