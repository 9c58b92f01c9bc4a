package client

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Long:  "Deletes a file along with its stored document and all of its chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(cmd, args[0], force, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, fileID string, force, outputJSON bool) error {
	if !force {
		fmt.Printf("Delete file %s and all its chunks? [y/N] ", fileID)
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if answer := strings.ToLower(strings.TrimSpace(input)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/files/" + fileID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if outputJSON {
		printJSON(map[string]interface{}{"success": true, "id": fileID})
		return nil
	}

	fmt.Printf("Deleted %s\n", fileID)
	return nil
}
