package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SessionResponse represents a chat session returned by the API.
type SessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SourceResponse represents a cited chunk in an assistant reply.
type SourceResponse struct {
	FileID     string  `json:"file_id"`
	ChunkIndex float64 `json:"chunk_index"`
	Excerpt    string  `json:"excerpt"`
}

// MessageResponse represents a chat message returned by the API.
type MessageResponse struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Sources   []SourceResponse `json:"sources,omitempty"`
	CreatedAt string           `json:"created_at"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var sessionID string
	var fileIDs []string

	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a question about your files",
		Long:  "Sends a chat message and prints the reply with its cited sources. Creates a new session unless --session is given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, sessionID, strings.Join(args, " "), fileIDs, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Existing session ID to continue")
	cmd.Flags().StringSliceVarP(&fileIDs, "file", "f", nil, "Restrict context to these file IDs (repeatable)")

	return cmd
}

func runAsk(cmd *cobra.Command, sessionID, question string, fileIDs []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if sessionID == "" {
		resp, err := api.Post("/chat/sessions", map[string]string{"title": truncate(question, 60)})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		var session SessionResponse
		if err := json.Unmarshal(resp.Data, &session); err != nil {
			return fmt.Errorf("failed to parse session response: %w", err)
		}
		sessionID = session.ID
	}

	payload := map[string]interface{}{"content": question}
	if len(fileIDs) > 0 {
		payload["file_ids"] = fileIDs
	}
	resp, err := api.Post("/chat/sessions/"+sessionID+"/messages", payload)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	var reply MessageResponse
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return fmt.Errorf("failed to parse reply: %w", err)
	}

	if outputJSON {
		printJSON(map[string]interface{}{"session_id": sessionID, "reply": reply})
		return nil
	}

	fmt.Println(reply.Content)
	if len(reply.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range reply.Sources {
			fmt.Printf("  %s (section %.4g): %s\n", src.FileID, src.ChunkIndex, truncate(src.Excerpt, 80))
		}
	}
	fmt.Printf("\nSession: %s\n", sessionID)
	return nil
}
