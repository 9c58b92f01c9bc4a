package client

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// WatchCmd creates the watch command.
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream file change events",
		Long:  "Connects to the server's event stream and prints file changes as they happen. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}

	return cmd
}

func runWatch(cmd *cobra.Command) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	body, err := api.Stream("/files/events")
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer body.Close()

	fmt.Println("Watching for file events...")

	var eventType string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Printf("%-16s %s\n", eventType, strings.TrimPrefix(line, "data: "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream closed: %w", err)
	}
	return nil
}
