package client

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var token string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure shelf credentials",
		Long:  "Saves the API token and server URL to the global config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(token, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(token, apiURL string, outputJSON bool) error {
	_ = godotenv.Load()
	if token == "" {
		token = os.Getenv(envToken)
	}
	if token == "" {
		fmt.Print("Enter API token: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API token: %w", err)
		}
		token = strings.TrimSpace(input)
		if token == "" {
			return fmt.Errorf("API token is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	api, err := NewAPIClientWithConfig(token, apiURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	// Verify the credentials before persisting them
	if _, err := api.Get("/files?limit=1"); err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{Token: token, APIURL: apiURL}); err != nil {
		return err
	}

	configPath, _ := GetConfigPath()
	if outputJSON {
		printJSON(map[string]interface{}{
			"success":     true,
			"api_url":     apiURL,
			"config_path": configPath,
		})
		return nil
	}

	fmt.Printf("Credentials saved to %s\n", configPath)
	fmt.Printf("Server: %s\n", apiURL)
	return nil
}
