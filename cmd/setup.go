package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"startion/core/config"
	"startion/core/github"
	"startion/core/logger"
	"startion/core/notion"

	"github.com/spf13/cobra"
)

// setupCmd creates the Notion database interactively.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the Notion database interactively",
	Long: `Create the Startion database under a Notion page you own.

You will be prompted for the parent page's ID or URL. The command prints the
resulting data source id, which must be added to your .env file as
NOTION_DATA_SOURCE_ID before running sync.`,
	RunE: runSetup,
}

func init() {
	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Github.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	if cfg.Notion.Token == "" {
		return fmt.Errorf("NOTION_TOKEN is not set")
	}

	// The database title carries the username; resolve it from the API
	// unless configured explicitly.
	username := cfg.Github.Username
	if username == "" {
		username, err = github.NewClient(cfg.Github, l).Username(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve GitHub username: %w", err)
		}
	}

	fmt.Println("Enter the Notion parent page ID or URL.")
	fmt.Println("  You can paste the full page URL or just the 32-char hex ID.")
	fmt.Println("  Hint: database URLs contain '?v=', page URLs do not.")
	fmt.Println()
	fmt.Print("Parent page ID or URL: ")

	reader := bufio.NewReader(os.Stdin)
	raw, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	parentPageID, err := notion.ExtractID(strings.TrimSpace(raw))
	if err != nil {
		return err
	}

	dsID, err := notion.NewClient(cfg.Notion, l).CreateDatabase(ctx, parentPageID, username)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	fmt.Println()
	fmt.Println("Database created successfully!")
	fmt.Println("Add this to your .env file:")
	fmt.Printf("  NOTION_DATA_SOURCE_ID=%s\n", dsID)
	return nil
}
