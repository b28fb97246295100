package cmd

import (
	"context"
	"fmt"
	"strings"

	"startion/core/config"
	"startion/core/github"
	"startion/core/logger"
	"startion/core/notion"
	"startion/core/summarize"
	starsync "startion/feature/stars/sync"

	"github.com/spf13/cobra"
)

var (
	// Flags for the sync command
	forceResummarize    bool
	dryRunSync          bool
	limitRepos          int
	noArchive           bool
	includeEmptySummary bool
	concurrencyOverride int
)

// syncCmd performs one full sync pass of starred repos into Notion.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync GitHub stars to Notion",
	Long: `Sync your starred GitHub repositories into the Notion database.

New repos are added with a generated AI summary; repos that are no longer
starred are archived. A preview of all planned changes is printed before
anything is written.

Examples:
  # Normal sync
  startion sync

  # Preview without writing anything
  startion sync --dry-run

  # Re-generate summaries for every repo, not just new ones
  startion sync --force-resummarize

  # Fill in entries whose AI summary is still empty
  startion sync --include-empty-summary

  # Only process the first 10 repos (useful for testing)
  startion sync --limit 10 --no-archive`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&forceResummarize, "force-resummarize", false, "Re-generate AI summaries for all repos (not just new ones)")
	syncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Preview changes without writing to Notion")
	syncCmd.Flags().IntVar(&limitRepos, "limit", 0, "Only process the first N starred repos (0 = no limit)")
	syncCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not archive repos that are no longer starred")
	syncCmd.Flags().BoolVar(&includeEmptySummary, "include-empty-summary", false, "Include repos with empty AI summaries — re-summarize and update them")
	syncCmd.Flags().IntVar(&concurrencyOverride, "concurrency", 0, "Max concurrent workers (default: env SYNC_CONCURRENCY or 5)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Notion.DataSourceID == "" {
		return fmt.Errorf("NOTION_DATA_SOURCE_ID is not set; run `startion setup` first")
	}

	concurrency := concurrencyOverride
	if concurrency <= 0 {
		concurrency = cfg.Sync.Concurrency
	}

	opts := starsync.Options{
		ForceResummarize:    forceResummarize,
		DryRun:              dryRunSync,
		Limit:               limitRepos,
		NoArchive:           noArchive,
		IncludeEmptySummary: includeEmptySummary,
		Concurrency:         concurrency,
	}

	syncer := starsync.NewSyncer(
		github.NewClient(cfg.Github, l),
		notion.NewClient(cfg.Notion, l),
		summarize.New(cfg.OpenAI, cfg.Summary.Language, l),
		cfg.Github.Username,
		l,
	)

	// Step 1: Plan (read-only, always runs)
	plan, err := syncer.Plan(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to plan sync: %w", err)
	}

	// Step 2: Print preview before any mutation
	printSyncPreview(plan, opts)

	if dryRunSync {
		fmt.Println("  Dry-run mode — no changes made.")
		return nil
	}

	// Step 3: Execute (worker pool + archive phase)
	report, err := syncer.Execute(ctx, plan, opts)
	if err != nil {
		return fmt.Errorf("failed to execute sync: %w", err)
	}

	printSyncReport(report)
	return nil
}

const previewRule = "============================================================"

// printSyncPreview prints the per-category listings before mutation.
func printSyncPreview(plan *starsync.Plan, opts starsync.Options) {
	c := plan.Classification

	fmt.Println()
	fmt.Println(previewRule)
	fmt.Println(" Sync Preview")
	fmt.Println(previewRule)
	fmt.Printf("  Starred on GitHub : %d\n", len(plan.Starred))
	fmt.Printf("  Already in Notion : %d  (skip)\n", len(c.Skip))
	if len(c.Resummarize) > 0 {
		label := "will re-summarize"
		if opts.ForceResummarize {
			label = "force re-summarize"
		}
		fmt.Printf("  Re-summarize      : %d  (%s)\n", len(c.Resummarize), label)
	}
	fmt.Printf("  New to add        : %d\n", len(c.New))
	archiveLabel := "(will archive)"
	if opts.NoArchive {
		archiveLabel = "(skip archive)"
	}
	fmt.Printf("  Unstarred         : %d  %s\n", len(c.Unstarred), archiveLabel)
	fmt.Println(previewRule)
	fmt.Println()

	if len(c.Skip) > 0 {
		fmt.Println("  [SKIP] Existing repos (no changes):")
		for _, r := range c.Skip {
			fmt.Printf("    ✓ %s  ★%d\n", r.FullName, r.Stars)
		}
		fmt.Println()
	}

	if len(c.Resummarize) > 0 {
		label := "empty AI summary"
		if opts.ForceResummarize {
			label = "all"
		}
		fmt.Printf("  [RESUMMARIZE] Existing repos (%s):\n", label)
		for _, r := range c.Resummarize {
			fmt.Printf("    ↻ %s  ★%d\n", r.FullName, r.Stars)
		}
		fmt.Println()
	}

	if len(c.New) > 0 {
		fmt.Println("  [NEW] Repos to be added:")
		for _, r := range c.New {
			fmt.Printf("    + %s  ★%d\n", r.FullName, r.Stars)
		}
		fmt.Println()
	}

	if len(c.Unstarred) > 0 {
		label := "archive"
		if opts.NoArchive {
			label = "skip"
		}
		fmt.Printf("  [UNSTARRED] Repos no longer starred (%s):\n", label)
		for _, name := range plan.UnstarredSorted() {
			fmt.Printf("    - %s\n", name)
		}
		fmt.Println()
	}
}

// printSyncReport prints the final aggregate counts of the pass.
func printSyncReport(report *starsync.Report) {
	parts := []string{
		fmt.Sprintf("%d added", report.Added),
		fmt.Sprintf("%d skipped", report.Skipped),
	}
	if report.Resummarized > 0 {
		parts = append(parts, fmt.Sprintf("%d re-summarized", report.Resummarized))
	}
	if report.SkippedEmpty > 0 {
		parts = append(parts, fmt.Sprintf("%d empty-summary", report.SkippedEmpty))
	}
	if report.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", report.Failed))
	}
	parts = append(parts, fmt.Sprintf("%d archived", report.Archived))

	fmt.Println()
	fmt.Println(previewRule)
	fmt.Printf("  Sync complete — %s\n", strings.Join(parts, ", "))
	fmt.Println(previewRule)
	fmt.Println()
}
