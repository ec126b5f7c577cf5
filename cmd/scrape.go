package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revdash/internal/output"
	"github.com/joescharf/revdash/internal/scrape"
	"github.com/joescharf/revdash/internal/store"
)

var scrapeRunsLimit int

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect AI review comments from GitHub",
	Long: `Fetch review comments posted by the AI review bot on every enabled
repository, derive sentiment from reactions (or replies, with
scrape.classify), and upsert them into the database.

Use --dry-run to fetch and report without writing reviews.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return scrapeRun(cmd.Context())
	},
}

var scrapeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scrape runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return scrapeRunsRun(cmd.Context())
	},
}

func init() {
	scrapeCmd.Flags().Int("days", scrape.DefaultDays, "Look-back window in days")
	_ = viper.BindPFlag("scrape.days", scrapeCmd.Flags().Lookup("days"))
	scrapeRunsCmd.Flags().IntVar(&scrapeRunsLimit, "limit", 10, "Number of runs to show")

	scrapeCmd.AddCommand(scrapeRunsCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func scrapeRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	ghc := githubClient()
	if ghc == nil {
		return fmt.Errorf("GitHub token not configured (set github.token or GITHUB_TOKEN)")
	}

	opts := scrape.Options{
		Days:           viper.GetInt("scrape.days"),
		DryRun:         dryRun,
		BotLogin:       viper.GetString("scrape.bot_login"),
		VersionPattern: viper.GetString("scrape.version_pattern"),
	}
	ui.VerboseLog("Scraping the last %d days as %s", opts.Days, opts.BotLogin)
	return runScrape(ctx, s, ghc, newClassifier(), opts)
}

// runScrape executes a scrape and prints the per-repository outcome.
func runScrape(ctx context.Context, s store.Store, gh scrape.GitHub, cls scrape.Classifier, opts scrape.Options) error {
	result, err := scrape.Run(ctx, s, gh, cls, opts)
	if err != nil {
		return err
	}

	if len(result.Repos) == 0 {
		ui.Info("No enabled repositories. Use 'revdash repo add <owner/repo>' to subscribe one.")
		return nil
	}

	table := ui.Table([]string{"Repository", "Reviews", "Status"})
	for _, rr := range result.Repos {
		status := output.Green("ok")
		if rr.Error != "" {
			status = output.Red(rr.Error)
		}
		table.Append([]string{rr.RepoName, fmt.Sprint(rr.Reviews), status})
	}
	table.Render()
	fmt.Fprintln(ui.Out)

	run := result.Run
	if opts.DryRun {
		ui.DryRunMsg("Found %d reviews across %d repositories; nothing written", run.Processed, run.Repos)
	} else {
		ui.Success("Upserted %d reviews across %d repositories", result.Written, run.Repos)
	}
	if run.Errors > 0 {
		ui.Warning("%d repositories failed", run.Errors)
	}
	return nil
}

func scrapeRunsRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	runs, err := s.ListScrapeRuns(ctx, scrapeRunsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No scrape runs recorded yet.")
		return nil
	}

	table := ui.Table([]string{"Started", "Duration", "Days", "Repos", "Reviews", "Errors", "Mode"})
	for _, r := range runs {
		mode := "write"
		if r.DryRun {
			mode = output.Yellow("dry-run")
		}
		errs := fmt.Sprint(r.Errors)
		if r.Errors > 0 {
			errs = output.Red(errs)
		}
		table.Append([]string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprint(r.Days),
			fmt.Sprint(r.Repos),
			fmt.Sprint(r.Processed),
			errs,
			mode,
		})
	}
	table.Render()
	return nil
}
