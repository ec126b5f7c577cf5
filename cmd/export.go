package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/store"
)

var (
	reportFormat string
	exportType   string
	exportDays   int
	reportDays   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export reviews, repositories, or scrape runs in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "reviews", "Data type: reviews, repos, runs")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Only reviews from the last N days (0 = all)")
	rootCmd.AddCommand(exportCmd)
}

func exportRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	switch exportType {
	case "reviews":
		return exportReviews(ctx, s)
	case "repos":
		return exportRepos(ctx, s)
	case "runs":
		return exportRuns(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: reviews, repos, runs)", exportType)
	}
}

func exportReviews(ctx context.Context, s store.Store) error {
	filter := store.ReviewListFilter{Limit: -1}
	if exportDays > 0 {
		filter.Since = time.Now().AddDate(0, 0, -exportDays)
	}
	reviews, err := s.ListReviews(ctx, filter)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		if reviews == nil {
			reviews = []*models.Review{}
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(reviews)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Repo", "PR", "Title", "Sentiment", "Positive", "Negative", "Version", "Created", "URL"})
		for _, r := range reviews {
			_ = w.Write([]string{
				r.AIReviewID, r.RepoName, strconv.Itoa(r.PRNumber), r.Title(), string(r.Sentiment),
				strconv.Itoa(r.PositiveReactions), strconv.Itoa(r.NegativeReactions),
				r.Version(), r.CreatedAt.UTC().Format(time.RFC3339), r.ReviewCommentWebURL,
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Reviews")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Created | Repo | PR | Sentiment | Version |")
		fmt.Fprintln(ui.Out, "|---------|------|----|-----------|---------|")
		for _, r := range reviews {
			fmt.Fprintf(ui.Out, "| %s | %s | [#%d](%s) | %s | %s |\n",
				r.CreatedAt.UTC().Format("2006-01-02"), r.RepoName, r.PRNumber, r.PRURL, r.Sentiment.Label(), r.Version())
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportRepos(ctx context.Context, s store.Store) error {
	repos, err := s.ListRepos(ctx, store.RepoListFilter{Limit: -1})
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		if repos == nil {
			repos = []*models.Repo{}
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(repos)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"Repo", "Enabled", "Team", "Subscribed"})
		for _, r := range repos {
			_ = w.Write([]string{r.RepoName, strconv.FormatBool(r.Enabled), teamOf(r), r.SubscribedAt.UTC().Format("2006-01-02")})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Repositories")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Repo | Enabled | Team |")
		fmt.Fprintln(ui.Out, "|------|---------|------|")
		for _, r := range repos {
			fmt.Fprintf(ui.Out, "| %s | %t | %s |\n", r.RepoName, r.Enabled, teamOf(r))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportRuns(ctx context.Context, s store.Store) error {
	runs, err := s.ListScrapeRuns(ctx, -1)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		if runs == nil {
			runs = []*models.ScrapeRun{}
		}
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Started", "Finished", "Days", "Repos", "Processed", "Errors", "DryRun"})
		for _, r := range runs {
			_ = w.Write([]string{
				r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
				strconv.Itoa(r.Days), strconv.Itoa(r.Repos), strconv.Itoa(r.Processed),
				strconv.Itoa(r.Errors), strconv.FormatBool(r.DryRun),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Scrape Runs")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Started | Repos | Reviews | Errors | Dry run |")
		fmt.Fprintln(ui.Out, "|---------|-------|---------|--------|---------|")
		for _, r := range runs {
			fmt.Fprintf(ui.Out, "| %s | %d | %d | %d | %t |\n",
				r.StartedAt.UTC().Format("2006-01-02 15:04"), r.Repos, r.Processed, r.Errors, r.DryRun)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func teamOf(r *models.Repo) string {
	if r.Team == nil {
		return ""
	}
	return *r.Team
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports",
	Long:  "Generate markdown summary reports of review feedback from the local database.",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate a weekly feedback summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportWeeklyRun(cmd.Context(), time.Now())
	},
}

func init() {
	reportWeeklyCmd.Flags().IntVar(&reportDays, "days", 7, "Window in days")
	reportCmd.AddCommand(reportWeeklyCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportWeeklyRun(ctx context.Context, now time.Time) error {
	ctx = ctxOrBackground(ctx)
	if reportDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	reviews, err := s.ListReviews(ctx, store.ReviewListFilter{
		Since: now.AddDate(0, 0, -2*reportDays),
		Limit: -1,
	})
	if err != nil {
		return err
	}
	sum := analytics.Summarize(reviews, reportDays, now)

	fmt.Fprintln(ui.Out, "# Weekly Report")
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "- Reviews: %d (%s vs previous %d days)\n",
		sum.Current.Total, analytics.FormatPercentage(sum.Change.Total, 1), reportDays)
	fmt.Fprintf(ui.Out, "- Positive: %d (%.1f%%)\n", sum.Current.Positive, sum.Current.Share(models.SentimentPositive))
	fmt.Fprintf(ui.Out, "- Negative: %d (%.1f%%)\n", sum.Current.Negative, sum.Current.Share(models.SentimentNegative))
	fmt.Fprintf(ui.Out, "- Neutral: %d (%.1f%%)\n", sum.Current.Neutral, sum.Current.Share(models.SentimentNeutral))
	fmt.Fprintln(ui.Out)

	for _, r := range sum.Repos {
		fmt.Fprintf(ui.Out, "## %s\n", r.RepoName)
		fmt.Fprintf(ui.Out, "- Reviews: %d positive, %d negative, %d neutral of %d\n", r.Positive, r.Negative, r.Neutral, r.Total)
		fmt.Fprintf(ui.Out, "- Positive rate: %.1f%%\n", r.PositiveRate)
		fmt.Fprintln(ui.Out)
	}
	return nil
}
