package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/client"
	"github.com/joescharf/revdash/internal/output"
)

var (
	statsDays      int
	statsSentiment string
	statsRepo      string
	statsTop       int
	statsWatch     time.Duration
	statsJSON      bool
)

const trendBarWidth = 30

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sentiment analytics for recent reviews",
	Long: `Show summary cards, a daily trend, top repositories and workflow
versions for the trailing --days, compared with the period before.

Use --watch 30s to refresh on an interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(cmd.Context())
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 7, "Trailing window in days")
	statsCmd.Flags().StringVar(&statsSentiment, "sentiment", "", "Filter by sentiment: positive, negative, neutral")
	statsCmd.Flags().StringVar(&statsRepo, "repo", "", "Filter by repository (owner/repo)")
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "Number of repositories to show")
	statsCmd.Flags().DurationVarP(&statsWatch, "watch", "w", 0, "Refresh interval (e.g. 30s); 0 disables")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(statsCmd)
}

func statsRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	sentiment, err := parseSentimentFlag(statsSentiment)
	if err != nil {
		return err
	}
	if statsDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	c := apiClient()
	filter := client.ReviewFilter{Sentiment: sentiment, RepoName: statsRepo}

	if statsWatch <= 0 {
		return statsOnce(ctx, c, filter)
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	ticker := time.NewTicker(statsWatch)
	defer ticker.Stop()
	for {
		fmt.Fprint(ui.Out, "\033[H\033[2J")
		if err := statsOnce(ctx, c, filter); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ui.Error("%v", err)
		}
		fmt.Fprintln(ui.Out)
		ui.VerboseLog("Refreshing every %s (Ctrl-C to stop)", statsWatch)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func statsOnce(ctx context.Context, c *client.Client, filter client.ReviewFilter) error {
	sum, err := c.Summary(ctx, filter, statsDays)
	if err != nil {
		return err
	}
	if statsJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(sum, statsTop)
	return nil
}

// printSummary renders the summary cards and breakdown tables.
func printSummary(sum *analytics.Summary, top int) {
	cur, prev := sum.Current, sum.Previous
	fmt.Fprintf(ui.Out, "%s  last %d days (generated %s)\n\n",
		output.Cyan("Review feedback"), sum.Days, sum.GeneratedAt.Local().Format("2006-01-02 15:04"))

	cards := ui.Table([]string{"Metric", "Current", "Previous", "Change"})
	cards.Append([]string{"Total reviews", fmt.Sprint(cur.Total), fmt.Sprint(prev.Total), changeCell(sum.Change.Total, false)})
	cards.Append([]string{"Positive", shareCell(cur.Positive, cur.Share("positive")), fmt.Sprint(prev.Positive), changeCell(sum.Change.Positive, false)})
	cards.Append([]string{"Negative", shareCell(cur.Negative, cur.Share("negative")), fmt.Sprint(prev.Negative), changeCell(sum.Change.Negative, true)})
	cards.Append([]string{"Neutral", shareCell(cur.Neutral, cur.Share("neutral")), fmt.Sprint(prev.Neutral), changeCell(sum.Change.Neutral, false)})
	if cur.Unknown > 0 || prev.Unknown > 0 {
		cards.Append([]string{"No reaction", fmt.Sprint(cur.Unknown), fmt.Sprint(prev.Unknown), ""})
	}
	cards.Render()
	fmt.Fprintln(ui.Out)

	if len(sum.Trends) > 0 {
		peak := 0
		for _, d := range sum.Trends {
			peak = max(peak, d.Total)
		}
		trend := ui.Table([]string{"Date", "Total", "+", "-", "=", ""})
		for _, d := range sum.Trends {
			trend.Append([]string{
				d.Date,
				fmt.Sprint(d.Total),
				output.Green(fmt.Sprint(d.Positive)),
				output.Red(fmt.Sprint(d.Negative)),
				output.Yellow(fmt.Sprint(d.Neutral)),
				output.Bar(d.Total, peak, trendBarWidth),
			})
		}
		trend.Render()
		fmt.Fprintln(ui.Out)
	}

	repos := analytics.TopRepos(sum.Repos, top)
	if len(repos) > 0 {
		rt := ui.Table([]string{"Repository", "Reviews", "+", "-", "=", "Positive rate"})
		for _, r := range repos {
			rt.Append([]string{
				r.RepoName,
				fmt.Sprint(r.Total),
				fmt.Sprint(r.Positive),
				fmt.Sprint(r.Negative),
				fmt.Sprint(r.Neutral),
				output.RateColor(r.PositiveRate),
			})
		}
		rt.Render()
		fmt.Fprintln(ui.Out)
	}

	if len(sum.Versions) > 0 {
		vt := ui.Table([]string{"Workflow version", "Reviews", "+", "-", "=", "Positive rate"})
		for _, v := range sum.Versions {
			vt.Append([]string{
				v.Version,
				fmt.Sprint(v.Total),
				fmt.Sprint(v.Positive),
				fmt.Sprint(v.Negative),
				fmt.Sprint(v.Neutral),
				output.RateColor(v.PositiveRate),
			})
		}
		vt.Render()
	}

	if cur.Total == 0 {
		ui.Info("No reviews in the last %d days.", sum.Days)
	}
}

func shareCell(n int, share float64) string {
	return fmt.Sprintf("%d (%.1f%%)", n, share)
}

func changeCell(change float64, invert bool) string {
	return output.ChangeColor(change, analytics.FormatPercentage(change, 1), invert)
}
