package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/client"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/output"
	"github.com/joescharf/revdash/internal/render"
)

var (
	reviewsSearch    string
	reviewsSort      string
	reviewsSentiment string
	reviewsRepo      string
	reviewsLimit     int
	reviewsSkip      int
	reviewsJSON      bool
	reviewsWidth     int
)

var reviewsCmd = &cobra.Command{
	Use:     "reviews",
	Aliases: []string{"review"},
	Short:   "Browse AI review comments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews with filters, search and sorting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review with its GitHub comment and diff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsShowRun(cmd.Context(), args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewsCmd, reviewsListCmd} {
		c.Flags().StringVarP(&reviewsSearch, "search", "s", "", "Case-insensitive search over PR title, repo and PR number")
		c.Flags().StringVar(&reviewsSort, "sort", string(analytics.SortNewest), "Sort order: newest, oldest, repo-asc, repo-desc")
		c.Flags().StringVar(&reviewsSentiment, "sentiment", "", "Filter by sentiment: positive, negative, neutral")
		c.Flags().StringVar(&reviewsRepo, "repo", "", "Filter by repository (owner/repo)")
		c.Flags().IntVar(&reviewsLimit, "limit", 100, "Maximum reviews to fetch")
		c.Flags().IntVar(&reviewsSkip, "skip", 0, "Reviews to skip")
		c.Flags().BoolVar(&reviewsJSON, "json", false, "Print JSON instead of a table")
	}
	reviewsShowCmd.Flags().IntVar(&reviewsWidth, "width", 100, "Wrap width for the comment body")

	reviewsCmd.AddCommand(reviewsListCmd, reviewsShowCmd)
	rootCmd.AddCommand(reviewsCmd)
}

// parseSentimentFlag validates a --sentiment value; "" means no filter.
func parseSentimentFlag(v string) (models.Sentiment, error) {
	if v == "" {
		return "", nil
	}
	s := models.Sentiment(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid sentiment %q (use: positive, negative, neutral)", v)
	}
	return s, nil
}

func reviewsListRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	sentiment, err := parseSentimentFlag(reviewsSentiment)
	if err != nil {
		return err
	}
	order, err := analytics.ParseSortOrder(reviewsSort)
	if err != nil {
		return err
	}

	feed := client.NewReviewFeed(apiClient())
	if _, err := feed.Refresh(ctx, client.ReviewFilter{
		Sentiment: sentiment,
		RepoName:  reviewsRepo,
		Skip:      reviewsSkip,
		Limit:     reviewsLimit,
	}); err != nil {
		return err
	}
	reviews := feed.View(reviewsSearch, order)

	if reviewsJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		if reviews == nil {
			reviews = []*models.Review{}
		}
		return enc.Encode(reviews)
	}

	if len(reviews) == 0 {
		ui.Info("No reviews match.")
		return nil
	}

	table := ui.Table([]string{"Created", "Repository", "PR", "Sentiment", "👍", "👎", "Version", "ID"})
	for _, r := range reviews {
		version := r.Version()
		if version == "" {
			version = "-"
		}
		table.Append([]string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.RepoName,
			truncate(fmt.Sprintf("#%d %s", r.PRNumber, r.Title()), 48),
			output.SentimentColor(r.Sentiment.Label()),
			fmt.Sprint(r.PositiveReactions),
			fmt.Sprint(r.NegativeReactions),
			version,
			r.AIReviewID,
		})
	}
	table.Render()
	ui.VerboseLog("%d reviews shown", len(reviews))
	return nil
}

func reviewsShowRun(ctx context.Context, id string) error {
	ctx = ctxOrBackground(ctx)
	c := apiClient()

	r, err := c.GetReview(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(r.RepoName), r.Title())
	fmt.Fprintf(ui.Out, "  Review ID:   %s\n", r.AIReviewID)
	fmt.Fprintf(ui.Out, "  Created:     %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(ui.Out, "  Sentiment:   %s (👍 %d  👎 %d)\n",
		output.SentimentColor(r.Sentiment.Label()), r.PositiveReactions, r.NegativeReactions)
	if v := r.Version(); v != "" {
		fmt.Fprintf(ui.Out, "  Version:     %s\n", v)
	}
	if r.OriginalCommitSHA != nil {
		fmt.Fprintf(ui.Out, "  Commit:      %s\n", *r.OriginalCommitSHA)
	}
	fmt.Fprintf(ui.Out, "  PR:          %s\n", r.PRURL)
	fmt.Fprintf(ui.Out, "  Comment:     %s\n", r.ReviewCommentWebURL)
	fmt.Fprintln(ui.Out)

	comment, err := c.FetchComment(ctx, r.RepoName, r.ReviewCommentID)
	if err != nil {
		ui.Warning("Could not load comment from GitHub: %v", err)
		return nil
	}

	fmt.Fprintln(ui.Out, render.Dim(fmt.Sprintf("@%s on %s", comment.User.Login, comment.CreatedAt.Local().Format("2006-01-02 15:04"))))
	fmt.Fprintln(ui.Out)
	if comment.DiffHunk != "" {
		fmt.Fprintln(ui.Out, render.DiffHunk(comment.DiffHunk, comment.Path))
		fmt.Fprintln(ui.Out)
	}
	fmt.Fprintln(ui.Out, render.Markdown(comment.Body, reviewsWidth))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
