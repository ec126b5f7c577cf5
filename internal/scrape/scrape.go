// Package scrape collects AI review comments and their reactions from GitHub
// into the store.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/joescharf/revdash/internal/github"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/store"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultDays           = 7
	DefaultBotLogin       = "github-actions[bot]"
	DefaultVersionPattern = `workflow[_-]version:\s*([\w.\-]+)`
)

// GitHub is the subset of the GitHub client the scraper uses.
type GitHub interface {
	ListReviewComments(ctx context.Context, repoName string, since time.Time) ([]*github.ReviewComment, error)
	PullRequestTitle(ctx context.Context, repoName string, number int) (string, error)
}

// Classifier judges replies when a comment has no reactions.
type Classifier interface {
	ClassifySentiment(ctx context.Context, comment string, replies []string) (models.Sentiment, error)
}

// Options control a scrape run.
type Options struct {
	Days           int
	DryRun         bool
	BotLogin       string
	VersionPattern string
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Days <= 0 {
		o.Days = DefaultDays
	}
	if o.BotLogin == "" {
		o.BotLogin = DefaultBotLogin
	}
	if o.VersionPattern == "" {
		o.VersionPattern = DefaultVersionPattern
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RepoResult holds the outcome of scraping one repository.
type RepoResult struct {
	RepoName string `json:"repo_name"`
	Reviews  int    `json:"reviews"`
	Error    string `json:"error,omitempty"`
}

// Result holds the outcome of a full scrape run.
type Result struct {
	Run     *models.ScrapeRun `json:"run"`
	Repos   []RepoResult      `json:"repos"`
	Reviews []*models.Review  `json:"-"`
	Written int               `json:"written"`
}

// DeriveSentiment maps reaction counts to a sentiment. More thumbs-up than
// thumbs-down is positive, the reverse is negative, a non-zero tie is
// neutral and no reactions at all is absent.
func DeriveSentiment(plusOne, minusOne int) models.Sentiment {
	switch {
	case plusOne > minusOne:
		return models.SentimentPositive
	case minusOne > plusOne:
		return models.SentimentNegative
	case plusOne > 0:
		return models.SentimentNeutral
	}
	return ""
}

// ExtractVersion returns the first capture group of re in body, or the
// whole match when re has no groups.
func ExtractVersion(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return m[1]
	}
	return m[0]
}

// Repo scrapes a single repository and returns the review rows it found.
// Nothing is written.
func Repo(ctx context.Context, gh GitHub, cls Classifier, repoName string, opts Options) ([]*models.Review, error) {
	opts = opts.withDefaults()
	re, err := regexp.Compile(opts.VersionPattern)
	if err != nil {
		return nil, fmt.Errorf("compile version pattern: %w", err)
	}
	return scrapeRepo(ctx, gh, cls, repoName, re, opts)
}

func scrapeRepo(ctx context.Context, gh GitHub, cls Classifier, repoName string, re *regexp.Regexp, opts Options) ([]*models.Review, error) {
	since := opts.Now().UTC().Add(-time.Duration(opts.Days) * 24 * time.Hour)

	comments, err := gh.ListReviewComments(ctx, repoName, since)
	if err != nil {
		return nil, err
	}

	replies := make(map[int64][]string)
	for _, c := range comments {
		if c.InReplyTo != 0 && c.Author != opts.BotLogin {
			replies[c.InReplyTo] = append(replies[c.InReplyTo], c.Body)
		}
	}

	titles := make(map[int]*string)
	var reviews []*models.Review
	for _, c := range comments {
		if c.InReplyTo != 0 || c.Author != opts.BotLogin || c.CreatedAt.Before(since) {
			continue
		}

		sentiment := DeriveSentiment(c.PlusOne, c.MinusOne)
		if sentiment == "" && cls != nil && len(replies[c.ID]) > 0 {
			s, err := cls.ClassifySentiment(ctx, c.Body, replies[c.ID])
			if err != nil {
				slog.Warn("classify replies failed", "repo", repoName, "comment", c.ID, "error", err)
			} else {
				sentiment = s
			}
		}

		title, ok := titles[c.PRNumber]
		if !ok && c.PRNumber > 0 {
			if t, err := gh.PullRequestTitle(ctx, repoName, c.PRNumber); err != nil {
				slog.Warn("fetch PR title failed", "repo", repoName, "pr", c.PRNumber, "error", err)
			} else if t != "" {
				title = &t
			}
			titles[c.PRNumber] = title
		}

		r := &models.Review{
			AIReviewID:          strconv.FormatInt(c.ID, 10),
			RepoName:            repoName,
			PRNumber:            c.PRNumber,
			PRURL:               github.PullRequestWebURL(repoName, c.PRNumber),
			PRTitle:             title,
			PRReviewID:          c.PRReviewID,
			ReviewCommentID:     c.ID,
			ReviewCommentURL:    c.URL,
			ReviewCommentWebURL: c.HTMLURL,
			CreatedAt:           c.CreatedAt,
			Sentiment:           sentiment,
			PositiveReactions:   c.PlusOne,
			NegativeReactions:   c.MinusOne,
		}
		if c.OriginalCommitSHA != "" {
			sha := c.OriginalCommitSHA
			r.OriginalCommitSHA = &sha
		}
		if v := ExtractVersion(re, c.Body); v != "" {
			r.WorkflowVersion = &v
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// Run scrapes every enabled repository, upserts the rows (unless DryRun)
// and records a ScrapeRun. Per-repository failures are counted, not fatal.
func Run(ctx context.Context, s store.Store, gh GitHub, cls Classifier, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	re, err := regexp.Compile(opts.VersionPattern)
	if err != nil {
		return nil, fmt.Errorf("compile version pattern: %w", err)
	}

	repos, err := s.ListEnabledRepoNames(ctx)
	if err != nil {
		return nil, err
	}

	run := &models.ScrapeRun{
		StartedAt: opts.Now().UTC(),
		Days:      opts.Days,
		Repos:     len(repos),
		DryRun:    opts.DryRun,
	}
	result := &Result{Run: run}

	for _, name := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rr := RepoResult{RepoName: name}
		reviews, err := scrapeRepo(ctx, gh, cls, name, re, opts)
		if err != nil {
			slog.Error("scrape repo failed", "repo", name, "error", err)
			rr.Error = err.Error()
			run.Errors++
		} else {
			slog.Info("scraped repo", "repo", name, "reviews", len(reviews))
			rr.Reviews = len(reviews)
			run.Processed += len(reviews)
			result.Reviews = append(result.Reviews, reviews...)
		}
		result.Repos = append(result.Repos, rr)
	}

	if !opts.DryRun {
		n, err := s.UpsertReviews(ctx, result.Reviews)
		if err != nil {
			return nil, fmt.Errorf("upsert reviews: %w", err)
		}
		result.Written = n
	}

	run.FinishedAt = opts.Now().UTC()
	if err := s.CreateScrapeRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record scrape run: %w", err)
	}
	return result, nil
}
