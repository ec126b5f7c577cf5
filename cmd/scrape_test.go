package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revdash/internal/github"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/scrape"
	"github.com/joescharf/revdash/internal/store"
)

type fakeGitHub struct {
	comments map[string][]*github.ReviewComment
	fail     map[string]error
}

func (f *fakeGitHub) ListReviewComments(_ context.Context, repoName string, _ time.Time) ([]*github.ReviewComment, error) {
	if err := f.fail[repoName]; err != nil {
		return nil, err
	}
	return f.comments[repoName], nil
}

func (f *fakeGitHub) PullRequestTitle(_ context.Context, _ string, number int) (string, error) {
	return fmt.Sprintf("Change %d", number), nil
}

func seedRepos(t *testing.T, names ...string) store.Store {
	t.Helper()
	s, err := getStore()
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, s.CreateRepo(context.Background(), &models.Repo{RepoName: n, Enabled: true}))
	}
	return s
}

func TestRunScrape(t *testing.T) {
	testEnv(t)
	s := seedRepos(t, "acme/api", "acme/web")
	var buf bytes.Buffer
	ui.Out = &buf

	now := time.Now().UTC()
	gh := &fakeGitHub{
		comments: map[string][]*github.ReviewComment{
			"acme/api": {
				{ID: 11, PRNumber: 3, Author: scrape.DefaultBotLogin, Body: "Consider a retry.", CreatedAt: now.Add(-time.Hour), PlusOne: 2},
				{ID: 12, PRNumber: 3, Author: "alice", Body: "thanks", CreatedAt: now.Add(-time.Hour)},
			},
		},
		fail: map[string]error{"acme/web": fmt.Errorf("boom")},
	}

	err := runScrape(context.Background(), s, gh, nil, scrape.Options{Days: 7})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "acme/api")
	assert.Contains(t, out, "boom")

	reviews, err := s.ListReviews(context.Background(), store.ReviewListFilter{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "11", reviews[0].AIReviewID)
	assert.Equal(t, models.SentimentPositive, reviews[0].Sentiment)

	runs, err := s.ListScrapeRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Errors)
	assert.Equal(t, 2, runs[0].Repos)
}

func TestRunScrape_DryRun(t *testing.T) {
	testEnv(t)
	s := seedRepos(t, "acme/api")

	now := time.Now().UTC()
	gh := &fakeGitHub{comments: map[string][]*github.ReviewComment{
		"acme/api": {{ID: 21, PRNumber: 1, Author: scrape.DefaultBotLogin, CreatedAt: now.Add(-time.Hour)}},
	}}

	require.NoError(t, runScrape(context.Background(), s, gh, nil, scrape.Options{Days: 7, DryRun: true}))

	reviews, err := s.ListReviews(context.Background(), store.ReviewListFilter{})
	require.NoError(t, err)
	assert.Empty(t, reviews)

	runs, err := s.ListScrapeRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
}

func TestRunScrape_NoRepos(t *testing.T) {
	testEnv(t)
	s := seedRepos(t)
	var buf bytes.Buffer
	ui.Out = &buf

	require.NoError(t, runScrape(context.Background(), s, &fakeGitHub{}, nil, scrape.Options{}))
	assert.Contains(t, buf.String(), "No enabled repositories")
}

func TestScrapeRun_NoToken(t *testing.T) {
	testEnv(t)
	t.Setenv("GITHUB_TOKEN", "")

	err := scrapeRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub token not configured")
}

func TestScrapeRunsRun(t *testing.T) {
	testEnv(t)
	s := seedRepos(t)
	var buf bytes.Buffer
	ui.Out = &buf

	require.NoError(t, scrapeRunsRun(context.Background()))
	assert.Contains(t, buf.String(), "No scrape runs")

	start := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, s.CreateScrapeRun(context.Background(), &models.ScrapeRun{
		StartedAt: start, FinishedAt: start.Add(2 * time.Second), Days: 7, Repos: 3, Processed: 12,
	}))

	buf.Reset()
	scrapeRunsLimit = 10
	require.NoError(t, scrapeRunsRun(context.Background()))
	assert.Contains(t, buf.String(), "12")
	assert.Contains(t, buf.String(), "2s")
}

func TestNewClassifier(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")

	assert.Nil(t, newClassifier(), "classify disabled")

	viper.Set("scrape.classify", true)
	assert.Nil(t, newClassifier(), "no API key")

	viper.Set("anthropic.api_key", "sk-test")
	assert.NotNil(t, newClassifier())
}
