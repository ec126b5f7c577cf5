package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revdash/internal/models"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/")
}

func TestListReviews_Query(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reviews/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "negative", q.Get("sentiment"))
		assert.Equal(t, "acme/api", q.Get("repo_name"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Empty(t, q.Get("skip"))
		fmt.Fprint(w, `[{"ai_review_id": "r1", "repo_name": "acme/api", "sentiment": "negative", "pr_title": null}]`)
	})
	c := newTestClient(t, mux)

	reviews, err := c.ListReviews(context.Background(), ReviewFilter{
		Sentiment: models.SentimentNegative,
		RepoName:  "acme/api",
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "r1", reviews[0].AIReviewID)
	assert.Nil(t, reviews[0].PRTitle)
}

func TestListReviews_NoFilterSendsNoParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reviews/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		fmt.Fprint(w, `[]`)
	})
	c := newTestClient(t, mux)

	reviews, err := c.ListReviews(context.Background(), ReviewFilter{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestFetchComment_ErrorDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/comment/{owner}/{repo}/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail": "GitHub API error: Not Found"}`)
	})
	c := newTestClient(t, mux)

	_, err := c.FetchComment(context.Background(), "acme/api", 9)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "GitHub API error: Not Found", apiErr.Detail)
}

func TestError_FallsBackToStatusText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/repos/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `<html>oops</html>`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListRepos(context.Background(), false)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Detail)
}

func TestFetchComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/comment/acme/api/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 42, "body": "hi", "user": {"login": "bot", "avatar_url": ""}, "diff_hunk": "@@"}`)
	})
	c := newTestClient(t, mux)

	cm, err := c.FetchComment(context.Background(), "acme/api", 42)
	require.NoError(t, err)
	assert.Equal(t, "hi", cm.Body)
	assert.Equal(t, "bot", cm.User.Login)
}

func TestSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		fmt.Fprint(w, `{"days": 30, "current": {"positive": 3, "negative": 1, "neutral": 0, "total": 5, "unknown": 1}}`)
	})
	c := newTestClient(t, mux)

	s, err := c.Summary(context.Background(), ReviewFilter{}, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, s.Days)
	assert.Equal(t, 3, s.Current.Positive)
	assert.Equal(t, 1, s.Current.Unknown)
}

func TestListRepos_EnabledOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/repos/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("enabled_only"))
		fmt.Fprint(w, `[{"repo_name": "acme/api", "enabled": true, "team": null}]`)
	})
	c := newTestClient(t, mux)

	repos, err := c.ListRepos(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Nil(t, repos[0].Team)
}
