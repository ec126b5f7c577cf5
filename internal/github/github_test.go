package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, token string, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClientWithBaseURL(token, srv.URL)
	require.NoError(t, err)
	return c
}

func TestParseRepoName(t *testing.T) {
	owner, repo, err := ParseRepoName("acme/api")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "api", repo)

	for _, bad := range []string{"", "acme", "acme/api/extra", "/api", "acme/"} {
		_, _, err := ParseRepoName(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetReviewComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/api/pulls/comments/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"id": 42,
			"body": "Consider a **nil** check",
			"created_at": "2026-10-15T09:30:00Z",
			"updated_at": "2026-10-15T10:00:00Z",
			"user": {"login": "github-actions[bot]", "avatar_url": "https://avatars/x.png"},
			"path": "main.go",
			"line": 12,
			"diff_hunk": "@@ -1,2 +1,3 @@\n+foo",
			"html_url": "https://github.com/acme/api/pull/7#discussion_r42"
		}`)
	})
	c := newTestClient(t, "tok", mux)

	cm, err := c.GetReviewComment(context.Background(), "acme/api", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cm.ID)
	assert.Equal(t, "github-actions[bot]", cm.User.Login)
	assert.Equal(t, "main.go", cm.Path)
	assert.Equal(t, 12, cm.Line)
	assert.Contains(t, cm.DiffHunk, "@@")
	assert.Equal(t, time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC), cm.CreatedAt.UTC())
}

func TestGetReviewComment_NoToken(t *testing.T) {
	c := NewClient("")
	_, err := c.GetReviewComment(context.Background(), "acme/api", 1)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestGetReviewComment_BadRepo(t *testing.T) {
	c := NewClient("tok")
	_, err := c.GetReviewComment(context.Background(), "not-a-repo", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid repo name format")
}

func TestGetReviewComment_UpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/api/pulls/comments/404", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	c := newTestClient(t, "tok", mux)

	_, err := c.GetReviewComment(context.Background(), "acme/api", 404)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "GitHub API error: Not Found", apiErr.Message)
}

func TestListReviewComments_Paginates(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/api/pulls/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 2, "in_reply_to_id": 1, "body": "thanks", "user": {"login": "alice"},
				"pull_request_url": "https://api.github.com/repos/acme/api/pulls/7"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/api/pulls/comments?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"id": 1, "body": "workflow_version: v1.2", "user": {"login": "github-actions[bot]"},
			"pull_request_review_id": 70, "original_commit_id": "abc123",
			"url": "https://api.github.com/repos/acme/api/pulls/comments/1",
			"html_url": "https://github.com/acme/api/pull/7#discussion_r1",
			"pull_request_url": "https://api.github.com/repos/acme/api/pulls/7",
			"created_at": "2026-10-15T09:30:00Z",
			"reactions": {"+1": 2, "-1": 1}}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL
	c, err := NewClientWithBaseURL("tok", srv.URL)
	require.NoError(t, err)

	comments, err := c.ListReviewComments(context.Background(), "acme/api", time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, comments, 2)

	first := comments[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 7, first.PRNumber)
	assert.Equal(t, int64(70), first.PRReviewID)
	assert.Equal(t, "abc123", first.OriginalCommitSHA)
	assert.Equal(t, 2, first.PlusOne)
	assert.Equal(t, 1, first.MinusOne)
	assert.Equal(t, "github-actions[bot]", first.Author)

	assert.Equal(t, int64(1), comments[1].InReplyTo)
	assert.Equal(t, "alice", comments[1].Author)
}

func TestPullRequestTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/api/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 7, "title": "Add retries"}`)
	})
	c := newTestClient(t, "tok", mux)

	title, err := c.PullRequestTitle(context.Background(), "acme/api", 7)
	require.NoError(t, err)
	assert.Equal(t, "Add retries", title)
}

func TestPRNumberFromURL(t *testing.T) {
	assert.Equal(t, 7, prNumberFromURL("https://api.github.com/repos/acme/api/pulls/7"))
	assert.Equal(t, 0, prNumberFromURL(""))
	assert.Equal(t, 0, prNumberFromURL("https://api.github.com/repos/acme/api/pulls/x"))
}

func TestPullRequestWebURL(t *testing.T) {
	assert.Equal(t, "https://github.com/acme/api/pull/7", PullRequestWebURL("acme/api", 7))
}
