// Package client talks to the revdash REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/models"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// ReviewFilter selects reviews. Empty Sentiment and RepoName do not filter;
// Limit 0 lets the server apply its default of 100.
type ReviewFilter struct {
	Sentiment models.Sentiment
	RepoName  string
	Skip      int
	Limit     int
}

func (f ReviewFilter) values() url.Values {
	v := url.Values{}
	if f.Sentiment != "" {
		v.Set("sentiment", string(f.Sentiment))
	}
	if f.RepoName != "" {
		v.Set("repo_name", f.RepoName)
	}
	if f.Skip > 0 {
		v.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// Client is an HTTP client for the API rooted at BaseURL (for example
// http://localhost:8000/api).
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Detail: detailOf(resp, body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// detailOf returns the "detail" string of an error body, or the status text.
func detailOf(resp *http.Response, body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// ListReviews fetches reviews matching the filter, newest first.
func (c *Client) ListReviews(ctx context.Context, filter ReviewFilter) ([]*models.Review, error) {
	var reviews []*models.Review
	if err := c.get(ctx, "/reviews/", filter.values(), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// GetReview fetches a single review.
func (c *Client) GetReview(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := c.get(ctx, "/reviews/"+url.PathEscape(id), nil, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// ListRepos fetches the subscribed repositories.
func (c *Client) ListRepos(ctx context.Context, enabledOnly bool) ([]*models.Repo, error) {
	q := url.Values{}
	if enabledOnly {
		q.Set("enabled_only", "true")
	}
	var repos []*models.Repo
	if err := c.get(ctx, "/repos/", q, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// FetchComment fetches the GitHub comment behind a review.
func (c *Client) FetchComment(ctx context.Context, repoName string, id int64) (*models.GitHubComment, error) {
	var comment models.GitHubComment
	path := "/github/comment/" + repoName + "/" + strconv.FormatInt(id, 10)
	if err := c.get(ctx, path, nil, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Summary fetches the server-side aggregation over the trailing days.
func (c *Client) Summary(ctx context.Context, filter ReviewFilter, days int) (*analytics.Summary, error) {
	q := url.Values{}
	if filter.Sentiment != "" {
		q.Set("sentiment", string(filter.Sentiment))
	}
	if filter.RepoName != "" {
		q.Set("repo_name", filter.RepoName)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var s analytics.Summary
	if err := c.get(ctx, "/analytics/summary", q, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
