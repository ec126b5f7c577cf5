// Package github wraps the GitHub REST API for review comment lookups and
// scraping.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/joescharf/revdash/internal/models"
)

// ErrNoToken is returned when a call needs a token and none was configured.
var ErrNoToken = errors.New("GitHub token not configured")

// APIError is an HTTP failure returned by GitHub.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ParseRepoName splits "owner/repo" into its parts.
func ParseRepoName(repoName string) (owner, repo string, err error) {
	parts := strings.Split(repoName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("Invalid repo name format: %s. Expected format: owner/repo", repoName)
	}
	return parts[0], parts[1], nil
}

// Client is an authenticated GitHub API client.
type Client struct {
	gh    *gh.Client
	token string
}

// NewClient creates a client for the public GitHub API.
func NewClient(token string) *Client {
	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{gh: gh.NewClient(tc), token: token}
}

// NewClientWithBaseURL creates a client against a different API root, such
// as GitHub Enterprise or a test server.
func NewClientWithBaseURL(token, baseURL string) (*Client, error) {
	c := NewClient(token)
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c.gh.BaseURL = u
	return c, nil
}

// HasToken reports whether the client was configured with a token.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ReviewComment is a pull request review comment with the fields the
// scraper needs.
type ReviewComment struct {
	ID                int64
	InReplyTo         int64
	PRNumber          int
	PRReviewID        int64
	Author            string
	Body              string
	OriginalCommitSHA string
	URL               string
	HTMLURL           string
	CreatedAt         time.Time
	PlusOne           int
	MinusOne          int
}

// GetReviewComment fetches a single review comment including its diff hunk.
func (c *Client) GetReviewComment(ctx context.Context, repoName string, id int64) (*models.GitHubComment, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}
	owner, repo, err := ParseRepoName(repoName)
	if err != nil {
		return nil, err
	}

	comment, _, err := c.gh.PullRequests.GetComment(ctx, owner, repo, id)
	if err != nil {
		return nil, wrapError(err)
	}

	return &models.GitHubComment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		CreatedAt: comment.GetCreatedAt().Time,
		UpdatedAt: comment.GetUpdatedAt().Time,
		User: models.CommentUser{
			Login:     comment.GetUser().GetLogin(),
			AvatarURL: comment.GetUser().GetAvatarURL(),
		},
		Path:     comment.GetPath(),
		Line:     comment.GetLine(),
		DiffHunk: comment.GetDiffHunk(),
		HTMLURL:  comment.GetHTMLURL(),
	}, nil
}

// ListReviewComments lists every review comment in the repository created
// or updated since the given time, oldest first.
func (c *Client) ListReviewComments(ctx context.Context, repoName string, since time.Time) ([]*ReviewComment, error) {
	owner, repo, err := ParseRepoName(repoName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		Sort:        "created",
		Direction:   "asc",
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []*ReviewComment
	for {
		// Number 0 lists comments across all pull requests.
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, 0, opts)
		if err != nil {
			return nil, fmt.Errorf("list review comments for %s: %w", repoName, wrapError(err))
		}
		for _, cm := range comments {
			all = append(all, convertComment(cm))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// PullRequestTitle returns the title of a pull request.
func (c *Client) PullRequestTitle(ctx context.Context, repoName string, number int) (string, error) {
	owner, repo, err := ParseRepoName(repoName)
	if err != nil {
		return "", err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("get PR #%d: %w", number, wrapError(err))
	}
	return pr.GetTitle(), nil
}

func convertComment(cm *gh.PullRequestComment) *ReviewComment {
	rc := &ReviewComment{
		ID:                cm.GetID(),
		InReplyTo:         cm.GetInReplyTo(),
		PRNumber:          prNumberFromURL(cm.GetPullRequestURL()),
		PRReviewID:        cm.GetPullRequestReviewID(),
		Author:            cm.GetUser().GetLogin(),
		Body:              cm.GetBody(),
		OriginalCommitSHA: cm.GetOriginalCommitID(),
		URL:               cm.GetURL(),
		HTMLURL:           cm.GetHTMLURL(),
		CreatedAt:         cm.GetCreatedAt().Time.UTC(),
	}
	if r := cm.GetReactions(); r != nil {
		rc.PlusOne = r.GetPlusOne()
		rc.MinusOne = r.GetMinusOne()
	}
	return rc
}

// prNumberFromURL extracts N from ".../pulls/N".
func prNumberFromURL(u string) int {
	i := strings.LastIndex(u, "/")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(u[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// PullRequestWebURL builds the browser URL of a pull request.
func PullRequestWebURL(repoName string, number int) string {
	return fmt.Sprintf("https://github.com/%s/pull/%d", repoName, number)
}

// wrapError converts go-github HTTP errors into *APIError.
func wrapError(err error) error {
	var rle *gh.RateLimitError
	if errors.As(err, &rle) && rle.Response != nil {
		return &APIError{Status: rle.Response.StatusCode, Message: "GitHub API error: " + rle.Message}
	}
	var ere *gh.ErrorResponse
	if errors.As(err, &ere) && ere.Response != nil {
		return &APIError{Status: ere.Response.StatusCode, Message: "GitHub API error: " + ere.Message}
	}
	return err
}
