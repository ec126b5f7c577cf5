package models

import "time"

// CommentUser is the author of a GitHub comment.
type CommentUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubComment is a pull request review comment as fetched from GitHub,
// including the diff hunk it is anchored to.
type GitHubComment struct {
	ID        int64       `json:"id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	User      CommentUser `json:"user"`
	Path      string      `json:"path,omitempty"`
	Line      int         `json:"line,omitempty"`
	DiffHunk  string      `json:"diff_hunk,omitempty"`
	HTMLURL   string      `json:"html_url,omitempty"`
}
