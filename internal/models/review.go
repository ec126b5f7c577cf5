package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Sentiment is the human reaction recorded against an AI review comment.
// The zero value means no sentiment was recorded.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three recognized sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Label returns the display label, "unknown" for absent or unrecognized values.
func (s Sentiment) Label() string {
	if !s.Valid() {
		return "unknown"
	}
	return string(s)
}

// MarshalJSON encodes an absent sentiment as null.
func (s Sentiment) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null as an absent sentiment.
func (s *Sentiment) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Sentiment(v)
	return nil
}

// Review is one AI-authored pull request review comment and its feedback.
type Review struct {
	AIReviewID          string    `json:"ai_review_id"`
	RepoName            string    `json:"repo_name"`
	PRNumber            int       `json:"pr_number"`
	PRURL               string    `json:"pr_url"`
	PRTitle             *string   `json:"pr_title"`
	PRReviewID          int64     `json:"pr_review_id"`
	ReviewCommentID     int64     `json:"review_comment_id"`
	ReviewCommentURL    string    `json:"review_comment_url"`
	ReviewCommentWebURL string    `json:"review_comment_web_url"`
	OriginalCommitSHA   *string   `json:"original_commit_sha"`
	WorkflowVersion     *string   `json:"workflow_version"`
	CreatedAt           time.Time `json:"created_at"`
	Sentiment           Sentiment `json:"sentiment"`
	PositiveReactions   int       `json:"positive_reactions"`
	NegativeReactions   int       `json:"negative_reactions"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Title returns the PR title, falling back to "PR #<number>".
func (r *Review) Title() string {
	if r.PRTitle != nil && *r.PRTitle != "" {
		return *r.PRTitle
	}
	return "PR #" + strconv.Itoa(r.PRNumber)
}

// Version returns the workflow version or "" when absent.
func (r *Review) Version() string {
	if r.WorkflowVersion == nil {
		return ""
	}
	return *r.WorkflowVersion
}

