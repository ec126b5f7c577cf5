package models

import "time"

// Repo is a GitHub repository subscribed for review scraping.
type Repo struct {
	RepoName     string    `json:"repo_name"`
	Enabled      bool      `json:"enabled"`
	Team         *string   `json:"team"`
	SubscribedAt time.Time `json:"subscribed_at"`
}
