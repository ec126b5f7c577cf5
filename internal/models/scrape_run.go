package models

import "time"

// ScrapeRun records one execution of the review scraper.
type ScrapeRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Days       int       `json:"days"`
	Repos      int       `json:"repos"`
	Processed  int       `json:"processed"`
	Errors     int       `json:"errors"`
	DryRun     bool      `json:"dry_run"`
}
