package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/revdash/internal/models"
)

// ErrNotFound is returned (wrapped with the key) when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// DefaultLimit caps list results when a filter leaves Limit at zero.
const DefaultLimit = 100

// ReviewListFilter selects reviews. Zero-valued fields do not filter.
type ReviewListFilter struct {
	Sentiment models.Sentiment
	RepoName  string
	Since     time.Time
	Skip      int
	Limit     int // 0 means DefaultLimit, negative means no limit
}

// RepoListFilter selects repositories.
type RepoListFilter struct {
	EnabledOnly bool
	Skip        int
	Limit       int // 0 means DefaultLimit, negative means no limit
}

// Store defines the persistence interface for revdash.
type Store interface {
	// Reviews
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error)
	GetReview(ctx context.Context, id string) (*models.Review, error)
	UpsertReviews(ctx context.Context, reviews []*models.Review) (int, error)

	// Repos
	ListRepos(ctx context.Context, filter RepoListFilter) ([]*models.Repo, error)
	GetRepo(ctx context.Context, name string) (*models.Repo, error)
	CreateRepo(ctx context.Context, repo *models.Repo) error
	UpdateRepo(ctx context.Context, repo *models.Repo) error
	DeleteRepo(ctx context.Context, name string) error
	ListEnabledRepoNames(ctx context.Context) ([]string, error)

	// Scrape runs
	CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error
	ListScrapeRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
