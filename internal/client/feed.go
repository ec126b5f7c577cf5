package client

import (
	"context"
	"errors"
	"sync"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/models"
)

// ErrStale is returned by Refresh when a newer Refresh superseded it.
var ErrStale = errors.New("superseded by a newer request")

// ErrFetchFailed is the generic error recorded when a list fetch fails.
var ErrFetchFailed = errors.New("failed to fetch reviews")

// ReviewLister is the subset of Client a ReviewFeed needs.
type ReviewLister interface {
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*models.Review, error)
}

// FeedState is a snapshot of a ReviewFeed.
type FeedState struct {
	Reviews    []*models.Review
	Filter     ReviewFilter
	Loading    bool
	Err        error
	Generation uint64
}

// ReviewFeed holds the review list behind a filter-driven view. Each
// Refresh starts a new generation and cancels the previous request; only
// the newest generation may publish its result.
type ReviewFeed struct {
	lister ReviewLister

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	reviews []*models.Review
	filter  ReviewFilter
	loading bool
	err     error
}

// NewReviewFeed creates an empty feed.
func NewReviewFeed(l ReviewLister) *ReviewFeed {
	return &ReviewFeed{lister: l}
}

// Refresh fetches reviews for filter. On failure the previous reviews are
// kept and ErrFetchFailed is recorded.
func (f *ReviewFeed) Refresh(ctx context.Context, filter ReviewFilter) ([]*models.Review, error) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.loading = true
	f.mu.Unlock()

	reviews, err := f.lister.ListReviews(ctx, filter)

	f.mu.Lock()
	defer f.mu.Unlock()
	cancel()

	if gen != f.gen {
		return nil, ErrStale
	}
	f.cancel = nil
	f.loading = false

	if err != nil {
		f.err = ErrFetchFailed
		return nil, errors.Join(ErrFetchFailed, err)
	}
	f.reviews = reviews
	f.filter = filter
	f.err = nil
	return reviews, nil
}

// State returns a snapshot of the feed.
func (f *ReviewFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedState{
		Reviews:    f.reviews,
		Filter:     f.filter,
		Loading:    f.loading,
		Err:        f.err,
		Generation: f.gen,
	}
}

// View returns the current reviews narrowed by query and ordered by order.
// The feed's own slice is never reordered.
func (f *ReviewFeed) View(query string, order analytics.SortOrder) []*models.Review {
	f.mu.Lock()
	reviews := f.reviews
	f.mu.Unlock()
	return analytics.SortReviews(analytics.Search(reviews, query), order)
}
