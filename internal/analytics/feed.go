package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joescharf/revdash/internal/models"
)

// SortOrder selects how a review feed is ordered.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortRepoAsc  SortOrder = "repo-asc"
	SortRepoDesc SortOrder = "repo-desc"
)

// SortOrders lists the accepted orders, default first.
var SortOrders = []SortOrder{SortNewest, SortOldest, SortRepoAsc, SortRepoDesc}

// ParseSortOrder validates s; an empty string selects SortNewest.
func ParseSortOrder(s string) (SortOrder, error) {
	if s == "" {
		return SortNewest, nil
	}
	for _, o := range SortOrders {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort order: %s (use: newest, oldest, repo-asc, repo-desc)", s)
}

// Search keeps reviews whose PR title, repository name or PR number contains
// query, case-insensitively. A blank query keeps everything.
func Search(reviews []*models.Review, query string) []*models.Review {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if r == nil {
			continue
		}
		if q == "" || matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *models.Review, q string) bool {
	if r.PRTitle != nil && strings.Contains(strings.ToLower(*r.PRTitle), q) {
		return true
	}
	if strings.Contains(strings.ToLower(r.RepoName), q) {
		return true
	}
	return strings.Contains(strconv.Itoa(r.PRNumber), q)
}

// SortReviews returns a sorted copy of reviews. Equal elements keep their
// input order.
func SortReviews(reviews []*models.Review, order SortOrder) []*models.Review {
	out := make([]*models.Review, len(reviews))
	copy(out, reviews)

	var less func(a, b *models.Review) bool
	switch order {
	case SortOldest:
		less = func(a, b *models.Review) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortRepoAsc:
		less = func(a, b *models.Review) bool { return a.RepoName < b.RepoName }
	case SortRepoDesc:
		less = func(a, b *models.Review) bool { return a.RepoName > b.RepoName }
	default:
		less = func(a, b *models.Review) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
