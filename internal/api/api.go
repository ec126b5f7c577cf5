package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/revdash/internal/analytics"
	"github.com/joescharf/revdash/internal/github"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/store"
)

// CommentFetcher looks up a review comment on GitHub.
type CommentFetcher interface {
	GetReviewComment(ctx context.Context, repoName string, id int64) (*models.GitHubComment, error)
}

// Server provides the REST API handlers.
type Server struct {
	store      store.Store
	github     CommentFetcher
	corsOrigin string
	now        func() time.Time
}

// NewServer creates a new API server.
// The comment fetcher may be nil if no GitHub token is configured.
func NewServer(s store.Store, ghc CommentFetcher, corsOrigin string) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Server{
		store:      s,
		github:     ghc,
		corsOrigin: corsOrigin,
		now:        time.Now,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("GET /api/reviews", s.listReviews)
	mux.HandleFunc("GET /api/reviews/{$}", s.listReviews)
	mux.HandleFunc("GET /api/reviews/{id}", s.getReview)

	mux.HandleFunc("GET /api/repos", s.listRepos)
	mux.HandleFunc("GET /api/repos/{$}", s.listRepos)
	mux.HandleFunc("GET /api/repos/{repo_name}", s.getRepo)
	mux.HandleFunc("GET /api/repos/{owner}/{repo}", s.getRepo)

	// Repository names carry a slash: accept it URL-encoded or as two segments.
	mux.HandleFunc("GET /api/github/comment/{repo_name}/{comment_id}", s.getComment)
	mux.HandleFunc("GET /api/github/comment/{owner}/{repo}/{comment_id}", s.getComment)

	mux.HandleFunc("GET /api/analytics/summary", s.summary)
	mux.HandleFunc("GET /api/scrape/runs", s.listScrapeRuns)

	return logMiddleware(corsMiddleware(s.corsOrigin, mux))
}

func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid value for " + key + ": " + v)
	}
	return n, nil
}

func querySentiment(r *http.Request) (models.Sentiment, error) {
	s := models.Sentiment(r.URL.Query().Get("sentiment"))
	if s != "" && !s.Valid() {
		return "", errors.New("invalid sentiment: " + string(s) + " (use: positive, negative, neutral)")
	}
	return s, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	sentiment, err := querySentiment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", store.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if limit == 0 {
		writeJSON(w, http.StatusOK, []*models.Review{})
		return
	}

	reviews, err := s.store.ListReviews(r.Context(), store.ReviewListFilter{
		Sentiment: sentiment,
		RepoName:  r.URL.Query().Get("repo_name"),
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.store.GetReview(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Review not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// --- Repos ---

func (s *Server) listRepos(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", store.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if limit == 0 {
		writeJSON(w, http.StatusOK, []*models.Repo{})
		return
	}
	enabledOnly, _ := strconv.ParseBool(r.URL.Query().Get("enabled_only"))

	repos, err := s.store.ListRepos(r.Context(), store.RepoListFilter{
		EnabledOnly: enabledOnly,
		Skip:        skip,
		Limit:       limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if repos == nil {
		repos = []*models.Repo{}
	}
	writeJSON(w, http.StatusOK, repos)
}

// repoNameFrom reads the repository name from either route form.
func repoNameFrom(r *http.Request) string {
	if owner := r.PathValue("owner"); owner != "" {
		return owner + "/" + r.PathValue("repo")
	}
	return r.PathValue("repo_name")
}

func (s *Server) getRepo(w http.ResponseWriter, r *http.Request) {
	repo, err := s.store.GetRepo(r.Context(), repoNameFrom(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Repository not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// --- GitHub ---

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		writeError(w, http.StatusInternalServerError, "GitHub token not configured on server")
		return
	}

	repoName := repoNameFrom(r)
	if _, _, err := github.ParseRepoName(repoName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := strconv.ParseInt(r.PathValue("comment_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid comment id: "+r.PathValue("comment_id"))
		return
	}

	comment, err := s.github.GetReviewComment(r.Context(), repoName, id)
	if err != nil {
		var apiErr *github.APIError
		switch {
		case errors.Is(err, github.ErrNoToken):
			writeError(w, http.StatusInternalServerError, "GitHub token not configured on server")
		case errors.As(err, &apiErr):
			writeError(w, apiErr.Status, apiErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to fetch comment: "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// --- Analytics ---

const maxSummaryDays = 3650

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", analytics.DefaultWindowDays)
	if err != nil || days < 1 || days > maxSummaryDays {
		writeError(w, http.StatusUnprocessableEntity, "invalid value for days: "+r.URL.Query().Get("days"))
		return
	}
	sentiment, err := querySentiment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now().UTC()
	// Two windows: the current one and the one it is compared against.
	since := now.Add(-2 * time.Duration(days) * 24 * time.Hour)

	reviews, err := s.store.ListReviews(r.Context(), store.ReviewListFilter{
		Sentiment: sentiment,
		RepoName:  r.URL.Query().Get("repo_name"),
		Since:     since,
		Limit:     -1,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(reviews, days, now))
}

// --- Scrape runs ---

func (s *Server) listScrapeRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	runs, err := s.store.ListScrapeRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.ScrapeRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
