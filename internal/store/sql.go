package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/revdash/internal/models"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// dialect captures the differences between the supported SQL backends.
type dialect struct {
	name          string
	numbered      bool // $1-style placeholders
	intBools      bool // booleans stored as 0/1
	migrationsSQL string
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		intBools: true,
		migrationsSQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`,
	}
	postgresDialect = dialect{
		name:     "postgres",
		numbered: true,
		migrationsSQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) boolArg(b bool) any {
	if d.intBools {
		return boolToInt(b)
	}
	return b
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SQLStore implements Store on database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Driver reports the backend name ("sqlite" or "postgres").
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// Migrate runs all embedded SQL migration files for the dialect in order.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.migrationsSQL); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + s.dialect.name
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.queryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.exec(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func limitOf(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < 0:
		return math.MaxInt32
	}
	return n
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// --- Reviews ---

const reviewColumns = `ai_review_id, repo_name, pr_number, pr_url, pr_title, pr_review_id, review_comment_id,
	review_comment_url, review_comment_web_url, original_commit_sha, workflow_version, created_at,
	sentiment, positive_reactions, negative_reactions, last_updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(sc scanner) (*models.Review, error) {
	r := &models.Review{}
	var title, sha, version, sentiment sql.NullString
	err := sc.Scan(&r.AIReviewID, &r.RepoName, &r.PRNumber, &r.PRURL, &title, &r.PRReviewID, &r.ReviewCommentID,
		&r.ReviewCommentURL, &r.ReviewCommentWebURL, &sha, &version, &r.CreatedAt,
		&sentiment, &r.PositiveReactions, &r.NegativeReactions, &r.LastUpdated)
	if err != nil {
		return nil, err
	}
	r.PRTitle = stringPtr(title)
	r.OriginalCommitSHA = stringPtr(sha)
	r.WorkflowVersion = stringPtr(version)
	r.Sentiment = models.Sentiment(sentiment.String)
	r.CreatedAt = r.CreatedAt.UTC()
	r.LastUpdated = r.LastUpdated.UTC()
	return r, nil
}

func (s *SQLStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM ai_reviews WHERE 1=1`
	var args []any

	if filter.Sentiment != "" {
		query += " AND sentiment = ?"
		args = append(args, string(filter.Sentiment))
	}
	if filter.RepoName != "" {
		query += " AND repo_name = ?"
		args = append(args, filter.RepoName)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC, ai_review_id LIMIT ? OFFSET ?"
	args = append(args, limitOf(filter.Limit), max(filter.Skip, 0))

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLStore) GetReview(ctx context.Context, id string) (*models.Review, error) {
	r, err := scanReview(s.queryRow(ctx, `SELECT `+reviewColumns+` FROM ai_reviews WHERE ai_review_id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

// UpsertReviews inserts reviews or updates them in place. ai_review_id and
// created_at are never changed by an update; last_updated is refreshed.
func (s *SQLStore) UpsertReviews(ctx context.Context, reviews []*models.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`INSERT INTO ai_reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ai_review_id) DO UPDATE SET
			repo_name = excluded.repo_name,
			pr_number = excluded.pr_number,
			pr_url = excluded.pr_url,
			pr_title = excluded.pr_title,
			pr_review_id = excluded.pr_review_id,
			review_comment_id = excluded.review_comment_id,
			review_comment_url = excluded.review_comment_url,
			review_comment_web_url = excluded.review_comment_web_url,
			original_commit_sha = excluded.original_commit_sha,
			workflow_version = excluded.workflow_version,
			sentiment = excluded.sentiment,
			positive_reactions = excluded.positive_reactions,
			negative_reactions = excluded.negative_reactions,
			last_updated = excluded.last_updated`))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range reviews {
		if r.AIReviewID == "" {
			r.AIReviewID = newULID()
		}
		r.LastUpdated = now

		var sentiment sql.NullString
		if r.Sentiment != "" {
			sentiment = sql.NullString{String: string(r.Sentiment), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			r.AIReviewID, r.RepoName, r.PRNumber, r.PRURL, nullString(r.PRTitle), r.PRReviewID, r.ReviewCommentID,
			r.ReviewCommentURL, r.ReviewCommentWebURL, nullString(r.OriginalCommitSHA), nullString(r.WorkflowVersion),
			r.CreatedAt.UTC(), sentiment, r.PositiveReactions, r.NegativeReactions, r.LastUpdated,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert review %s: %w", r.AIReviewID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(reviews), nil
}

// --- Repos ---

func scanRepo(sc scanner) (*models.Repo, error) {
	r := &models.Repo{}
	var team sql.NullString
	if err := sc.Scan(&r.RepoName, &r.Enabled, &team, &r.SubscribedAt); err != nil {
		return nil, err
	}
	r.Team = stringPtr(team)
	r.SubscribedAt = r.SubscribedAt.UTC()
	return r, nil
}

func (s *SQLStore) ListRepos(ctx context.Context, filter RepoListFilter) ([]*models.Repo, error) {
	query := `SELECT repo_name, enabled, team, subscribed_at FROM repos`
	var args []any
	if filter.EnabledOnly {
		query += " WHERE enabled = ?"
		args = append(args, s.dialect.boolArg(true))
	}
	query += " ORDER BY repo_name LIMIT ? OFFSET ?"
	args = append(args, limitOf(filter.Limit), max(filter.Skip, 0))

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer rows.Close()

	var repos []*models.Repo
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (s *SQLStore) GetRepo(ctx context.Context, name string) (*models.Repo, error) {
	r, err := scanRepo(s.queryRow(ctx, `SELECT repo_name, enabled, team, subscribed_at FROM repos WHERE repo_name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository %w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get repo: %w", err)
	}
	return r, nil
}

func (s *SQLStore) CreateRepo(ctx context.Context, repo *models.Repo) error {
	if repo.SubscribedAt.IsZero() {
		repo.SubscribedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO repos (repo_name, enabled, team, subscribed_at) VALUES (?, ?, ?, ?)`,
		repo.RepoName, s.dialect.boolArg(repo.Enabled), nullString(repo.Team), repo.SubscribedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create repo: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateRepo(ctx context.Context, repo *models.Repo) error {
	res, err := s.exec(ctx,
		`UPDATE repos SET enabled = ?, team = ? WHERE repo_name = ?`,
		s.dialect.boolArg(repo.Enabled), nullString(repo.Team), repo.RepoName,
	)
	if err != nil {
		return fmt.Errorf("update repo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("repository %w: %s", ErrNotFound, repo.RepoName)
	}
	return nil
}

func (s *SQLStore) DeleteRepo(ctx context.Context, name string) error {
	res, err := s.exec(ctx, `DELETE FROM repos WHERE repo_name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete repo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("repository %w: %s", ErrNotFound, name)
	}
	return nil
}

func (s *SQLStore) ListEnabledRepoNames(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, `SELECT repo_name FROM repos WHERE enabled = ? ORDER BY repo_name`, s.dialect.boolArg(true))
	if err != nil {
		return nil, fmt.Errorf("list enabled repos: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan repo name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Scrape runs ---

func (s *SQLStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	if run.ID == "" {
		run.ID = newULID()
	}
	_, err := s.exec(ctx,
		`INSERT INTO scrape_runs (id, started_at, finished_at, days, repos, processed, errors, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Days, run.Repos, run.Processed, run.Errors,
		s.dialect.boolArg(run.DryRun),
	)
	if err != nil {
		return fmt.Errorf("create scrape run: %w", err)
	}
	return nil
}

func (s *SQLStore) ListScrapeRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	rows, err := s.query(ctx,
		`SELECT id, started_at, finished_at, days, repos, processed, errors, dry_run
		FROM scrape_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limitOf(limit))
	if err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScrapeRun
	for rows.Next() {
		r := &models.ScrapeRun{}
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Days, &r.Repos, &r.Processed, &r.Errors, &r.DryRun); err != nil {
			return nil, fmt.Errorf("scan scrape run: %w", err)
		}
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
