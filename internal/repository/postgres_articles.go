package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"claro-backend/internal/domain"

	"github.com/lib/pq"
)

// pgUndefinedObject is the SQLSTATE Postgres raises for a reference to a
// text search configuration (among other objects) that does not exist.
const pgUndefinedObject = "42704"

// PostgresArticlesRepository implements ArticlesRepository on Postgres.
type PostgresArticlesRepository struct {
	db *sql.DB

	// lockConn pins the advisory run lock to one pooled connection;
	// session locks released on a different connection would be no-ops.
	mu       sync.Mutex
	lockConn *sql.Conn
}

func NewPostgresArticlesRepository(db *sql.DB) *PostgresArticlesRepository {
	return &PostgresArticlesRepository{db: db}
}

var _ ArticlesRepository = (*PostgresArticlesRepository)(nil)

func (r *PostgresArticlesRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *PostgresArticlesRepository) UpsertLaw(ctx context.Context, lawID, lawName string) error {
	if lawID == "" {
		return fmt.Errorf("law_id is required")
	}

	query := `
		INSERT INTO laws (law_id, law_name)
		VALUES ($1, $2)
		ON CONFLICT (law_id) DO UPDATE SET law_name = EXCLUDED.law_name
	`
	if _, err := r.db.ExecContext(ctx, query, lawID, lawName); err != nil {
		return fmt.Errorf("failed to upsert law: %w", err)
	}
	return nil
}

func (r *PostgresArticlesRepository) GetOrCreateArticle(ctx context.Context, lawID, articleNumber string) (int64, error) {
	if lawID == "" || articleNumber == "" {
		return 0, fmt.Errorf("law_id and article_number are required")
	}

	// The (law_id, article_number) unique constraint makes the insert a
	// no-op on conflict; the second SELECT then resolves the existing row.
	query := `
		INSERT INTO articles (law_id, article_number)
		VALUES ($1, $2)
		ON CONFLICT (law_id, article_number) DO NOTHING
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, lawID, articleNumber).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to create article: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM articles WHERE law_id = $1 AND article_number = $2`,
		lawID, articleNumber,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to look up article: %w", err)
	}
	return id, nil
}

func (r *PostgresArticlesRepository) GetCurrentVersion(ctx context.Context, articleID int64) (*domain.ArticleVersion, error) {
	query := `
		SELECT id, article_id, content, version_start_date, version_end_date
		FROM article_versions
		WHERE article_id = $1 AND version_end_date IS NULL
		ORDER BY version_start_date DESC
		LIMIT 1
	`

	var version domain.ArticleVersion
	var endDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, articleID).Scan(
		&version.ID,
		&version.ArticleID,
		&version.Content,
		&version.VersionStartDate,
		&endDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}
	if endDate.Valid {
		version.VersionEndDate = &endDate.Time
	}
	return &version, nil
}

func (r *PostgresArticlesRepository) ApplyAction(ctx context.Context, articleID int64, action domain.Action, content string, asOf time.Time) error {
	switch action {
	case domain.ActionNone:
		return nil
	case domain.ActionCreateFirst, domain.ActionSupersede:
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if action == domain.ActionSupersede {
		closeQuery := `
			UPDATE article_versions
			SET version_end_date = $2
			WHERE article_id = $1 AND version_end_date IS NULL
		`
		if _, err := tx.ExecContext(ctx, closeQuery, articleID, asOf); err != nil {
			return fmt.Errorf("failed to close current version: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO article_versions (article_id, content, version_start_date)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, insertQuery, articleID, content, asOf); err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresArticlesRepository) ListVersions(ctx context.Context, lawID string) ([]domain.VersionRecord, error) {
	query := `
		SELECT a.article_number, av.content, av.version_start_date, av.version_end_date
		FROM articles a
		JOIN article_versions av ON a.id = av.article_id
		WHERE a.law_id = $1
		ORDER BY a.article_number, av.version_start_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, lawID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var records []domain.VersionRecord
	for rows.Next() {
		var rec domain.VersionRecord
		var endDate sql.NullTime
		if err := rows.Scan(&rec.ArticleNumber, &rec.Content, &rec.VersionStartDate, &endDate); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		if endDate.Valid {
			rec.VersionEndDate = &endDate.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}
	return records, nil
}

func (r *PostgresArticlesRepository) SearchCurrentFullText(ctx context.Context, analyzer, query string, limit int) ([]domain.SearchResult, error) {
	sqlQuery := `
		SELECT a.article_number, av.content, l.law_name
		FROM articles a
		JOIN article_versions av ON a.id = av.article_id
		JOIN laws l ON a.law_id = l.law_id
		WHERE to_tsvector($1::regconfig, av.content) @@ plainto_tsquery($1::regconfig, $2)
			AND av.version_end_date IS NULL
		ORDER BY
			ts_rank(to_tsvector($1::regconfig, av.content), plainto_tsquery($1::regconfig, $2)) DESC,
			av.version_start_date DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, analyzer, query, limit)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUndefinedObject {
			return nil, fmt.Errorf("%w: configuration %q: %v", domain.ErrAnalyzerUnavailable, analyzer, err)
		}
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func (r *PostgresArticlesRepository) SearchCurrentFallback(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	// Both branches sit inside the parentheses so the currency filter
	// applies to full-text and substring matches alike; superseded text
	// must never surface through either branch.
	sqlQuery := `
		SELECT a.article_number, av.content, l.law_name
		FROM articles a
		JOIN article_versions av ON a.id = av.article_id
		JOIN laws l ON a.law_id = l.law_id
		WHERE (
				to_tsvector('simple', av.content) @@ plainto_tsquery('simple', $1)
				OR av.content ILIKE '%' || $1 || '%'
			)
			AND av.version_end_date IS NULL
		ORDER BY
			ts_rank(to_tsvector('simple', av.content), plainto_tsquery('simple', $1)) DESC,
			av.version_start_date DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func scanSearchResults(rows *sql.Rows) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ArticleNumber, &res.Content, &res.LawName); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}
	return results, nil
}

// AcquireRunLock takes a session-scoped advisory lock keyed by the law ID.
// The scraper holds it for the duration of an ingestion run so that at most
// one run is active per law.
func (r *PostgresArticlesRepository) AcquireRunLock(ctx context.Context, lawID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lockConn != nil {
		return false, fmt.Errorf("run lock already held by this process")
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx,
		`SELECT pg_try_advisory_lock(hashtext('claro-ingest-' || $1))`, lawID,
	).Scan(&acquired)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	r.lockConn = conn
	return true, nil
}

func (r *PostgresArticlesRepository) ReleaseRunLock(ctx context.Context, lawID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lockConn == nil {
		return nil
	}
	conn := r.lockConn
	r.lockConn = nil

	_, err := conn.ExecContext(ctx,
		`SELECT pg_advisory_unlock(hashtext('claro-ingest-' || $1))`, lawID,
	)
	conn.Close()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
