package repository

import (
	"context"
	"time"

	"claro-backend/internal/domain"
)

// ArticlesRepository is the only writer of laws, articles and article
// versions, and the read path behind the search tiers.
//
// Concurrency: ApplyAction is atomic per article (one transaction). The
// repository does not serialize whole ingestion runs; callers hold the
// advisory run lock for the run's duration.
type ArticlesRepository interface {
	// Ping verifies the store connection is usable.
	Ping(ctx context.Context) error

	// UpsertLaw inserts the law or overwrites its display name. Idempotent.
	UpsertLaw(ctx context.Context, lawID, lawName string) error

	// GetOrCreateArticle resolves (lawID, articleNumber) to an article ID,
	// creating the row on first sight. Repeated calls with the same key
	// never create duplicates.
	GetOrCreateArticle(ctx context.Context, lawID, articleNumber string) (int64, error)

	// GetCurrentVersion returns the open-ended version row for the article,
	// or (nil, nil) when the article has no current version yet.
	GetCurrentVersion(ctx context.Context, articleID int64) (*domain.ArticleVersion, error)

	// ApplyAction executes a reconcile decision as a single atomic write:
	// close-then-insert for ActionSupersede, insert-only for
	// ActionCreateFirst, nothing for ActionNone.
	ApplyAction(ctx context.Context, articleID int64, action domain.Action, content string, asOf time.Time) error

	// ListVersions returns all version rows for a law, newest first, for
	// the history export.
	ListVersions(ctx context.Context, lawID string) ([]domain.VersionRecord, error)

	// SearchCurrentFullText runs the language-aware tier: analyzer-stemmed
	// full-text match over current versions only, ranked by relevance then
	// version_start_date descending. A missing analyzer configuration is
	// reported as domain.ErrAnalyzerUnavailable.
	SearchCurrentFullText(ctx context.Context, analyzer, query string, limit int) ([]domain.SearchResult, error)

	// SearchCurrentFallback runs the fallback tier: language-agnostic
	// full-text match OR case-insensitive substring match, both restricted
	// to current versions, same ranking.
	SearchCurrentFallback(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)

	// AcquireRunLock takes the per-law ingestion lock. Returns false when
	// another run already holds it.
	AcquireRunLock(ctx context.Context, lawID string) (bool, error)

	// ReleaseRunLock releases the per-law ingestion lock.
	ReleaseRunLock(ctx context.Context, lawID string) error
}
