// Package search implements tiered full-text retrieval over current article
// versions.
//
// Statute terminology varies, and a single fixed-language analyzer silently
// returns zero matches for mismatched vocabulary. The engine therefore
// ladders down: a language-aware tier first, then a language-agnostic tier
// widened with a substring match, trading precision for recall before
// showing the user an empty result.
package search

import (
	"context"
	"errors"
	"strings"

	"claro-backend/internal/domain"

	"go.uber.org/zap"
)

// DefaultLimit is the result bound used when callers pass no limit.
const DefaultLimit = 5

// Store is the read path the engine queries. Both methods restrict matches
// to current versions and return them ranked.
type Store interface {
	SearchCurrentFullText(ctx context.Context, analyzer, query string, limit int) ([]domain.SearchResult, error)
	SearchCurrentFallback(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Engine runs the retrieval tiers in order.
type Engine struct {
	store    Store
	analyzer string
	logger   *zap.Logger
}

func NewEngine(store Store, analyzer string, logger *zap.Logger) *Engine {
	return &Engine{store: store, analyzer: analyzer, logger: logger}
}

// tierOutcome makes tier selection an explicit branch instead of hidden
// error-driven control flow: a tier either matched rows, matched nothing,
// was unavailable, or failed hard.
type tierOutcome struct {
	rows        []domain.SearchResult
	unavailable bool
	err         error
}

// Search returns up to limit ranked matches for a free-text query.
//
// Zero matches across all tiers yield an empty slice and a nil error:
// "no relevant provisions found" is a result, not a failure. An
// unavailable language analyzer is absorbed by falling to the next tier
// and never surfaces to the caller.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	primary := e.languageTier(ctx, query, limit)
	switch {
	case primary.err != nil:
		return nil, primary.err
	case len(primary.rows) > 0:
		return primary.rows, nil
	case primary.unavailable:
		e.logger.Warn("language analyzer unavailable, using fallback tier",
			zap.String("analyzer", e.analyzer),
		)
	}

	fallback := e.fallbackTier(ctx, query, limit)
	if fallback.err != nil {
		return nil, fallback.err
	}
	return fallback.rows, nil
}

func (e *Engine) languageTier(ctx context.Context, query string, limit int) tierOutcome {
	rows, err := e.store.SearchCurrentFullText(ctx, e.analyzer, query, limit)
	if errors.Is(err, domain.ErrAnalyzerUnavailable) {
		return tierOutcome{unavailable: true}
	}
	if err != nil {
		return tierOutcome{err: err}
	}
	return tierOutcome{rows: rows}
}

func (e *Engine) fallbackTier(ctx context.Context, query string, limit int) tierOutcome {
	rows, err := e.store.SearchCurrentFallback(ctx, query, limit)
	if err != nil {
		return tierOutcome{err: err}
	}
	return tierOutcome{rows: rows}
}
