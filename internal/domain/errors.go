package domain

import "errors"

var (
	// ErrSourceUnavailable - the ISAP fetch failed permanently after the
	// retry budget was exhausted.
	ErrSourceUnavailable = errors.New("statute source unavailable")

	// ErrNoArticles - segmentation produced zero articles; the run aborts
	// before touching the store.
	ErrNoArticles = errors.New("no articles found in source text")

	// ErrStoreUnavailable - no database connection could be obtained; fatal
	// for the whole run.
	ErrStoreUnavailable = errors.New("article store unavailable")

	// ErrAnalyzerUnavailable - the language-specific text search
	// configuration is missing or broken; search falls back to the simple
	// tier.
	ErrAnalyzerUnavailable = errors.New("text search analyzer unavailable")
)
