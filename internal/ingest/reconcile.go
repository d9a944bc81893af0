// Package ingest turns a raw statute snapshot into dated article versions.
package ingest

import (
	"strings"

	"claro-backend/internal/domain"
)

// Reconcile decides what one ingestion run does with one segmented article.
//
// Content is the sole signal of legal change: the source exposes no
// authoritative effective date, so versions are dated with the run's
// processing date. Comparing trimmed content keeps re-ingestion of an
// unchanged text from writing anything, which makes runs idempotent.
func Reconcile(current *domain.ArticleVersion, text string) domain.Action {
	if current == nil {
		return domain.ActionCreateFirst
	}
	if strings.TrimSpace(current.Content) == strings.TrimSpace(text) {
		return domain.ActionNone
	}
	return domain.ActionSupersede
}
