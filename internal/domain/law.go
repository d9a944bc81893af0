package domain

import "time"

// Law domain model (laws table). One row per tracked statute.
type Law struct {
	LawID   string `db:"law_id"`   // stable external code, e.g. "vat"
	LawName string `db:"law_name"` // display title
}

// Article domain model (articles table). Identified by (law_id,
// article_number); created once per distinct number, never mutated.
type Article struct {
	ID            int64  `db:"id"`
	LawID         string `db:"law_id"`
	ArticleNumber string `db:"article_number"` // anchor token verbatim, e.g. "Art. 15a."
}

// ArticleVersion domain model (article_versions table). A dated snapshot of
// one article's text. Validity interval: [version_start_date,
// version_end_date); a NULL end date marks the version currently in force.
type ArticleVersion struct {
	ID               int64      `db:"id"`
	ArticleID        int64      `db:"article_id"`
	Content          string     `db:"content"`
	VersionStartDate time.Time  `db:"version_start_date"`
	VersionEndDate   *time.Time `db:"version_end_date"` // NULL = current
}

// SearchResult is one ranked full-text match over current article versions.
type SearchResult struct {
	ArticleNumber string `json:"article_number"`
	Content       string `json:"content"`
	LawName       string `json:"law_name"`
}

// VersionRecord is a flattened version row used by the history export.
type VersionRecord struct {
	ArticleNumber    string
	Content          string
	VersionStartDate time.Time
	VersionEndDate   *time.Time
}
