package domain

import "time"

// Action is the reconcile decision for one segmented article against its
// stored current version.
type Action string

const (
	// ActionNone - content unchanged, nothing to write.
	ActionNone Action = "noop"
	// ActionCreateFirst - no current version exists, open the first one.
	ActionCreateFirst Action = "create_first"
	// ActionSupersede - content changed: close the current version and open
	// a new one, both dated with the run's as-of date.
	ActionSupersede Action = "supersede_and_create"
)

// ArticleFailure records one article that could not be persisted during a
// run. The run continues past it.
type ArticleFailure struct {
	ArticleNumber string `json:"article_number"`
	Reason        string `json:"reason"`
}

// RunOutcome summarizes one ingestion run.
type RunOutcome struct {
	RunID      string           `json:"run_id"`
	LawID      string           `json:"law_id"`
	AsOf       time.Time        `json:"as_of"`
	Segmented  int              `json:"segmented"`
	Succeeded  int              `json:"succeeded"`
	Unchanged  int              `json:"unchanged"`
	Created    int              `json:"created"`
	Superseded int              `json:"superseded"`
	Failed     []ArticleFailure `json:"failed"`
}
