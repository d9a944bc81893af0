package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"claro-backend/internal/domain"
)

// MemoryArticlesRepository is an in-memory ArticlesRepository for unit tests
// and DB-less development. Search mimics the Postgres tiers: the full-text
// tiers require every query term to appear as a whole token, the fallback
// tier additionally accepts a case-insensitive substring match.
type MemoryArticlesRepository struct {
	mu       sync.RWMutex
	laws     map[string]string          // lawID -> lawName
	articles map[string]*domain.Article // lawID+"\x00"+number -> article
	versions map[int64][]*domain.ArticleVersion
	locks    map[string]bool

	nextArticleID int64
	nextVersionID int64

	// Test hooks.
	PingErr     error
	FullTextErr error            // returned by SearchCurrentFullText when set
	CreateErrs  map[string]error // articleNumber -> error from GetOrCreateArticle
}

func NewMemoryArticlesRepository() *MemoryArticlesRepository {
	return &MemoryArticlesRepository{
		laws:     map[string]string{},
		articles: map[string]*domain.Article{},
		versions: map[int64][]*domain.ArticleVersion{},
		locks:    map[string]bool{},
	}
}

var _ ArticlesRepository = (*MemoryArticlesRepository)(nil)

func articleKey(lawID, articleNumber string) string {
	return lawID + "\x00" + articleNumber
}

func (r *MemoryArticlesRepository) Ping(context.Context) error {
	if r.PingErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, r.PingErr)
	}
	return nil
}

func (r *MemoryArticlesRepository) UpsertLaw(_ context.Context, lawID, lawName string) error {
	if lawID == "" {
		return fmt.Errorf("law_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.laws[lawID] = lawName
	return nil
}

func (r *MemoryArticlesRepository) GetOrCreateArticle(_ context.Context, lawID, articleNumber string) (int64, error) {
	if err := r.CreateErrs[articleNumber]; err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := articleKey(lawID, articleNumber)
	if a, ok := r.articles[key]; ok {
		return a.ID, nil
	}
	r.nextArticleID++
	a := &domain.Article{ID: r.nextArticleID, LawID: lawID, ArticleNumber: articleNumber}
	r.articles[key] = a
	return a.ID, nil
}

func (r *MemoryArticlesRepository) GetCurrentVersion(_ context.Context, articleID int64) (*domain.ArticleVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.versions[articleID] {
		if v.VersionEndDate == nil {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryArticlesRepository) ApplyAction(_ context.Context, articleID int64, action domain.Action, content string, asOf time.Time) error {
	switch action {
	case domain.ActionNone:
		return nil
	case domain.ActionCreateFirst, domain.ActionSupersede:
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if action == domain.ActionSupersede {
		for _, v := range r.versions[articleID] {
			if v.VersionEndDate == nil {
				end := asOf
				v.VersionEndDate = &end
			}
		}
	}

	r.nextVersionID++
	r.versions[articleID] = append(r.versions[articleID], &domain.ArticleVersion{
		ID:               r.nextVersionID,
		ArticleID:        articleID,
		Content:          content,
		VersionStartDate: asOf,
	})
	return nil
}

func (r *MemoryArticlesRepository) ListVersions(_ context.Context, lawID string) ([]domain.VersionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.VersionRecord
	for _, a := range r.articles {
		if a.LawID != lawID {
			continue
		}
		for _, v := range r.versions[a.ID] {
			records = append(records, domain.VersionRecord{
				ArticleNumber:    a.ArticleNumber,
				Content:          v.Content,
				VersionStartDate: v.VersionStartDate,
				VersionEndDate:   v.VersionEndDate,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ArticleNumber != records[j].ArticleNumber {
			return records[i].ArticleNumber < records[j].ArticleNumber
		}
		return records[i].VersionStartDate.After(records[j].VersionStartDate)
	})
	return records, nil
}

func (r *MemoryArticlesRepository) SearchCurrentFullText(_ context.Context, _, query string, limit int) ([]domain.SearchResult, error) {
	if r.FullTextErr != nil {
		return nil, r.FullTextErr
	}
	return r.search(query, limit, false), nil
}

func (r *MemoryArticlesRepository) SearchCurrentFallback(_ context.Context, query string, limit int) ([]domain.SearchResult, error) {
	return r.search(query, limit, true), nil
}

type scoredResult struct {
	res   domain.SearchResult
	score int
	start time.Time
}

func (r *MemoryArticlesRepository) search(query string, limit int, substringToo bool) []domain.SearchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := tokenize(query)
	queryLower := strings.ToLower(query)

	var matched []scoredResult
	for _, a := range r.articles {
		for _, v := range r.versions[a.ID] {
			if v.VersionEndDate != nil {
				continue // superseded text is never returned
			}
			tokens := tokenize(v.Content)
			score, ok := termScore(terms, tokens)
			if !ok && substringToo && queryLower != "" &&
				strings.Contains(strings.ToLower(v.Content), queryLower) {
				ok = true
				score = 0
			}
			if !ok {
				continue
			}
			matched = append(matched, scoredResult{
				res: domain.SearchResult{
					ArticleNumber: a.ArticleNumber,
					Content:       v.Content,
					LawName:       r.laws[a.LawID],
				},
				score: score,
				start: v.VersionStartDate,
			})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].start.After(matched[j].start)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	results := make([]domain.SearchResult, 0, len(matched))
	for _, m := range matched {
		results = append(results, m.res)
	}
	return results
}

// termScore requires every query term to appear in the content tokens and
// returns the total number of occurrences as the relevance score.
func termScore(terms []string, tokens []string) (int, bool) {
	if len(terms) == 0 {
		return 0, false
	}
	counts := map[string]int{}
	for _, tok := range tokens {
		counts[tok]++
	}
	score := 0
	for _, term := range terms {
		n := counts[term]
		if n == 0 {
			return 0, false
		}
		score += n
	}
	return score, true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (r *MemoryArticlesRepository) AcquireRunLock(_ context.Context, lawID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[lawID] {
		return false, nil
	}
	r.locks[lawID] = true
	return true, nil
}

func (r *MemoryArticlesRepository) ReleaseRunLock(_ context.Context, lawID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, lawID)
	return nil
}

// VersionsOf exposes the stored versions of one article for assertions.
func (r *MemoryArticlesRepository) VersionsOf(lawID, articleNumber string) []domain.ArticleVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.articles[articleKey(lawID, articleNumber)]
	if !ok {
		return nil
	}
	out := make([]domain.ArticleVersion, 0, len(r.versions[a.ID]))
	for _, v := range r.versions[a.ID] {
		out = append(out, *v)
	}
	return out
}

// LawName returns the stored display name for a law.
func (r *MemoryArticlesRepository) LawName(lawID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.laws[lawID]
	return name, ok
}
