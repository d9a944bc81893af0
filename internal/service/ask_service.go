package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"claro-backend/internal/answer"
	"claro-backend/internal/domain"
	"claro-backend/internal/search"
	"claro-backend/internal/store"

	"go.uber.org/zap"
)

// NoProvisionsAnswer is returned when no tier matched anything.
const NoProvisionsAnswer = "Nie znaleziono odpowiednich przepisów prawnych dla tego zapytania."

// Searcher is the retrieval engine the service consults.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Generator turns a query plus ranked matches into a prose answer.
type Generator interface {
	Generate(ctx context.Context, query string, results []domain.SearchResult) (string, error)
}

// AskResult is the answer payload served to clients.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// AskService answers free-text questions: cache lookup, tiered retrieval,
// answer generation, cache fill.
type AskService struct {
	searcher    Searcher
	generator   Generator
	cache       store.KV // nil disables caching
	cacheTTL    time.Duration
	searchLimit int
	logger      *zap.Logger
}

func NewAskService(searcher Searcher, generator Generator, cache store.KV, cacheTTL time.Duration, searchLimit int, logger *zap.Logger) *AskService {
	if searchLimit <= 0 {
		searchLimit = search.DefaultLimit
	}
	return &AskService{
		searcher:    searcher,
		generator:   generator,
		cache:       cache,
		cacheTTL:    cacheTTL,
		searchLimit: searchLimit,
		logger:      logger,
	}
}

// Ask answers one query. Zero retrieval matches produce a fixed
// no-provisions answer, never an error; a generation failure degrades to
// the fallback answer with sources intact.
func (s *AskService) Ask(ctx context.Context, query string) (*AskResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	key := cacheKey(query)
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached, nil
	}

	results, err := s.searcher.Search(ctx, query, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		// Transient zero-match results must not pin "not found" for the
		// whole TTL, so they are never cached.
		return &AskResult{Answer: NoProvisionsAnswer, Sources: []string{}}, nil
	}

	generated, genErr := s.generator.Generate(ctx, query, results)
	if genErr != nil {
		s.logger.Error("answer generation failed", zap.Error(genErr))
		generated = answer.Fallback
	}

	res := &AskResult{Answer: generated, Sources: sourceRefs(results)}
	if genErr == nil {
		s.cacheSet(ctx, key, res)
	}
	return res, nil
}

func sourceRefs(results []domain.SearchResult) []string {
	refs := make([]string, 0, len(results))
	for _, r := range results {
		refs = append(refs, fmt.Sprintf("%s (%s)", r.ArticleNumber, r.LawName))
	}
	return refs
}

// cacheKey derives a stable key from the normalized query: lowercased,
// whitespace collapsed, hashed.
func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "claro:answer:" + hex.EncodeToString(sum[:])
}

func (s *AskService) cacheGet(ctx context.Context, key string) (*AskResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("answer cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var res AskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		s.logger.Warn("answer cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &res, true
}

func (s *AskService) cacheSet(ctx context.Context, key string, res *AskResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.logger.Warn("answer cache write failed", zap.Error(err))
	}
}
