package ingest

import (
	"context"
	"fmt"
	"time"

	"claro-backend/internal/domain"
	"claro-backend/internal/repository"
	"claro-backend/internal/segment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline orchestrates one ingestion run: segment the raw text, reconcile
// every article against its stored current version, persist the decisions.
type Pipeline struct {
	repo   repository.ArticlesRepository
	logger *zap.Logger
}

func NewPipeline(repo repository.ArticlesRepository, logger *zap.Logger) *Pipeline {
	return &Pipeline{repo: repo, logger: logger}
}

// Run ingests one raw statute snapshot dated asOf.
//
// Fatal conditions (nothing persisted, error returned): zero articles
// segmented, store connection unavailable, law upsert failure. Per-article
// write failures are recorded in the outcome and the run continues; the run
// counts as successful when at least one article succeeded.
func (p *Pipeline) Run(ctx context.Context, raw, lawID, lawName string, asOf time.Time) (*domain.RunOutcome, error) {
	articles := segment.Segment(raw)
	if len(articles) == 0 {
		return nil, domain.ErrNoArticles
	}

	if err := p.repo.Ping(ctx); err != nil {
		return nil, err
	}

	if err := p.repo.UpsertLaw(ctx, lawID, lawName); err != nil {
		return nil, fmt.Errorf("failed to upsert law %q: %w", lawID, err)
	}

	outcome := &domain.RunOutcome{
		RunID:     uuid.NewString(),
		LawID:     lawID,
		AsOf:      asOf,
		Segmented: len(articles),
	}

	p.logger.Info("ingestion run started",
		zap.String("run_id", outcome.RunID),
		zap.String("law_id", lawID),
		zap.Int("segmented", len(articles)),
	)

	for _, article := range articles {
		if err := p.processArticle(ctx, lawID, article, asOf, outcome); err != nil {
			p.logger.Error("article ingestion failed",
				zap.String("run_id", outcome.RunID),
				zap.String("article", article.Number),
				zap.Error(err),
			)
			outcome.Failed = append(outcome.Failed, domain.ArticleFailure{
				ArticleNumber: article.Number,
				Reason:        err.Error(),
			})
			continue
		}
		outcome.Succeeded++
	}

	p.logger.Info("ingestion run finished",
		zap.String("run_id", outcome.RunID),
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("created", outcome.Created),
		zap.Int("superseded", outcome.Superseded),
		zap.Int("unchanged", outcome.Unchanged),
		zap.Int("failed", len(outcome.Failed)),
	)
	return outcome, nil
}

func (p *Pipeline) processArticle(ctx context.Context, lawID string, article segment.ArticleText, asOf time.Time, outcome *domain.RunOutcome) error {
	articleID, err := p.repo.GetOrCreateArticle(ctx, lawID, article.Number)
	if err != nil {
		return fmt.Errorf("get or create article: %w", err)
	}

	current, err := p.repo.GetCurrentVersion(ctx, articleID)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	action := Reconcile(current, article.Text)
	if err := p.repo.ApplyAction(ctx, articleID, action, article.Text, asOf); err != nil {
		return fmt.Errorf("apply %s: %w", action, err)
	}

	switch action {
	case domain.ActionNone:
		outcome.Unchanged++
	case domain.ActionCreateFirst:
		outcome.Created++
	case domain.ActionSupersede:
		outcome.Superseded++
	}
	return nil
}
