// Command claro-scraper runs one ingestion pass: it locates the latest
// consolidated statute text in ISAP, downloads and extracts it, and
// reconciles every article against the stored version history.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claro-backend/internal/config"
	"claro-backend/internal/database"
	"claro-backend/internal/fetch"
	"claro-backend/internal/ingest"
	"claro-backend/internal/logger"
	"claro-backend/internal/repository"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "claro-scraper")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Error("database connection failed", zap.Error(err))
		return 1
	}
	defer database.Close(db)

	repo := repository.NewPostgresArticlesRepository(db)

	acquired, err := repo.AcquireRunLock(ctx, cfg.Law.ID)
	if err != nil {
		log.Error("run lock acquisition failed", zap.Error(err))
		return 1
	}
	if !acquired {
		// Another run is already working on this law; overlapping runs
		// would race on the close-then-insert sequence.
		log.Warn("ingestion already in progress, exiting", zap.String("law_id", cfg.Law.ID))
		return 1
	}
	defer func() {
		if err := repo.ReleaseRunLock(context.Background(), cfg.Law.ID); err != nil {
			log.Warn("run lock release failed", zap.Error(err))
		}
	}()

	client := fetch.NewISAPClient(cfg.Source.BaseURL, cfg.Source.Timeout, cfg.Source.RetryWait, log)

	pdfURL, err := client.LatestPDFURL(ctx, cfg.Source.DocID)
	if err != nil {
		log.Error("consolidated text lookup failed", zap.String("doc_id", cfg.Source.DocID), zap.Error(err))
		return 1
	}

	data, err := client.DownloadPDF(ctx, pdfURL)
	if err != nil {
		log.Error("download failed", zap.String("url", pdfURL), zap.Error(err))
		return 1
	}

	raw, err := fetch.ExtractText(data)
	if err != nil {
		log.Error("text extraction failed", zap.Error(err))
		return 1
	}

	pipeline := ingest.NewPipeline(repo, log)
	outcome, err := pipeline.Run(ctx, raw, cfg.Law.ID, cfg.Law.Name, time.Now().UTC())
	if err != nil {
		log.Error("ingestion run failed", zap.Error(err))
		return 1
	}

	for _, failure := range outcome.Failed {
		log.Warn("article not ingested",
			zap.String("run_id", outcome.RunID),
			zap.String("article", failure.ArticleNumber),
			zap.String("reason", failure.Reason),
		)
	}

	if outcome.Succeeded == 0 {
		log.Error("no articles ingested", zap.String("run_id", outcome.RunID))
		return 1
	}
	return 0
}
