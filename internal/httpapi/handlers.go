package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"claro-backend/internal/domain"
	"claro-backend/internal/service"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20 // 1 MiB

// VersionLister is the export read path.
type VersionLister interface {
	ListVersions(ctx context.Context, lawID string) ([]domain.VersionRecord, error)
	Ping(ctx context.Context) error
}

// Searcher mirrors the engine contract for the raw-search endpoint.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Handler serves the public API endpoints.
type Handler struct {
	ask          *service.AskService
	searcher     Searcher
	versions     VersionLister
	defaultLawID string
	logger       *zap.Logger
}

func NewHandler(ask *service.AskService, searcher Searcher, versions VersionLister, defaultLawID string, logger *zap.Logger) *Handler {
	return &Handler{
		ask:          ask,
		searcher:     searcher,
		versions:     versions,
		defaultLawID: defaultLawID,
		logger:       logger,
	}
}

type askRequest struct {
	Query string `json:"query"`
}

// Ask handles POST /api/v1/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := readBodyJSON(r, maxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing 'query' parameter in request")
		return
	}

	h.logger.Info("received query", zap.String("query", req.Query))

	res, err := h.ask.Ask(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("ask failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to answer query")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Search handles POST /api/v1/search: raw ranked matches, no answer
// generation. Zero matches are a 200 with an empty list.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := readBodyJSON(r, maxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing 'query' parameter in request")
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ExportVersions handles GET /api/v1/export?law_id=...: the full version
// history of a law as an xlsx workbook.
func (h *Handler) ExportVersions(w http.ResponseWriter, r *http.Request) {
	lawID := r.URL.Query().Get("law_id")
	if lawID == "" {
		lawID = h.defaultLawID
	}

	records, err := h.versions.ListVersions(r.Context(), lawID)
	if err != nil {
		h.logger.Error("version export failed", zap.String("law_id", lawID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export versions")
		return
	}

	data, err := GenerateVersionHistoryExport(records)
	if err != nil {
		h.logger.Error("version export workbook failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build export file")
		return
	}

	filename := fmt.Sprintf("%s_article_versions_%s.xlsx", lawID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.versions.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "reason": "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
