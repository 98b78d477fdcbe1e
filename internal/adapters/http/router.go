package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/scholar-rag/internal/config"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/observability/metrics"
)

const (
	serviceName      = "api"
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 1 << 20
)

type Router struct {
	cfg      config.Config
	ingestUC ports.PaperIngestor
	queryUC  ports.QuestionAnswerer
	papers   ports.PaperReader
	stats    ports.StatsReader
	metrics  *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.PaperIngestor,
	queryUC ports.QuestionAnswerer,
	papers ports.PaperReader,
	stats ports.StatsReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		ingestUC: ingestUC,
		queryUC:  queryUC,
		papers:   papers,
		stats:    stats,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("POST /v1/ingest", rt.ingest)
	mux.HandleFunc("GET /v1/papers", rt.listPapers)
	mux.HandleFunc("GET /v1/papers/{source_id}", rt.getPaper)
	mux.HandleFunc("GET /v1/store/stats", rt.storeStats)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.HTTPMaxInFlight, rt.cfg.HTTPBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.HTTPRateLimitRPS, rt.cfg.HTTPRateLimitBurst, rt.onRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onRateLimited(r *http.Request) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	started := time.Now()
	result, err := rt.queryUC.Ask(ctx, req.Question)
	if rt.metrics != nil {
		sources, indexed := 0, 0
		if result != nil {
			sources, indexed = len(result.Sources), len(result.PapersIndexed)
		}
		rt.metrics.RecordQuery(serviceName, "query", sources, indexed, time.Since(started), err)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, r, http.StatusBadRequest, "topic is required")
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result, err := rt.ingestUC.Ingest(ctx, req.Topic)
	if rt.metrics != nil {
		indexed := 0
		if result != nil {
			indexed = len(result.Indexed)
		}
		rt.metrics.RecordIngest(serviceName, indexed, err)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listPapers(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	papers, err := rt.papers.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers, "count": len(papers)})
}

// getPaper expects the source id URL-escaped into a single path segment.
func (rt *Router) getPaper(w http.ResponseWriter, r *http.Request) {
	sourceID := strings.TrimSpace(r.PathValue("source_id"))
	if sourceID == "" {
		writeError(w, r, http.StatusBadRequest, "source id is required")
		return
	}

	paper, err := rt.papers.GetBySourceID(r.Context(), sourceID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

func (rt *Router) storeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.stats.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if rt.cfg.HTTPRequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), rt.cfg.HTTPRequestTimeout)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeError(w, r, status, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
