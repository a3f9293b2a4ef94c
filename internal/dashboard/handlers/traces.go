package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/cache"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/llm"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100

	defaultRecentLimit = 10
	maxRecentLimit     = 50

	defaultSearchLimit = 25
	maxSearchLimit     = 100
)

type TracesHandler struct {
	db       *database.DB
	recorder *llm.Recorder
	cache    *cache.Cache
	log      *zap.Logger
}

func NewTracesHandler(db *database.DB, recorder *llm.Recorder, c *cache.Cache, log *zap.Logger) *TracesHandler {
	return &TracesHandler{db: db, recorder: recorder, cache: c, log: log}
}

// clampLimit normalizes a requested row limit to [1, max], falling back to
// def when the input is zero.
func clampLimit(v, def, max int) int {
	if v == 0 {
		return def
	}
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func filterFromQuery(r *http.Request) database.TraceFilter {
	q := r.URL.Query()
	return database.TraceFilter{
		Status:    q.Get("status"),
		Model:     q.Get("model"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Search:    q.Get("search"),
	}
}

// List returns one page of scoped traces with the filter from the query
// string.
func (h *TracesHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))

	page := queryInt(r, "page")
	if page < 1 {
		page = 1
	}
	pageSize := clampLimit(queryInt(r, "page_size"), defaultPageSize, maxPageSize)

	traces, total, err := h.db.ListTraces(r.Context(), scope, filterFromQuery(r), page, pageSize)
	if err != nil {
		h.log.Error("failed to list traces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traces":      traces,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})
}

type createTraceRequest struct {
	ModelName    string  `json:"model_name"`
	Prompt       string  `json:"prompt"`
	Response     string  `json:"response"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	LatencyMs    float64 `json:"latency_ms"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
}

func (req *createTraceRequest) validate() map[string]string {
	fields := map[string]string{}
	if req.ModelName == "" {
		fields["model_name"] = "model_name is required"
	}
	if req.Status != "" && !models.TraceStatus(req.Status).Valid() {
		fields["status"] = "status must be 'success' or 'error'"
	}
	if req.InputTokens < 0 {
		fields["input_tokens"] = "input_tokens must not be negative"
	}
	if req.OutputTokens < 0 {
		fields["output_tokens"] = "output_tokens must not be negative"
	}
	if req.LatencyMs < 0 {
		fields["latency_ms"] = "latency_ms must not be negative"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// Create logs one externally-observed call. Cost is computed from the
// pricing table for successful traces.
func (h *TracesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields := req.validate(); fields != nil {
		writeValidationError(w, fields)
		return
	}

	status := models.TraceStatus(req.Status)
	if status == "" {
		status = models.TraceStatusSuccess
	}

	trace := &models.Trace{
		ModelName:    req.ModelName,
		Prompt:       req.Prompt,
		Response:     req.Response,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
		LatencyMs:    req.LatencyMs,
		Status:       status,
	}
	if req.ErrorMessage != "" {
		trace.ErrorMessage = &req.ErrorMessage
	}
	if id := IdentityFrom(r.Context()); id != nil {
		trace.UserID = &id.ID
	}

	if err := h.recorder.Record(r.Context(), trace); err != nil {
		h.log.Error("failed to create trace", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create trace")
		return
	}

	writeJSON(w, http.StatusCreated, trace)
}

// Get returns one trace by id within the caller's scope.
func (h *TracesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trace id")
		return
	}

	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	trace, err := h.db.GetTrace(r.Context(), scope, id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load trace", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load trace")
		return
	}

	writeJSON(w, http.StatusOK, trace)
}

// Recent returns the newest traces within scope, cached per scope.
func (h *TracesHandler) Recent(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	limit := clampLimit(queryInt(r, "limit"), defaultRecentLimit, maxRecentLimit)

	// Key per (scope, limit) so different limits do not evict each other.
	suffix := scope.CacheSuffix() + ":" + strconv.Itoa(limit)

	type recentPayload struct {
		Traces []models.Trace `json:"traces"`
		Limit  int            `json:"limit"`
	}

	var cached recentPayload
	if h.cache.Get(r.Context(), cache.EntryRecent, suffix, &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	traces, err := h.db.RecentTraces(r.Context(), scope, limit)
	if err != nil {
		h.log.Error("failed to load recent traces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load recent traces")
		return
	}

	payload := recentPayload{Traces: traces, Limit: limit}
	h.cache.Set(r.Context(), cache.EntryRecent, suffix, payload)
	writeJSON(w, http.StatusOK, payload)
}

// Search matches the query against prompt, response and model name. An empty
// query returns an empty result set rather than everything.
func (h *TracesHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := clampLimit(queryInt(r, "limit"), defaultSearchLimit, maxSearchLimit)

	if q == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"traces": []models.Trace{},
			"query":  q,
		})
		return
	}

	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	traces, err := h.db.SearchTraces(r.Context(), scope, q, limit)
	if err != nil {
		h.log.Error("trace search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "trace search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traces": traces,
		"query":  q,
	})
}

// Clear deletes every trace visible to the caller. Requires authentication;
// ordinary users clear only their own rows.
func (h *TracesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	scope := rbac.ScopeFor(identity)
	deleted, err := h.db.DeleteTraces(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to clear traces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear traces")
		return
	}

	h.cache.Invalidate(r.Context())
	h.log.Info("cleared traces",
		zap.Int64("deleted", deleted),
		zap.String("user", identity.Username),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}
