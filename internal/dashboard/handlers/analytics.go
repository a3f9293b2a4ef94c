package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/analytics"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
)

// queryDays reads the day-window parameter. Only an absent or unparseable
// value falls back to the default; an explicit 0 stays 0 so the engine
// clamps it to the smallest window rather than widening it.
func queryDays(r *http.Request) int {
	v := r.URL.Query().Get("days")
	if v == "" {
		return analytics.DefaultWindowDays
	}
	days, err := strconv.Atoi(v)
	if err != nil {
		return analytics.DefaultWindowDays
	}
	return days
}

type AnalyticsHandler struct {
	engine *analytics.Engine
	log    *zap.Logger
}

func NewAnalyticsHandler(engine *analytics.Engine, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, log: log}
}

// Overview returns the headline dashboard aggregates for the caller's scope.
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))

	overview, err := h.engine.Overview(r.Context(), scope)
	if err != nil {
		h.log.Error("failed to compute overview", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute overview")
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// Charts returns every chart series for the requested day window.
func (h *AnalyticsHandler) Charts(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	days := queryDays(r)

	charts, err := h.engine.Charts(r.Context(), scope, days)
	if err != nil {
		h.log.Error("failed to compute charts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute charts")
		return
	}

	writeJSON(w, http.StatusOK, charts)
}

// ModelStats returns per-model request and cost aggregates.
func (h *AnalyticsHandler) ModelStats(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))

	stats, err := h.engine.ModelStats(r.Context(), scope, queryDays(r))
	if err != nil {
		h.log.Error("failed to compute model stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute model stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ErrorRate returns the bucketed error rate series.
func (h *AnalyticsHandler) ErrorRate(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))

	series, err := h.engine.ErrorRate(r.Context(), scope, queryDays(r))
	if err != nil {
		h.log.Error("failed to compute error rate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute error rate")
		return
	}

	writeJSON(w, http.StatusOK, series)
}
