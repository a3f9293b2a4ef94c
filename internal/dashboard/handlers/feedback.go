package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

type FeedbackHandler struct {
	db  *database.DB
	log *zap.Logger
}

func NewFeedbackHandler(db *database.DB, log *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{db: db, log: log}
}

type createFeedbackRequest struct {
	TraceID int64  `json:"trace_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create attaches a rating to a trace the caller can see.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	if req.TraceID <= 0 {
		fields["trace_id"] = "trace_id is required"
	}
	if req.Rating < 1 || req.Rating > 5 {
		fields["rating"] = "rating must be between 1 and 5"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	// The target trace must be visible to the caller.
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	if _, err := h.db.GetTrace(r.Context(), scope, req.TraceID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return
		}
		h.log.Error("failed to load trace for feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	fb := &models.Feedback{
		TraceID: req.TraceID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.db.InsertFeedback(r.Context(), fb); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return
		}
		h.log.Error("failed to save feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	writeJSON(w, http.StatusCreated, fb)
}

// ListForTrace returns all feedback on one visible trace, newest first.
func (h *FeedbackHandler) ListForTrace(w http.ResponseWriter, r *http.Request) {
	traceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trace id")
		return
	}

	scope := rbac.ScopeFor(IdentityFrom(r.Context()))
	if _, err := h.db.GetTrace(r.Context(), scope, traceID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return
		}
		h.log.Error("failed to load trace", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}

	feedback, err := h.db.ListFeedback(r.Context(), traceID)
	if err != nil {
		h.log.Error("failed to load feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"feedback": feedback})
}
