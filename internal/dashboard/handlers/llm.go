package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/llm"
)

type LLMHandler struct {
	orchestrator *llm.Orchestrator
	log          *zap.Logger
}

func NewLLMHandler(orchestrator *llm.Orchestrator, log *zap.Logger) *LLMHandler {
	return &LLMHandler{orchestrator: orchestrator, log: log}
}

type testCallRequest struct {
	Prompt       string   `json:"prompt"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	MaxTokens    int      `json:"max_tokens"`
	Temperature  *float32 `json:"temperature"`
	AutoLog      *bool    `json:"auto_log"`
}

// TestCall runs one orchestrated call against the configured vendor. The
// attempt is auto-logged unless the caller opts out; failures come back as
// a result payload, not an HTTP error.
func (h *LLMHandler) TestCall(w http.ResponseWriter, r *http.Request) {
	var req testCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeValidationError(w, map[string]string{"prompt": "prompt is required"})
		return
	}

	// Absent temperature means "use the default", which a zero value
	// cannot express.
	temperature := float32(-1)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	autoLog := true
	if req.AutoLog != nil {
		autoLog = *req.AutoLog
	}

	result := h.orchestrator.Call(r.Context(), llm.CallOptions{
		Prompt:       req.Prompt,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  temperature,
		AutoLog:      autoLog,
		User:         IdentityFrom(r.Context()),
	})

	writeJSON(w, http.StatusOK, result)
}
