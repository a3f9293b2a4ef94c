package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/llm"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/pricing"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/crypto"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
)

// apiKeyPrefix is the expected shape of a Groq key.
const apiKeyPrefix = "gsk_"

type SettingsHandler struct {
	db           *database.DB
	cipher       *crypto.Cipher
	orchestrator *llm.Orchestrator
	log          *zap.Logger
}

func NewSettingsHandler(db *database.DB, cipher *crypto.Cipher, orchestrator *llm.Orchestrator, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{db: db, cipher: cipher, orchestrator: orchestrator, log: log}
}

// MaskKey hides the middle of a credential, keeping the first and last four
// characters. Short keys are fully masked.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// GetConfig reports the stored configuration with the key masked. The
// plaintext credential never leaves the server.
func (h *SettingsHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.db.GetConfig(r.Context())
	if err != nil {
		h.log.Error("failed to load configuration", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load configuration")
		return
	}

	masked := ""
	if cfg.APIKeyEncrypted != "" {
		key, err := h.cipher.Decrypt(cfg.APIKeyEncrypted)
		if err != nil {
			h.log.Warn("stored API key cannot be decrypted", zap.Error(err))
		} else {
			masked = MaskKey(key)
		}
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = pricing.DefaultModel
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"api_key_masked": masked,
		"is_active":      cfg.IsActive,
		"default_model":  defaultModel,
		"updated_at":     cfg.UpdatedAt,
	})
}

type setAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// SetAPIKey stores a new vendor key encrypted at rest.
func (h *SettingsHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req setAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeValidationError(w, map[string]string{"api_key": "api_key is required"})
		return
	}
	if !strings.HasPrefix(key, apiKeyPrefix) {
		writeValidationError(w, map[string]string{"api_key": "api_key must start with 'gsk_'"})
		return
	}

	encrypted, err := h.cipher.Encrypt(key)
	if err != nil {
		h.log.Error("failed to encrypt API key", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}

	if err := h.db.SetAPIKey(r.Context(), encrypted); err != nil {
		h.log.Error("failed to store API key", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}

	h.log.Info("API key updated")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "API key saved",
		"api_key_masked": MaskKey(key),
	})
}

// TestConnection issues a live probe call with the stored credential.
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	ok, message := h.orchestrator.TestConnection(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]interface{}{
		"success": ok,
		"message": message,
	})
}

// Models lists the supported models with their pricing.
func (h *SettingsHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  pricing.Models(),
		"default": pricing.DefaultModel,
	})
}

type setDefaultModelRequest struct {
	Model string `json:"model"`
}

// SetDefaultModel updates the model used when a call names none.
func (h *SettingsHandler) SetDefaultModel(w http.ResponseWriter, r *http.Request) {
	var req setDefaultModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Model == "" {
		writeValidationError(w, map[string]string{"model": "model is required"})
		return
	}

	if err := h.db.SetDefaultModel(r.Context(), req.Model); err != nil {
		h.log.Error("failed to update default model", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update default model")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "default model updated",
		"default_model": req.Model,
	})
}
