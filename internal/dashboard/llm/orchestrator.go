package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/pricing"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/crypto"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/metrics"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// ErrNotConfigured is the failure reported when no valid vendor credential
// is stored.
var ErrNotConfigured = fmt.Errorf("Groq API key not configured. Please configure in Settings")

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7

	// connectionProbePrompt is the minimal request used to verify a stored
	// credential actually works.
	connectionProbePrompt = "Say 'API connection successful!' in exactly those words."
)

// ConfigSource loads the stored vendor configuration.
type ConfigSource interface {
	GetConfig(ctx context.Context) (*models.APIConfig, error)
}

// CallOptions describe one orchestrated LLM call.
type CallOptions struct {
	Prompt       string
	Model        string // empty: stored default, then compiled-in fallback
	SystemPrompt string
	MaxTokens    int     // <=0: defaultMaxTokens
	Temperature  float32 // <0: defaultTemperature
	AutoLog      bool
	User         *models.Identity
}

// CallResult is the outcome returned to callers. Failures are results, not
// errors: the orchestrator never propagates vendor failures as Go errors.
type CallResult struct {
	Success      bool            `json:"success"`
	Response     string          `json:"response"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	TotalTokens  int             `json:"total_tokens"`
	LatencyMs    float64         `json:"latency_ms"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
	Model        string          `json:"model"`
	Error        string          `json:"error,omitempty"`
	TraceID      int64           `json:"trace_id,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
}

// Orchestrator executes one LLM call attempt and guarantees exactly one
// recorded trace per attempt when auto-logging is on, for every path:
// missing credential, vendor success and vendor failure.
type Orchestrator struct {
	config   ConfigSource
	cipher   *crypto.Cipher
	recorder *Recorder
	baseURL  string
	log      *zap.Logger

	// newClient is swapped in tests to avoid real network calls.
	newClient func(apiKey string) ChatClient
}

// NewOrchestrator wires the orchestrator. baseURL is the vendor endpoint.
func NewOrchestrator(config ConfigSource, cipher *crypto.Cipher, recorder *Recorder, baseURL string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		config:   config,
		cipher:   cipher,
		recorder: recorder,
		baseURL:  baseURL,
		log:      log,
		newClient: func(apiKey string) ChatClient {
			return NewClient(apiKey, baseURL)
		},
	}
}

// resolveCredential returns the decrypted vendor key, or "" when none is
// usable.
func (o *Orchestrator) resolveCredential(cfg *models.APIConfig) string {
	if cfg == nil || !cfg.IsActive || cfg.APIKeyEncrypted == "" {
		return ""
	}
	key, err := o.cipher.Decrypt(cfg.APIKeyEncrypted)
	if err != nil {
		o.log.Warn("stored API key cannot be decrypted", zap.Error(err))
		return ""
	}
	return key
}

// Call executes one attempt. See CallOptions/CallResult for the contract.
func (o *Orchestrator) Call(ctx context.Context, opts CallOptions) *CallResult {
	cfg, err := o.config.GetConfig(ctx)
	if err != nil {
		o.log.Error("failed to load configuration", zap.Error(err))
		cfg = nil
	}

	model := opts.Model
	if model == "" && cfg != nil {
		model = cfg.DefaultModel
	}
	if model == "" {
		model = pricing.DefaultModel
	}

	result := &CallResult{
		Model:   model,
		CostUSD: decimal.Zero,
	}

	apiKey := o.resolveCredential(cfg)
	if apiKey == "" {
		result.Error = ErrNotConfigured.Error()
		result.InputTokens = EstimateTokens(opts.Prompt)
		o.recordAttempt(ctx, opts, result)
		return result
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := opts.Temperature
	if temperature < 0 {
		temperature = defaultTemperature
	}

	client := o.newClient(apiKey)

	start := time.Now()
	resp, err := client.ChatCompletion(ctx, ChatRequest{
		Model:        model,
		Prompt:       opts.Prompt,
		SystemPrompt: opts.SystemPrompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	latency := time.Since(start)
	result.LatencyMs = float64(latency.Microseconds()) / 1000

	metrics.LLMLatency.WithLabelValues(model).Observe(latency.Seconds())

	if err != nil {
		result.Error = err.Error()
		result.InputTokens = EstimateTokens(opts.Prompt)
		o.recordAttempt(ctx, opts, result)
		o.log.Error("LLM call failed", zap.String("model", model), zap.Error(err))
		return result
	}

	result.Success = true
	result.Response = resp.Content
	result.InputTokens = resp.PromptTokens
	result.OutputTokens = resp.CompletionTokens
	result.TotalTokens = resp.TotalTokens
	result.RequestID = resp.RequestID
	result.CostUSD = pricing.Cost(model, resp.PromptTokens, resp.CompletionTokens)

	o.recordAttempt(ctx, opts, result)

	o.log.Info("LLM call successful",
		zap.String("model", model),
		zap.Int("tokens", result.TotalTokens),
		zap.Float64("latency_ms", result.LatencyMs),
	)
	return result
}

// recordAttempt writes exactly one trace for the attempt when auto-logging
// is requested, and updates the call metrics either way.
func (o *Orchestrator) recordAttempt(ctx context.Context, opts CallOptions, result *CallResult) {
	status := models.TraceStatusSuccess
	if !result.Success {
		status = models.TraceStatusError
	}

	metrics.LLMCalls.WithLabelValues(result.Model, string(status)).Inc()
	metrics.LLMTokens.WithLabelValues(result.Model, "input").Add(float64(result.InputTokens))
	metrics.LLMTokens.WithLabelValues(result.Model, "output").Add(float64(result.OutputTokens))

	if !opts.AutoLog {
		return
	}

	trace := &models.Trace{
		ModelName:    result.Model,
		Prompt:       opts.Prompt,
		Response:     result.Response,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		TotalTokens:  result.TotalTokens,
		LatencyMs:    result.LatencyMs,
		CostUSD:      result.CostUSD,
		Status:       status,
	}
	if result.Error != "" {
		trace.ErrorMessage = &result.Error
	}
	if result.RequestID != "" {
		trace.RequestID = &result.RequestID
	}
	if opts.User != nil {
		trace.UserID = &opts.User.ID
	}

	if err := o.recorder.Record(ctx, trace); err != nil {
		o.log.Error("failed to record trace", zap.Error(err))
		return
	}
	result.TraceID = trace.ID
}

// TestConnection issues a minimal real vendor call to confirm the stored
// credential works. Not auto-logged.
func (o *Orchestrator) TestConnection(ctx context.Context) (bool, string) {
	cfg, err := o.config.GetConfig(ctx)
	if err != nil {
		return false, fmt.Sprintf("Connection failed: %v", err)
	}

	apiKey := o.resolveCredential(cfg)
	if apiKey == "" {
		return false, "API key not configured"
	}

	model := cfg.DefaultModel
	if model == "" {
		model = pricing.DefaultModel
	}

	client := o.newClient(apiKey)
	resp, err := client.ChatCompletion(ctx, ChatRequest{
		Model:     model,
		Prompt:    connectionProbePrompt,
		MaxTokens: 20,
	})
	if err != nil {
		return false, fmt.Sprintf("Connection failed: %v", err)
	}

	return true, fmt.Sprintf("Connection successful with %s! Response: %s", model, resp.Content)
}
