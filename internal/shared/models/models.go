package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TraceStatus is the outcome of a single LLM call attempt.
type TraceStatus string

const (
	TraceStatusSuccess TraceStatus = "success"
	TraceStatusError   TraceStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s TraceStatus) Valid() bool {
	return s == TraceStatusSuccess || s == TraceStatusError
}

// Trace is one recorded LLM call attempt. Rows are immutable once written;
// the only mutation path is the RBAC-scoped bulk delete.
type Trace struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	ModelName    string          `json:"model_name"`
	Prompt       string          `json:"prompt"`
	Response     string          `json:"response"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	TotalTokens  int             `json:"total_tokens"`
	LatencyMs    float64         `json:"latency_ms"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
	Status       TraceStatus     `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	RequestID    *string         `json:"request_id,omitempty"`
	UserID       *int64          `json:"user_id,omitempty"`
}

// LatencyStatus buckets latency for UI color coding.
func (t *Trace) LatencyStatus() string {
	switch {
	case t.LatencyMs < 500:
		return "good"
	case t.LatencyMs < 1000:
		return "warning"
	default:
		return "critical"
	}
}

// Feedback is a user rating attached to a trace. Deleted with its parent.
type Feedback struct {
	ID        int64     `json:"id"`
	TraceID   int64     `json:"trace_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// APIConfig is the singleton (row id=1) vendor configuration. The stored key
// is AES-256-GCM encrypted; IsActive is true iff a key is set.
type APIConfig struct {
	ID              int64
	APIKeyEncrypted string
	IsActive        bool
	DefaultModel    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is the authenticated caller extracted from a bearer token.
// A nil *Identity means anonymous.
type Identity struct {
	ID        int64
	Username  string
	Superuser bool
}
