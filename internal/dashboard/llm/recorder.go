package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/pricing"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// TraceWriter is the persistence surface the recorder needs.
type TraceWriter interface {
	InsertTrace(ctx context.Context, t *models.Trace) error
}

// Invalidator drops derived aggregate caches after a write.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Recorder persists traces. It is the single write path for call attempts:
// every successful insert invalidates the dashboard caches so aggregates
// reflect the new row.
type Recorder struct {
	store       TraceWriter
	invalidator Invalidator
	log         *zap.Logger
}

// NewRecorder wires the recorder.
func NewRecorder(store TraceWriter, invalidator Invalidator, log *zap.Logger) *Recorder {
	return &Recorder{store: store, invalidator: invalidator, log: log}
}

// Record computes the cost when the caller left it zero, persists the trace
// and invalidates the dashboard caches. The trace gets its id and, if unset,
// timestamp assigned by the store.
func (r *Recorder) Record(ctx context.Context, t *models.Trace) error {
	if t.CostUSD.IsZero() && t.Status == models.TraceStatusSuccess {
		t.CostUSD = pricing.Cost(t.ModelName, t.InputTokens, t.OutputTokens)
	}

	if err := r.store.InsertTrace(ctx, t); err != nil {
		return err
	}

	r.invalidator.Invalidate(ctx)
	return nil
}
