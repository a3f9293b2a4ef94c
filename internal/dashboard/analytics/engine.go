// Package analytics composes the trace aggregates behind the dashboard.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/cache"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
)

const (
	// DefaultWindowDays is the chart window used when a request names none.
	DefaultWindowDays = 7

	maxWindowDays = 90
	topModelCount = 5
)

// Store is the aggregate query surface the engine composes.
type Store interface {
	Overview(ctx context.Context, scope database.RowScope, todayStart, weekStart, monthStart time.Time) (*database.OverviewRow, error)
	TopModels(ctx context.Context, scope database.RowScope, n int) ([]database.ModelCount, error)
	TokensOverTime(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.TokenBucket, error)
	LatencyTrends(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.LatencyBucket, error)
	ErrorsOverTime(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.ErrorBucket, error)
	CostByModel(ctx context.Context, scope database.RowScope, since time.Time) ([]database.ModelCost, error)
	RequestsByModel(ctx context.Context, scope database.RowScope, since time.Time) ([]database.ModelCount, error)
	RequestsByHour(ctx context.Context, scope database.RowScope, since time.Time) ([]database.HourCount, error)
}

// Overview is the headline dashboard payload.
type Overview struct {
	TotalRequests  int                   `json:"total_requests"`
	RequestsToday  int                   `json:"requests_today"`
	RequestsWeek   int                   `json:"requests_week"`
	RequestsMonth  int                   `json:"requests_month"`
	SuccessCount   int                   `json:"success_count"`
	ErrorCount     int                   `json:"error_count"`
	SuccessRate    float64               `json:"success_rate"`
	ErrorRate      float64               `json:"error_rate"`
	TotalTokens    int64                 `json:"total_tokens"`
	InputTokens    int64                 `json:"input_tokens"`
	OutputTokens   int64                 `json:"output_tokens"`
	TotalCost      decimal.Decimal       `json:"total_cost"`
	AvgLatencyMs   float64               `json:"avg_latency_ms"`
	TopModels      []database.ModelCount `json:"top_models"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// ErrorRatePoint is one bucket of the error rate series.
type ErrorRatePoint struct {
	Period    time.Time `json:"period"`
	Total     int       `json:"total"`
	Errors    int       `json:"errors"`
	ErrorRate float64   `json:"error_rate"`
}

// Charts bundles every chart series for one window.
type Charts struct {
	Days            int                      `json:"days"`
	Bucket          string                   `json:"bucket"`
	TokensOverTime  []database.TokenBucket   `json:"tokens_over_time"`
	LatencyTrends   []database.LatencyBucket `json:"latency_trends"`
	ErrorRates      []ErrorRatePoint         `json:"error_rates"`
	CostByModel     []database.ModelCost     `json:"cost_by_model"`
	RequestsByModel []database.ModelCount    `json:"requests_by_model"`
	RequestsByHour  []database.HourCount     `json:"requests_by_hour"`
}

// ModelStats groups the per-model aggregates for one window.
type ModelStats struct {
	Days            int                   `json:"days"`
	CostByModel     []database.ModelCost  `json:"cost_by_model"`
	RequestsByModel []database.ModelCount `json:"requests_by_model"`
}

// ErrorRateSeries is the bucketed error rate for one window.
type ErrorRateSeries struct {
	Days   int              `json:"days"`
	Bucket string           `json:"bucket"`
	Points []ErrorRatePoint `json:"points"`
}

// Engine computes scoped dashboard aggregates with a read-through cache.
type Engine struct {
	store Store
	cache *cache.Cache
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store Store, c *cache.Cache, log *zap.Logger) *Engine {
	return &Engine{store: store, cache: c, log: log, now: time.Now}
}

// ClampDays clamps a requested window to [1, 90] days. Zero and negative
// values clamp to the smallest window; callers that want a default for an
// absent parameter apply DefaultWindowDays before calling.
func ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

// windowSuffix keys cached window aggregates per (scope, days) so requests
// for different windows do not evict each other.
func windowSuffix(scopeSuffix string, days int) string {
	return fmt.Sprintf("%s:%d", scopeSuffix, days)
}

// BucketFor picks the series granularity: hourly buckets for a one-day
// window, daily otherwise.
func BucketFor(days int) string {
	if days <= 1 {
		return "hour"
	}
	return "day"
}

// Rate returns part/total as a percentage, 0 when total is 0.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Overview returns the headline aggregates for the scope, cached per scope.
func (e *Engine) Overview(ctx context.Context, scope rbac.Scope) (*Overview, error) {
	suffix := scope.CacheSuffix()

	var cached Overview
	if e.cache.Get(ctx, cache.EntryOverview, suffix, &cached) {
		return &cached, nil
	}

	// "Today" is the server's local calendar day; the trailing week and
	// month windows are location-independent.
	now := e.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, 0, -30)

	row, err := e.store.Overview(ctx, scope, todayStart, weekStart, monthStart)
	if err != nil {
		return nil, err
	}

	top, err := e.store.TopModels(ctx, scope, topModelCount)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		TotalRequests: row.TotalAll,
		RequestsToday: row.TotalToday,
		RequestsWeek:  row.TotalWeek,
		RequestsMonth: row.TotalMonth,
		SuccessCount:  row.SuccessCount,
		ErrorCount:    row.ErrorCount,
		SuccessRate:   Rate(row.SuccessCount, row.TotalAll),
		ErrorRate:     Rate(row.ErrorCount, row.TotalAll),
		TotalTokens:   row.TotalTokens,
		InputTokens:   row.InputTokens,
		OutputTokens:  row.OutputTokens,
		TotalCost:     row.TotalCost,
		AvgLatencyMs:  row.AvgLatencyMs,
		TopModels:     top,
		GeneratedAt:   now,
	}

	e.cache.Set(ctx, cache.EntryOverview, suffix, overview)
	return overview, nil
}

// Charts returns every chart series for the requested window, cached per
// (scope, window).
func (e *Engine) Charts(ctx context.Context, scope rbac.Scope, days int) (*Charts, error) {
	days = ClampDays(days)
	bucket := BucketFor(days)
	suffix := windowSuffix(scope.CacheSuffix(), days)

	var cached Charts
	if e.cache.Get(ctx, cache.EntryCharts, suffix, &cached) {
		return &cached, nil
	}

	since := e.now().UTC().AddDate(0, 0, -days)

	tokens, err := e.store.TokensOverTime(ctx, scope, since, bucket)
	if err != nil {
		return nil, err
	}
	latency, err := e.store.LatencyTrends(ctx, scope, since, bucket)
	if err != nil {
		return nil, err
	}
	errBuckets, err := e.store.ErrorsOverTime(ctx, scope, since, bucket)
	if err != nil {
		return nil, err
	}
	costs, err := e.store.CostByModel(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	byModel, err := e.store.RequestsByModel(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	byHour, err := e.store.RequestsByHour(ctx, scope, since)
	if err != nil {
		return nil, err
	}

	rates := make([]ErrorRatePoint, 0, len(errBuckets))
	for _, b := range errBuckets {
		rates = append(rates, ErrorRatePoint{
			Period:    b.Period,
			Total:     b.Total,
			Errors:    b.Errors,
			ErrorRate: Rate(b.Errors, b.Total),
		})
	}

	charts := &Charts{
		Days:            days,
		Bucket:          bucket,
		TokensOverTime:  tokens,
		LatencyTrends:   latency,
		ErrorRates:      rates,
		CostByModel:     costs,
		RequestsByModel: byModel,
		RequestsByHour:  byHour,
	}

	e.cache.Set(ctx, cache.EntryCharts, suffix, charts)
	return charts, nil
}

// ModelStats returns the per-model aggregates for the requested window,
// cached per (scope, window).
func (e *Engine) ModelStats(ctx context.Context, scope rbac.Scope, days int) (*ModelStats, error) {
	days = ClampDays(days)
	suffix := windowSuffix(scope.CacheSuffix(), days)

	var cached ModelStats
	if e.cache.Get(ctx, cache.EntryModelStats, suffix, &cached) {
		return &cached, nil
	}

	since := e.now().UTC().AddDate(0, 0, -days)

	costs, err := e.store.CostByModel(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	byModel, err := e.store.RequestsByModel(ctx, scope, since)
	if err != nil {
		return nil, err
	}

	stats := &ModelStats{Days: days, CostByModel: costs, RequestsByModel: byModel}
	e.cache.Set(ctx, cache.EntryModelStats, suffix, stats)
	return stats, nil
}

// ErrorRate returns the bucketed error rate for the requested window, cached
// per (scope, window).
func (e *Engine) ErrorRate(ctx context.Context, scope rbac.Scope, days int) (*ErrorRateSeries, error) {
	days = ClampDays(days)
	bucket := BucketFor(days)
	suffix := windowSuffix(scope.CacheSuffix(), days)

	var cached ErrorRateSeries
	if e.cache.Get(ctx, cache.EntryErrorRate, suffix, &cached) {
		return &cached, nil
	}

	since := e.now().UTC().AddDate(0, 0, -days)
	errBuckets, err := e.store.ErrorsOverTime(ctx, scope, since, bucket)
	if err != nil {
		return nil, err
	}

	points := make([]ErrorRatePoint, 0, len(errBuckets))
	for _, b := range errBuckets {
		points = append(points, ErrorRatePoint{
			Period:    b.Period,
			Total:     b.Total,
			Errors:    b.Errors,
			ErrorRate: Rate(b.Errors, b.Total),
		})
	}

	series := &ErrorRateSeries{Days: days, Bucket: bucket, Points: points}
	e.cache.Set(ctx, cache.EntryErrorRate, suffix, series)
	return series, nil
}
