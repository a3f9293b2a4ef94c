package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OverviewRow is the single-pass aggregate backing the dashboard overview.
type OverviewRow struct {
	TotalAll      int
	TotalToday    int
	TotalWeek     int
	TotalMonth    int
	SuccessCount  int
	ErrorCount    int
	TotalTokens   int64
	InputTokens   int64
	OutputTokens  int64
	TotalCost     decimal.Decimal
	AvgLatencyMs  float64
}

// ModelCount is a per-model request count.
type ModelCount struct {
	ModelName string `json:"model_name"`
	Count     int    `json:"count"`
}

// TokenBucket is one time bucket of token sums.
type TokenBucket struct {
	Period       time.Time `json:"period"`
	TotalTokens  int64     `json:"total_tokens"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Requests     int       `json:"requests"`
}

// LatencyBucket is one time bucket of average latency.
type LatencyBucket struct {
	Period       time.Time `json:"period"`
	AvgLatencyMs float64   `json:"avg_latency"`
}

// ErrorBucket is one time bucket of error counts.
type ErrorBucket struct {
	Period time.Time
	Total  int
	Errors int
}

// ModelCost is per-model summed cost and usage.
type ModelCost struct {
	ModelName   string          `json:"model_name"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	TotalTokens int64           `json:"total_tokens"`
	Requests    int             `json:"requests"`
}

// HourCount is a request count for one hour of the day (0-23).
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Overview computes the headline aggregates for the scope in one scan.
// today/week/month boundaries are supplied by the caller so the result is a
// pure function of (now, scope, data).
func (db *DB) Overview(ctx context.Context, scope RowScope, todayStart, weekStart, monthStart time.Time) (*OverviewRow, error) {
	pred, args := scope.Predicate(4)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE timestamp >= $1),
			COUNT(*) FILTER (WHERE timestamp >= $2),
			COUNT(*) FILTER (WHERE timestamp >= $3),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'error'),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost_usd), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM llm_traces WHERE %s`, pred)

	var row OverviewRow
	err := db.conn.QueryRowContext(ctx, query,
		append([]interface{}{todayStart, weekStart, monthStart}, args...)...,
	).Scan(
		&row.TotalAll,
		&row.TotalToday,
		&row.TotalWeek,
		&row.TotalMonth,
		&row.SuccessCount,
		&row.ErrorCount,
		&row.TotalTokens,
		&row.InputTokens,
		&row.OutputTokens,
		&row.TotalCost,
		&row.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &row, nil
}

// TopModels returns the top n models by request count within scope.
// Ties break on model name ascending so the ranking is deterministic.
func (db *DB) TopModels(ctx context.Context, scope RowScope, n int) ([]ModelCount, error) {
	pred, args := scope.Predicate(1)
	query := fmt.Sprintf(`
		SELECT model_name, COUNT(*) AS count
		FROM llm_traces WHERE %s
		GROUP BY model_name
		ORDER BY count DESC, model_name ASC
		LIMIT $%d`, pred, len(args)+1)

	rows, err := db.conn.QueryContext(ctx, query, append(args, n)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []ModelCount{}
	for rows.Next() {
		var mc ModelCount
		if err := rows.Scan(&mc.ModelName, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan model count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// TokensOverTime buckets token sums by bucket ("hour" or "day") since the
// given time, within scope.
func (db *DB) TokensOverTime(ctx context.Context, scope RowScope, since time.Time, bucket string) ([]TokenBucket, error) {
	pred, args := scope.Predicate(3)
	query := fmt.Sprintf(`
		SELECT date_trunc($1, timestamp) AS period,
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COUNT(*)
		FROM llm_traces
		WHERE timestamp >= $2 AND %s
		GROUP BY period ORDER BY period`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{bucket, since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []TokenBucket{}
	for rows.Next() {
		var b TokenBucket
		if err := rows.Scan(&b.Period, &b.TotalTokens, &b.InputTokens, &b.OutputTokens, &b.Requests); err != nil {
			return nil, fmt.Errorf("failed to scan token bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatencyTrends buckets average latency by bucket since the given time.
func (db *DB) LatencyTrends(ctx context.Context, scope RowScope, since time.Time, bucket string) ([]LatencyBucket, error) {
	pred, args := scope.Predicate(3)
	query := fmt.Sprintf(`
		SELECT date_trunc($1, timestamp) AS period,
			COALESCE(AVG(latency_ms), 0)
		FROM llm_traces
		WHERE timestamp >= $2 AND %s
		GROUP BY period ORDER BY period`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{bucket, since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []LatencyBucket{}
	for rows.Next() {
		var b LatencyBucket
		if err := rows.Scan(&b.Period, &b.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan latency bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ErrorsOverTime buckets total and error counts by bucket since the given
// time.
func (db *DB) ErrorsOverTime(ctx context.Context, scope RowScope, since time.Time, bucket string) ([]ErrorBucket, error) {
	pred, args := scope.Predicate(3)
	query := fmt.Sprintf(`
		SELECT date_trunc($1, timestamp) AS period,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'error')
		FROM llm_traces
		WHERE timestamp >= $2 AND %s
		GROUP BY period ORDER BY period`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{bucket, since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []ErrorBucket{}
	for rows.Next() {
		var b ErrorBucket
		if err := rows.Scan(&b.Period, &b.Total, &b.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan error bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CostByModel sums cost and usage per model since the given time, most
// expensive first (model name ascending on ties).
func (db *DB) CostByModel(ctx context.Context, scope RowScope, since time.Time) ([]ModelCost, error) {
	pred, args := scope.Predicate(2)
	query := fmt.Sprintf(`
		SELECT model_name,
			COALESCE(SUM(cost_usd), 0) AS total_cost,
			COALESCE(SUM(total_tokens), 0),
			COUNT(*)
		FROM llm_traces
		WHERE timestamp >= $1 AND %s
		GROUP BY model_name
		ORDER BY total_cost DESC, model_name ASC`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []ModelCost{}
	for rows.Next() {
		var mc ModelCost
		if err := rows.Scan(&mc.ModelName, &mc.TotalCost, &mc.TotalTokens, &mc.Requests); err != nil {
			return nil, fmt.Errorf("failed to scan model cost: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// RequestsByModel counts requests per model since the given time, busiest
// first (model name ascending on ties).
func (db *DB) RequestsByModel(ctx context.Context, scope RowScope, since time.Time) ([]ModelCount, error) {
	pred, args := scope.Predicate(2)
	query := fmt.Sprintf(`
		SELECT model_name, COUNT(*) AS count
		FROM llm_traces
		WHERE timestamp >= $1 AND %s
		GROUP BY model_name
		ORDER BY count DESC, model_name ASC`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []ModelCount{}
	for rows.Next() {
		var mc ModelCount
		if err := rows.Scan(&mc.ModelName, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan model count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// RequestsByHour counts requests per hour of day (0-23) regardless of date,
// since the given time. Ascending by hour for the heatmap.
func (db *DB) RequestsByHour(ctx context.Context, scope RowScope, since time.Time) ([]HourCount, error) {
	pred, args := scope.Predicate(2)
	query := fmt.Sprintf(`
		SELECT EXTRACT(HOUR FROM timestamp)::int AS hour, COUNT(*)
		FROM llm_traces
		WHERE timestamp >= $1 AND %s
		GROUP BY hour ORDER BY hour`, pred)

	rows, err := db.conn.QueryContext(ctx, query, append([]interface{}{since}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	out := []HourCount{}
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hour count: %w", err)
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}
