package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// TraceFilter narrows trace listings and exports. Zero values mean "no
// filter". Dates are calendar days in YYYY-MM-DD form.
type TraceFilter struct {
	Status    string
	Model     string
	StartDate string
	EndDate   string
	Search    string
}

const traceColumns = `id, timestamp, model_name, prompt, response,
	input_tokens, output_tokens, total_tokens, latency_ms, cost_usd,
	status, error_message, request_id, user_id`

// InsertTrace persists one call attempt and assigns its id. The server
// assigns the timestamp when the caller leaves it zero, and derives
// total_tokens as input+output when it is zero.
func (db *DB) InsertTrace(ctx context.Context, t *models.Trace) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.TotalTokens == 0 {
		t.TotalTokens = t.InputTokens + t.OutputTokens
	}

	query := `
		INSERT INTO llm_traces (
			timestamp, model_name, prompt, response, input_tokens,
			output_tokens, total_tokens, latency_ms, cost_usd, status,
			error_message, request_id, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := db.conn.QueryRowContext(ctx, query,
		t.Timestamp,
		t.ModelName,
		t.Prompt,
		t.Response,
		t.InputTokens,
		t.OutputTokens,
		t.TotalTokens,
		t.LatencyMs,
		t.CostUSD,
		t.Status,
		t.ErrorMessage,
		t.RequestID,
		t.UserID,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert trace: %w", err)
	}
	return nil
}

// GetTrace returns one trace by id within scope. Rows outside the scope
// report ErrNotFound, indistinguishable from a missing row.
func (db *DB) GetTrace(ctx context.Context, scope RowScope, id int64) (*models.Trace, error) {
	pred, args := scope.Predicate(2)
	query := fmt.Sprintf(`SELECT %s FROM llm_traces WHERE id = $1 AND %s`, traceColumns, pred)

	row := db.conn.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...)
	t, err := scanTrace(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return t, nil
}

// ListTraces returns one page of scoped traces ordered newest first, plus
// the total row count for the filter.
func (db *DB) ListTraces(ctx context.Context, scope RowScope, f TraceFilter, page, pageSize int) ([]models.Trace, int, error) {
	where, args := buildTraceWhere(scope, f)

	var total int
	countQuery := `SELECT COUNT(*) FROM llm_traces WHERE ` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM llm_traces WHERE %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		traceColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	traces, err := db.queryTraces(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return traces, total, nil
}

// RecentTraces returns the newest limit traces within scope.
func (db *DB) RecentTraces(ctx context.Context, scope RowScope, limit int) ([]models.Trace, error) {
	pred, args := scope.Predicate(1)
	query := fmt.Sprintf(`SELECT %s FROM llm_traces WHERE %s ORDER BY timestamp DESC LIMIT $%d`,
		traceColumns, pred, len(args)+1)
	return db.queryTraces(ctx, query, append(args, limit)...)
}

// SearchTraces matches q case-insensitively against prompt, response and
// model name within scope, newest first.
func (db *DB) SearchTraces(ctx context.Context, scope RowScope, q string, limit int) ([]models.Trace, error) {
	pred, args := scope.Predicate(1)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM llm_traces
		WHERE %s AND (prompt ILIKE $%d OR response ILIKE $%d OR model_name ILIKE $%d)
		ORDER BY timestamp DESC LIMIT $%d`,
		traceColumns, pred, n+1, n+1, n+1, n+2)
	args = append(args, "%"+q+"%", limit)
	return db.queryTraces(ctx, query, args...)
}

// ExportTraces returns up to limit scoped traces for CSV export, newest
// first, honoring the same filters as listing.
func (db *DB) ExportTraces(ctx context.Context, scope RowScope, f TraceFilter, limit int) ([]models.Trace, error) {
	where, args := buildTraceWhere(scope, f)
	query := fmt.Sprintf(`SELECT %s FROM llm_traces WHERE %s ORDER BY timestamp DESC LIMIT $%d`,
		traceColumns, where, len(args)+1)
	return db.queryTraces(ctx, query, append(args, limit)...)
}

// DeleteTraces removes every trace visible to the scope and reports how many
// rows went away. Feedback rows cascade.
func (db *DB) DeleteTraces(ctx context.Context, scope RowScope) (int64, error) {
	pred, args := scope.Predicate(1)
	res, err := db.conn.ExecContext(ctx, `DELETE FROM llm_traces WHERE `+pred, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete traces: %w", err)
	}
	return res.RowsAffected()
}

// buildTraceWhere combines the scope predicate with the optional filters.
func buildTraceWhere(scope RowScope, f TraceFilter) (string, []interface{}) {
	pred, args := scope.Predicate(1)
	conds := []string{pred}

	add := func(cond string, vals ...interface{}) {
		conds = append(conds, fmt.Sprintf(cond, len(args)+1))
		args = append(args, vals...)
	}

	if f.Status == string(models.TraceStatusSuccess) || f.Status == string(models.TraceStatusError) {
		add("status = $%d", f.Status)
	}
	if f.Model != "" {
		add("model_name ILIKE $%d", "%"+f.Model+"%")
	}
	if f.StartDate != "" {
		add("timestamp::date >= $%d", f.StartDate)
	}
	if f.EndDate != "" {
		add("timestamp::date <= $%d", f.EndDate)
	}
	if f.Search != "" {
		n := len(args) + 1
		conds = append(conds, fmt.Sprintf("(prompt ILIKE $%d OR response ILIKE $%d OR model_name ILIKE $%d)", n, n, n))
		args = append(args, "%"+f.Search+"%")
	}

	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrace(row rowScanner) (*models.Trace, error) {
	var t models.Trace
	err := row.Scan(
		&t.ID,
		&t.Timestamp,
		&t.ModelName,
		&t.Prompt,
		&t.Response,
		&t.InputTokens,
		&t.OutputTokens,
		&t.TotalTokens,
		&t.LatencyMs,
		&t.CostUSD,
		&t.Status,
		&t.ErrorMessage,
		&t.RequestID,
		&t.UserID,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) queryTraces(ctx context.Context, query string, args ...interface{}) ([]models.Trace, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	traces := []models.Trace{}
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		traces = append(traces, *t)
	}
	return traces, rows.Err()
}
