package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist (or is outside
// the caller's RBAC scope, which is indistinguishable on purpose).
var ErrNotFound = errors.New("record not found")

// RowScope restricts queries to the rows one caller may see. Implementations
// return a SQL condition and its bind arguments, with the first argument at
// positional index argOffset.
type RowScope interface {
	Predicate(argOffset int) (string, []interface{})
}

type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS llm_traces (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		model_name VARCHAR(100) NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0 CHECK (input_tokens >= 0),
		output_tokens INTEGER NOT NULL DEFAULT 0 CHECK (output_tokens >= 0),
		total_tokens INTEGER NOT NULL DEFAULT 0 CHECK (total_tokens >= 0),
		latency_ms DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (latency_ms >= 0),
		cost_usd NUMERIC(10,6) NOT NULL DEFAULT 0 CHECK (cost_usd >= 0),
		status VARCHAR(10) NOT NULL DEFAULT 'success',
		error_message TEXT,
		request_id VARCHAR(100),
		user_id BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_traces_timestamp ON llm_traces (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_traces_status ON llm_traces (status)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_traces_model ON llm_traces (model_name)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_traces_ts_status ON llm_traces (timestamp, status)`,
	`CREATE TABLE IF NOT EXISTS user_feedback (
		id BIGSERIAL PRIMARY KEY,
		trace_id BIGINT NOT NULL REFERENCES llm_traces(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_feedback_trace ON user_feedback (trace_id)`,
	`CREATE TABLE IF NOT EXISTS api_configuration (
		id BIGINT PRIMARY KEY,
		api_key_encrypted TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		default_model VARCHAR(100) NOT NULL DEFAULT 'llama-3.1-8b-instant',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Statements are idempotent, so this runs on
// every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
