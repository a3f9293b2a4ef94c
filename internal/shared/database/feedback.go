package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// InsertFeedback attaches a rating to an existing trace.
func (db *DB) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO user_feedback (trace_id, rating, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := db.conn.QueryRowContext(ctx, query, fb.TraceID, fb.Rating, fb.Comment).
		Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		// FK violation means the trace does not exist.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns all feedback for a trace, newest first.
func (db *DB) ListFeedback(ctx context.Context, traceID int64) ([]models.Feedback, error) {
	query := `
		SELECT id, trace_id, rating, comment, created_at
		FROM user_feedback
		WHERE trace_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	feedback := []models.Feedback{}
	for rows.Next() {
		var fb models.Feedback
		if err := rows.Scan(&fb.ID, &fb.TraceID, &fb.Rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		feedback = append(feedback, fb)
	}
	return feedback, rows.Err()
}
