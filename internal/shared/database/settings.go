package database

import (
	"context"
	"fmt"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

// configID pins the configuration to a single row. The row is created lazily
// on first access and never deleted.
const configID = 1

// GetConfig loads the singleton configuration, creating the row if it does
// not exist yet.
func (db *DB) GetConfig(ctx context.Context) (*models.APIConfig, error) {
	query := `
		INSERT INTO api_configuration (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET id = api_configuration.id
		RETURNING id, api_key_encrypted, is_active, default_model, created_at, updated_at
	`

	var c models.APIConfig
	err := db.conn.QueryRowContext(ctx, query, configID).Scan(
		&c.ID,
		&c.APIKeyEncrypted,
		&c.IsActive,
		&c.DefaultModel,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &c, nil
}

// SetAPIKey stores the encrypted vendor key; an empty value deactivates the
// configuration. Last writer wins, no version check.
func (db *DB) SetAPIKey(ctx context.Context, encryptedKey string) error {
	if _, err := db.GetConfig(ctx); err != nil {
		return err
	}
	query := `
		UPDATE api_configuration
		SET api_key_encrypted = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.conn.ExecContext(ctx, query, encryptedKey, encryptedKey != "", configID)
	if err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// SetDefaultModel updates the default model used when callers omit one.
func (db *DB) SetDefaultModel(ctx context.Context, model string) error {
	if _, err := db.GetConfig(ctx); err != nil {
		return err
	}
	query := `UPDATE api_configuration SET default_model = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.conn.ExecContext(ctx, query, model, configID)
	if err != nil {
		return fmt.Errorf("failed to update default model: %w", err)
	}
	return nil
}
