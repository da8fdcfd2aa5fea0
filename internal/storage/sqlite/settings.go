package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsRepo хранит настройки бота как JSON по строковому ключу.
type SettingsRepo struct {
	db *sql.DB
}

// GetJSON декодирует значение ключа в dst. false означает, что ключа нет.
func (r *SettingsRepo) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	defer observeDB("settings.get")()
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// SetJSON сохраняет значение, перезаписывая прежнее.
func (r *SettingsRepo) SetJSON(ctx context.Context, key string, value any) error {
	defer observeDB("settings.set")()
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(body))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
