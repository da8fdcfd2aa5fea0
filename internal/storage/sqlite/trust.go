package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"jeeves-bot/internal/domain"
)

// TrustRepo хранит пары (чат, пользователь) локального списка доверия.
type TrustRepo struct {
	db *sql.DB
}

// Grant добавляет пару; повторный вызов ничего не меняет.
func (r *TrustRepo) Grant(ctx context.Context, g domain.TrustGrant) error {
	defer observeDB("trust.grant")()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_trust (chat_id, user_id, granted_by) VALUES (?, ?, ?)`,
		g.ChatID, g.UserID, g.GrantedBy)
	if err != nil {
		return fmt.Errorf("grant trust %d/%d: %w", g.ChatID, g.UserID, err)
	}
	return nil
}

// Revoke удаляет пару. Отсутствие записи ошибкой не является.
func (r *TrustRepo) Revoke(ctx context.Context, chatID, userID int64) error {
	defer observeDB("trust.revoke")()
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_trust WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("revoke trust %d/%d: %w", chatID, userID, err)
	}
	return nil
}

// Exists проверяет наличие пары.
func (r *TrustRepo) Exists(ctx context.Context, chatID, userID int64) (bool, error) {
	defer observeDB("trust.exists")()
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_trust WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check trust %d/%d: %w", chatID, userID, err)
	}
	return count > 0, nil
}

// List возвращает все записи доверия чата.
func (r *TrustRepo) List(ctx context.Context, chatID int64) ([]domain.TrustGrant, error) {
	defer observeDB("trust.list")()
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id, user_id, granted_by, created_at FROM chat_trust WHERE chat_id = ? ORDER BY created_at, user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list trust %d: %w", chatID, err)
	}
	defer rows.Close()

	var grants []domain.TrustGrant
	for rows.Next() {
		var (
			g       domain.TrustGrant
			created string
		)
		if err := rows.Scan(&g.ChatID, &g.UserID, &g.GrantedBy, &created); err != nil {
			return nil, fmt.Errorf("scan trust: %w", err)
		}
		g.CreatedAt = parseTimestamp(created)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
