package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jeeves-bot/internal/domain"
)

// EventRepo хранит события календаря. ID события локален для чата
// и выдается как max+1 внутри транзакции записи.
type EventRepo struct {
	db *sql.DB
}

// Create сохраняет событие и возвращает его с присвоенным ID.
func (r *EventRepo) Create(ctx context.Context, e domain.Event) (domain.Event, error) {
	defer observeDB("events.create")()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Event{}, fmt.Errorf("begin create event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved, err := insertEvent(ctx, tx, e)
	if err != nil {
		return domain.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Event{}, fmt.Errorf("commit create event: %w", err)
	}
	return saved, nil
}

// CreateBatch сохраняет события чата одной транзакцией: либо все, либо ни одного.
func (r *EventRepo) CreateBatch(ctx context.Context, chatID int64, events []domain.Event) (int, error) {
	defer observeDB("events.create_batch")()
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range events {
		e.ChatID = chatID
		if _, err := insertEvent(ctx, tx, e); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(events), nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e domain.Event) (domain.Event, error) {
	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(
			COALESCE((SELECT last_id FROM calendar_seq WHERE chat_id = ?), 0),
			COALESCE((SELECT MAX(event_id) FROM calendar WHERE chat_id = ?), 0)
		) + 1`, e.ChatID, e.ChatID).Scan(&next); err != nil {
		return domain.Event{}, fmt.Errorf("next event id for chat %d: %w", e.ChatID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_seq (chat_id, last_id) VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET last_id = excluded.last_id`, e.ChatID, next); err != nil {
		return domain.Event{}, fmt.Errorf("bump event id for chat %d: %w", e.ChatID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendar (chat_id, event_id, event_date, event_text, link) VALUES (?, ?, ?, ?, ?)`,
		e.ChatID, next, e.Date.String(), e.Text, e.Link); err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}

	e.ID = next
	return e, nil
}

// List возвращает все события чата в порядке их ID.
func (r *EventRepo) List(ctx context.Context, chatID int64) ([]domain.Event, error) {
	defer observeDB("events.list")()
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, chat_id, event_date, event_text, link, created_at
		   FROM calendar WHERE chat_id = ? ORDER BY event_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list events %d: %w", chatID, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get возвращает событие чата. Чужие события для вызывающего не существуют.
func (r *EventRepo) Get(ctx context.Context, chatID, id int64) (domain.Event, error) {
	defer observeDB("events.get")()
	row := r.db.QueryRowContext(ctx,
		`SELECT event_id, chat_id, event_date, event_text, link, created_at
		   FROM calendar WHERE chat_id = ? AND event_id = ?`, chatID, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, ErrNotFound
	}
	return e, err
}

// UpdateText меняет текст события. false означает, что события нет.
func (r *EventRepo) UpdateText(ctx context.Context, chatID, id int64, text string) (bool, error) {
	defer observeDB("events.update_text")()
	res, err := r.db.ExecContext(ctx,
		`UPDATE calendar SET event_text = ? WHERE chat_id = ? AND event_id = ?`, text, chatID, id)
	if err != nil {
		return false, fmt.Errorf("update event %d/%d: %w", chatID, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update event rows: %w", err)
	}
	return n > 0, nil
}

// Delete удаляет события чата по списку ID и возвращает число удаленных строк.
func (r *EventRepo) Delete(ctx context.Context, chatID int64, ids []int64) (int, error) {
	defer observeDB("events.delete")()
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, chatID)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar WHERE chat_id = ? AND event_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete events %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events rows: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (domain.Event, error) {
	var (
		e       domain.Event
		date    string
		created string
	)
	if err := s.Scan(&e.ID, &e.ChatID, &date, &e.Text, &e.Link, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, err
		}
		return domain.Event{}, fmt.Errorf("scan event: %w", err)
	}
	d, err := domain.ParseDayMonth(date)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %d has broken date %q: %w", e.ID, date, err)
	}
	e.Date = d
	e.CreatedAt = parseTimestamp(created)
	return e, nil
}
