// Package sqlite реализует хранилище бота поверх встроенной SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05"

// Options задает параметры подключения к базе.
type Options struct {
	BusyTimeoutMs int
	WAL           bool
}

// Store объединяет репозитории, работающие с одним подключением.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time

	Trust    *TrustRepo
	Events   *EventRepo
	Notes    *NoteRepo
	Settings *SettingsRepo
}

// Open открывает (или создает) файл базы и применяет миграции.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite сериализует запись; одно соединение исключает SQLITE_BUSY внутри процесса.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newStore(db, path), nil
}

func newStore(db *sql.DB, path string) *Store {
	return &Store{
		db:       db,
		path:     path,
		now:      time.Now,
		Trust:    &TrustRepo{db: db},
		Events:   &EventRepo{db: db},
		Notes:    &NoteRepo{db: db},
		Settings: &SettingsRepo{db: db},
	}
}

func buildDSN(path string, opts Options) string {
	busy := opts.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "foreign_keys(1)")
	if opts.WAL {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Path возвращает путь к файлу базы.
func (s *Store) Path() string { return s.path }

// HealthCheck проверяет, что база доступна.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB("db.healthcheck")()
	return s.db.PingContext(ctx)
}

// Close закрывает соединение с базой данных.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
