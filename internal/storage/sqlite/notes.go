package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jeeves-bot/internal/domain"
)

// NoteRepo хранит заметки базы знаний.
type NoteRepo struct {
	db *sql.DB
}

const noteColumns = `id, chat_id, content, tags, file_id, media_type, created_at`

// Create сохраняет заметку и возвращает ее с присвоенным ID.
func (r *NoteRepo) Create(ctx context.Context, n domain.Note) (domain.Note, error) {
	defer observeDB("notes.create")()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (chat_id, content, tags, file_id, media_type) VALUES (?, ?, ?, ?, ?)`,
		n.ChatID, n.Content, n.Tags, n.FileID, string(n.MediaType))
	if err != nil {
		return domain.Note{}, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Note{}, fmt.Errorf("note id: %w", err)
	}
	n.ID = id
	return n, nil
}

// TagStrings возвращает непустые строки тегов всех заметок чата.
func (r *NoteRepo) TagStrings(ctx context.Context, chatID int64) ([]string, error) {
	defer observeDB("notes.tag_strings")()
	rows, err := r.db.QueryContext(ctx,
		`SELECT tags FROM notes WHERE chat_id = ? AND tags != ''`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list tags %d: %w", chatID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		out = append(out, tags)
	}
	return out, rows.Err()
}

// ListByTag ищет заметки, в строке тегов которых встречается tag.
// Совпадение подстрочное, символы % и _ экранируются.
func (r *NoteRepo) ListByTag(ctx context.Context, chatID int64, tag string) ([]domain.Note, error) {
	defer observeDB("notes.list_by_tag")()
	return r.query(ctx,
		`SELECT `+noteColumns+` FROM notes
		  WHERE chat_id = ? AND tags LIKE ? ESCAPE '\' ORDER BY id DESC`,
		chatID, "%"+escapeLike(tag)+"%")
}

// ListUntagged возвращает заметки без тегов.
func (r *NoteRepo) ListUntagged(ctx context.Context, chatID int64) ([]domain.Note, error) {
	defer observeDB("notes.list_untagged")()
	return r.query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE chat_id = ? AND tags = '' ORDER BY id DESC`, chatID)
}

// ListAll возвращает все заметки чата, новые первыми.
func (r *NoteRepo) ListAll(ctx context.Context, chatID int64) ([]domain.Note, error) {
	defer observeDB("notes.list_all")()
	return r.query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE chat_id = ? ORDER BY id DESC`, chatID)
}

// Get возвращает заметку, только если она принадлежит чату.
func (r *NoteRepo) Get(ctx context.Context, chatID, id int64) (domain.Note, error) {
	defer observeDB("notes.get")()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE chat_id = ? AND id = ?`, chatID, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Note{}, ErrNotFound
	}
	return n, err
}

// Delete удаляет заметку чата. false означает, что удалять было нечего.
func (r *NoteRepo) Delete(ctx context.Context, chatID, id int64) (bool, error) {
	defer observeDB("notes.delete")()
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE chat_id = ? AND id = ?`, chatID, id)
	if err != nil {
		return false, fmt.Errorf("delete note %d/%d: %w", chatID, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note rows: %w", err)
	}
	return n > 0, nil
}

func (r *NoteRepo) query(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanNote(s rowScanner) (domain.Note, error) {
	var (
		n         domain.Note
		mediaType string
		created   string
	)
	if err := s.Scan(&n.ID, &n.ChatID, &n.Content, &n.Tags, &n.FileID, &mediaType, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, err
		}
		return domain.Note{}, fmt.Errorf("scan note: %w", err)
	}
	n.MediaType = domain.MediaType(mediaType)
	n.CreatedAt = parseTimestamp(created)
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
