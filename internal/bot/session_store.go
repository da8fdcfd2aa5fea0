package bot

import (
	"context"
	"fmt"
	"time"

	"jeeves-bot/internal/cache"
	"jeeves-bot/internal/core/services"
)

// State - шаг многошагового диалога.
type State string

const (
	StateIdle State = ""

	// заметки
	StateNoteContent State = "note_content"
	StateNoteDraft   State = "note_draft" // черновик ждет "Зберегти" или своих тегов
	StateNoteTags    State = "note_tags"

	// календарь
	StateAddDate  State = "add_date"
	StateAddName  State = "add_name"
	StateAddLink  State = "add_link"
	StateImport   State = "import"
	StateEditText State = "edit_text"

	// погода
	StateCity State = "city"
)

// Session - состояние диалога конкретного пользователя в конкретном чате.
type Session struct {
	State  State
	Draft  services.NoteDraft
	Date   string
	Name   string
	EditID int64
}

// SessionStore - потокобезопасное хранилище диалогов с истечением по TTL.
// Брошенный на полпути диалог сам сбрасывается в Idle.
type SessionStore struct {
	store *cache.CacheStore[Session]
	ttl   time.Duration
}

// NewSessionStore создает новый экземпляр SessionStore.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		store: cache.NewCacheStore[Session](),
		ttl:   ttl,
	}
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// Get возвращает сессию; отсутствие сессии означает Idle.
func (s *SessionStore) Get(chatID, userID int64) Session {
	sess, _ := s.store.Get(sessionKey(chatID, userID))
	return sess
}

// Set сохраняет сессию и продлевает ее срок жизни.
// Сессия в состоянии Idle удаляется.
func (s *SessionStore) Set(chatID, userID int64, sess Session) {
	if sess.State == StateIdle {
		s.Reset(chatID, userID)
		return
	}
	s.store.Put(sessionKey(chatID, userID), sess, s.ttl)
}

// Reset переводит пользователя в Idle и сообщает, был ли активный диалог.
func (s *SessionStore) Reset(chatID, userID int64) bool {
	key := sessionKey(chatID, userID)
	_, active := s.store.Get(key)
	s.store.Delete(key)
	return active
}

// StartCleanup периодически удаляет просроченные сессии.
func (s *SessionStore) StartCleanup(ctx context.Context, interval time.Duration) {
	s.store.StartCleanupTicker(ctx, interval)
}
