package ports

import (
	"context"
	"io"

	"jeeves-bot/internal/domain"
)

// TrustRepository хранит локальные списки доверенных пользователей чатов.
type TrustRepository interface {
	// Grant идемпотентно добавляет пару (chatID, userID).
	Grant(ctx context.Context, grant domain.TrustGrant) error
	// Revoke удаляет пару; отсутствие записи не считается ошибкой.
	Revoke(ctx context.Context, chatID, userID int64) error
	Exists(ctx context.Context, chatID, userID int64) (bool, error)
	List(ctx context.Context, chatID int64) ([]domain.TrustGrant, error)
}

// EventRepository хранит события календаря.
type EventRepository interface {
	// Create присваивает событию следующий локальный для чата ID.
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	// CreateBatch сохраняет все события в одной транзакции.
	CreateBatch(ctx context.Context, chatID int64, events []domain.Event) (int, error)
	List(ctx context.Context, chatID int64) ([]domain.Event, error)
	Get(ctx context.Context, chatID, id int64) (domain.Event, error)
	UpdateText(ctx context.Context, chatID, id int64, text string) (bool, error)
	Delete(ctx context.Context, chatID int64, ids []int64) (int, error)
}

// NoteRepository хранит заметки базы знаний.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) (domain.Note, error)
	// TagStrings возвращает сырые строки тегов всех заметок чата.
	TagStrings(ctx context.Context, chatID int64) ([]string, error)
	ListByTag(ctx context.Context, chatID int64, tag string) ([]domain.Note, error)
	ListUntagged(ctx context.Context, chatID int64) ([]domain.Note, error)
	ListAll(ctx context.Context, chatID int64) ([]domain.Note, error)
	Get(ctx context.Context, chatID, id int64) (domain.Note, error)
	Delete(ctx context.Context, chatID, id int64) (bool, error)
}

// SettingsRepository хранит произвольные настройки в виде JSON.
type SettingsRepository interface {
	// GetJSON возвращает false, если ключ не найден.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any) error
}

// Transcriber распознает речь из аудиофайла.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Summarizer сокращает длинный текст.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// TagSuggester предлагает теги для текста.
type TagSuggester interface {
	SuggestTags(ctx context.Context, text string) (string, error)
}

// WeatherProvider отдает текущую погоду и ищет города.
type WeatherProvider interface {
	Forecast(ctx context.Context) (string, error)
	SearchCity(ctx context.Context, query string) (*domain.City, error)
	SetCity(ctx context.Context, city domain.City) error
}

// NewsProvider собирает свежие новости из RSS.
type NewsProvider interface {
	FreshNews(ctx context.Context) (string, error)
}

// PriceSearcher ищет цены товаров в магазине.
type PriceSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SystemReporter собирает сведения об устройстве и управляет им.
type SystemReporter interface {
	FullReport(ctx context.Context) string
	StorageInfo(ctx context.Context) string
	Uptime(ctx context.Context) string
	RestartService(ctx context.Context, name string) bool
	Torch(ctx context.Context, on bool)
	Speak(ctx context.Context, text string)
}

// DataSource отдает сырые данные для импорта (файл, память).
type DataSource interface {
	Fetch() ([]byte, error)
}

// EventExporter выгружает события календаря во внешний формат.
type EventExporter interface {
	Export(events []domain.Event) error
}
