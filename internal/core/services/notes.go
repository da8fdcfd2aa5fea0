package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/ports"
)

// PhotoPlaceholder - текст заметки для фото без подписи.
const PhotoPlaceholder = "Фото без опису"

// NoteDraft - заметка, ожидающая подтверждения тегов.
type NoteDraft struct {
	Content       string
	FileID        string
	MediaType     domain.MediaType
	SuggestedTags string
}

// NotesService управляет базой знаний чата.
type NotesService struct {
	notes  ports.NoteRepository
	access *AccessService
	enrich *EnrichmentService
	locks  *chatLocks
	log    *slog.Logger
}

// NewNotesService создает сервис заметок. enrich может быть nil,
// тогда голос не распознается, а теги не предлагаются.
func NewNotesService(notes ports.NoteRepository, access *AccessService, enrich *EnrichmentService, logger *slog.Logger) *NotesService {
	if logger == nil {
		logger = slog.Default()
	}
	if enrich == nil {
		enrich = NewEnrichmentService(nil, nil, nil)
	}
	return &NotesService{
		notes:  notes,
		access: access,
		enrich: enrich,
		locks:  newChatLocks(),
		log:    logger,
	}
}

// CanTranscribe сообщает, доступно ли распознавание голосовых заметок.
func (s *NotesService) CanTranscribe() bool {
	return s.enrich.CanTranscribe()
}

// AddNote сохраняет заметку. Теги нормализуются к виду "#a #b".
func (s *NotesService) AddNote(ctx context.Context, chatID int64, content, rawTags, fileID string, mediaType domain.MediaType) (domain.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" && fileID == "" {
		return domain.Note{}, ErrEmptyText
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	n, err := s.notes.Create(ctx, domain.Note{
		ChatID:    chatID,
		Content:   content,
		Tags:      NormalizeTags(rawTags),
		FileID:    fileID,
		MediaType: mediaType,
	})
	if err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	s.log.InfoContext(ctx, "note added",
		slog.Int64("chat_id", chatID), slog.Int64("note_id", n.ID), slog.String("media_type", string(mediaType)))
	return n, nil
}

// QuickNote сохраняет текст из "/note текст #тег": теги берутся из самого текста.
func (s *NotesService) QuickNote(ctx context.Context, chatID int64, text string) (domain.Note, error) {
	return s.AddNote(ctx, chatID, text, ExtractTags(text), "", domain.MediaNone)
}

// ListTags возвращает словарь тегов чата и признак наличия заметок без тегов.
func (s *NotesService) ListTags(ctx context.Context, chatID int64) ([]string, bool, error) {
	stored, err := s.notes.TagStrings(ctx, chatID)
	if err != nil {
		return nil, false, fmt.Errorf("list tags: %w", err)
	}
	untagged, err := s.notes.ListUntagged(ctx, chatID)
	if err != nil {
		return nil, false, fmt.Errorf("list untagged: %w", err)
	}
	return tagVocabulary(stored), len(untagged) > 0, nil
}

// ListNotesByTag возвращает заметки с тегом или, для UntaggedKey, без тегов.
func (s *NotesService) ListNotesByTag(ctx context.Context, chatID int64, tag string) ([]domain.Note, error) {
	if tag == UntaggedKey {
		return s.notes.ListUntagged(ctx, chatID)
	}
	tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, nil
	}
	return s.notes.ListByTag(ctx, chatID, "#"+tag)
}

// ListAll возвращает все заметки чата.
func (s *NotesService) ListAll(ctx context.Context, chatID int64) ([]domain.Note, error) {
	return s.notes.ListAll(ctx, chatID)
}

// GetNote возвращает заметку, если она принадлежит чату.
func (s *NotesService) GetNote(ctx context.Context, chatID, id int64) (domain.Note, error) {
	return s.notes.Get(ctx, chatID, id)
}

// DeleteNote удаляет заметку после проверки прав.
// Повторное удаление не ошибка: возвращается false.
func (s *NotesService) DeleteNote(ctx context.Context, actorID, chatID int64, status domain.MemberStatus, id int64) (bool, error) {
	ok, err := s.access.CheckPermission(ctx, actorID, chatID, status)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrForbidden
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	deleted, err := s.notes.Delete(ctx, chatID, id)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	if deleted {
		s.log.InfoContext(ctx, "note deleted", slog.Int64("chat_id", chatID), slog.Int64("note_id", id))
	}
	return deleted, nil
}

// SuggestTags подбирает теги для текста, ошибки не возвращает.
func (s *NotesService) SuggestTags(ctx context.Context, text string) string {
	return s.enrich.SuggestTags(ctx, text)
}

// DraftFromText готовит черновик из текста.
func (s *NotesService) DraftFromText(ctx context.Context, text string) NoteDraft {
	text = strings.TrimSpace(text)
	return NoteDraft{Content: text, SuggestedTags: s.SuggestTags(ctx, text)}
}

// DraftFromPhoto готовит черновик из фото: подпись или заглушка становится
// текстом, а file_id хранится отдельно.
func (s *NotesService) DraftFromPhoto(ctx context.Context, caption, fileID string) NoteDraft {
	content := strings.TrimSpace(caption)
	if content == "" {
		content = PhotoPlaceholder
	}
	return NoteDraft{
		Content:       content,
		FileID:        fileID,
		MediaType:     domain.MediaPhoto,
		SuggestedTags: s.SuggestTags(ctx, content),
	}
}

// DraftFromVoice распознает голос. Ошибка распознавания прерывает операцию.
func (s *NotesService) DraftFromVoice(ctx context.Context, fileID, filename string, audio io.Reader) (NoteDraft, error) {
	text, err := s.enrich.Transcribe(ctx, filename, audio)
	if err != nil {
		return NoteDraft{}, err
	}
	return NoteDraft{
		Content:       text,
		FileID:        fileID,
		MediaType:     domain.MediaVoice,
		SuggestedTags: s.SuggestTags(ctx, text),
	}, nil
}

// SaveDraft сохраняет черновик с выбранными тегами.
func (s *NotesService) SaveDraft(ctx context.Context, chatID int64, d NoteDraft, rawTags string) (domain.Note, error) {
	return s.AddNote(ctx, chatID, d.Content, rawTags, d.FileID, d.MediaType)
}

// IngestVoice распознает голосовое сообщение и сразу сохраняет его
// с предложенными тегами.
func (s *NotesService) IngestVoice(ctx context.Context, chatID int64, fileID, filename string, audio io.Reader) (domain.Note, error) {
	d, err := s.DraftFromVoice(ctx, fileID, filename, audio)
	if err != nil {
		return domain.Note{}, err
	}
	return s.SaveDraft(ctx, chatID, d, d.SuggestedTags)
}

// IngestPhoto сохраняет фото с подписью и предложенными тегами.
func (s *NotesService) IngestPhoto(ctx context.Context, chatID int64, caption, fileID string) (domain.Note, error) {
	d := s.DraftFromPhoto(ctx, caption, fileID)
	return s.SaveDraft(ctx, chatID, d, d.SuggestedTags)
}
