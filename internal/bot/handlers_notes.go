package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
)

const (
	notesRefusalText    = "⛔️ У цьому чаті я нотатки не приймаю."
	noRightsText        = "⛔️ Немає прав!"
	transcribeErrorText = "❌ Помилка розпізнавання."
	draftExpiredText    = "⌛️ Чернетка застаріла, почни з /note."
	voiceFilename       = "voice.ogg"

	// maxVoiceSize - предел размера файла для API распознавания.
	maxVoiceSize = 25 << 20
	// maxCaptionRunes - запас до лимита подписи к медиа в 1024 символа.
	maxCaptionRunes = 900
)

func (b *Bot) cmdNote(ctx context.Context, r *request) {
	if _, ok := b.canUseNotes(ctx, r.chatID, r.userID, r.private); !ok {
		b.reply(ctx, r.chatID, notesRefusalText)
		return
	}

	if text := strings.TrimSpace(r.msg.CommandArguments()); text != "" {
		n, err := b.deps.Notes.QuickNote(ctx, r.chatID, text)
		if err != nil {
			r.logger.Error("quick note failed", slog.String("error", err.Error()))
			b.reply(ctx, r.chatID, storageErrorText)
			return
		}
		b.reply(ctx, r.chatID, fmt.Sprintf("✅ Записав: <b>%s</b>", html.EscapeString(preview(n.Content, 50))))
		return
	}

	b.reply(ctx, r.chatID, "✍️ Що записати? (Надішли текст, голосове або <b>фото</b>)")
	b.sessions.Set(r.chatID, r.userID, Session{State: StateNoteContent})
}

// processNoteContent превращает присланный текст, фото или голос в черновик.
func (b *Bot) processNoteContent(ctx context.Context, r *request) {
	var draft services.NoteDraft

	switch msg := r.msg; {
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		draft = b.deps.Notes.DraftFromPhoto(ctx, msg.Caption, largest.FileID)
	case msg.Voice != nil:
		if !b.deps.Notes.CanTranscribe() {
			b.reply(ctx, r.chatID, "⚠️ Groq не налаштований, не можу розпізнати голос.")
			return
		}
		processing := b.reply(ctx, r.chatID, "👂 Слухаю і записую...")
		d, err := b.transcribeVoice(ctx, msg.Voice.FileID)
		if err != nil {
			r.logger.Warn("voice draft failed", slog.String("error", err.Error()))
			b.edit(ctx, r.chatID, processing, transcribeErrorText)
			return
		}
		b.deleteMessage(ctx, r.chatID, processing)
		draft = d
	case strings.TrimSpace(msg.Text) != "":
		draft = b.deps.Notes.DraftFromText(ctx, msg.Text)
	default:
		b.reply(ctx, r.chatID, "🤔 Я розумію тільки текст, голос або фото.")
		return
	}

	b.sessions.Set(r.chatID, r.userID, Session{State: StateNoteDraft, Draft: draft})
	b.showDraft(ctx, r.chatID, draft)
}

func (b *Bot) transcribeVoice(ctx context.Context, fileID string) (services.NoteDraft, error) {
	body, err := b.downloadFile(ctx, fileID)
	if err != nil {
		return services.NoteDraft{}, err
	}
	defer body.Close()
	return b.deps.Notes.DraftFromVoice(ctx, fileID, voiceFilename, io.LimitReader(body, maxVoiceSize))
}

// downloadFile скачивает файл с серверов Telegram.
func (b *Bot) downloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	fileURL, err := b.getFileDirectURLFunc(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func formatDraft(d services.NoteDraft) string {
	tags := d.SuggestedTags
	if tags == "" {
		tags = "—"
	}
	return fmt.Sprintf("📝 <b>Перевір:</b>\n%s\n\n🏷 <i>AI Теги: %s</i>",
		html.EscapeString(preview(d.Content, 100)), html.EscapeString(tags))
}

// showDraft показывает черновик. Фото отправляется вместе с подписью.
func (b *Bot) showDraft(ctx context.Context, chatID int64, d services.NoteDraft) {
	text := formatDraft(d)
	if d.MediaType == domain.MediaPhoto && d.FileID != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(d.FileID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = draftKeyboard()
		_, _ = b.send(ctx, photo)
		return
	}
	b.replyWithMarkup(ctx, chatID, text, draftKeyboard())
}

func (b *Bot) onSaveNote(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	chatID := cb.Message.Chat.ID
	sess := b.sessions.Get(chatID, cb.From.ID)
	if sess.State != StateNoteDraft && sess.State != StateNoteTags {
		b.alert(ctx, cb, draftExpiredText)
		return
	}
	if _, ok := b.canUseNotes(ctx, chatID, cb.From.ID, cb.Message.Chat.IsPrivate()); !ok {
		b.alert(ctx, cb, noRightsText)
		return
	}

	n, err := b.deps.Notes.SaveDraft(ctx, chatID, sess.Draft, sess.Draft.SuggestedTags)
	if err != nil {
		logger.Error("failed to save note", slog.String("error", err.Error()))
		b.alert(ctx, cb, storageErrorText)
		return
	}
	b.sessions.Reset(chatID, cb.From.ID)
	b.answer(ctx, cb, "")
	b.deleteMessage(ctx, chatID, cb.Message.MessageID)
	b.reply(ctx, chatID, "✅ Збережено в категорію: "+tagsOrDefault(n.Tags))
}

func (b *Bot) onAddTags(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	sess := b.sessions.Get(chatID, cb.From.ID)
	if sess.State != StateNoteDraft && sess.State != StateNoteTags {
		b.alert(ctx, cb, draftExpiredText)
		return
	}
	sess.State = StateNoteTags
	b.sessions.Set(chatID, cb.From.ID, sess)
	b.answer(ctx, cb, "")
	b.reply(ctx, chatID, "🏷 Введи теги через кому (наприклад: робота, ідеї):")
}

// processNoteTags сохраняет черновик с тегами пользователя.
func (b *Bot) processNoteTags(ctx context.Context, r *request, sess Session) {
	if r.msg.Text == "" {
		b.reply(ctx, r.chatID, "🏷 Надішли теги текстом або /cancel.")
		return
	}
	defer b.sessions.Reset(r.chatID, r.userID)
	if _, ok := b.canUseNotes(ctx, r.chatID, r.userID, r.private); !ok {
		b.reply(ctx, r.chatID, notesRefusalText)
		return
	}
	n, err := b.deps.Notes.SaveDraft(ctx, r.chatID, sess.Draft, r.msg.Text)
	if err != nil {
		r.logger.Error("failed to save note", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
		return
	}
	b.reply(ctx, r.chatID, "✅ Збережено з тегами: "+tagsOrDefault(n.Tags))
}

func tagsOrDefault(tags string) string {
	if tags == "" {
		return "Без тегів"
	}
	return html.EscapeString(tags)
}

// handlePassiveVoice сохраняет голосовое сообщение как заметку без
// команды. Без прав сообщение молча пропускается, чтобы не выдавать
// присутствие бота посторонним.
func (b *Bot) handlePassiveVoice(ctx context.Context, r *request) {
	if !b.deps.Notes.CanTranscribe() {
		return
	}
	if _, ok := b.canUseNotes(ctx, r.chatID, r.userID, r.private); !ok {
		r.logger.Debug("voice ignored: no permission")
		return
	}

	fileID := r.msg.Voice.FileID
	body, err := b.downloadFile(ctx, fileID)
	if err != nil {
		r.logger.Warn("voice download failed", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, transcribeErrorText)
		return
	}
	defer body.Close()

	n, err := b.deps.Notes.IngestVoice(ctx, r.chatID, fileID, voiceFilename, io.LimitReader(body, maxVoiceSize))
	switch {
	case errors.Is(err, services.ErrTranscription):
		r.logger.Warn("voice transcription failed", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, transcribeErrorText)
		return
	case err != nil:
		r.logger.Error("failed to save voice note", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("🎙 Записав голосову нотатку:\n<i>%s</i>\n🏷 %s",
		html.EscapeString(preview(n.Content, 100)), tagsOrDefault(n.Tags)))
}

func (b *Bot) cmdNotes(ctx context.Context, r *request) {
	if _, ok := b.canUseNotes(ctx, r.chatID, r.userID, r.private); !ok {
		b.reply(ctx, r.chatID, notesRefusalText)
		return
	}
	b.showTags(ctx, r.chatID, r.logger)
}

// showTags показывает категории базы знаний чата.
func (b *Bot) showTags(ctx context.Context, chatID int64, logger *slog.Logger) {
	tags, hasUntagged, err := b.deps.Notes.ListTags(ctx, chatID)
	if err != nil {
		logger.Error("failed to list tags", slog.String("error", err.Error()))
		b.reply(ctx, chatID, storageErrorText)
		return
	}
	if len(tags) == 0 && !hasUntagged {
		b.reply(ctx, chatID, "📭 База порожня.")
		return
	}
	b.replyWithMarkup(ctx, chatID, "📚 <b>База знань чату.</b> Обери категорію:", tagsKeyboard(tags, hasUntagged))
}

// callbackAllowed повторно проверяет доступ к заметкам при нажатии кнопки.
func (b *Bot) callbackAllowed(ctx context.Context, cb *tgbotapi.CallbackQuery) (domain.MemberStatus, bool) {
	status, ok := b.canUseNotes(ctx, cb.Message.Chat.ID, cb.From.ID, cb.Message.Chat.IsPrivate())
	if !ok {
		b.alert(ctx, cb, noRightsText)
	}
	return status, ok
}

func (b *Bot) onListNotes(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	if _, ok := b.callbackAllowed(ctx, cb); !ok {
		return
	}
	_, _, tag := parseCallback(cb.Data)
	shown, err := b.renderNotesList(ctx, cb.Message, tag)
	if err != nil {
		logger.Error("failed to list notes", slog.String("error", err.Error()))
		b.alert(ctx, cb, storageErrorText)
		return
	}
	if !shown {
		b.alert(ctx, cb, "Пусто...")
		return
	}
	b.answer(ctx, cb, "")
}

// renderNotesList заменяет сообщение списком заметок категории.
// false означает, что категория пуста и сообщение не тронуто.
func (b *Bot) renderNotesList(ctx context.Context, msg *tgbotapi.Message, tag string) (bool, error) {
	chatID := msg.Chat.ID
	notes, err := b.deps.Notes.ListNotesByTag(ctx, chatID, tag)
	if err != nil {
		return false, err
	}
	if len(notes) == 0 {
		return false, nil
	}

	header := fmt.Sprintf("<b>📂 Категорія #%s:</b>", html.EscapeString(strings.TrimPrefix(tag, "#")))
	if tag == services.UntaggedKey {
		header = "📥 <b>Без тегів:</b>"
	}
	text := header + "\n⬇️ <i>Обери нотатку:</i>"
	kb := notesListKeyboard(notes, tag)

	// Сообщение с медиа нельзя превратить в текстовое, поэтому оно заменяется.
	if len(msg.Photo) > 0 || msg.Voice != nil {
		b.deleteMessage(ctx, chatID, msg.MessageID)
		b.replyWithMarkup(ctx, chatID, text, kb)
		return true, nil
	}
	b.editWithMarkup(ctx, chatID, msg.MessageID, text, kb)
	return true, nil
}

func (b *Bot) onViewNote(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	if _, ok := b.callbackAllowed(ctx, cb); !ok {
		return
	}
	chatID := cb.Message.Chat.ID
	_, rawID, tag := parseCallback(cb.Data)
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.answer(ctx, cb, "")
		return
	}

	n, err := b.deps.Notes.GetNote(ctx, chatID, id)
	if err != nil {
		if !services.IsNotFound(err) {
			logger.Error("failed to get note", slog.String("error", err.Error()))
			b.alert(ctx, cb, storageErrorText)
			return
		}
		b.alert(ctx, cb, "Нотатка видалена.")
		b.refreshAfterRemoval(ctx, cb.Message, tag, logger)
		return
	}
	b.answer(ctx, cb, "")
	b.deleteMessage(ctx, chatID, cb.Message.MessageID)
	b.sendNote(ctx, chatID, n, tag)
}

// sendNote отправляет заметку целиком: фото и голос вместе с вложением.
func (b *Bot) sendNote(ctx context.Context, chatID int64, n domain.Note, tag string) {
	content := n.Content
	if content == "" {
		content = "Без опису"
	}
	kb := noteViewKeyboard(n.ID, tag)

	if n.FileID != "" && (n.MediaType == domain.MediaPhoto || n.MediaType == domain.MediaVoice) {
		caption := fmt.Sprintf("📝 <b>Нотатка:</b>\n\n%s\n\n🏷 <i>%s</i>",
			html.EscapeString(truncateRunes(content, maxCaptionRunes)), html.EscapeString(n.Tags))
		var media tgbotapi.Chattable
		if n.MediaType == domain.MediaPhoto {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(n.FileID))
			photo.Caption, photo.ParseMode, photo.ReplyMarkup = caption, tgbotapi.ModeHTML, kb
			media = photo
		} else {
			voice := tgbotapi.NewVoice(chatID, tgbotapi.FileID(n.FileID))
			voice.Caption, voice.ParseMode, voice.ReplyMarkup = caption, tgbotapi.ModeHTML, kb
			media = voice
		}
		_, _ = b.send(ctx, media)
		return
	}

	text := fmt.Sprintf("📝 <b>Нотатка:</b>\n\n%s\n\n🏷 <i>%s</i>", html.EscapeString(content), html.EscapeString(n.Tags))
	b.replyWithMarkup(ctx, chatID, text, kb)
}

func (b *Bot) onDeleteNote(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	chatID := cb.Message.Chat.ID
	_, rawID, tag := parseCallback(cb.Data)
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.answer(ctx, cb, "")
		return
	}

	status := b.memberStatus(ctx, chatID, cb.From.ID, cb.Message.Chat.IsPrivate())
	_, err = b.deps.Notes.DeleteNote(ctx, cb.From.ID, chatID, status, id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		b.alert(ctx, cb, noRightsText)
		return
	case err != nil:
		logger.Error("failed to delete note", slog.String("error", err.Error()))
		b.alert(ctx, cb, storageErrorText)
		return
	}
	b.alert(ctx, cb, "✅ Видалено!")
	b.refreshAfterRemoval(ctx, cb.Message, tag, logger)
}

// refreshAfterRemoval возвращает к списку категории, а если она
// опустела, то к списку категорий.
func (b *Bot) refreshAfterRemoval(ctx context.Context, msg *tgbotapi.Message, tag string, logger *slog.Logger) {
	shown, err := b.renderNotesList(ctx, msg, tag)
	if err != nil {
		logger.Error("failed to list notes", slog.String("error", err.Error()))
		return
	}
	if !shown {
		b.deleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		b.showTags(ctx, msg.Chat.ID, logger)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
