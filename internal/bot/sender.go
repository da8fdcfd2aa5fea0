package bot

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mattn/go-runewidth"
)

// maxMessageLength - предел длины текста сообщения в Telegram.
const maxMessageLength = 4096

// send отправляет сообщение через общий ограничитель скорости.
// Безопасен для одновременного вызова из обработчиков и планировщика.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("rate limiter: %w", err)
	}
	msg, err := b.sendMessageFunc(c)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to send message", slog.String("error", err.Error()))
		return msg, err
	}
	return msg, nil
}

// apiRequest выполняет служебный вызов API (удаление, ответ на callback).
func (b *Bot) apiRequest(ctx context.Context, c tgbotapi.Chattable) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.requestFunc(c); err != nil {
		b.logger.WarnContext(ctx, "telegram request failed", slog.String("error", err.Error()))
	}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, truncateMessage(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// reply отправляет HTML-сообщение и возвращает его ID (0 при ошибке).
func (b *Bot) reply(ctx context.Context, chatID int64, text string) int {
	sent, err := b.send(ctx, newHTMLMessage(chatID, text))
	if err != nil {
		return 0
	}
	return sent.MessageID
}

// replyWithMarkup отправляет HTML-сообщение с клавиатурой.
func (b *Bot) replyWithMarkup(ctx context.Context, chatID int64, text string, markup any) {
	msg := newHTMLMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, _ = b.send(ctx, msg)
}

// edit заменяет текст ранее отправленного сообщения. Если исходное
// сообщение не ушло, отправляется новое.
func (b *Bot) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(ctx, chatID, text)
		return
	}
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, truncateMessage(text))
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	_, _ = b.send(ctx, cfg)
}

func (b *Bot) editWithMarkup(ctx context.Context, chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	cfg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, truncateMessage(text), markup)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	_, _ = b.send(ctx, cfg)
}

func (b *Bot) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	b.apiRequest(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
}

// answer закрывает "часики" на inline-кнопке.
func (b *Bot) answer(ctx context.Context, cb *tgbotapi.CallbackQuery, text string) {
	b.apiRequest(ctx, tgbotapi.NewCallback(cb.ID, text))
}

// alert показывает всплывающее окно на inline-кнопке.
func (b *Bot) alert(ctx context.Context, cb *tgbotapi.CallbackQuery, text string) {
	b.apiRequest(ctx, tgbotapi.NewCallbackWithAlert(cb.ID, text))
}

// truncateMessage обрезает текст до предела Telegram по символам.
func truncateMessage(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxMessageLength-6]) + "..."
}

// preview укорачивает текст до width колонок для кнопок и превью.
func preview(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
