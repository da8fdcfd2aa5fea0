package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jeeves-bot/internal/adapters/exporter"
	"jeeves-bot/internal/domain"
)

// cmdExport выгружает календарь чата и, если есть доступ, его заметки в Excel.
func (b *Bot) cmdExport(ctx context.Context, r *request) {
	events, err := b.deps.Calendar.ListEvents(ctx, r.chatID, domain.FilterAll)
	if err != nil {
		r.logger.Error("export: failed to list events", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
		return
	}

	var notes []domain.Note
	if _, ok := b.canUseNotes(ctx, r.chatID, r.userID, r.private); ok {
		notes, err = b.deps.Notes.ListAll(ctx, r.chatID)
		if err != nil {
			r.logger.Error("export: failed to list notes", slog.String("error", err.Error()))
			b.reply(ctx, r.chatID, storageErrorText)
			return
		}
	}

	if len(events) == 0 && len(notes) == 0 {
		b.reply(ctx, r.chatID, "📭 Немає що експортувати.")
		return
	}

	now := b.now()
	buf, err := exporter.BuildWorkbook(events, notes, now)
	if err != nil {
		r.logger.Error("export: failed to build workbook", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, "❌ Не вдалося сформувати Excel-файл.")
		return
	}

	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("jeeves_export_%s.xlsx", now.Format("2006-01-02_15-04-05")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📤 Експорт: подій %d, нотаток %d.", len(events), len(notes))
	_, _ = b.send(ctx, doc)
}
