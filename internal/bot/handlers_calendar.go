package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
)

const (
	storageErrorText   = "❌ Помилка збереження."
	invalidDateText    = "⚠️ Некоректний формат. Треба ДД.ММ"
	emptyCalendarText  = "🤷‍♂️ Подій у цьому діапазоні немає."
	chooseCalendarText = "📅 <b>Оберіть період:</b>"
)

func (b *Bot) cmdEvents(ctx context.Context, r *request) {
	b.replyWithMarkup(ctx, r.chatID, chooseCalendarText, calendarFilterKeyboard())
}

func (b *Bot) onCalendarFilter(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	if !b.deps.Access.IsAuthorized(cb.From.ID) {
		b.answer(ctx, cb, "")
		return
	}
	chatID := cb.Message.Chat.ID
	filter, ok := domain.ParseEventFilter(strings.TrimPrefix(cb.Data, cbCalendarPrefix))
	if !ok {
		b.answer(ctx, cb, "")
		return
	}

	events, err := b.deps.Calendar.ListEvents(ctx, chatID, filter)
	if err != nil {
		logger.Error("failed to list events", slog.String("error", err.Error()))
		b.alert(ctx, cb, storageErrorText)
		return
	}
	b.answer(ctx, cb, "")

	if len(events) == 0 {
		b.editWithMarkup(ctx, chatID, cb.Message.MessageID, emptyCalendarText, calendarFilterKeyboard())
		return
	}

	b.deleteMessage(ctx, chatID, cb.Message.MessageID)
	for _, e := range events {
		text := fmt.Sprintf("<b>%s</b>: %s", e.Date, services.RenderEvent(e))
		b.replyWithMarkup(ctx, chatID, text, editEventKeyboard(e.ID))
	}
	b.replyWithMarkup(ctx, chatID, "🔽 Меню:", calendarFilterKeyboard())
}

func (b *Bot) onEditEvent(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	if !b.deps.Access.IsAuthorized(cb.From.ID) {
		b.answer(ctx, cb, "")
		return
	}
	chatID := cb.Message.Chat.ID
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, cbEditEventPrefix), 10, 64)
	if err != nil {
		b.answer(ctx, cb, "")
		return
	}

	e, err := b.deps.Calendar.GetEvent(ctx, chatID, id)
	if err != nil {
		if !services.IsNotFound(err) {
			logger.Error("failed to get event", slog.String("error", err.Error()))
		}
		b.alert(ctx, cb, "⚠️ Подія не знайдена.")
		return
	}
	b.answer(ctx, cb, "")

	b.sessions.Set(chatID, cb.From.ID, Session{State: StateEditText, EditID: e.ID})
	b.reply(ctx, chatID, fmt.Sprintf("📝 Редагуємо подію за <b>%s</b>.\nПоточний текст: <code>%s</code>\nВведіть новий:",
		e.Date, html.EscapeString(e.Text)))
}

func (b *Bot) processEditText(ctx context.Context, r *request, sess Session) {
	if r.msg.Text == "" {
		b.reply(ctx, r.chatID, "✍️ Надішли новий текст або /cancel.")
		return
	}
	ok, err := b.deps.Calendar.UpdateEventText(ctx, r.chatID, sess.EditID, r.msg.Text)
	switch {
	case errors.Is(err, services.ErrEmptyText):
		b.reply(ctx, r.chatID, "✍️ Текст не може бути порожнім.")
		return
	case err != nil:
		r.logger.Error("failed to update event", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
	case !ok:
		b.reply(ctx, r.chatID, "⚠️ Подія не знайдена.")
	default:
		b.reply(ctx, r.chatID, "✅ Зміни збережено.")
	}
	b.sessions.Reset(r.chatID, r.userID)
}

func (b *Bot) cmdImport(ctx context.Context, r *request) {
	b.reply(ctx, r.chatID, "📦 <b>Масовий імпорт</b>\nФормат:\n<pre>14.02 День Валентина\n08.03 Жіночий день</pre>")
	b.sessions.Set(r.chatID, r.userID, Session{State: StateImport})
}

func (b *Bot) processImport(ctx context.Context, r *request) {
	defer b.sessions.Reset(r.chatID, r.userID)
	n, err := b.deps.Calendar.MassImport(ctx, r.chatID, r.msg.Text)
	if err != nil {
		r.logger.Error("mass import failed", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("✅ Успішно додано подій: %d", n))
}

// cmdAdd запускает мастер добавления события из трех шагов.
func (b *Bot) cmdAdd(ctx context.Context, r *request) {
	b.reply(ctx, r.chatID, "📅 <b>Крок 1/3:</b> Введіть дату (наприклад, <code>14.02</code>):")
	b.sessions.Set(r.chatID, r.userID, Session{State: StateAddDate})
}

func (b *Bot) processAddDate(ctx context.Context, r *request, sess Session) {
	date, err := domain.ParseDayMonth(r.msg.Text)
	if err != nil {
		b.reply(ctx, r.chatID, invalidDateText)
		return
	}
	sess.State = StateAddName
	sess.Date = date.String()
	b.sessions.Set(r.chatID, r.userID, sess)
	b.reply(ctx, r.chatID, "📝 <b>Крок 2/3:</b> Назва події:")
}

func (b *Bot) processAddName(ctx context.Context, r *request, sess Session) {
	name := strings.TrimSpace(r.msg.Text)
	if name == "" {
		b.reply(ctx, r.chatID, "📝 Назва не може бути порожньою. Спробуй ще раз:")
		return
	}
	sess.State = StateAddLink
	sess.Name = name
	b.sessions.Set(r.chatID, r.userID, sess)
	b.reply(ctx, r.chatID, "🔗 <b>Крок 3/3:</b> Посилання (або «-»):")
}

func (b *Bot) processAddLink(ctx context.Context, r *request, sess Session) {
	defer b.sessions.Reset(r.chatID, r.userID)
	e, err := b.deps.Calendar.AddEvent(ctx, r.chatID, sess.Date, sess.Name, r.msg.Text)
	switch {
	case errors.Is(err, services.ErrInvalidDate):
		b.reply(ctx, r.chatID, invalidDateText)
	case errors.Is(err, services.ErrEmptyText):
		b.reply(ctx, r.chatID, "❌ Помилка: порожня назва.")
	case err != nil:
		r.logger.Error("failed to add event", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, storageErrorText)
	default:
		b.reply(ctx, r.chatID, fmt.Sprintf("✅ <b>Збережено!</b>\n📅 %s: %s", e.Date, services.RenderEvent(e)))
	}
}

func (b *Bot) cmdDel(ctx context.Context, r *request) {
	query := strings.TrimSpace(r.msg.CommandArguments())
	if query == "" {
		b.reply(ctx, r.chatID, "🗑 Використання: <code>/del 14.02</code> або <code>/del Назва</code>")
		return
	}
	removed, err := b.deps.Calendar.DeleteEvents(ctx, r.chatID, query)
	if err != nil {
		r.logger.Error("failed to delete events", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, "❌ Помилка видалення.")
		return
	}
	if len(removed) == 0 {
		b.reply(ctx, r.chatID, services.NothingFound)
		return
	}
	b.reply(ctx, r.chatID, "🗑 "+services.FormatDeleteReport(removed))
}
