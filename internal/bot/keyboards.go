package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
)

// Кнопки главного меню.
const (
	btnCalendar    = "📅 Календар"
	btnWeather     = "🌦 Погода"
	btnNews        = "📰 Новини"
	btnTorchOn     = "🔦 Вкл"
	btnTorchOff    = "🌑 Викл"
	btnStatus      = "📊 Статус"
	btnRestartCat  = "🐈 перезапуск."
	btnRestartSSH  = "Рестарт 😈 SSH"
	btnRestartSelf = "Рестарт головного 😈"
)

// Callback data inline-кнопок.
const (
	cbCalendarPrefix  = "cal_"
	cbEditEventPrefix = "edit_evt_"
	cbSaveNote        = "save_note"
	cbAddTags         = "add_tags"
	cbListNotes       = "list_notes"
	cbViewNote        = "view_note"
	cbDeleteNote      = "del_note"
	cbBackToTags      = "back_to_tags"
	cbDeleteMsg       = "delete_msg"
)

// maxCallbackData - предел Telegram на длину callback data в байтах.
const maxCallbackData = 64

// mainMenu строит нижнее меню по уровню доступа. Чужим меню не положено.
func mainMenu(isOwner, isAdmin bool) (tgbotapi.ReplyKeyboardMarkup, bool) {
	var rows [][]tgbotapi.KeyboardButton
	if isOwner || isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCalendar),
			tgbotapi.NewKeyboardButton(btnWeather),
			tgbotapi.NewKeyboardButton(btnNews),
		))
	}
	if isOwner {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnTorchOn),
				tgbotapi.NewKeyboardButton(btnTorchOff),
				tgbotapi.NewKeyboardButton(btnStatus),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnRestartCat),
				tgbotapi.NewKeyboardButton(btnRestartSSH),
				tgbotapi.NewKeyboardButton(btnRestartSelf),
			),
		)
	}
	if len(rows) == 0 {
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb, true
}

// calendarFilterKeyboard - выбор периода, по две кнопки в ряд.
func calendarFilterKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := func(text string, f domain.EventFilter) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(text, cbCalendarPrefix+string(f))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("📅 Сьогодні", domain.FilterToday), btn("🗓 Тиждень", domain.FilterWeek)),
		tgbotapi.NewInlineKeyboardRow(btn("📆 Місяць", domain.FilterMonth), btn("📚 Всі", domain.FilterAll)),
		tgbotapi.NewInlineKeyboardRow(btn("❄️ Зима", domain.FilterWinter), btn("🌷 Весна", domain.FilterSpring)),
		tgbotapi.NewInlineKeyboardRow(btn("☀️ Літо", domain.FilterSummer), btn("🍂 Осінь", domain.FilterAutumn)),
	)
}

func editEventKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Редагувати", fmt.Sprintf("%s%d", cbEditEventPrefix, id)),
	))
}

func draftKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Зберегти так", cbSaveNote)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✍️ Додати свої теги", cbAddTags)),
	)
}

// tagsKeyboard - категории базы знаний по две в ряд.
func tagsKeyboard(tags []string, hasUntagged bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, tag := range tags {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("📂 "+tag, callbackData(cbListNotes, tag)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if hasUntagged {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Інше (без тегів)", callbackData(cbListNotes, services.UntaggedKey)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Закрити меню", cbDeleteMsg),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// notesListKeyboard - превью заметок категории: 🖼 для фото, 🎙 для голоса.
func notesListKeyboard(notes []domain.Note, tag string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(notes)+1)
	for _, n := range notes {
		icon := "🔹"
		switch n.MediaType {
		case domain.MediaPhoto:
			icon = "🖼"
		case domain.MediaVoice:
			icon = "🎙"
		}
		text := "Без опису"
		if n.Content != "" {
			text = preview(strings.ReplaceAll(n.Content, "\n", " "), 28)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			icon+" "+text, callbackData(cbViewNote, fmt.Sprint(n.ID), tag),
		)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Назад до категорій", cbBackToTags),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func noteViewKeyboard(id int64, tag string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 Видалити", callbackData(cbDeleteNote, fmt.Sprint(id), tag))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Назад до списку", callbackData(cbListNotes, tag))),
	)
}

// callbackData склеивает части через ":" и обрезает результат до 64 байт
// по границе символа. Обрезается только последняя часть (тег), поэтому
// идентификаторы всегда доходят целыми.
func callbackData(parts ...string) string {
	data := strings.Join(parts, ":")
	if len(data) <= maxCallbackData {
		return data
	}
	cut := maxCallbackData
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut]
}

// parseCallback разбирает "action:id:tag". Тег может содержать ":".
func parseCallback(data string) (action, id, tag string) {
	action, rest, _ := strings.Cut(data, ":")
	switch action {
	case cbListNotes:
		return action, "", rest
	default:
		id, tag, _ = strings.Cut(rest, ":")
		return action, id, tag
	}
}
