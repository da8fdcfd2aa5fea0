package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"

	"jeeves-bot/internal/core/services"
)

const (
	systemDisabledText = "⚙️ Системні функції на цьому пристрої вимкнені."
	helpText           = "🎩 <b>Jeeves до ваших послуг.</b>\n\n" +
		"<b>Загальне:</b> /start, /id, /cancel, /help\n" +
		"<b>Календар:</b> /events, /add, /import, /del, /briefing, /export\n" +
		"<b>Нотатки:</b> /note, /notes\n" +
		"<b>Довіра:</b> /trust, /untrust, /trust_admins\n" +
		"<b>Lifestyle:</b> /weather, /set_city, /news, /price\n" +
		"<b>Система:</b> /status, /storage, /ping, /say, /light_on, /light_off, /r_cat, /r_ssh, /r_status, /backup"
)

func (b *Bot) cmdStart(ctx context.Context, r *request) {
	name := html.EscapeString(r.msg.From.FirstName)
	greeting := services.TimeGreeting(b.now())
	isOwner := b.deps.Access.IsOwner(r.userID)
	isAdmin := b.deps.Access.IsAuthorized(r.userID)

	var text string
	switch {
	case isOwner:
		text = fmt.Sprintf("%s, Шеф <b>%s</b>! 🎩\nСистеми в нормі. Чекаю на вказівки.", greeting, name)
	case isAdmin:
		text = fmt.Sprintf("%s, <b>%s</b>! 👋\nРадий бачити. Ось твій пульт.", greeting, name)
	default:
		text = fmt.Sprintf("Вітаю, %s.\nЯ приватний асистент Jeeves. У мене немає функцій для публічного доступу.\nГарного дня! 🤖", name)
	}

	if kb, ok := mainMenu(isOwner, isAdmin); ok {
		b.replyWithMarkup(ctx, r.chatID, text, kb)
		return
	}
	b.reply(ctx, r.chatID, text)
}

func (b *Bot) cmdHelp(ctx context.Context, r *request) {
	b.reply(ctx, r.chatID, helpText)
}

func (b *Bot) cmdID(ctx context.Context, r *request) {
	b.reply(ctx, r.chatID, fmt.Sprintf("🆔 Твій Telegram ID: <code>%d</code>", r.userID))
}

func (b *Bot) cmdCancel(ctx context.Context, r *request) {
	if !b.sessions.Reset(r.chatID, r.userID) {
		b.reply(ctx, r.chatID, "🤷‍♂️ Немає чого скасовувати.")
		return
	}
	b.reply(ctx, r.chatID, "👌 Скасовано.")
}

func (b *Bot) cmdStatus(ctx context.Context, r *request) {
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.reply(ctx, r.chatID, "🔍 Збираю дані про систему...")
	b.reply(ctx, r.chatID, b.deps.System.FullReport(ctx))
}

func (b *Bot) cmdStorage(ctx context.Context, r *request) {
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.reply(ctx, r.chatID, "💾 <b>Сховище:</b>\n"+b.deps.System.StorageInfo(ctx))
}

func (b *Bot) cmdPing(ctx context.Context, r *request) {
	uptime := "невідомо"
	if b.deps.System != nil {
		uptime = b.deps.System.Uptime(ctx)
	}
	b.reply(ctx, r.chatID, "🏓 Pong! Аптайм: "+uptime)
}

func (b *Bot) cmdSay(ctx context.Context, r *request) {
	text := r.msg.CommandArguments()
	if text == "" {
		b.reply(ctx, r.chatID, "🗣 Напиши, що сказати. Наприклад: <code>/say Привіт</code>")
		return
	}
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.deps.System.Speak(ctx, text)
	b.reply(ctx, r.chatID, fmt.Sprintf("🗣 Промовляю: <i>%s</i>", html.EscapeString(text)))
}

func (b *Bot) cmdLightOn(ctx context.Context, r *request) {
	b.torch(ctx, r, true, "🔦 Ліхтар увімкнено.")
}

func (b *Bot) cmdLightOff(ctx context.Context, r *request) {
	b.torch(ctx, r, false, "🌑 Ліхтар вимкнено.")
}

func (b *Bot) torch(ctx context.Context, r *request, on bool, done string) {
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.deps.System.Torch(ctx, on)
	b.reply(ctx, r.chatID, done)
}

func (b *Bot) cmdRestartCat(ctx context.Context, r *request) {
	b.restartService(ctx, r, "misanthrope_cat", "Кота")
}

func (b *Bot) cmdRestartSSH(ctx context.Context, r *request) {
	b.restartService(ctx, r, "ssh-server", "SSH")
}

// cmdRestartSelf перезапускает процесс самого бота, поэтому
// результат сообщить уже некому.
func (b *Bot) cmdRestartSelf(ctx context.Context, r *request) {
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.reply(ctx, r.chatID, "♻️ Перезавантажуюсь... Побачимось за мить! 👋")
	b.deps.System.RestartService(ctx, "status")
}

func (b *Bot) restartService(ctx context.Context, r *request, service, friendly string) {
	if b.deps.System == nil {
		b.reply(ctx, r.chatID, systemDisabledText)
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("🔄 Перезапускаю <b>%s</b>...", friendly))
	if b.deps.System.RestartService(ctx, service) {
		b.reply(ctx, r.chatID, fmt.Sprintf("✅ %s: Успішно!", friendly))
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("❌ %s: Помилка PM2.", friendly))
}

func (b *Bot) cmdBackup(ctx context.Context, r *request) {
	if b.deps.Backup == nil {
		b.reply(ctx, r.chatID, "⚠️ Резервне копіювання не налаштоване.")
		return
	}
	path, err := b.deps.Backup(ctx)
	if err != nil {
		r.logger.Error("manual backup failed", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, "❌ Не вдалося створити резервну копію.")
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("💾 Резервну копію збережено: <code>%s</code>", html.EscapeString(filepath.Base(path))))
}
