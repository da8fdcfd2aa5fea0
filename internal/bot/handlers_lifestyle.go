package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"jeeves-bot/internal/domain"
)

const notConfiguredText = "⚠️ Функція не налаштована."

func (b *Bot) cmdWeather(ctx context.Context, r *request) {
	if b.deps.Weather == nil {
		b.reply(ctx, r.chatID, notConfiguredText)
		return
	}
	sent := b.reply(ctx, r.chatID, "🌤 Дивлюсь у вікно...")
	text, err := b.deps.Weather.Forecast(ctx)
	if err != nil {
		r.logger.Warn("weather forecast failed", slog.String("error", err.Error()))
		text = "❌ Сервіс погоди тимчасово недоступний."
	}
	b.edit(ctx, r.chatID, sent, text)
}

func (b *Bot) cmdSetCity(ctx context.Context, r *request) {
	if b.deps.Weather == nil {
		b.reply(ctx, r.chatID, notConfiguredText)
		return
	}
	if city := strings.TrimSpace(r.msg.CommandArguments()); city != "" {
		b.findAndSaveCity(ctx, r.chatID, city)
		return
	}
	b.reply(ctx, r.chatID, "🏙 Введіть назву міста для пошуку:")
	b.sessions.Set(r.chatID, r.userID, Session{State: StateCity})
}

func (b *Bot) findAndSaveCity(ctx context.Context, chatID int64, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.reply(ctx, chatID, "❌ Місто не знайдено.")
		return
	}
	sent := b.reply(ctx, chatID, fmt.Sprintf("🔎 Шукаю <b>%s</b>...", html.EscapeString(query)))

	city, err := b.deps.Weather.SearchCity(ctx, query)
	if err != nil {
		b.logger.WarnContext(ctx, "city search failed", slog.String("query", query), slog.String("error", err.Error()))
		b.edit(ctx, chatID, sent, "❌ Сервіс погоди тимчасово недоступний.")
		return
	}
	if city == nil {
		b.edit(ctx, chatID, sent, "❌ Місто не знайдено.")
		return
	}
	if err := b.deps.Weather.SetCity(ctx, *city); err != nil {
		b.logger.ErrorContext(ctx, "failed to save city", slog.String("error", err.Error()))
		b.edit(ctx, chatID, sent, "❌ Не вдалося зберегти місто.")
		return
	}
	b.edit(ctx, chatID, sent, formatCityChanged(*city))
}

func formatCityChanged(city domain.City) string {
	country := ""
	if city.Country != "" {
		country = " (" + html.EscapeString(city.Country) + ")"
	}
	return fmt.Sprintf("✅ Місто змінено на <b>%s</b>%s.\nТепер команда /weather показуватиме погоду тут.",
		html.EscapeString(city.Name), country)
}

func (b *Bot) cmdNews(ctx context.Context, r *request) {
	if b.deps.News == nil {
		b.reply(ctx, r.chatID, notConfiguredText)
		return
	}
	sent := b.reply(ctx, r.chatID, "📰 Гортаю газети...")
	text, err := b.deps.News.FreshNews(ctx)
	if err != nil {
		r.logger.Warn("news failed", slog.String("error", err.Error()))
		text = "📭 Новин не знайдено або помилка з'єднання."
	}
	b.edit(ctx, r.chatID, sent, text)
}

func (b *Bot) cmdPrice(ctx context.Context, r *request) {
	if b.deps.Prices == nil {
		b.reply(ctx, r.chatID, notConfiguredText)
		return
	}
	query := strings.TrimSpace(r.msg.CommandArguments())
	if query == "" {
		b.reply(ctx, r.chatID, "🛒 Використання: <code>/price молоко</code>")
		return
	}
	sent := b.reply(ctx, r.chatID, fmt.Sprintf("🛒 Шукаю <b>%s</b> в АТБ...", html.EscapeString(query)))
	text, err := b.deps.Prices.Search(ctx, query)
	if err != nil {
		r.logger.Warn("price search failed", slog.String("error", err.Error()))
		text = "❌ Помилка з'єднання з магазином."
	}
	b.edit(ctx, r.chatID, sent, text)
}

// cmdBriefing собирает утренний брифинг вручную.
func (b *Bot) cmdBriefing(ctx context.Context, r *request) {
	sent := b.reply(ctx, r.chatID, "☕️ Збираю ранкову пресу...")
	b.edit(ctx, r.chatID, sent, b.deps.Briefing.Compose(ctx, r.chatID))
}
