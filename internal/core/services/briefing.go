package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"jeeves-bot/internal/ports"
)

// BriefingSeparator разделяет разделы брифинга.
const BriefingSeparator = "\n\n▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬▬\n\n"

// BriefingService собирает утренний брифинг: напоминания, погоду и новости.
type BriefingService struct {
	calendar *CalendarService
	weather  ports.WeatherProvider
	news     ports.NewsProvider
	log      *slog.Logger
}

// NewBriefingService создает сервис. weather и news могут быть nil.
func NewBriefingService(calendar *CalendarService, weather ports.WeatherProvider, news ports.NewsProvider, logger *slog.Logger) *BriefingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BriefingService{calendar: calendar, weather: weather, news: news, log: logger}
}

// Compose собирает брифинг для чата. Упавший раздел пропускается,
// чтобы остальные все равно дошли.
func (s *BriefingService) Compose(ctx context.Context, chatID int64) string {
	var parts []string

	if digest, ok, err := s.calendar.UpcomingDigest(ctx, chatID); err != nil {
		s.log.ErrorContext(ctx, "briefing: calendar digest failed", slog.Any("error", err))
	} else if ok {
		parts = append(parts, "📅 <b>Нагадування:</b>\n"+digest)
	}

	if s.weather != nil {
		if text, err := s.weather.Forecast(ctx); err != nil {
			s.log.WarnContext(ctx, "briefing: weather failed", slog.Any("error", err))
		} else if text != "" {
			parts = append(parts, text)
		}
	}

	if s.news != nil {
		if text, err := s.news.FreshNews(ctx); err != nil {
			s.log.WarnContext(ctx, "briefing: news failed", slog.Any("error", err))
		} else if text != "" {
			parts = append(parts, text)
		}
	}

	greeting := TimeGreeting(s.calendar.Now())
	if len(parts) == 0 {
		return greeting + "! Новин та подій немає."
	}
	return "☕️ <b>" + greeting + "! Ранковий брифінг:</b>\n\n" + strings.Join(parts, BriefingSeparator)
}

// TimeGreeting возвращает приветствие по времени суток.
func TimeGreeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "🌅 Доброго ранку"
	case h >= 12 && h < 18:
		return "☀️ Добрий день"
	case h >= 18 && h < 23:
		return "🍸 Доброго вечора"
	default:
		return "🌙 Доброї ночі"
	}
}
