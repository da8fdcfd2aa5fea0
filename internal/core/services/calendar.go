package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"time"

	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/ports"
)

// NothingFound - ответ на удаление, которое ничего не нашло.
const NothingFound = "🤷‍♂️ Нічого не знайдено."

// Границы фильтров в днях, включительно.
const (
	weekWindow  = 7
	monthWindow = 31
)

// CalendarOption настраивает CalendarService.
type CalendarOption func(*CalendarService)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) CalendarOption {
	return func(s *CalendarService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCalendarLogger устанавливает логгер для сервиса.
func WithCalendarLogger(l *slog.Logger) CalendarOption {
	return func(s *CalendarService) {
		if l != nil {
			s.log = l
		}
	}
}

// CalendarService управляет ежегодными событиями чатов.
// Записи одного чата сериализуются мьютексом, поэтому параллельные
// импорты не пересекаются по ID.
type CalendarService struct {
	events ports.EventRepository
	locks  *chatLocks
	now    func() time.Time
	log    *slog.Logger
}

// NewCalendarService создает сервис календаря.
func NewCalendarService(events ports.EventRepository, opts ...CalendarOption) *CalendarService {
	s := &CalendarService{
		events: events,
		locks:  newChatLocks(),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now возвращает текущее время по часам сервиса.
func (s *CalendarService) Now() time.Time { return s.now() }

type datedEvent struct {
	event domain.Event
	delta int
}

// ListEvents возвращает события чата за период.
// today, week и month отсортированы по числу дней до события,
// all и сезоны - в календарном порядке.
func (s *CalendarService) ListEvents(ctx context.Context, chatID int64, filter domain.EventFilter) ([]domain.Event, error) {
	all, err := s.events.List(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	if season, ok := filter.Season(); ok {
		var out []domain.Event
		for _, e := range all {
			if season.Contains(e.Date.Month) {
				out = append(out, e)
			}
		}
		sortByCalendar(out)
		return out, nil
	}

	var maxDelta int
	switch filter {
	case domain.FilterAll:
		sortByCalendar(all)
		return all, nil
	case domain.FilterToday:
		maxDelta = 0
	case domain.FilterWeek:
		maxDelta = weekWindow
	case domain.FilterMonth:
		maxDelta = monthWindow
	default:
		return nil, fmt.Errorf("unknown filter %q", filter)
	}

	now := s.now()
	var dated []datedEvent
	for _, e := range all {
		if d := e.Date.DaysUntil(now); d <= maxDelta {
			dated = append(dated, datedEvent{event: e, delta: d})
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if dated[i].delta != dated[j].delta {
			return dated[i].delta < dated[j].delta
		}
		return dated[i].event.ID < dated[j].event.ID
	})

	out := make([]domain.Event, 0, len(dated))
	for _, d := range dated {
		out = append(out, d.event)
	}
	return out, nil
}

func sortByCalendar(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date.Less(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

// AddEvent проверяет дату, нормализует ссылку и сохраняет событие.
// При ошибке валидации хранилище не меняется.
func (s *CalendarService) AddEvent(ctx context.Context, chatID int64, rawDate, text, rawLink string) (domain.Event, error) {
	date, err := domain.ParseDayMonth(rawDate)
	if err != nil {
		return domain.Event{}, ErrInvalidDate
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Event{}, ErrEmptyText
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	e, err := s.events.Create(ctx, domain.Event{
		ChatID: chatID,
		Date:   date,
		Text:   text,
		Link:   NormalizeLink(rawLink),
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.log.InfoContext(ctx, "event added", slog.Int64("chat_id", chatID), slog.Int64("event_id", e.ID))
	return e, nil
}

// MassImport добавляет события из блока строк "ДД.ММ Текст" одной транзакцией
// и возвращает число добавленных. Некорректные строки пропускаются.
func (s *CalendarService) MassImport(ctx context.Context, chatID int64, block string) (int, error) {
	events, skipped := ParseImportBlock(block)
	if skipped > 0 {
		s.log.InfoContext(ctx, "import lines skipped", slog.Int64("chat_id", chatID), slog.Int("skipped", skipped))
	}
	if len(events) == 0 {
		return 0, nil
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	n, err := s.events.CreateBatch(ctx, chatID, events)
	if err != nil {
		return 0, fmt.Errorf("import events: %w", err)
	}
	return n, nil
}

// GetEvent возвращает событие чата или domain.ErrNotFound.
func (s *CalendarService) GetEvent(ctx context.Context, chatID, id int64) (domain.Event, error) {
	return s.events.Get(ctx, chatID, id)
}

// UpdateEventText меняет текст события. false - события нет.
func (s *CalendarService) UpdateEventText(ctx context.Context, chatID, id int64, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, ErrEmptyText
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	return s.events.UpdateText(ctx, chatID, id, text)
}

// DeleteEvents удаляет события по дате, если запрос является датой ДД.ММ,
// иначе по подстроке текста без учета регистра. Возвращает удаленные события.
func (s *CalendarService) DeleteEvents(ctx context.Context, chatID int64, query string) ([]domain.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyText
	}

	unlock := s.locks.lock(chatID)
	defer unlock()

	all, err := s.events.List(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	date, dateErr := domain.ParseDayMonth(query)
	needle := strings.ToLower(query)

	var (
		matched []domain.Event
		ids     []int64
	)
	for _, e := range all {
		// Запрос-дата удаляет только события этой даты, даже если дата
		// встречается в тексте других событий.
		byDate := dateErr == nil && e.Date == date
		byText := dateErr != nil && strings.Contains(strings.ToLower(e.Text), needle)
		if byDate || byText {
			matched = append(matched, e)
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.events.Delete(ctx, chatID, ids); err != nil {
		return nil, fmt.Errorf("delete events: %w", err)
	}
	s.log.InfoContext(ctx, "events deleted", slog.Int64("chat_id", chatID), slog.Int("count", len(ids)))
	sortByCalendar(matched)
	return matched, nil
}

// FormatDeleteReport описывает результат удаления для пользователя.
func FormatDeleteReport(removed []domain.Event) string {
	if len(removed) == 0 {
		return NothingFound
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Видалено подій: %d\n", len(removed))
	for _, e := range removed {
		fmt.Fprintf(&sb, "❌ %s: %s\n", e.Date, html.EscapeString(e.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// UpcomingDigest собирает напоминание о событиях на сегодня, завтра и
// ближайшие 2–7 дней. false означает, что напоминать не о чем.
func (s *CalendarService) UpcomingDigest(ctx context.Context, chatID int64) (string, bool, error) {
	events, err := s.ListEvents(ctx, chatID, domain.FilterWeek)
	if err != nil {
		return "", false, err
	}
	if len(events) == 0 {
		return "", false, nil
	}

	now := s.now()
	var today, tomorrow, soon []string
	for _, e := range events {
		switch d := e.Date.DaysUntil(now); {
		case d == 0:
			today = append(today, "• "+RenderEvent(e))
		case d == 1:
			tomorrow = append(tomorrow, "• "+RenderEvent(e))
		default:
			soon = append(soon, fmt.Sprintf("• %s (через %d дн.): %s", e.Date, d, RenderEvent(e)))
		}
	}

	var sections []string
	if len(today) > 0 {
		sections = append(sections, "🔴 <b>Сьогодні:</b>\n"+strings.Join(today, "\n"))
	}
	if len(tomorrow) > 0 {
		sections = append(sections, "🟡 <b>Завтра:</b>\n"+strings.Join(tomorrow, "\n"))
	}
	if len(soon) > 0 {
		sections = append(sections, "🟢 <b>Найближчий тиждень:</b>\n"+strings.Join(soon, "\n"))
	}
	return strings.Join(sections, "\n\n"), true, nil
}

// RenderEvent готовит событие к выводу в HTML-режиме Telegram.
// Текст экранируется; при наличии ссылки он оборачивается в якорь со значком.
func RenderEvent(e domain.Event) string {
	text := html.EscapeString(e.Text)
	if e.Link == "" {
		return text
	}
	return fmt.Sprintf("<a href='%s'>%s</a> %s", html.EscapeString(e.Link), text, linkIcon(e.Link))
}

// IsNotFound сообщает, что запись отсутствует.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
