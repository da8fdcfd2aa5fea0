package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidDayMonth возвращается, если строка не является датой формата ДД.ММ.
	ErrInvalidDayMonth = errors.New("invalid day.month date")
	// ErrNotFound возвращается хранилищем для отсутствующих и чужих записей.
	ErrNotFound = errors.New("record not found")
)

// MediaType описывает тип вложения заметки.
type MediaType string

const (
	MediaNone  MediaType = ""
	MediaPhoto MediaType = "photo"
	MediaVoice MediaType = "voice"
)

// MemberStatus - роль пользователя в чате, как ее сообщает Telegram.
type MemberStatus string

const (
	MemberCreator       MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberRestricted    MemberStatus = "restricted"
	MemberLeft          MemberStatus = "left"
	MemberKicked        MemberStatus = "kicked"
)

// DayMonth - дата без года. Событие с такой датой повторяется ежегодно.
type DayMonth struct {
	Day   int
	Month time.Month
}

// ParseDayMonth разбирает строку вида "14.02" или "1.3".
// День должен быть в диапазоне 1–31, месяц - 1–12.
func ParseDayMonth(s string) (DayMonth, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidDayMonth, s)
	}

	day, err := parseSmallUint(parts[0])
	if err != nil {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidDayMonth, s)
	}
	month, err := parseSmallUint(parts[1])
	if err != nil {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidDayMonth, s)
	}

	if day < 1 || day > 31 || month < 1 || month > 12 {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidDayMonth, s)
	}

	return DayMonth{Day: day, Month: time.Month(month)}, nil
}

// parseSmallUint принимает только 1–2 цифры без знака.
func parseSmallUint(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, ErrInvalidDayMonth
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidDayMonth
		}
	}
	return strconv.Atoi(s)
}

// String возвращает дату в каноническом виде ДД.ММ.
func (d DayMonth) String() string {
	return fmt.Sprintf("%02d.%02d", d.Day, int(d.Month))
}

// Less сравнивает даты в календарном порядке без учета года.
func (d DayMonth) Less(other DayMonth) bool {
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// In возвращает дату в указанном году.
// 29.02 в невисокосный год и прочие несуществующие даты (31.04)
// переносятся вперед: 29.02 → 01.03, 31.04 → 01.05.
func (d DayMonth) In(year int, loc *time.Location) time.Time {
	if d.Month == time.February && d.Day == 29 && !IsLeapYear(year) {
		return time.Date(year, time.March, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// NextOccurrence возвращает ближайшую дату события начиная с сегодняшнего дня.
func (d DayMonth) NextOccurrence(now time.Time) time.Time {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	candidate := d.In(now.Year(), loc)
	if candidate.Before(today) {
		candidate = d.In(now.Year()+1, loc)
	}
	return candidate
}

// DaysUntil возвращает количество дней до ближайшего наступления даты.
// 0 означает "сегодня".
func (d DayMonth) DaysUntil(now time.Time) int {
	next := d.NextOccurrence(now)
	// Считаем в UTC, чтобы переход на летнее время не съедал час.
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// IsLeapYear сообщает, является ли год високосным.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Season - время года для фильтрации календаря.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// Contains сообщает, относится ли месяц к сезону.
func (s Season) Contains(m time.Month) bool {
	switch s {
	case Winter:
		return m == time.December || m == time.January || m == time.February
	case Spring:
		return m >= time.March && m <= time.May
	case Summer:
		return m >= time.June && m <= time.August
	case Autumn:
		return m >= time.September && m <= time.November
	}
	return false
}

// EventFilter - период выборки событий календаря.
type EventFilter string

const (
	FilterToday  EventFilter = "today"
	FilterWeek   EventFilter = "week"
	FilterMonth  EventFilter = "month"
	FilterAll    EventFilter = "all"
	FilterWinter EventFilter = EventFilter(Winter)
	FilterSpring EventFilter = EventFilter(Spring)
	FilterSummer EventFilter = EventFilter(Summer)
	FilterAutumn EventFilter = EventFilter(Autumn)
)

// ParseEventFilter проверяет значение фильтра, пришедшее из callback-данных.
func ParseEventFilter(s string) (EventFilter, bool) {
	switch f := EventFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterToday, FilterWeek, FilterMonth, FilterAll,
		FilterWinter, FilterSpring, FilterSummer, FilterAutumn:
		return f, true
	}
	return "", false
}

// Season возвращает сезон для сезонных фильтров.
func (f EventFilter) Season() (Season, bool) {
	switch f {
	case FilterWinter, FilterSpring, FilterSummer, FilterAutumn:
		return Season(f), true
	}
	return "", false
}

// Event - ежегодное событие календаря конкретного чата.
type Event struct {
	ID        int64     `json:"id"` // локальный для чата
	ChatID    int64     `json:"chat_id"`
	Date      DayMonth  `json:"-"`
	Text      string    `json:"text"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Note - заметка базы знаний чата.
type Note struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags"`
	FileID    string    `json:"file_id,omitempty"`
	MediaType MediaType `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TrustGrant - запись локального списка доверенных пользователей чата.
type TrustGrant struct {
	ChatID    int64
	UserID    int64
	GrantedBy int64
	CreatedAt time.Time
}

// City - город, для которого показывается погода.
type City struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country,omitempty"`
}
