package parser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"jeeves-bot/internal/domain"
)

// LegacyResult - события, извлеченные из старого calendar.json.
type LegacyResult struct {
	Events  []domain.Event
	Skipped int // записи с некорректной датой или пустым текстом
}

type legacyEvent struct {
	Date string `json:"date"`
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// LegacyCalendarParser разбирает calendar.json двух исторических форматов:
// плоский массив событий одного владельца и словарь user_id → массив событий.
// Ссылки могут быть записаны как есть или в base64.
type LegacyCalendarParser struct {
	defaultChatID int64
}

// NewLegacyCalendarParser создает парсер. defaultChatID присваивается
// событиям из плоского массива, где владелец не указан.
func NewLegacyCalendarParser(defaultChatID int64) *LegacyCalendarParser {
	return &LegacyCalendarParser{defaultChatID: defaultChatID}
}

// Parse преобразует содержимое файла в события.
func (p *LegacyCalendarParser) Parse(data []byte) (*LegacyResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &LegacyResult{}, nil
	}

	res := &LegacyResult{}
	switch trimmed[0] {
	case '[':
		var flat []legacyEvent
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, fmt.Errorf("failed to unmarshal legacy calendar: %w", err)
		}
		p.appendEvents(res, p.defaultChatID, flat)
	case '{':
		var byUser map[string][]legacyEvent
		if err := json.Unmarshal(trimmed, &byUser); err != nil {
			return nil, fmt.Errorf("failed to unmarshal legacy calendar: %w", err)
		}
		// Порядок ключей map случаен, а ID событий зависят от порядка вставки.
		keys := make([]string, 0, len(byUser))
		for k := range byUser {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			chatID, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user id %q in legacy calendar: %w", k, err)
			}
			p.appendEvents(res, chatID, byUser[k])
		}
	default:
		return nil, fmt.Errorf("unsupported legacy calendar format")
	}
	return res, nil
}

func (p *LegacyCalendarParser) appendEvents(res *LegacyResult, chatID int64, items []legacyEvent) {
	for _, it := range items {
		date, err := domain.ParseDayMonth(it.Date)
		text := strings.TrimSpace(it.Text)
		if err != nil || text == "" {
			res.Skipped++
			continue
		}
		res.Events = append(res.Events, domain.Event{
			ChatID: chatID,
			Date:   date,
			Text:   text,
			Link:   decodeLegacyLink(it.Link),
		})
	}
}

// decodeLegacyLink раскрывает base64-ссылки; обычные URL возвращает без изменений.
func decodeLegacyLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		s := string(decoded)
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			return s
		}
	}
	return raw
}
