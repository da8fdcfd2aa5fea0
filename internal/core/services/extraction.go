package services

import (
	"sort"
	"strings"
	"unicode"

	"jeeves-bot/internal/domain"
)

// UntaggedKey - служебное значение для выборки заметок без тегов.
const UntaggedKey = "__empty__"

// NormalizeTags приводит свободный ввод к виду "#a #b".
// Если во вводе есть запятые, разделителем считается запятая, а пробелы
// внутри тега заменяются на "_"; иначе теги разделяются пробелами.
func NormalizeTags(raw string) string {
	var tokens []string
	if strings.Contains(raw, ",") {
		for _, part := range strings.Split(raw, ",") {
			tokens = append(tokens, strings.Join(strings.Fields(part), "_"))
		}
	} else {
		tokens = strings.Fields(raw)
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimLeft(t, "#")
		t = strings.TrimFunc(t, unicode.IsPunct)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, "#"+t)
	}
	return strings.Join(out, " ")
}

// ExtractTags собирает из текста слова, начинающиеся с "#".
func ExtractTags(text string) string {
	var found []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") && len(strings.TrimLeft(word, "#")) > 0 {
			found = append(found, word)
		}
	}
	return NormalizeTags(strings.Join(found, " "))
}

// splitTagString разбирает сохраненную строку тегов в любом из исторических
// форматов ("#a #b" или "a, b") и возвращает теги без "#".
func splitTagString(stored string) []string {
	fields := strings.FieldsFunc(stored, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimLeft(f, "#"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// tagVocabulary возвращает отсортированный список уникальных тегов.
func tagVocabulary(stored []string) []string {
	set := make(map[string]struct{})
	for _, s := range stored {
		for _, t := range splitTagString(s) {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// ParseImportBlock разбирает строки вида "ДД.ММ Текст".
// Строки с некорректной датой или без текста пропускаются.
func ParseImportBlock(block string) (events []domain.Event, skipped int) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.IndexFunc(line, unicode.IsSpace)
		if idx < 0 {
			skipped++
			continue
		}
		datePart, text := line[:idx], strings.TrimSpace(line[idx:])
		if text == "" {
			skipped++
			continue
		}
		date, err := domain.ParseDayMonth(datePart)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, domain.Event{Date: date, Text: text})
	}
	return events, skipped
}

// wordCount считает слова, разделенные пробельными символами.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
