package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/ports"
)

const (
	idColWidth   = 4
	dateColWidth = 5
	textColWidth = 40
)

// ConsoleExporter печатает события календаря таблицей для терминала.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает экспортер. nil означает os.Stdout.
func NewConsoleExporter(out io.Writer) ports.EventExporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleExporter{out: out}
}

// Export выводит события, по одной строке на событие.
// Длинный текст обрезается по ширине экрана, а не по числу байт.
func (e *ConsoleExporter) Export(events []domain.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(e.out, "Подій не знайдено.")
		return err
	}

	var sb strings.Builder
	sb.WriteString(row("ID", "Дата", "Подія", "Посилання"))
	sb.WriteString(fmt.Sprintf("|%s|%s|%s|%s\n",
		strings.Repeat("-", idColWidth+2),
		strings.Repeat("-", dateColWidth+2),
		strings.Repeat("-", textColWidth+2),
		strings.Repeat("-", 10),
	))
	for _, ev := range events {
		text := strings.ReplaceAll(strings.ToValidUTF8(ev.Text, ""), "\n", " ")
		sb.WriteString(row(fmt.Sprintf("%d", ev.ID), ev.Date.String(), text, ev.Link))
	}

	_, err := io.WriteString(e.out, sb.String())
	return err
}

func row(id, date, text, link string) string {
	return fmt.Sprintf("| %s | %s | %s | %s\n",
		fit(id, idColWidth),
		fit(date, dateColWidth),
		fit(text, textColWidth),
		link,
	)
}

// fit обрезает или дополняет строку до ширины колонки с учетом широких символов.
func fit(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
