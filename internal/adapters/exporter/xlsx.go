package exporter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"jeeves-bot/internal/domain"
)

const (
	eventsSheet = "Календар"
	notesSheet  = "Нотатки"
)

// BuildWorkbook собирает XLSX с двумя листами: события и заметки чата.
func BuildWorkbook(events []domain.Event, notes []domain.Note, exportedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", eventsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(notesSheet); err != nil {
		return nil, fmt.Errorf("create notes sheet: %w", err)
	}

	eventRows := make([][]any, 0, len(events))
	for _, e := range events {
		eventRows = append(eventRows, []any{e.ID, e.Date.String(), e.Text, e.Link})
	}
	if err := writeSheet(f, eventsSheet, []string{"ID", "Дата", "Подія", "Посилання"}, eventRows); err != nil {
		return nil, err
	}

	noteRows := make([][]any, 0, len(notes))
	for _, n := range notes {
		noteRows = append(noteRows, []any{n.ID, n.Content, n.Tags, string(n.MediaType), n.CreatedAt.Format("2006-01-02 15:04")})
	}
	if err := writeSheet(f, notesSheet, []string{"ID", "Текст", "Теги", "Медіа", "Створено"}, noteRows); err != nil {
		return nil, err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Creator: "Jeeves",
		Created: exportedAt.Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &buf, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	for r, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return nil
}
