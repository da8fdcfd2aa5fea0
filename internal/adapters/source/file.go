package source

import (
	"fmt"
	"os"

	"jeeves-bot/internal/ports"
)

// FileSource читает данные для импорта из файла на диске.
type FileSource struct {
	filePath string
}

// NewFileSource создает источник для указанного файла.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch читает файл целиком.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
