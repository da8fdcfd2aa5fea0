package source

import (
	"fmt"

	"jeeves-bot/internal/ports"
)

// MemorySource отдает заранее переданные байты, например документ из чата.
type MemorySource struct {
	data []byte
}

// NewMemorySource создает источник поверх среза байт.
func NewMemorySource(data []byte) ports.DataSource {
	return &MemorySource{data: data}
}

// Fetch возвращает копию данных.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные не установлены")
	}

	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
