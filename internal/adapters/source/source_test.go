package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	t.Run("Пустой путь", func(t *testing.T) {
		data, err := NewFileSource("").Fetch()
		require.EqualError(t, err, "не указан путь к файлу")
		assert.Nil(t, data)
	})

	t.Run("Несуществующий файл", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch()
		assert.Error(t, err)
	})

	t.Run("Чтение существующего файла", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calendar.json")
		want := []byte(`[{"date":"14.02","text":"Valentine"}]`)
		require.NoError(t, os.WriteFile(path, want, 0o644))

		data, err := NewFileSource(path).Fetch()
		require.NoError(t, err)
		assert.Equal(t, want, data)
	})
}

func TestMemorySource(t *testing.T) {
	t.Run("Данные не установлены", func(t *testing.T) {
		_, err := NewMemorySource(nil).Fetch()
		assert.EqualError(t, err, "данные не установлены")
	})

	t.Run("Возвращается копия", func(t *testing.T) {
		orig := []byte("abc")
		data, err := NewMemorySource(orig).Fetch()
		require.NoError(t, err)
		data[0] = 'x'
		assert.Equal(t, []byte("abc"), orig)
	})
}
