package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves-bot/internal/domain"
)

const legacyFlat = `[
  {"date": "05.03", "text": "День народження мами", "link": "aHR0cHM6Ly9leGFtcGxlLmNvbS9naWZ0"},
  {"date": "32.02", "text": "Неіснуюча дата"},
  {"date": "14.10", "text": "Покрова"}
]`

const legacyByUser = `{
  "200": [{"date": "01.01", "text": "Новий рік"}],
  "100": [{"date": "25.12", "text": "Різдво"}, {"date": "01.09", "text": ""}]
}`

type ctl struct {
	t      *testing.T
	db     string
	config string
}

func newCtl(t *testing.T) *ctl {
	t.Helper()
	t.Setenv("OWNER_ID", "42")
	dir := t.TempDir()
	return &ctl{t: t, db: filepath.Join(dir, "jeeves.db"), config: filepath.Join(dir, "missing.yml")}
}

func (c *ctl) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", c.config, "--db", c.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateJSON(t *testing.T) {
	t.Run("плоский массив попадает в чат владельца", func(t *testing.T) {
		c := newCtl(t)
		out, err := c.run(legacyFlat, "migrate-json", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "чат 42: додано 2")
		assert.Contains(t, out, "Перенесено подій: 2, пропущено: 1")

		out, err = c.run("", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "День народження мами")
		assert.Contains(t, out, "https://example.com/gift")
		assert.Contains(t, out, "14.10")
	})

	t.Run("словарь по пользователям", func(t *testing.T) {
		c := newCtl(t)
		path := filepath.Join(t.TempDir(), "calendar.json")
		require.NoError(t, os.WriteFile(path, []byte(legacyByUser), 0o600))

		out, err := c.run("", "migrate-json", path)
		require.NoError(t, err)
		assert.Contains(t, out, "чат 100: додано 1")
		assert.Contains(t, out, "чат 200: додано 1")
		assert.Contains(t, out, "пропущено: 1")
		assert.Less(t, strings.Index(out, "чат 100"), strings.Index(out, "чат 200"))

		out, err = c.run("", "list", "--chat", "200")
		require.NoError(t, err)
		assert.Contains(t, out, "Новий рік")
		assert.NotContains(t, out, "Різдво")
	})

	t.Run("dry-run ничего не пишет", func(t *testing.T) {
		c := newCtl(t)
		out, err := c.run(legacyFlat, "migrate-json", "--dry-run", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "Знайдено подій: 2, пропущено: 1")

		out, err = c.run("", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Подій не знайдено.")
	})

	t.Run("повторный перенос без --force пропускается", func(t *testing.T) {
		c := newCtl(t)
		_, err := c.run(legacyFlat, "migrate-json", "-")
		require.NoError(t, err)

		out, err := c.run(legacyFlat, "migrate-json", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "календар вже містить подій: 2")
		assert.Contains(t, out, "Перенесено подій: 0")

		out, err = c.run(legacyFlat, "migrate-json", "--force", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "чат 42: додано 2")
	})

	t.Run("битый файл", func(t *testing.T) {
		c := newCtl(t)
		_, err := c.run(`"just a string"`, "migrate-json", "-")
		assert.Error(t, err)
	})
}

func TestImportEvents(t *testing.T) {
	c := newCtl(t)

	_, err := c.run("01.05 Травневі\n", "import-events", "-")
	assert.Error(t, err, "без --chat команда не выполняется")

	out, err := c.run("01.05 Травневі\nкривий рядок\n24.08 День Незалежності\n", "import-events", "--chat=-7", "-")
	require.NoError(t, err)
	assert.Equal(t, "Імпортовано подій: 2\n", out)

	out, err = c.run("", "list", "--chat=-7", "--filter", "summer")
	require.NoError(t, err)
	assert.Contains(t, out, "День Незалежності")
	assert.NotContains(t, out, "Травневі")

	_, err = c.run("", "list", "--filter", "someday")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	c := newCtl(t)
	dir := filepath.Join(t.TempDir(), "backups")

	out, err := c.run("", "backup", "--dir", dir, "--keep", "3")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestGroupByChat(t *testing.T) {
	events := []domain.Event{
		{ChatID: 2, Text: "a"},
		{ChatID: 1, Text: "b"},
		{ChatID: 2, Text: "c"},
	}
	groups := groupByChat(events)
	require.Len(t, groups, 2)
	assert.Equal(t, int64(2), groups[0].id)
	assert.Len(t, groups[0].events, 2)
	assert.Equal(t, "c", groups[0].events[1].Text)
	assert.Equal(t, int64(1), groups[1].id)
}
