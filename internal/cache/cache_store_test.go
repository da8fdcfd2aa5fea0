package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore(t *testing.T) {
	t.Run("Запись и чтение из кэша", func(t *testing.T) {
		cs := NewCacheStore[string]()
		cs.Put("weather", "☀️", time.Minute)

		v, found := cs.Get("weather")
		require.True(t, found)
		assert.Equal(t, "☀️", v)
	})

	t.Run("Чтение несуществующего ключа", func(t *testing.T) {
		cs := NewCacheStore[int]()
		v, found := cs.Get("missing")
		assert.False(t, found)
		assert.Zero(t, v)
	})

	t.Run("Чтение просроченного ключа", func(t *testing.T) {
		cs := NewCacheStore[string]()
		cs.Put("old", "x", -time.Second)
		_, found := cs.Get("old")
		assert.False(t, found)
	})

	t.Run("Удаление ключа", func(t *testing.T) {
		cs := NewCacheStore[string]()
		cs.Put("k", "v", time.Minute)
		cs.Delete("k")
		_, found := cs.Get("k")
		assert.False(t, found)
	})

	t.Run("Очистка просроченных ключей", func(t *testing.T) {
		cs := NewCacheStore[string]()
		cs.Put("expired", "a", -time.Minute)
		cs.Put("valid", "b", time.Minute)

		cs.CleanupExpired()

		assert.Equal(t, 1, cs.Len(), "Просроченный элемент должен быть удален")
		_, found := cs.Get("valid")
		assert.True(t, found)
	})
}

func TestCacheStore_GetOrLoad(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheStore[string]()
	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "news", nil
	}

	v, err := cs.GetOrLoad(ctx, "news", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "news", v)

	v, err = cs.GetOrLoad(ctx, "news", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "news", v)
	assert.Equal(t, 1, calls, "Второй вызов должен взять значение из кэша")

	t.Run("Ошибки не кэшируются", func(t *testing.T) {
		failing := func(context.Context) (string, error) { return "", errors.New("boom") }
		_, err := cs.GetOrLoad(ctx, "broken", time.Minute, failing)
		assert.Error(t, err)
		_, found := cs.Get("broken")
		assert.False(t, found)
	})
}

func TestStartCleanupTicker(t *testing.T) {
	cs := NewCacheStore[string]()
	cs.Put("expired", "a", 50*time.Millisecond)
	cs.Put("valid", "b", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs.StartCleanupTicker(ctx, 100*time.Millisecond)

	assert.Eventually(t, func() bool { return cs.Len() == 1 }, 2*time.Second, 20*time.Millisecond,
		"Просроченный элемент должен быть удален таймером")

	_, found := cs.Get("valid")
	assert.True(t, found, "Действительный элемент должен остаться")
}
