package cache

import (
	"context"
	"sync"
	"time"
)

// CacheItem представляет кэшированное значение и момент его устаревания.
type CacheItem[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// CacheStore - потокобезопасный кэш с TTL для ответов внешних сервисов.
type CacheStore[V any] struct {
	cache map[string]*CacheItem[V]
	mutex sync.RWMutex
	now   func() time.Time
}

// NewCacheStore создает новый экземпляр CacheStore.
func NewCacheStore[V any]() *CacheStore[V] {
	return &CacheStore[V]{
		cache: make(map[string]*CacheItem[V]),
		now:   time.Now,
	}
}

// Get извлекает элемент по ключу. Просроченные элементы считаются отсутствующими.
func (cs *CacheStore[V]) Get(key string) (V, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	item, exists := cs.cache[key]
	if !exists || cs.now().After(item.ExpiresAt) {
		var zero V
		return zero, false
	}
	return item.Data, true
}

// Put сохраняет элемент в кэш с указанным сроком действия.
func (cs *CacheStore[V]) Put(key string, data V, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache[key] = &CacheItem[V]{
		Data:      data,
		ExpiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет элемент, например после смены города.
func (cs *CacheStore[V]) Delete(key string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	delete(cs.cache, key)
}

// GetOrLoad возвращает значение из кэша или вызывает load и кэширует
// успешный результат. Ошибки не кэшируются.
func (cs *CacheStore[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if v, ok := cs.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	cs.Put(key, v, ttl)
	return v, nil
}

// Len возвращает число элементов, включая еще не удаленные просроченные.
func (cs *CacheStore[V]) Len() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return len(cs.cache)
}

// CleanupExpired удаляет просроченные элементы из кэша.
func (cs *CacheStore[V]) CleanupExpired() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := cs.now()
	for key, item := range cs.cache {
		if now.After(item.ExpiresAt) {
			delete(cs.cache, key)
		}
	}
}

// StartCleanupTicker запускает периодическую очистку до отмены контекста.
func (cs *CacheStore[V]) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}
