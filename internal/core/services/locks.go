package services

import "sync"

// chatLocks выдает мьютекс на чат. Записи одного чата идут строго по очереди,
// разные чаты друг друга не блокируют.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock захватывает мьютекс чата и возвращает функцию освобождения.
func (c *chatLocks) lock(chatID int64) func() {
	c.mu.Lock()
	m, ok := c.locks[chatID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[chatID] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
