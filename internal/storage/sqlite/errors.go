package sqlite

import "jeeves-bot/internal/domain"

// ErrNotFound сообщает, что записи нет или она принадлежит другому чату.
var ErrNotFound = domain.ErrNotFound
