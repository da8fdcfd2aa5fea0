package services

import "errors"

var (
	// ErrInvalidDate - дата не в формате ДД.ММ или вне допустимых границ.
	ErrInvalidDate = errors.New("invalid date, expected DD.MM")
	// ErrEmptyText - пустой текст события или заметки.
	ErrEmptyText = errors.New("empty text")
	// ErrForbidden - у пользователя нет прав на операцию в этом чате.
	ErrForbidden = errors.New("forbidden")
	// ErrOwnerProtected - попытка отозвать доверие у владельца бота.
	ErrOwnerProtected = errors.New("owner trust cannot be revoked")
	// ErrSelfRevoke - создатель чата пытается отозвать доверие у себя.
	ErrSelfRevoke = errors.New("self revocation is not allowed")
	// ErrTranscription - распознавание речи не удалось.
	ErrTranscription = errors.New("transcription failed")
)
