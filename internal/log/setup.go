package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options описывает настройки корневого логгера.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json или text
	// File - путь к файлу лога; пусто означает только stdout.
	File string
	Keep int
}

// ParseLevel переводит строку из конфигурации в slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup создает логгер с маскировкой токенов, пишущий в stdout и, если
// задан файл, в ежедневно ротируемый файл. Возвращаемый io.Closer
// нужно закрыть при завершении.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		rf, err := NewRotatingFile(opts.File, opts.Keep)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, rf)
		closer = rf
	}

	return NewMaskedLogger(newHandler(out, opts)), closer, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.Format == "text" {
		return slog.NewTextHandler(w, hopts)
	}
	return slog.NewJSONHandler(w, hopts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
