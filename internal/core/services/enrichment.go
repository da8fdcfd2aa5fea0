package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"jeeves-bot/internal/ports"
)

// EnrichmentConfig хранит настройки обогащения заметок.
type EnrichmentConfig struct {
	// OperationTimeout - таймаут одного вызова AI API.
	OperationTimeout time.Duration
	// SummaryWordThreshold - расшифровка длиннее этого числа слов сокращается.
	SummaryWordThreshold int
	// MinTagTextLen - теги предлагаются только для текста длиннее этого числа символов.
	MinTagTextLen int
}

// EnrichmentOption - функциональная опция для EnrichmentService.
type EnrichmentOption func(*EnrichmentService)

// WithOperationTimeout устанавливает таймаут для одной операции API.
func WithOperationTimeout(d time.Duration) EnrichmentOption {
	return func(s *EnrichmentService) {
		if d > 0 {
			s.config.OperationTimeout = d
		}
	}
}

// WithSummaryThreshold задает порог в словах для сокращения расшифровки.
func WithSummaryThreshold(words int) EnrichmentOption {
	return func(s *EnrichmentService) {
		if words > 0 {
			s.config.SummaryWordThreshold = words
		}
	}
}

// WithEnrichmentLogger устанавливает логгер для сервиса.
func WithEnrichmentLogger(l *slog.Logger) EnrichmentOption {
	return func(s *EnrichmentService) {
		if l != nil {
			s.log = l
		}
	}
}

// EnrichmentService оборачивает вызовы AI: распознавание речи обязательно,
// сокращение и подбор тегов выполняются по возможности, их ошибки
// проглатываются. Любой из клиентов может быть nil.
type EnrichmentService struct {
	transcriber ports.Transcriber
	summarizer  ports.Summarizer
	tagger      ports.TagSuggester
	config      EnrichmentConfig
	log         *slog.Logger
}

// NewEnrichmentService создает сервис с конфигурацией по умолчанию.
func NewEnrichmentService(t ports.Transcriber, sum ports.Summarizer, tagger ports.TagSuggester, opts ...EnrichmentOption) *EnrichmentService {
	s := &EnrichmentService{
		transcriber: t,
		summarizer:  sum,
		tagger:      tagger,
		config: EnrichmentConfig{
			OperationTimeout:     60 * time.Second,
			SummaryWordThreshold: 30,
			MinTagTextLen:        10,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanTranscribe сообщает, настроено ли распознавание речи.
func (s *EnrichmentService) CanTranscribe() bool {
	return s.transcriber != nil
}

// Transcribe распознает голосовое сообщение. Короткая расшифровка
// возвращается дословно, длинная сокращается; при ошибке сокращения
// возвращается исходный текст.
func (s *EnrichmentService) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("%w: speech-to-text is not configured", ErrTranscription)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	text, err := s.transcriber.Transcribe(opCtx, filename, audio)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	if s.summarizer == nil || wordCount(text) <= s.config.SummaryWordThreshold {
		return text, nil
	}

	opCtx, cancel = context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()
	summary, err := s.summarizer.Summarize(opCtx, text)
	if err != nil || summary == "" {
		s.log.WarnContext(ctx, "summarization failed, keeping raw transcript", slog.Any("error", err))
		return text, nil
	}
	return summary, nil
}

// SuggestTags предлагает теги в формате "#a #b" или пустую строку.
func (s *EnrichmentService) SuggestTags(ctx context.Context, text string) string {
	if s.tagger == nil || len([]rune(text)) <= s.config.MinTagTextLen {
		return ""
	}

	opCtx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()
	raw, err := s.tagger.SuggestTags(opCtx, text)
	if err != nil {
		s.log.WarnContext(ctx, "tag suggestion failed", slog.Any("error", err))
		return ""
	}
	return NormalizeTags(raw)
}
