// Package ai - клиент OpenAI-совместимого API (Groq) для распознавания
// речи, сокращения текста и подбора тегов.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/ports"
)

const (
	DefaultBaseURL         = "https://api.groq.com/openai/v1"
	DefaultTranscribeModel = "whisper-large-v3"
	DefaultChatModel       = "llama-3.1-8b-instant"
	transcribeLanguage     = "uk"
)

// ErrNotConfigured возвращается, если не задан API-ключ.
var ErrNotConfigured = errors.New("ai client is not configured")

const (
	tagsPrompt    = "Прочитай текст і виділи 1-3 ключові категорії (теги) українською. Поверни ТІЛЬКИ теги через кому, без пояснень. Текст: "
	summaryPrompt = "Стисло перекажи текст українською у 1-3 реченнях. Поверни ТІЛЬКИ переказ, без пояснень. Текст: "
)

// Config задает параметры подключения.
type Config struct {
	BaseURL         string
	APIKey          string
	TranscribeModel string
	ChatModel       string
	Timeout         time.Duration
}

// Client реализует Transcriber, Summarizer и TagSuggester.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ ports.Transcriber  = (*Client)(nil)
	_ ports.Summarizer   = (*Client)(nil)
	_ ports.TagSuggester = (*Client)(nil)
)

// NewClient создает клиент. Пустой ключ допустим: вызовы вернут ErrNotConfigured.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = DefaultTranscribeModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "ai")),
	}
}

// Configured сообщает, задан ли API-ключ.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
	apiError
}

// Transcribe отправляет аудио в audio/transcriptions.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (text string, err error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	start := time.Now()
	defer func() { metrics.ObserveExternal("ai_transcribe", start, err) }()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file for %s: %w", filename, err)
	}
	if _, err = io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("failed to copy file content for %s: %w", filename, err)
	}
	_ = w.WriteField("model", c.cfg.TranscribeModel)
	_ = w.WriteField("language", transcribeLanguage)
	_ = w.WriteField("response_format", "json")
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var out transcriptionResponse
	if err := c.do(ctx, "/audio/transcriptions", w.FormDataContentType(), &b, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	apiError
}

// Summarize просит модель кратко пересказать текст.
func (c *Client) Summarize(ctx context.Context, text string) (summary string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("ai_summarize", start, err) }()
	return c.chat(ctx, summaryPrompt+text)
}

// SuggestTags просит модель предложить 1-3 тега через запятую.
func (c *Client) SuggestTags(ctx context.Context, text string) (tags string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("ai_tags", start, err) }()
	return c.chat(ctx, tagsPrompt+text)
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.ChatModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var out chatResponse
	if err := c.do(ctx, "/chat/completions", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("ai: empty choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(raw, &e) == nil && e.Error != nil && e.Error.Message != "" {
			return fmt.Errorf("ai http %d: %s", resp.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("ai http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
