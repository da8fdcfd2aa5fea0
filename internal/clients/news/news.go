// Package news собирает свежие заголовки из RSS и Atom лент.
package news

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"jeeves-bot/internal/cache"
	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/ports"
)

const (
	NoFeedsMessage = "⚠️ У налаштуваннях (.env) немає RSS-стрічок."
	EmptyMessage   = "📭 Новин не знайдено або помилка з'єднання."
	header         = "🗞 <b>Свіжа преса:</b>\n\n"

	perFeed   = 2
	maxLines  = 15
	cacheKey  = "fresh_news"
	newsTTL   = 10 * time.Minute
	maxFanout = 8

	maxFeedSize = 2 << 20
)

// Client реализует ports.NewsProvider.
type Client struct {
	feeds      []string
	httpClient *http.Client
	cache      *cache.CacheStore[string]
	logger     *slog.Logger
}

var _ ports.NewsProvider = (*Client)(nil)

// NewClient создает клиент для списка лент.
func NewClient(feeds []string, timeout time.Duration, c *cache.CacheStore[string], logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if c == nil {
		c = cache.NewCacheStore[string]()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		feeds:      feeds,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		logger:     logger.With(slog.String("component", "news")),
	}
}

// feedDoc покрывает RSS 2.0 (channel/item) и Atom (feed/entry).
type feedDoc struct {
	XMLName xml.Name
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// Headline - одна новость из ленты.
type Headline struct {
	Title  string
	Link   string
	Source string
}

// ParseFeed разбирает документ ленты и возвращает не более limit заголовков.
func ParseFeed(data []byte, limit int) ([]Headline, error) {
	var doc feedDoc
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var out []Headline
	if doc.XMLName.Local == "feed" {
		source := orDefault(doc.Title, "Джерело")
		for _, e := range doc.Entries {
			if len(out) == limit {
				break
			}
			h := Headline{Title: orDefault(e.Title, "Без назви"), Source: source}
			for _, l := range e.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					h.Link = l.Href
					break
				}
			}
			out = append(out, h)
		}
		return out, nil
	}

	source := orDefault(doc.Channel.Title, "Джерело")
	for _, it := range doc.Channel.Items {
		if len(out) == limit {
			break
		}
		out = append(out, Headline{
			Title:  orDefault(it.Title, "Без назви"),
			Link:   strings.TrimSpace(it.Link),
			Source: source,
		})
	}
	return out, nil
}

// Format превращает заголовок в строку сообщения.
func (h Headline) Format() string {
	return fmt.Sprintf("🔹 <a href='%s'>%s</a> <i>(%s)</i>",
		html.EscapeString(h.Link), html.EscapeString(h.Title), html.EscapeString(h.Source))
}

// FreshNews возвращает подборку по всем лентам. Упавшие ленты пропускаются.
func (c *Client) FreshNews(ctx context.Context) (string, error) {
	if len(c.feeds) == 0 {
		return NoFeedsMessage, nil
	}
	text, err := c.cache.GetOrLoad(ctx, cacheKey, newsTTL, c.collect)
	if text == EmptyMessage {
		// Пустую подборку не держим в кэше, ленты могли временно лежать.
		c.cache.Delete(cacheKey)
	}
	return text, err
}

func (c *Client) collect(ctx context.Context) (string, error) {
	results := make([][]Headline, len(c.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanout)
	for i, feedURL := range c.feeds {
		g.Go(func() error {
			items, err := c.fetch(gctx, feedURL)
			if err != nil {
				c.logger.Warn("failed to fetch feed", slog.String("url", feedURL), slog.Any("error", err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var lines []string
	for _, items := range results {
		for _, h := range items {
			lines = append(lines, h.Format())
		}
	}
	if len(lines) == 0 {
		return EmptyMessage, nil
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return header + strings.Join(lines, "\n"), nil
}

func (c *Client) fetch(ctx context.Context, feedURL string) (items []Headline, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("rss", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return ParseFeed(data, perFeed)
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
