// Package prices ищет товары на сайте АТБ и разбирает карточки каталога.
package prices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/ports"
)

const (
	DefaultBaseURL  = "https://www.atbmarket.com/sch"
	DefaultLocation = "1158"

	maxItems  = 7
	userAgent = "Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
)

var (
	nonDigits    = regexp.MustCompile(`[^\d]`)
	decimalPrice = regexp.MustCompile(`\d+[.,]\d+`)
)

// Item - одна карточка товара.
type Item struct {
	Name  string
	Price string // пусто, если товара нет в наличии
	Sale  bool
}

// Format возвращает строку сообщения с маркером наличия или акции.
func (i Item) Format() string {
	marker, price := "📦", i.Price
	if i.Sale {
		marker = "🔥"
	}
	if price == "" {
		marker, price = "⛔️", "Немає в наявності"
	}
	return fmt.Sprintf("%s <b>%s</b> — %s", marker, html.EscapeString(i.Name), price)
}

// ATBClient реализует ports.PriceSearcher.
type ATBClient struct {
	baseURL    string
	location   string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.PriceSearcher = (*ATBClient)(nil)

// NewATBClient создает клиент поиска. Пустые параметры заменяются значениями по умолчанию.
func NewATBClient(baseURL, location string, logger *slog.Logger) *ATBClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if location == "" {
		location = DefaultLocation
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ATBClient{
		baseURL:    baseURL,
		location:   location,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With(slog.String("component", "prices")),
	}
}

// Search возвращает готовый текст ответа. Ошибка возвращается только
// при сбое соединения; блокировка и пустая выдача описываются текстом.
func (c *ATBClient) Search(ctx context.Context, query string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("atb", start, err) }()

	q := url.Values{}
	q.Set("lang", "uk")
	q.Set("location", c.location)
	q.Set("query", strings.TrimSpace(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "uk-UA,uk;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("unexpected ATB status code", slog.Int("status", resp.StatusCode))
		return fmt.Sprintf("⚠️ АТБ блокує (код %d)", resp.StatusCode), nil
	}

	items, found, err := ParseCatalog(resp.Body)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("🤷‍♂️ В АТБ (маг. %s) нічого не знайдено.", c.location), nil
	}
	if len(items) == 0 {
		return "🤷‍♂️ Пусто.", nil
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.Format()
	}
	return strings.Join(lines, "\n"), nil
}

// ParseCatalog разбирает страницу поиска. found сообщает, были ли на
// странице карточки вообще; карточки без названия пропускаются.
func ParseCatalog(r io.Reader) (items []Item, found bool, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse html: %w", err)
	}

	cards := findAll(doc, "catalog-item")
	if len(cards) == 0 {
		return nil, false, nil
	}
	if len(cards) > maxItems {
		cards = cards[:maxItems]
	}

	for _, card := range cards {
		title := findFirst(card, "catalog-item__title")
		if title == nil {
			continue
		}
		it := Item{
			Name:  strings.TrimSpace(textOf(title)),
			Price: parsePrice(card),
			Sale:  findFirst(card, "product-price__sale") != nil,
		}
		items = append(items, it)
	}
	return items, true, nil
}

func parsePrice(card *html.Node) string {
	top := findFirst(card, "product-price__top")
	bottom := findFirst(card, "product-price__bottom")
	if top != nil && bottom != nil {
		major := nonDigits.ReplaceAllString(textOf(top), "")
		minor := nonDigits.ReplaceAllString(textOf(bottom), "")
		return fmt.Sprintf("%s.%s грн", major, minor)
	}
	if v := findFirst(card, "product-price__value"); v != nil {
		if m := decimalPrice.FindString(textOf(v)); m != "" {
			return strings.ReplaceAll(m, ",", ".") + " грн"
		}
	}
	return ""
}

// hasClass проверяет наличие класса у элемента.
func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// findAll возвращает элементы с классом в порядке документа, не заходя
// внутрь уже найденных.
func findAll(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if hasClass(n, class) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasClass(c, class) {
			return c
		}
		if found := findFirst(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
