// Package weather получает текущую погоду и координаты городов из Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jeeves-bot/internal/cache"
	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/ports"
)

const (
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	// SettingsKey - ключ настроек, под которым хранится выбранный город.
	SettingsKey = "weather_city"

	forecastTTL = 10 * time.Minute
)

// ErrUnavailable возвращается, когда сервис погоды ответил не 200.
var ErrUnavailable = errors.New("weather service unavailable")

// wmoCodes - описания кодов погоды WMO.
var wmoCodes = map[int]string{
	0: "☀️ Ясно", 1: "🌤 Переважно ясно", 2: "⛅️ Мінлива хмарність", 3: "☁️ Похмуро",
	45: "🌫 Туман", 48: "🌫 Туман з інеєм",
	51: "🌦 Легка мряка", 53: "🌦 Мряка", 55: "🌧 Щільна мряка",
	61: "🌧 Слабкий дощ", 63: "🌧 Дощ", 65: "🌧 Сильний дощ",
	71: "❄️ Слабкий сніг", 73: "❄️ Сніг", 75: "❄️ Сильний сніг",
	77: "❄️ Снігові зерна",
	80: "🌦 Зливи", 81: "🌧 Сильні зливи", 82: "⛈ Дуже сильні зливи",
	95: "⛈ Гроза", 96: "⛈ Гроза з градом", 99: "⛈ Сильна гроза з градом",
}

// Describe возвращает описание кода WMO.
func Describe(code int) string {
	if d, ok := wmoCodes[code]; ok {
		return d
	}
	return fmt.Sprintf("Невідомо (%d)", code)
}

// Config задает адреса API и город по умолчанию.
type Config struct {
	ForecastURL  string
	GeocodingURL string
	DefaultCity  domain.City
	Timeout      time.Duration
}

// Client реализует ports.WeatherProvider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	settings   ports.SettingsRepository
	cache      *cache.CacheStore[string]
	logger     *slog.Logger
}

var _ ports.WeatherProvider = (*Client)(nil)

// NewClient создает клиент погоды. settings может быть nil, тогда
// всегда используется город по умолчанию.
func NewClient(cfg Config, settings ports.SettingsRepository, c *cache.CacheStore[string], logger *slog.Logger) *Client {
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = DefaultGeocodingURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if c == nil {
		c = cache.NewCacheStore[string]()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		settings:   settings,
		cache:      c,
		logger:     logger.With(slog.String("component", "weather")),
	}
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Apparent    float64 `json:"apparent_temperature"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// CurrentCity возвращает сохраненный город или город по умолчанию.
func (c *Client) CurrentCity(ctx context.Context) domain.City {
	if c.settings == nil {
		return c.cfg.DefaultCity
	}
	var city domain.City
	found, err := c.settings.GetJSON(ctx, SettingsKey, &city)
	if err != nil {
		c.logger.Warn("failed to read city from settings", slog.Any("error", err))
		return c.cfg.DefaultCity
	}
	if !found || city.Name == "" {
		return c.cfg.DefaultCity
	}
	return city
}

// Forecast возвращает текущую погоду в выбранном городе в виде HTML-текста.
func (c *Client) Forecast(ctx context.Context) (string, error) {
	city := c.CurrentCity(ctx)
	key := fmt.Sprintf("%s|%f|%f", city.Name, city.Lat, city.Lon)
	return c.cache.GetOrLoad(ctx, key, forecastTTL, func(ctx context.Context) (string, error) {
		return c.fetchForecast(ctx, city)
	})
}

func (c *Client) fetchForecast(ctx context.Context, city domain.City) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExternal("open_meteo_forecast", start, err) }()

	q := url.Values{}
	q.Set("latitude", formatNumber(city.Lat))
	q.Set("longitude", formatNumber(city.Lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	q.Set("wind_speed_unit", "kmh")

	var data forecastResponse
	if err := c.getJSON(ctx, c.cfg.ForecastURL+"?"+q.Encode(), &data); err != nil {
		return "", err
	}
	return FormatForecast(city.Name, data.Current.Temperature, data.Current.Apparent,
		data.Current.WeatherCode, data.Current.WindSpeed, data.Current.Humidity), nil
}

// FormatForecast собирает текст прогноза.
func FormatForecast(cityName string, temp, apparent float64, code int, wind, humidity float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🌤 <b>Погода (%s):</b>\n", cityName)
	fmt.Fprintf(&sb, "🌡 <b>Температура:</b> %s°C (відчувається %s°C)\n", formatNumber(temp), formatNumber(apparent))
	fmt.Fprintf(&sb, "☁️ <b>Небо:</b> %s\n", Describe(code))
	fmt.Fprintf(&sb, "💨 <b>Вітер:</b> %s км/год\n", formatNumber(wind))
	fmt.Fprintf(&sb, "💧 <b>Вологість:</b> %s%%", formatNumber(humidity))
	return sb.String()
}

// SearchCity ищет город по названию и возвращает первый результат.
// Если ничего не найдено, возвращает nil без ошибки.
func (c *Client) SearchCity(ctx context.Context, query string) (city *domain.City, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.ObserveExternal("open_meteo_geocoding", start, err) }()

	q := url.Values{}
	q.Set("name", query)
	q.Set("count", "1")
	q.Set("language", "uk")
	q.Set("format", "json")

	var data geocodingResponse
	if err := c.getJSON(ctx, c.cfg.GeocodingURL+"?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, nil
	}
	r := data.Results[0]
	return &domain.City{Name: r.Name, Lat: r.Latitude, Lon: r.Longitude, Country: r.Country}, nil
}

// SetCity сохраняет город для последующих прогнозов.
func (c *Client) SetCity(ctx context.Context, city domain.City) error {
	if c.settings == nil {
		return errors.New("settings storage is not configured")
	}
	if err := c.settings.SetJSON(ctx, SettingsKey, city); err != nil {
		return fmt.Errorf("failed to save city: %w", err)
	}
	c.logger.Info("weather city changed", slog.String("city", city.Name))
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
