// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Bot содержит настройки Telegram-бота и прав доступа
type Bot struct {
	Token              string        `yaml:"token"`
	OwnerID            int64         `yaml:"owner_id"`
	AdminIDs           []int64       `yaml:"admin_ids"`
	PollTimeoutSeconds int           `yaml:"poll_timeout_seconds"`
	SendRatePerSecond  float64       `yaml:"send_rate_per_second"`
	SendBurst          int           `yaml:"send_burst"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	Debug              bool          `yaml:"debug"`
}

// Storage содержит настройки SQLite и резервного копирования
type Storage struct {
	DBPath        string `yaml:"db_path"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
	WAL           bool   `yaml:"wal"`
	BackupDir     string `yaml:"backup_dir"`
	BackupKeep    int    `yaml:"backup_keep"`
}

// Weather содержит город по умолчанию и адреса Open-Meteo
type Weather struct {
	DefaultCity  string  `yaml:"default_city"`
	DefaultLat   float64 `yaml:"default_lat"`
	DefaultLon   float64 `yaml:"default_lon"`
	ForecastURL  string  `yaml:"forecast_url"`
	GeocodingURL string  `yaml:"geocoding_url"`
}

// News содержит список RSS-лент
type News struct {
	Feeds []string `yaml:"feeds"`
}

// AI содержит настройки OpenAI-совместимого API (Groq)
type AI struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	TranscribeModel string        `yaml:"transcribe_model"`
	ChatModel       string        `yaml:"chat_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Prices содержит настройки поиска цен
type Prices struct {
	BaseURL  string `yaml:"base_url"`
	Location string `yaml:"location"`
}

// Monitoring содержит ожидаемое число процессов pm2 в статусе online
type Monitoring struct {
	Targets int `yaml:"targets"`
}

// Schedule содержит расписание фоновых задач
type Schedule struct {
	Timezone     string        `yaml:"timezone"`
	ReportHours  []int         `yaml:"report_hours"`
	BriefingHour int           `yaml:"briefing_hour"` // -1 отключает брифинг
	BackupHour   int           `yaml:"backup_hour"`   // -1 отключает резервное копирование
	PollInterval time.Duration `yaml:"poll_interval"`
	FireCooldown time.Duration `yaml:"fire_cooldown"`
}

// Server содержит настройки HTTP-сервера health/metrics
type Server struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Cache содержит настройки кэша внешних сервисов
type Cache struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // пусто - только stdout
	Keep   int    `yaml:"keep"`
}

// Config содержит конфигурацию приложения
type Config struct {
	Bot        Bot        `yaml:"bot"`
	Storage    Storage    `yaml:"storage"`
	Weather    Weather    `yaml:"weather"`
	News       News       `yaml:"news"`
	AI         AI         `yaml:"ai"`
	Prices     Prices     `yaml:"prices"`
	Monitoring Monitoring `yaml:"monitoring"`
	Schedule   Schedule   `yaml:"schedule"`
	Server     Server     `yaml:"server"`
	Cache      Cache      `yaml:"cache"`
	Logging    Logging    `yaml:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Bot: Bot{
			PollTimeoutSeconds: DefaultPollTimeoutSeconds,
			SendRatePerSecond:  DefaultSendRatePerSecond,
			SendBurst:          DefaultSendBurst,
			SessionTTL:         DefaultSessionTTL,
		},
		Storage: Storage{
			DBPath:        DefaultDBPath,
			BusyTimeoutMs: DefaultBusyTimeoutMs,
			WAL:           true,
			BackupDir:     DefaultBackupDir,
			BackupKeep:    DefaultBackupKeep,
		},
		Weather: Weather{
			DefaultCity: DefaultCity,
			DefaultLat:  DefaultLat,
			DefaultLon:  DefaultLon,
		},
		AI:     AI{Timeout: DefaultAITimeout},
		Prices: Prices{Location: DefaultATBLocation},
		Schedule: Schedule{
			Timezone:     DefaultTimezone,
			ReportHours:  slices.Clone(DefaultReportHours),
			BriefingHour: DefaultBriefingHour,
			BackupHour:   DefaultBackupHour,
			PollInterval: DefaultPollInterval,
			FireCooldown: DefaultFireCooldown,
		},
		Server: Server{
			Enabled:         true,
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Cache: Cache{CleanupInterval: DefaultCacheCleanupInterval},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			File:   DefaultLogFile,
			Keep:   DefaultLogKeep,
		},
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем
// YAML-файл (если есть), затем переменные окружения и .env.
func LoadConfig(yamlPath string) (*Config, error) {
	// Отсутствие .env - нормальная ситуация, полагаемся на окружение.
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML(yamlPath, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// loadFromYAML накладывает YAML-файл поверх cfg. Отсутствие файла не ошибка.
func loadFromYAML(filename string, cfg *Config) error {
	if filename == "" {
		return nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// applyEnv переопределяет значения переменными окружения.
func applyEnv(cfg *Config) error {
	setString(&cfg.Bot.Token, "TOKEN")
	if err := setInt64(&cfg.Bot.OwnerID, "OWNER_ID"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("ADMIN_IDS"); ok {
		ids, err := ParseIDList(v)
		if err != nil {
			return fmt.Errorf("недопустимый ADMIN_IDS: %w", err)
		}
		cfg.Bot.AdminIDs = ids
	}

	setString(&cfg.Storage.DBPath, "DB_PATH")
	setString(&cfg.Storage.BackupDir, "BACKUP_DIR")
	if err := setInt(&cfg.Storage.BackupKeep, "BACKUP_KEEP"); err != nil {
		return err
	}

	setString(&cfg.Weather.DefaultCity, "DEFAULT_CITY")
	if err := setFloat(&cfg.Weather.DefaultLat, "DEFAULT_LAT"); err != nil {
		return err
	}
	if err := setFloat(&cfg.Weather.DefaultLon, "DEFAULT_LON"); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("RSS_FEEDS"); ok {
		cfg.News.Feeds = splitList(v)
	}

	setString(&cfg.AI.APIKey, "GROQ_API_KEY")
	setString(&cfg.AI.BaseURL, "AI_BASE_URL")

	if err := setInt(&cfg.Monitoring.Targets, "MONITORING_TARGETS"); err != nil {
		return err
	}

	setString(&cfg.Schedule.Timezone, "TIMEZONE")
	if err := setInt(&cfg.Schedule.BriefingHour, "BRIEFING_HOUR"); err != nil {
		return err
	}
	if err := setInt(&cfg.Schedule.BackupHour, "BACKUP_HOUR"); err != nil {
		return err
	}

	setString(&cfg.Server.Host, "SERVER_HOST")
	if err := setInt(&cfg.Server.Port, "SERVER_PORT"); err != nil {
		return err
	}

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.File, "LOG_FILE")
	return nil
}

// normalize добавляет владельца в список администраторов и убирает дубликаты.
func (c *Config) normalize() {
	if c.Bot.OwnerID != 0 && !slices.Contains(c.Bot.AdminIDs, c.Bot.OwnerID) {
		c.Bot.AdminIDs = append(c.Bot.AdminIDs, c.Bot.OwnerID)
	}
	slices.Sort(c.Bot.AdminIDs)
	c.Bot.AdminIDs = slices.Compact(c.Bot.AdminIDs)
}

// Address возвращает адрес HTTP-сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location возвращает часовой пояс расписания.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("TOKEN не задан")
	}
	if c.Bot.OwnerID == 0 {
		return fmt.Errorf("OWNER_ID не задан")
	}
	if c.Bot.SendRatePerSecond <= 0 || c.Bot.SendBurst <= 0 {
		return fmt.Errorf("bot.send_rate_per_second и bot.send_burst должны быть положительными")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path не может быть пустым")
	}
	if c.Storage.BackupKeep < 0 {
		return fmt.Errorf("storage.backup_keep должно быть неотрицательным")
	}
	if c.Monitoring.Targets < 0 {
		return fmt.Errorf("MONITORING_TARGETS должно быть неотрицательным")
	}

	for _, h := range c.Schedule.ReportHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("schedule.report_hours: недопустимый час %d", h)
		}
	}
	if c.Schedule.BriefingHour < -1 || c.Schedule.BriefingHour > 23 {
		return fmt.Errorf("schedule.briefing_hour должен быть в диапазоне -1..23")
	}
	if c.Schedule.BackupHour < -1 || c.Schedule.BackupHour > 23 {
		return fmt.Errorf("schedule.backup_hour должен быть в диапазоне -1..23")
	}
	if c.Schedule.PollInterval <= 0 || c.Schedule.FireCooldown < time.Minute {
		return fmt.Errorf("schedule.poll_interval должен быть положительным, а fire_cooldown не меньше минуты")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("недопустимый часовой пояс %q: %w", c.Schedule.Timezone, err)
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть json или text")
	}

	return nil
}

// ParseIDList разбирает список ID через запятую.
func ParseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("недопустимый ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("недопустимый %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("недопустимый %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("недопустимый %s: %w", key, err)
	}
	*dst = f
	return nil
}
