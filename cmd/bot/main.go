package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"jeeves-bot/internal/bot"
	"jeeves-bot/internal/cache"
	"jeeves-bot/internal/clients/ai"
	"jeeves-bot/internal/clients/news"
	"jeeves-bot/internal/clients/prices"
	"jeeves-bot/internal/clients/weather"
	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/log"
	"jeeves-bot/internal/pkg/config"
	"jeeves-bot/internal/scheduler"
	"jeeves-bot/internal/server"
	"jeeves-bot/internal/storage/sqlite"
	"jeeves-bot/internal/system"
)

const defaultConfigPath = "config.yml"

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := log.Setup(log.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Keep:   cfg.Logging.Keep,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to set up logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	_ = tgbotapi.SetLogger(&log.TGBotAPIAdapter{Logger: logger.With(slog.String("component", "tgbotapi"))})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.Storage.DBPath, sqlite.Options{
		BusyTimeoutMs: cfg.Storage.BusyTimeoutMs,
		WAL:           cfg.Storage.WAL,
	})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	slog.Info("storage opened", slog.String("path", store.Path()))

	backup := func(ctx context.Context) (string, error) {
		return store.Backup(ctx, cfg.Storage.BackupDir, cfg.Storage.BackupKeep)
	}

	// Кэши внешних сервисов
	weatherCache := cache.NewCacheStore[string]()
	newsCache := cache.NewCacheStore[string]()
	weatherCache.StartCleanupTicker(ctx, cfg.Cache.CleanupInterval)
	newsCache.StartCleanupTicker(ctx, cfg.Cache.CleanupInterval)

	weatherClient := weather.NewClient(weather.Config{
		ForecastURL:  cfg.Weather.ForecastURL,
		GeocodingURL: cfg.Weather.GeocodingURL,
		DefaultCity: domain.City{
			Name: cfg.Weather.DefaultCity,
			Lat:  cfg.Weather.DefaultLat,
			Lon:  cfg.Weather.DefaultLon,
		},
	}, store.Settings, weatherCache, logger)
	newsClient := news.NewClient(cfg.News.Feeds, 0, newsCache, logger)
	priceClient := prices.NewATBClient(cfg.Prices.BaseURL, cfg.Prices.Location, logger)
	aiClient := ai.NewClient(ai.Config{
		BaseURL:         cfg.AI.BaseURL,
		APIKey:          cfg.AI.APIKey,
		TranscribeModel: cfg.AI.TranscribeModel,
		ChatModel:       cfg.AI.ChatModel,
		Timeout:         cfg.AI.Timeout,
	}, logger)
	termux := system.NewTermux(system.ExecRunner{Timeout: 20 * time.Second}, cfg.Monitoring.Targets, logger)

	// Сервисы
	access := services.NewAccessService(cfg.Bot.OwnerID, cfg.Bot.AdminIDs, store.Trust, logger)
	calendar := services.NewCalendarService(store.Events,
		services.WithClock(func() time.Time { return time.Now().In(loc) }),
		services.WithCalendarLogger(logger),
	)
	var enrich *services.EnrichmentService
	if aiClient.Configured() {
		enrich = services.NewEnrichmentService(aiClient, aiClient, aiClient, services.WithEnrichmentLogger(logger))
	} else {
		slog.Warn("GROQ_API_KEY is not set, voice transcription and tag suggestions are disabled")
	}
	notes := services.NewNotesService(store.Notes, access, enrich, logger)
	briefing := services.NewBriefingService(calendar, weatherClient, newsClient, logger)

	sessions := bot.NewSessionStore(cfg.Bot.SessionTTL)
	sessions.StartCleanup(ctx, cfg.Cache.CleanupInterval)

	b, err := bot.NewBot(cfg.Bot, bot.Deps{
		Access:   access,
		Calendar: calendar,
		Notes:    notes,
		Briefing: briefing,
		Weather:  weatherClient,
		News:     newsClient,
		Prices:   priceClient,
		System:   termux,
		Backup:   backup,
	}, sessions, logger.With(slog.String("component", "bot")))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	jobs := []scheduler.Job{
		scheduler.ReportJob(cfg.Schedule.ReportHours, termux, b, cfg.Bot.OwnerID),
	}
	if cfg.Schedule.BriefingHour >= 0 {
		jobs = append(jobs, scheduler.BriefingJob(cfg.Schedule.BriefingHour, briefing, b, cfg.Bot.OwnerID))
	}
	if cfg.Schedule.BackupHour >= 0 {
		jobs = append(jobs, scheduler.BackupJob(cfg.Schedule.BackupHour, backup, b, cfg.Bot.OwnerID, logger))
	}
	sched := scheduler.New(scheduler.Options{
		Location:     loc,
		PollInterval: cfg.Schedule.PollInterval,
		FireCooldown: cfg.Schedule.FireCooldown,
	}, logger.With(slog.String("component", "scheduler")), jobs...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if cfg.Server.Enabled {
		srv := server.New(cfg, store, logger.With(slog.String("component", "http")))
		g.Go(func() error {
			slog.Info("starting HTTP server", slog.String("addr", cfg.Address()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("server forced to shutdown", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	slog.Info("Jeeves is on duty", slog.Int64("owner_id", cfg.Bot.OwnerID), slog.Int("jobs", len(jobs)))
	err = g.Wait()
	slog.Info("Jeeves stopped")
	return err
}
