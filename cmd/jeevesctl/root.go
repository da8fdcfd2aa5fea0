package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jeeves-bot/internal/adapters/source"
	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/log"
	"jeeves-bot/internal/pkg/config"
	"jeeves-bot/internal/ports"
	"jeeves-bot/internal/storage/sqlite"
)

// app - общее состояние подкоманд: конфигурация и открытая база.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	store  *sqlite.Store
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "jeevesctl",
		Short:        "Обслуживание базы Jeeves",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yml", "путь к YAML-конфигурации")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "путь к базе SQLite (перекрывает конфигурацию)")

	root.AddCommand(
		newMigrateCmd(a),
		newBackupCmd(a),
		newImportCmd(a),
		newListCmd(a),
	)
	return root
}

// open загружает конфигурацию и открывает базу. Токен бота здесь не нужен,
// поэтому полная валидация не выполняется.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Storage.DBPath = a.dbPath
	}
	a.cfg = cfg
	a.logger = log.NewMaskedLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: log.ParseLevel(cfg.Logging.Level),
	}))

	store, err := sqlite.Open(cmd.Context(), cfg.Storage.DBPath, sqlite.Options{
		BusyTimeoutMs: cfg.Storage.BusyTimeoutMs,
		WAL:           cfg.Storage.WAL,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// withStore оборачивает RunE: открывает базу до команды и закрывает после.
func (a *app) withStore(run func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer a.close()
		return run(cmd.Context(), cmd, args)
	}
}

func (a *app) calendar() *services.CalendarService {
	loc, err := a.cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return services.NewCalendarService(a.store.Events,
		services.WithClock(func() time.Time { return time.Now().In(loc) }),
		services.WithCalendarLogger(a.logger),
	)
}

// inputSource возвращает источник данных: файл или stdin для "-".
func inputSource(path string, stdin io.Reader) (ports.DataSource, error) {
	if strings.TrimSpace(path) != "-" {
		return source.NewFileSource(path), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return source.NewMemorySource(data), nil
}
