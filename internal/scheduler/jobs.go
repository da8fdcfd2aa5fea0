package scheduler

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"time"

	"jeeves-bot/internal/ports"
)

// Notifier доставляет сообщение в чат.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Briefer собирает утренний брифинг для чата.
type Briefer interface {
	Compose(ctx context.Context, chatID int64) string
}

// ReportJob присылает владельцу плановый системный отчет в указанные часы.
func ReportJob(hours []int, system ports.SystemReporter, n Notifier, ownerID int64) Job {
	return Job{
		Name: "system_report",
		Due:  AtHours(hours...),
		Run: func(ctx context.Context, t time.Time) error {
			text := fmt.Sprintf("🕰 <b>Плановий звіт (%s):</b>\n%s", t.Format("15:04"), system.FullReport(ctx))
			return n.Notify(ctx, ownerID, text)
		},
	}
}

// BriefingJob присылает владельцу утренний брифинг раз в день.
func BriefingJob(hour int, b Briefer, n Notifier, ownerID int64) Job {
	return Job{
		Name: "morning_briefing",
		Due:  AtHours(hour),
		Run: func(ctx context.Context, _ time.Time) error {
			return n.Notify(ctx, ownerID, b.Compose(ctx, ownerID))
		},
	}
}

// BackupFunc делает резервную копию и возвращает путь к файлу.
type BackupFunc func(ctx context.Context) (string, error)

// BackupJob делает резервную копию базы раз в день. Об успехе
// достаточно записи в логе, о сбое сообщается владельцу.
func BackupJob(hour int, backup BackupFunc, n Notifier, ownerID int64, logger *slog.Logger) Job {
	return Job{
		Name: "backup",
		Due:  AtHours(hour),
		Run: func(ctx context.Context, _ time.Time) error {
			path, err := backup(ctx)
			if err != nil {
				text := fmt.Sprintf("⚠️ Резервне копіювання не вдалося: <code>%s</code>", html.EscapeString(err.Error()))
				if nerr := n.Notify(ctx, ownerID, text); nerr != nil {
					logger.WarnContext(ctx, "failed to notify about backup error", slog.String("error", nerr.Error()))
				}
				return err
			}
			logger.InfoContext(ctx, "database backup created", slog.String("file", filepath.Base(path)))
			return nil
		},
	}
}
