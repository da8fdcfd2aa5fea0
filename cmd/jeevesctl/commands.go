package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"jeeves-bot/internal/adapters/exporter"
	"jeeves-bot/internal/adapters/parser"
	"jeeves-bot/internal/domain"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		chatID int64
		dryRun bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "migrate-json <calendar.json|->",
		Short: "Перенести события из старого calendar.json в SQLite",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "чат для плоского массива событий (по умолчанию OWNER_ID)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "только показать события, не записывая их")
	cmd.Flags().BoolVar(&force, "force", false, "дописывать события в чаты, где календарь уже не пуст")

	cmd.RunE = a.withStore(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		if chatID == 0 {
			chatID = a.cfg.Bot.OwnerID
		}
		src, err := inputSource(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		data, err := src.Fetch()
		if err != nil {
			return err
		}
		res, err := parser.NewLegacyCalendarParser(chatID).Parse(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if dryRun {
			if err := exporter.NewConsoleExporter(out).Export(res.Events); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "Знайдено подій: %d, пропущено: %d\n", len(res.Events), res.Skipped)
			return err
		}

		migrated := 0
		for _, chat := range groupByChat(res.Events) {
			existing, err := a.store.Events.List(ctx, chat.id)
			if err != nil {
				return err
			}
			if len(existing) > 0 && !force {
				fmt.Fprintf(out, "чат %d: календар вже містить подій: %d, пропущено (додайте --force)\n", chat.id, len(existing))
				continue
			}
			n, err := a.store.Events.CreateBatch(ctx, chat.id, chat.events)
			if err != nil {
				return fmt.Errorf("chat %d: %w", chat.id, err)
			}
			migrated += n
			fmt.Fprintf(out, "чат %d: додано %d\n", chat.id, n)
		}
		a.logger.Info("legacy calendar migrated", "events", migrated, "skipped", res.Skipped)
		_, err = fmt.Fprintf(out, "Перенесено подій: %d, пропущено: %d\n", migrated, res.Skipped)
		return err
	})
	return cmd
}

type chatEvents struct {
	id     int64
	events []domain.Event
}

// groupByChat раскладывает события по чатам, сохраняя порядок первого появления.
func groupByChat(events []domain.Event) []chatEvents {
	var groups []chatEvents
	for _, e := range events {
		i := slices.IndexFunc(groups, func(g chatEvents) bool { return g.id == e.ChatID })
		if i < 0 {
			groups = append(groups, chatEvents{id: e.ChatID})
			i = len(groups) - 1
		}
		groups[i].events = append(groups[i].events, e)
	}
	return groups
}

func newBackupCmd(a *app) *cobra.Command {
	var (
		dir  string
		keep int
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Сделать резервную копию базы",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&dir, "dir", "", "каталог копий (по умолчанию storage.backup_dir)")
	cmd.Flags().IntVar(&keep, "keep", -1, "сколько копий хранить (по умолчанию storage.backup_keep)")

	cmd.RunE = a.withStore(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
		if dir == "" {
			dir = a.cfg.Storage.BackupDir
		}
		if keep < 0 {
			keep = a.cfg.Storage.BackupKeep
		}
		path, err := a.store.Backup(ctx, dir, keep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	})
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:   "import-events <file|->",
		Short: `Импортировать события из строк "ДД.ММ Текст"`,
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "чат, в календарь которого добавляются события")
	_ = cmd.MarkFlagRequired("chat")

	cmd.RunE = a.withStore(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		src, err := inputSource(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		data, err := src.Fetch()
		if err != nil {
			return err
		}
		n, err := a.calendar().MassImport(ctx, chatID, string(data))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Імпортовано подій: %d\n", n)
		return err
	})
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		chatID int64
		filter string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать события календаря чата",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "чат (по умолчанию OWNER_ID)")
	cmd.Flags().StringVar(&filter, "filter", string(domain.FilterAll), "today, week, month, all, winter, spring, summer, autumn")

	cmd.RunE = a.withStore(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
		f, ok := domain.ParseEventFilter(filter)
		if !ok {
			return fmt.Errorf("unknown filter %q", filter)
		}
		if chatID == 0 {
			chatID = a.cfg.Bot.OwnerID
		}
		events, err := a.calendar().ListEvents(ctx, chatID, f)
		if err != nil {
			return err
		}
		return exporter.NewConsoleExporter(cmd.OutOrStdout()).Export(events)
	})
	return cmd
}
