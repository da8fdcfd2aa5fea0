// Package scheduler запускает фоновые задачи бота по настенным часам.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"jeeves-bot/internal/metrics"
)

// Job - задача, которая срабатывает в заданную минуту.
type Job struct {
	Name string
	// Due сообщает, что в момент t задачу пора запустить.
	Due func(t time.Time) bool
	Run func(ctx context.Context, t time.Time) error
}

// AtHours срабатывает в начале каждого из указанных часов.
func AtHours(hours ...int) func(time.Time) bool {
	return func(t time.Time) bool {
		return t.Minute() == 0 && slices.Contains(hours, t.Hour())
	}
}

// Options задает параметры опроса часов.
type Options struct {
	Location     *time.Location
	PollInterval time.Duration
	// FireCooldown - пауза после срабатывания, больше минуты,
	// чтобы задача не сработала дважды в одну минуту.
	FireCooldown time.Duration
}

// Scheduler проверяет часы каждые PollInterval и запускает задачи.
// Каждая задача крутится в своем цикле и не задерживает остальные.
type Scheduler struct {
	jobs   []Job
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New создает планировщик.
func New(opts Options, logger *slog.Logger, jobs ...Job) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.FireCooldown <= time.Minute {
		opts.FireCooldown = 61 * time.Second
	}
	return &Scheduler{
		jobs:   jobs,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Run блокируется до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		<-ctx.Done()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	logger := s.logger.With(slog.String("job", job.Name))
	logger.Info("scheduler job started")

	for {
		t := s.now().In(s.opts.Location)
		wait := s.opts.PollInterval
		if job.Due(t) {
			s.fire(ctx, job, t, logger)
			wait = s.opts.FireCooldown
		}
		if err := s.sleep(ctx, wait); err != nil {
			logger.Info("scheduler job stopped")
			return
		}
	}
}

// fire запускает задачу. Ошибка или паника задачи логируется,
// цикл продолжает работать.
func (s *Scheduler) fire(ctx context.Context, job Job, t time.Time, logger *slog.Logger) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic in scheduled job")
			logger.Error("scheduled job panicked", slog.Any("panic", r))
		}
		metrics.IncSchedulerFire(job.Name, err)
	}()

	logger.Info("scheduled job fired", slog.String("at", t.Format("15:04")))
	if err = job.Run(ctx, t); err != nil {
		logger.Error("scheduled job failed", slog.String("error", err.Error()))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
