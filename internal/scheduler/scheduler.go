package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/plugin"
	"github.com/i474232898/weather-forecast-bot/internal/social"
)

// checkTimeout bounds the settings lookup done for each account on every tick.
const checkTimeout = 5 * time.Second

// Task is the part of the plugin the scheduler drives.
type Task interface {
	Check(ctx context.Context, account social.Account, now time.Time) (plugin.Invocation, bool)
	Run(ctx context.Context, inv plugin.Invocation, done func(ok bool))
}

// Scheduler asks the task once a minute whether it should run for each account.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	task       Task
	accounts   []social.Account
	location   *time.Location
	runTimeout time.Duration
}

// New creates a new Scheduler ticking in loc. A nil loc means the host's local zone.
func New(accounts []social.Account, task Task, loc *time.Location, runTimeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(loc),
		task:       task,
		accounts:   accounts,
		location:   loc,
		runTimeout: runTimeout,
	}
}

// Start schedules the per-minute job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.accounts) == 0 {
		log.Warnf("scheduler: no accounts configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Cron("* * * * *").Do(func() {
		s.Tick(time.Now().In(s.location))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Tick checks every account against now and runs the matches concurrently.
// It returns once every started run has reported completion.
func (s *Scheduler) Tick(now time.Time) {
	var wg sync.WaitGroup
	for _, account := range s.accounts {
		account := account

		checkCtx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		inv, ok := s.task.Check(checkCtx, account, now)
		cancel()
		if !ok {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
			defer cancel()

			log.Infow("scheduler: running forecast", "account", account.ID, "invocation", inv.ID, "at", inv.Entry.Clock())
			s.task.Run(ctx, inv, func(posted bool) {
				log.Infow("scheduler: forecast completed", "account", account.ID, "invocation", inv.ID, "posted", posted)
			})
		}()
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
