// Package housekeeping runs the server's periodic cleanup jobs on a cron
// schedule.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const limiterInterval = 10 * time.Minute

// RequestPruner deletes resolved adjustment requests. *store.RequestStore
// implements it.
type RequestPruner interface {
	Prune(before time.Time) (int64, error)
}

// Cleaner drops expired state. *middleware.RateLimiter implements it.
type Cleaner interface {
	Cleanup()
}

type Scheduler struct {
	cron      *cron.Cron
	requests  RequestPruner
	limiter   Cleaner
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func New(loc *time.Location, requests RequestPruner, limiter Cleaner, retention time.Duration, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		requests:  requests,
		limiter:   limiter,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// Schedule registers the daily request prune at pruneAt ("HH:MM") and the
// rate limiter cleanup.
func (s *Scheduler) Schedule(pruneAt string) error {
	spec, err := dailySpec(pruneAt)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, func() { s.PruneRequests() }); err != nil {
		return fmt.Errorf("schedule prune: %w", err)
	}
	every := fmt.Sprintf("@every %ds", int(limiterInterval.Seconds()))
	if _, err := s.cron.AddFunc(every, s.limiter.Cleanup); err != nil {
		return fmt.Errorf("schedule limiter cleanup: %w", err)
	}
	return nil
}

// AddDaily registers job to run every day at ("HH:MM"). Failures are logged
// under name.
func (s *Scheduler) AddDaily(name, at string, job func(context.Context) error) error {
	spec, err := dailySpec(at)
	if err != nil {
		return err
	}
	_, err = s.cron.AddFunc(spec, func() {
		start := s.now()
		if err := job(context.Background()); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", name, "duration", s.now().Sub(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// PruneRequests deletes requests resolved before now minus the retention.
func (s *Scheduler) PruneRequests() (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.requests.Prune(cutoff)
	if err != nil {
		s.logger.Error("prune requests", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned resolved requests", "count", n, "before", cutoff.Format(time.DateOnly))
	}
	return n, nil
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func dailySpec(timeStr string) (string, error) {
	hh, mm, ok := strings.Cut(timeStr, ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
