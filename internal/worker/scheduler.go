package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Runner is the routine pair the scheduler drives: the weekday sync and the
// designated-weekday maintenance routine.
type Runner interface {
	RunDaily(ctx context.Context) error
	RunMaintenance(ctx context.Context) error
}

// DailyScheduler runs the sync once per day at midnight UTC. On the
// maintenance weekday it runs the maintenance routine instead of the sync.
type DailyScheduler struct {
	Name           string
	runner         Runner
	maintenanceDay time.Weekday
	runImmediately bool

	now func() time.Time
}

func NewDailyScheduler(name string, runner Runner, maintenanceDay time.Weekday, runImmediately bool) *DailyScheduler {
	return &DailyScheduler{
		Name:           name,
		runner:         runner,
		maintenanceDay: maintenanceDay,
		runImmediately: runImmediately,
		now:            time.Now,
	}
}

// Run loops until the context is cancelled. A panicking run is logged and
// the loop keeps going: one bad day must not kill the daemon.
func (s *DailyScheduler) Run(ctx context.Context) {
	slog.Info("Scheduler running", "name", s.Name, "maintenance_day", s.maintenanceDay.String())

	if s.runImmediately {
		s.executeRun(ctx)
	}

	for {
		sleepFor := timeUntilNextMidnightUTC(s.now())
		slog.Info("Sleeping until next scheduled run", "name", s.Name, "duration", sleepFor)

		select {
		case <-time.After(sleepFor):
			s.executeRun(ctx)
		case <-ctx.Done():
			slog.Info("Scheduler shutting down", "name", s.Name)
			return
		}
	}
}

func (s *DailyScheduler) executeRun(ctx context.Context) {
	jobID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovery in scheduled run", "name", s.Name, "job_id", jobID, "panic", r)
		}
	}()

	if s.now().UTC().Weekday() == s.maintenanceDay {
		slog.Info("Maintenance day, running maintenance routine", "name", s.Name, "job_id", jobID)
		if err := s.runner.RunMaintenance(ctx); err != nil {
			slog.Error("Maintenance run failed", "name", s.Name, "job_id", jobID, "error", err)
		}
		return
	}

	slog.Info("Running daily sync", "name", s.Name, "job_id", jobID)
	if err := s.runner.RunDaily(ctx); err != nil {
		slog.Error("Daily run failed", "name", s.Name, "job_id", jobID, "error", err)
	}
}

func timeUntilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}
