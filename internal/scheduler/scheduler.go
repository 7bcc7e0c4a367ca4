// Package scheduler runs BuddyBot's periodic housekeeping on cron schedules.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReaperSchedule runs the idle-session reaper every five minutes.
const DefaultReaperSchedule = "*/5 * * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler using the standard 5-field syntax.
// Panicking jobs are recovered and logged.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := slogLogger{}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
func (s *Scheduler) AddJob(expr string, task func()) error {
	if _, err := s.cron.AddFunc(expr, task); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SessionExpirer ends sessions that have been idle for too long.
type SessionExpirer interface {
	ExpireIdleSessions(maxIdle time.Duration) int
}

// ScheduleSessionReaper periodically expires sessions idle for longer than maxIdle.
func (s *Scheduler) ScheduleSessionReaper(expr string, target SessionExpirer, maxIdle time.Duration) error {
	if maxIdle <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %s", maxIdle)
	}
	if err := s.AddJob(expr, func() { target.ExpireIdleSessions(maxIdle) }); err != nil {
		return err
	}
	slog.Info("Session reaper scheduled", "schedule", expr, "max_idle", maxIdle)
	return nil
}

// slogLogger adapts cron's logger to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
