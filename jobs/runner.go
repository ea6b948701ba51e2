package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobTimeout       = 2 * time.Minute
	wizardMaxIdle    = 2 * time.Hour
	wizardSweepEvery = "*/15 * * * *"
)

// Runner holds what the scheduled jobs need. Each job can also be called
// directly, which is how the tests drive them.
type Runner struct {
	db            *gorm.DB
	notifier      services.Notifier
	wizards       *services.WizardStore
	loc           *time.Location
	now           services.Clock
	retentionDays int
	logger        *zap.Logger
}

func NewRunner(db *gorm.DB, notifier services.Notifier, wizards *services.WizardStore, loc *time.Location, retentionDays int, now services.Clock, logger *zap.Logger) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{
		db:            db,
		notifier:      notifier,
		wizards:       wizards,
		loc:           loc,
		now:           now,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

type Schedules struct {
	Cleanup  string
	Reminder string
}

// Register adds every job to c. The caller starts and stops c.
func (r *Runner) Register(c *cron.Cron, s Schedules) error {
	if _, err := c.AddFunc(s.Cleanup, r.runCleanup); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	if _, err := c.AddFunc(s.Reminder, r.runReminders); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	if r.wizards != nil {
		if _, err := c.AddFunc(wizardSweepEvery, r.SweepWizards); err != nil {
			return fmt.Errorf("schedule wizard sweep: %w", err)
		}
	}
	return nil
}

func (r *Runner) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := r.CleanupOldBookings(ctx); err != nil {
		r.logger.Error("Cleanup job failed", zap.Error(err))
	}
}

func (r *Runner) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := r.SendBookingReminders(ctx); err != nil {
		r.logger.Error("Reminder job failed", zap.Error(err))
	}
}

func (r *Runner) SweepWizards() {
	if n := r.wizards.Sweep(wizardMaxIdle); n > 0 {
		r.logger.Info("Expired booking wizards removed", zap.Int("count", n))
	}
}

// CronLogger adapts zap to cron's logger interface.
func CronLogger(l *zap.Logger) cron.Logger {
	return cronLogger{l.Sugar()}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.s.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
