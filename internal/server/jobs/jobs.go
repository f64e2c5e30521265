// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/robfig/cron/v3"
)

// ResetTokenPurger clears reset token pairs that expired before now.
type ResetTokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// PurgeResetTokensJob implements cron.Job.
type PurgeResetTokensJob struct {
	purger  ResetTokenPurger
	logger  logging.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewPurgeResetTokensJob(purger ResetTokenPurger, logger logging.Logger) *PurgeResetTokensJob {
	return &PurgeResetTokensJob{purger: purger, logger: logger, timeout: 30 * time.Second, now: time.Now}
}

func (j *PurgeResetTokensJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.purger.PurgeExpiredResetTokens(ctx, j.now())
	if err != nil {
		j.logger.Error(ctx, "purge expired reset tokens failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info(ctx, "purged expired reset tokens", "count", n)
	}
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
}

func NewScheduler(logger logging.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger.With("module", "jobs")}
}

// Add registers job under spec, e.g. "@every 15m".
func (s *Scheduler) Add(spec string, job cron.Job) error {
	_, err := s.cron.AddJob(spec, job)
	return err
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "scheduler stopped")
}
