package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger removes audit entries older than a cutoff. Implemented by
// SQLiteSink.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob runs a daily purge of audit entries older than the retention
// period. The audit trail stays append-only from the request path's point of
// view; only this job removes rows, and only by age.
type RetentionJob struct {
	purger    Purger
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewRetentionJob creates a job keeping retentionDays of audit history.
func NewRetentionJob(purger Purger, retentionDays int, logger *slog.Logger) *RetentionJob {
	return &RetentionJob{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the daily purge. The first run happens on schedule, not at
// startup, so boot time is never spent scanning history.
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc("@daily", j.runOnce)
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *RetentionJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-j.retention)
	removed, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("audit retention purge failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("audit retention purge",
			"removed", removed,
			"cutoff", cutoff,
		)
	}
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}
