package calculations

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob removes calculations older than the retention window.
// It should be scheduled to run daily.
type RetentionJob struct {
	repo      *HistoryRepository
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewRetentionJob creates a new history retention job.
func NewRetentionJob(repo *HistoryRepository, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:      repo,
		retention: retention,
		log:       log.With().Str("job", "history_retention").Logger(),
		now:       time.Now,
	}
}

// Run deletes expired calculations. A non-positive retention keeps everything.
func (j *RetentionJob) Run() error {
	if j.retention <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := j.repo.DeleteOlderThan(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired calculations")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Calculation history cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RetentionJob) Name() string {
	return "history_retention"
}
