package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
)

// Picker is the part of the picker service the jobs drive
type Picker interface {
	Refresh(ctx context.Context) (*contracts.Pick, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// pickTimeout bounds one selection attempt (full universe fetch)
const pickTimeout = 5 * time.Minute

// DailyPickJob selects the stock of the day after midnight
type DailyPickJob struct {
	picker   Picker
	schedule string
	logger   *logger.Logger
}

// NewDailyPickJob creates a new daily pick job
func NewDailyPickJob(picker Picker, schedule string, log *logger.Logger) *DailyPickJob {
	return &DailyPickJob{
		picker:   picker,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailyPickJob) Name() string {
	return "daily_pick"
}

// Schedule returns the cron schedule (default 00:05 every day)
func (j *DailyPickJob) Schedule() string {
	return j.schedule
}

// Timeout bounds each attempt
func (j *DailyPickJob) Timeout() time.Duration {
	return pickTimeout
}

// Run selects a fresh pick for the new day
func (j *DailyPickJob) Run(ctx context.Context) error {
	pick, err := j.picker.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("daily pick: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"code":   pick.Code,
		"source": pick.Source,
	}).Info("Daily pick job completed")
	return nil
}

// HistoryPruneJob trims the pick history
type HistoryPruneJob struct {
	picker   Picker
	schedule string
	keep     int
	logger   *logger.Logger
}

// NewHistoryPruneJob creates a new history prune job
func NewHistoryPruneJob(picker Picker, schedule string, keep int, log *logger.Logger) *HistoryPruneJob {
	return &HistoryPruneJob{
		picker:   picker,
		schedule: schedule,
		keep:     keep,
		logger:   log,
	}
}

// Name returns the job name
func (j *HistoryPruneJob) Name() string {
	return "history_prune"
}

// Schedule returns the cron schedule
func (j *HistoryPruneJob) Schedule() string {
	return j.schedule
}

// Run removes picks beyond the history limit
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	removed, err := j.picker.Prune(ctx, j.keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("History prune completed")
	}
	return nil
}
