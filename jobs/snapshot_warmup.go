package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/marisol-pos/marisol/internal/reporting"
)

// SnapshotWarmupJob pre-populates reporting caches so the first dashboard
// request of the day does not pay the aggregation cost.
type SnapshotWarmupJob struct {
	Reporting *reporting.Service
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(svc *reporting.Service, logger *slog.Logger) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{
		Reporting: svc,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes snapshot warmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reporting == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	var payload SnapshotWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	months := payload.Months
	if len(months) == 0 {
		now := j.now()
		months = []string{
			now.Format("2006-01"),
			now.AddDate(0, -1, 0).Format("2006-01"),
		}
	}

	logger := j.logger()
	started := j.now()
	for _, month := range months {
		if err := j.Reporting.Warm(ctx, month); err != nil {
			logger.Error("warm snapshot", slog.String("month", month), slog.Any("error", err))
			return err
		}
	}
	logger.Info("completed snapshot warmup", slog.Int("months", len(months)), slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskTypeSnapshotWarmup))
}

func (j *SnapshotWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
