package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSnapshotWarmup precomputes monthly reporting snapshots.
	TaskTypeSnapshotWarmup = "reporting:snapshot"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SnapshotWarmupPayload selects the months to warm. Empty means the current
// and previous calendar month.
type SnapshotWarmupPayload struct {
	Months []string `json:"months,omitempty"`
}

// NewSnapshotWarmupTask constructs a snapshot warmup task.
func NewSnapshotWarmupTask(payload SnapshotWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSnapshotWarmup, data), nil
}

// NewIdempotencyCleanupTask constructs an idempotency cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}
