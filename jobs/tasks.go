package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthSessionsCleanup prunes expired login sessions.
	TaskAuthSessionsCleanup = "auth:sessions_cleanup"
)

// SessionCleanupPayload describes one cleanup run.
type SessionCleanupPayload struct {
	Trigger string `json:"trigger"`
}

// NewSessionCleanupTask constructs an Asynq task.
func NewSessionCleanupTask(trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(SessionCleanupPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthSessionsCleanup, data, asynq.Queue(QueueDefault)), nil
}
