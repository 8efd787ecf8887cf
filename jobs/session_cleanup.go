package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-accounts/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SessionPruner removes expired login sessions.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// SessionCleanupJob deletes expired rows of the login session audit table.
type SessionCleanupJob struct {
	Sessions SessionPruner
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSessionCleanupJob wires dependencies for the cleanup handler.
func NewSessionCleanupJob(sessions SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionCleanupJob {
	return &SessionCleanupJob{Sessions: sessions, Logger: logger, Metrics: metrics}
}

// Handle processes session cleanup tasks.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session cleanup: handler not configured")
	}
	var payload SessionCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskAuthSessionsCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	removed, err := j.Sessions.PruneSessions(ctx)
	if err != nil {
		logger.Error("prune sessions", slog.Any("error", err))
		return err
	}
	logger.Info("pruned expired sessions", slog.Int64("removed", removed))
	return nil
}

func (j *SessionCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SessionCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
