package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/titulaflow/titulaflow/jobs"
)

// NewDeliverHandler returns the asynq handler persisting fanned-out
// notifications. A malformed payload is dropped rather than retried.
func NewDeliverHandler(repo Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload jobs.NotificationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Warn("notification payload unmarshal failed", slog.Any("error", err))
			return asynq.SkipRetry
		}
		_, err := repo.Insert(ctx, Notification{
			TargetUserID: payload.TargetUserID,
			TargetRole:   payload.TargetRole,
			Title:        payload.Title,
			Body:         payload.Body,
		})
		return err
	}
}
