package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/titulaflow/titulaflow/jobs"
)

// Enqueuer is the slice of the asynq client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher is the fire-and-forget fan-out boundary. A failed enqueue is
// logged and swallowed; a core mutation must never fail or roll back because
// the broadcast did. Without a queue it falls back to a synchronous insert,
// still swallowing errors.
type Dispatcher struct {
	enqueuer Enqueuer
	fallback Repository
	logger   *slog.Logger
}

// NewDispatcher constructs a dispatcher. enqueuer may be nil, in which case
// notifications are written synchronously through the repository.
func NewDispatcher(enqueuer Enqueuer, fallback Repository, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer, fallback: fallback, logger: logger}
}

// NotifyUser broadcasts to a single user.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID int64, title, body string) {
	d.dispatch(ctx, jobs.NotificationPayload{TargetUserID: &userID, Title: title, Body: body})
}

// NotifyRole broadcasts to everyone holding a role.
func (d *Dispatcher) NotifyRole(ctx context.Context, role, title, body string) {
	d.dispatch(ctx, jobs.NotificationPayload{TargetRole: &role, Title: title, Body: body})
}

func (d *Dispatcher) dispatch(ctx context.Context, payload jobs.NotificationPayload) {
	if d == nil {
		return
	}
	if d.enqueuer == nil {
		d.insertDirect(ctx, payload)
		return
	}
	task, err := jobs.NewNotificationTask(payload)
	if err != nil {
		d.logger.Warn("notification marshal failed", slog.Any("error", err))
		return
	}
	if _, err := d.enqueuer.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		d.logger.Warn("notification enqueue failed", slog.Any("error", err))
	}
}

func (d *Dispatcher) insertDirect(ctx context.Context, payload jobs.NotificationPayload) {
	if d.fallback == nil {
		return
	}
	_, err := d.fallback.Insert(ctx, Notification{
		TargetUserID: payload.TargetUserID,
		TargetRole:   payload.TargetRole,
		Title:        payload.Title,
		Body:         payload.Body,
	})
	if err != nil {
		d.logger.Warn("notification insert failed", slog.Any("error", err))
	}
}
