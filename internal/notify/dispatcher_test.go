package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/titulaflow/titulaflow/jobs"
)

type memoryNotificationRepo struct {
	inserted  []Notification
	insertErr error
	nextID    int64
}

func (r *memoryNotificationRepo) Insert(_ context.Context, n Notification) (Notification, error) {
	if r.insertErr != nil {
		return Notification{}, r.insertErr
	}
	r.nextID++
	n.ID = r.nextID
	r.inserted = append(r.inserted, n)
	return n, nil
}

func (r *memoryNotificationRepo) ListFor(_ context.Context, userID int64, roles []string) ([]Notification, error) {
	var out []Notification
	for _, n := range r.inserted {
		if n.TargetUserID != nil && *n.TargetUserID == userID {
			out = append(out, n)
			continue
		}
		if n.TargetRole != nil {
			for _, role := range roles {
				if *n.TargetRole == role {
					out = append(out, n)
					break
				}
			}
		}
	}
	return out, nil
}

func (r *memoryNotificationRepo) MarkRead(_ context.Context, _, _ int64) error {
	return nil
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDispatcherEnqueuesDeliveryTask(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	d := NewDispatcher(enqueuer, nil, testLogger())

	d.NotifyUser(context.Background(), 42, "Trámite aprobado", "Tu trámite de fees fue aprobado.")

	require.Len(t, enqueuer.tasks, 1)
	require.Equal(t, jobs.TaskTypeNotificationDeliver, enqueuer.tasks[0].Type())

	var payload jobs.NotificationPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	require.NotNil(t, payload.TargetUserID)
	require.Equal(t, int64(42), *payload.TargetUserID)
	require.Nil(t, payload.TargetRole)
}

func TestDispatcherSwallowsEnqueueFailure(t *testing.T) {
	enqueuer := &stubEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(enqueuer, nil, testLogger())

	// Must not panic or surface the error anywhere.
	d.NotifyRole(context.Background(), "finance-office", "Periodo activo", "El periodo 2026-B está ahora activo.")
	require.Empty(t, enqueuer.tasks)
}

func TestDispatcherFallsBackToDirectInsert(t *testing.T) {
	repo := &memoryNotificationRepo{}
	d := NewDispatcher(nil, repo, testLogger())

	d.NotifyRole(context.Background(), "records-office", "Trámite rechazado", "Detalle")

	require.Len(t, repo.inserted, 1)
	require.Nil(t, repo.inserted[0].TargetUserID)
	require.NotNil(t, repo.inserted[0].TargetRole)
	require.Equal(t, "records-office", *repo.inserted[0].TargetRole)
}

func TestDispatcherSwallowsFallbackFailure(t *testing.T) {
	repo := &memoryNotificationRepo{insertErr: errors.New("db down")}
	d := NewDispatcher(nil, repo, testLogger())

	d.NotifyUser(context.Background(), 1, "t", "b")
	require.Empty(t, repo.inserted)
}

func TestDeliverHandlerPersistsPayload(t *testing.T) {
	repo := &memoryNotificationRepo{}
	handler := NewDeliverHandler(repo, testLogger())

	userID := int64(42)
	task, err := jobs.NewNotificationTask(jobs.NotificationPayload{
		TargetUserID: &userID,
		Title:        "Constancia emitida",
		Body:         "Se emitió tu constancia de fees.",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, repo.inserted, 1)
	require.Equal(t, "Constancia emitida", repo.inserted[0].Title)
}

func TestDeliverHandlerDropsMalformedPayload(t *testing.T) {
	repo := &memoryNotificationRepo{}
	handler := NewDeliverHandler(repo, testLogger())

	err := handler(context.Background(), asynq.NewTask(jobs.TaskTypeNotificationDeliver, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, repo.inserted)
}
