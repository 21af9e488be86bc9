package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotificationDeliver is the task type persisting a fanned-out notification.
	TaskTypeNotificationDeliver = "notify:deliver"
	// TaskTypePeriodSweep is the task type closing periods whose end date passed.
	TaskTypePeriodSweep = "periods:sweep"
)

// NotificationPayload describes one notification to deliver. Exactly one of
// TargetUserID / TargetRole is set.
type NotificationPayload struct {
	TargetUserID *int64  `json:"target_user_id,omitempty"`
	TargetRole   *string `json:"target_role,omitempty"`
	Title        string  `json:"title"`
	Body         string  `json:"body"`
}

// NewNotificationTask constructs an Asynq task for notification delivery.
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotificationDeliver, data), nil
}

// NewPeriodSweepTask constructs the periodic period-expiry sweep task.
func NewPeriodSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypePeriodSweep, nil)
}
