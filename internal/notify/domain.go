package notify

import "time"

// Notification is a best-effort message to a user or a role. It has no
// lifecycle beyond being marked read by its target.
type Notification struct {
	ID           int64     `json:"id"`
	TargetUserID *int64    `json:"target_user_id,omitempty"`
	TargetRole   *string   `json:"target_role,omitempty"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}
