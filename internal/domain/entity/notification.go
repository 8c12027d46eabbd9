package entity

import "time"

// Notification is one outbox row for a user-facing message. The row is
// persisted before delivery is attempted so that delivery failures stay
// observable without coupling them to the triggering state change.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification kinds.
const (
	NotificationTaskCreated      = "task_created"
	NotificationTaskAssigned     = "task_assigned"
	NotificationTaskPhaseChanged = "task_phase_changed"
	NotificationTaskCompleted    = "task_completed"
	NotificationSubtaskCompleted = "subtask_completed"
)

// Notification delivery status.
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)
