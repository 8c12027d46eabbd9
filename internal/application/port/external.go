package port

import (
	"context"

	"github.com/openteams/taskflow/internal/domain/entity"
)

// Notifier is the trigger contract for user notifications. Callers treat
// it as best-effort: an error means the notification could not be
// recorded or delivered, and the caller decides whether that matters.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, message string, taskID *string) error
}

// Deliverer pushes an already-persisted notification to its recipient
// (websocket fan-out, email bridge, push gateway). Delivery is decoupled
// from the outbox row so failures stay observable.
type Deliverer interface {
	Deliver(ctx context.Context, notification *entity.Notification) error
}

// SubtaskSuggestion is one AI-proposed subtask with a free-text hint of
// the phase it belongs to.
type SubtaskSuggestion struct {
	Title     string `json:"title"`
	PhaseHint string `json:"phase_hint"`
}

// ClassificationResult is the validated response schema for the external
// task classifier. Malformed classifier output fails at this boundary
// instead of propagating untyped.
type ClassificationResult struct {
	TaskType string              `json:"task_type"`
	Subtasks []SubtaskSuggestion `json:"subtasks"`
}

// TaskClassifier guesses a task category and optional subtasks from the
// task's title and description. Implementations are fallible and slow;
// callers apply a timeout and fall back to the general category.
type TaskClassifier interface {
	Classify(ctx context.Context, title, description string) (*ClassificationResult, error)
}
