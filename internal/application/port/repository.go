package port

import (
	"context"
	"time"

	"github.com/openteams/taskflow/internal/domain/entity"
)

// WorkflowRepository defines persistence operations for Workflow rows.
// Hydrating reads return phases ordered by position.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *entity.Workflow) error
	GetByID(ctx context.Context, id string) (*entity.Workflow, error)
	GetDefaultByTaskType(ctx context.Context, taskType string) (*entity.Workflow, error)
	List(ctx context.Context, taskType string) ([]*entity.Workflow, error)
	Update(ctx context.Context, workflow *entity.Workflow) error
	Delete(ctx context.Context, id string) error

	// ClearDefault unsets is_default on every workflow of the task type.
	ClearDefault(ctx context.Context, taskType string) error

	// CountAll returns the total number of workflows system-wide.
	CountAll(ctx context.Context) (int, error)
}

// PhaseRepository defines persistence operations for Phase rows.
type PhaseRepository interface {
	Create(ctx context.Context, phase *entity.Phase) error
	GetByID(ctx context.Context, id string) (*entity.Phase, error)
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Phase, error)
}

// TransitionRepository defines persistence operations for the directed
// edges of a workflow's phase graph.
type TransitionRepository interface {
	Create(ctx context.Context, transition *entity.Transition) error
	Delete(ctx context.Context, id string) error
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Transition, error)
	Exists(ctx context.Context, fromPhaseID, toPhaseID string) (bool, error)
}

// TaskRepository defines persistence operations for Task rows.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error

	// GetByID returns the task with its assignments loaded.
	GetByID(ctx context.Context, id string) (*entity.Task, error)

	List(ctx context.Context, limit, offset int) ([]*entity.Task, error)

	// UpdatePhase moves the task to phaseID and sets completedAt, guarded
	// by the optimistic version check: the write only applies when the
	// stored version equals expectedVersion, and increments it. A failed
	// check reports workflow.ErrConflict.
	UpdatePhase(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error

	UpdateAssignment(ctx context.Context, id string, assignedToID *string) error
	CountByWorkflowID(ctx context.Context, workflowID string) (int, error)
}

// AssignmentRepository defines persistence operations for TaskAssignment.
type AssignmentRepository interface {
	Add(ctx context.Context, assignment *entity.TaskAssignment) error
	Remove(ctx context.Context, taskID, userID string) error
	ListByTaskID(ctx context.Context, taskID string) ([]*entity.TaskAssignment, error)
}

// SubtaskRepository defines persistence operations for Subtask rows.
type SubtaskRepository interface {
	Create(ctx context.Context, subtask *entity.Subtask) error
	GetByID(ctx context.Context, id string) (*entity.Subtask, error)
	ListByTaskID(ctx context.Context, taskID string) ([]*entity.Subtask, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
}

// HistoryRepository defines persistence operations for the append-only
// PhaseHistory audit log. There are deliberately no update or delete
// operations.
type HistoryRepository interface {
	Create(ctx context.Context, record *entity.PhaseHistory) error
	ListByTaskID(ctx context.Context, taskID string) ([]*entity.PhaseHistory, error)
}

// NotificationRepository defines persistence operations for the
// notification outbox.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}

// TransactionManager handles database transactions. The transaction is
// carried in the context; nested calls reuse the ambient transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
