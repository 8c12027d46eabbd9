package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
	"go.uber.org/zap"
)

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `id, title, description, task_type, priority, workflow_id, current_phase_id, assigned_to_id, created_by_id, due_date, completed_at, version, created_at, updated_at`

// Create inserts a task row.
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.TaskType,
		task.Priority,
		task.WorkflowID,
		task.CurrentPhaseID,
		task.AssignedToID,
		task.CreatedByID,
		task.DueDate,
		task.CompletedAt,
		task.Version,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task", zap.Error(err), zap.String("title", task.Title))
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task with its assignments loaded.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, workflow.ErrNotFound)
		}
		r.logger.Error("Failed to get task", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	assignments, err := listAssignments(ctx, executor(ctx, r.db), id)
	if err != nil {
		r.logger.Error("Failed to load assignments", zap.String("task_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	task.Assignments = assignments
	return task, nil
}

// List retrieves tasks newest-first.
func (r *TaskRepository) List(ctx context.Context, limit, offset int) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdatePhase moves the task to phaseID, recomputes completed_at, and
// bumps the version. The write is guarded by the version check: when a
// concurrent move already advanced the task, zero rows match and the
// caller gets ErrConflict instead of a silent lost update.
func (r *TaskRepository) UpdatePhase(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error {
	query := `
		UPDATE tasks
		SET current_phase_id = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		phaseID,
		completedAt,
		time.Now(),
		id,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update task phase", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update task phase: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the task vanished or the version is stale. Distinguish so
		// the caller can surface the right error.
		var exists int
		if scanErr := executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists); scanErr == nil && exists == 0 {
			return fmt.Errorf("task %s: %w", id, workflow.ErrNotFound)
		}
		return fmt.Errorf("task %s version %d: %w", id, expectedVersion, workflow.ErrConflict)
	}
	return nil
}

// UpdateAssignment sets the legacy single assignee.
func (r *TaskRepository) UpdateAssignment(ctx context.Context, id string, assignedToID *string) error {
	query := `UPDATE tasks SET assigned_to_id = ?, updated_at = ? WHERE id = ?`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, assignedToID, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update task assignment", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update task assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// CountByWorkflowID returns how many tasks reference the workflow.
func (r *TaskRepository) CountByWorkflowID(ctx context.Context, workflowID string) (int, error) {
	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE workflow_id = ?`, workflowID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var task entity.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.TaskType,
		&task.Priority,
		&task.WorkflowID,
		&task.CurrentPhaseID,
		&task.AssignedToID,
		&task.CreatedByID,
		&task.DueDate,
		&task.CompletedAt,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
