package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Add links a user to a task. Duplicate pairs are ignored.
func (r *AssignmentRepository) Add(ctx context.Context, a *entity.TaskAssignment) error {
	query := `
		INSERT OR IGNORE INTO task_assignments (id, task_id, user_id, assigned_by_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		a.ID,
		a.TaskID,
		a.UserID,
		a.AssignedByID,
		a.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add assignment",
			zap.String("task_id", a.TaskID),
			zap.String("user_id", a.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to add assignment: %w", err)
	}
	return nil
}

// Remove unlinks a user from a task.
func (r *AssignmentRepository) Remove(ctx context.Context, taskID, userID string) error {
	query := `DELETE FROM task_assignments WHERE task_id = ? AND user_id = ?`

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, taskID, userID); err != nil {
		r.logger.Error("Failed to remove assignment",
			zap.String("task_id", taskID),
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	return nil
}

// ListByTaskID retrieves all assignments for a task.
func (r *AssignmentRepository) ListByTaskID(ctx context.Context, taskID string) ([]*entity.TaskAssignment, error) {
	assignments, err := listAssignments(ctx, executor(ctx, r.db), taskID)
	if err != nil {
		r.logger.Error("Failed to list assignments", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// listAssignments is shared with TaskRepository's hydrating reads.
func listAssignments(ctx context.Context, exec sqlite.Executor, taskID string) ([]*entity.TaskAssignment, error) {
	query := `
		SELECT id, task_id, user_id, assigned_by_id, created_at
		FROM task_assignments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`

	rows, err := exec.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*entity.TaskAssignment
	for rows.Next() {
		var a entity.TaskAssignment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.AssignedByID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
