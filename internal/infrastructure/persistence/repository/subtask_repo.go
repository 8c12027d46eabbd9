package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
	"go.uber.org/zap"
)

// SubtaskRepository implements port.SubtaskRepository
type SubtaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubtaskRepository creates a new subtask repository
func NewSubtaskRepository(db *sql.DB, logger *zap.Logger) *SubtaskRepository {
	return &SubtaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a subtask row.
func (r *SubtaskRepository) Create(ctx context.Context, s *entity.Subtask) error {
	query := `
		INSERT INTO subtasks (id, task_id, title, phase_id, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.ID,
		s.TaskID,
		s.Title,
		s.PhaseID,
		s.Completed,
		s.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create subtask", zap.Error(err), zap.String("title", s.Title))
		return fmt.Errorf("failed to create subtask: %w", err)
	}
	return nil
}

// GetByID retrieves a subtask by id.
func (r *SubtaskRepository) GetByID(ctx context.Context, id string) (*entity.Subtask, error) {
	query := `SELECT id, task_id, title, phase_id, completed, created_at FROM subtasks WHERE id = ?`

	var s entity.Subtask
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.TaskID, &s.Title, &s.PhaseID, &s.Completed, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subtask %s: %w", id, workflow.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subtask: %w", err)
	}
	return &s, nil
}

// ListByTaskID retrieves all subtasks for a task.
func (r *SubtaskRepository) ListByTaskID(ctx context.Context, taskID string) ([]*entity.Subtask, error) {
	query := `SELECT id, task_id, title, phase_id, completed, created_at FROM subtasks WHERE task_id = ? ORDER BY created_at ASC`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to list subtasks", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*entity.Subtask
	for rows.Next() {
		var s entity.Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Title, &s.PhaseID, &s.Completed, &s.CreatedAt); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, &s)
	}
	return subtasks, rows.Err()
}

// SetCompleted toggles a subtask's completion flag.
func (r *SubtaskRepository) SetCompleted(ctx context.Context, id string, completed bool) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE subtasks SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		r.logger.Error("Failed to update subtask", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update subtask: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subtask %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// Verify interface compliance
var _ port.SubtaskRepository = (*SubtaskRepository)(nil)
