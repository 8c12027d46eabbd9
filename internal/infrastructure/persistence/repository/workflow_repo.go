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

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

const workflowColumns = `id, name, description, task_type, is_default, is_active, color, created_by_id, created_at, updated_at`

// Create inserts the workflow row. Phases and transitions are persisted
// by their own repositories inside the caller's transaction.
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.Workflow) error {
	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		wf.TaskType,
		wf.IsDefault,
		wf.IsActive,
		wf.Color,
		wf.CreatedByID,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.Error(err), zap.String("name", wf.Name))
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

// GetByID retrieves a workflow with its phases ordered by position.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*entity.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = ?`

	wf, err := r.scanWorkflow(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("workflow %s: %w", id, workflow.ErrNotFound)
		}
		r.logger.Error("Failed to get workflow", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if err := r.loadPhases(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// GetDefaultByTaskType retrieves the single default active workflow for
// a task type.
func (r *WorkflowRepository) GetDefaultByTaskType(ctx context.Context, taskType string) (*entity.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + ` FROM workflows
		WHERE task_type = ? AND is_default = 1 AND is_active = 1
		LIMIT 1
	`

	wf, err := r.scanWorkflow(executor(ctx, r.db).QueryRowContext(ctx, query, taskType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no default workflow for task type %s: %w", taskType, workflow.ErrNotFound)
		}
		r.logger.Error("Failed to get default workflow", zap.String("task_type", taskType), zap.Error(err))
		return nil, fmt.Errorf("failed to get default workflow: %w", err)
	}

	if err := r.loadPhases(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// List retrieves active workflows, optionally filtered by task type.
func (r *WorkflowRepository) List(ctx context.Context, taskType string) ([]*entity.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE is_active = 1`
	args := []interface{}{}
	if taskType != "" {
		query += ` AND task_type = ?`
		args = append(args, taskType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list workflows", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*entity.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, wf := range workflows {
		if err := r.loadPhases(ctx, wf); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

// Update mutates display fields and flags; topology is untouched.
func (r *WorkflowRepository) Update(ctx context.Context, wf *entity.Workflow) error {
	query := `
		UPDATE workflows
		SET name = ?, description = ?, color = ?, is_default = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		wf.Name,
		wf.Description,
		wf.Color,
		wf.IsDefault,
		wf.IsActive,
		wf.UpdatedAt,
		wf.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow", zap.String("id", wf.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", wf.ID, workflow.ErrNotFound)
	}
	return nil
}

// Delete removes the workflow; phases and transitions follow by cascade.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete workflow", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// ClearDefault unsets is_default on every workflow of the task type.
func (r *WorkflowRepository) ClearDefault(ctx context.Context, taskType string) error {
	query := `UPDATE workflows SET is_default = 0 WHERE task_type = ? AND is_default = 1`

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, taskType); err != nil {
		r.logger.Error("Failed to clear default workflow", zap.String("task_type", taskType), zap.Error(err))
		return fmt.Errorf("failed to clear default workflow: %w", err)
	}
	return nil
}

// CountAll returns the total number of workflows system-wide.
func (r *WorkflowRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM workflows`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count workflows: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *WorkflowRepository) scanWorkflow(row rowScanner) (*entity.Workflow, error) {
	var wf entity.Workflow
	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Description,
		&wf.TaskType,
		&wf.IsDefault,
		&wf.IsActive,
		&wf.Color,
		&wf.CreatedByID,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepository) loadPhases(ctx context.Context, wf *entity.Workflow) error {
	phases, err := listPhases(ctx, executor(ctx, r.db), wf.ID)
	if err != nil {
		r.logger.Error("Failed to load phases", zap.String("workflow_id", wf.ID), zap.Error(err))
		return fmt.Errorf("failed to load phases: %w", err)
	}
	wf.Phases = phases
	return nil
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
