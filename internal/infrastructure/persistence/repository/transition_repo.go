package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
	"go.uber.org/zap"
)

// TransitionRepository implements port.TransitionRepository
type TransitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *sql.DB, logger *zap.Logger) *TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a directed edge.
func (r *TransitionRepository) Create(ctx context.Context, t *entity.Transition) error {
	query := `
		INSERT INTO transitions (id, workflow_id, from_phase_id, to_phase_id, name, notify_users)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		t.ID,
		t.WorkflowID,
		t.FromPhaseID,
		t.ToPhaseID,
		t.Name,
		marshalIDs(t.NotifyUsers),
	)
	if err != nil {
		r.logger.Error("Failed to create transition",
			zap.String("from", t.FromPhaseID),
			zap.String("to", t.ToPhaseID),
			zap.Error(err))
		return fmt.Errorf("failed to create transition: %w", err)
	}
	return nil
}

// Delete removes an edge by id.
func (r *TransitionRepository) Delete(ctx context.Context, id string) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM transitions WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete transition", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete transition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transition %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// ListByWorkflowID retrieves all edges of a workflow's graph.
func (r *TransitionRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
	query := `
		SELECT id, workflow_id, from_phase_id, to_phase_id, name, notify_users
		FROM transitions
		WHERE workflow_id = ?
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to list transitions", zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*entity.Transition
	for rows.Next() {
		var t entity.Transition
		var notifyUsers string
		err := rows.Scan(&t.ID, &t.WorkflowID, &t.FromPhaseID, &t.ToPhaseID, &t.Name, &notifyUsers)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		t.NotifyUsers = unmarshalIDs(notifyUsers)
		transitions = append(transitions, &t)
	}
	return transitions, rows.Err()
}

// Exists reports whether a direct edge exists for the ordered pair.
func (r *TransitionRepository) Exists(ctx context.Context, fromPhaseID, toPhaseID string) (bool, error) {
	query := `SELECT COUNT(*) FROM transitions WHERE from_phase_id = ? AND to_phase_id = ?`

	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx, query, fromPhaseID, toPhaseID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check transition: %w", err)
	}
	return count > 0, nil
}

// Verify interface compliance
var _ port.TransitionRepository = (*TransitionRepository)(nil)
