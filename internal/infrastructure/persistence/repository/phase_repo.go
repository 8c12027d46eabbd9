package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
	"github.com/openteams/taskflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// PhaseRepository implements port.PhaseRepository
type PhaseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPhaseRepository creates a new phase repository
func NewPhaseRepository(db *sql.DB, logger *zap.Logger) *PhaseRepository {
	return &PhaseRepository{
		db:     db,
		logger: logger,
	}
}

const phaseColumns = `id, workflow_id, name, description, position, color, allowed_users, auto_assign_user_id, requires_approval, is_start_phase, is_end_phase`

// Create inserts a phase row.
func (r *PhaseRepository) Create(ctx context.Context, phase *entity.Phase) error {
	query := `
		INSERT INTO phases (` + phaseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		phase.ID,
		phase.WorkflowID,
		phase.Name,
		phase.Description,
		phase.Order,
		phase.Color,
		marshalIDs(phase.AllowedUsers),
		phase.AutoAssignUserID,
		phase.RequiresApproval,
		phase.IsStartPhase,
		phase.IsEndPhase,
	)
	if err != nil {
		r.logger.Error("Failed to create phase", zap.Error(err), zap.String("name", phase.Name))
		return fmt.Errorf("failed to create phase: %w", err)
	}
	return nil
}

// GetByID retrieves a phase by id.
func (r *PhaseRepository) GetByID(ctx context.Context, id string) (*entity.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE id = ?`

	phase, err := scanPhase(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("phase %s: %w", id, workflow.ErrNotFound)
		}
		r.logger.Error("Failed to get phase", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get phase: %w", err)
	}
	return phase, nil
}

// ListByWorkflowID retrieves a workflow's phases ordered by position.
func (r *PhaseRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Phase, error) {
	phases, err := listPhases(ctx, executor(ctx, r.db), workflowID)
	if err != nil {
		r.logger.Error("Failed to list phases", zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	return phases, nil
}

// listPhases is shared with WorkflowRepository's hydrating reads.
func listPhases(ctx context.Context, exec sqlite.Executor, workflowID string) ([]*entity.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE workflow_id = ? ORDER BY position ASC`

	rows, err := exec.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []*entity.Phase
	for rows.Next() {
		phase, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, phase)
	}
	return phases, rows.Err()
}

func scanPhase(row rowScanner) (*entity.Phase, error) {
	var phase entity.Phase
	var allowedUsers string
	err := row.Scan(
		&phase.ID,
		&phase.WorkflowID,
		&phase.Name,
		&phase.Description,
		&phase.Order,
		&phase.Color,
		&allowedUsers,
		&phase.AutoAssignUserID,
		&phase.RequiresApproval,
		&phase.IsStartPhase,
		&phase.IsEndPhase,
	)
	if err != nil {
		return nil, err
	}
	phase.AllowedUsers = unmarshalIDs(allowedUsers)
	return &phase, nil
}

// Verify interface compliance
var _ port.PhaseRepository = (*PhaseRepository)(nil)
