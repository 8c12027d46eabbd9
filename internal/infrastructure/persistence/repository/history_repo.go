package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository. The phase_history
// table is append-only: this type deliberately exposes no update or
// delete operations.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one audit record.
func (r *HistoryRepository) Create(ctx context.Context, record *entity.PhaseHistory) error {
	query := `
		INSERT INTO phase_history (id, task_id, from_phase_id, to_phase_id, moved_by_id, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.TaskID,
		record.FromPhaseID,
		record.ToPhaseID,
		record.MovedByID,
		record.Comment,
		record.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

// ListByTaskID retrieves a task's audit trail oldest-first.
func (r *HistoryRepository) ListByTaskID(ctx context.Context, taskID string) ([]*entity.PhaseHistory, error) {
	query := `
		SELECT id, task_id, from_phase_id, to_phase_id, moved_by_id, comment, timestamp
		FROM phase_history
		WHERE task_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.PhaseHistory
	for rows.Next() {
		var record entity.PhaseHistory
		err := rows.Scan(
			&record.ID,
			&record.TaskID,
			&record.FromPhaseID,
			&record.ToPhaseID,
			&record.MovedByID,
			&record.Comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
