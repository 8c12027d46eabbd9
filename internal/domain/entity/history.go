package entity

import "time"

// PhaseHistory is one immutable audit record of a successful phase move.
// Rows are append-only: never updated, never deleted. FromPhaseID is nil
// only for the synthetic entry written when a task enters its workflow.
type PhaseHistory struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	FromPhaseID *string   `json:"from_phase_id,omitempty"`
	ToPhaseID   string    `json:"to_phase_id"`
	MovedByID   string    `json:"moved_by_id"`
	Comment     *string   `json:"comment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
