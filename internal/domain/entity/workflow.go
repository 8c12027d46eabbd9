package entity

import "time"

// Workflow is a named container for one phase graph, scoped to a task
// category. At most one workflow per task type may be the default.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TaskType    string    `json:"task_type"`
	IsDefault   bool      `json:"is_default"`
	IsActive    bool      `json:"is_active"`
	Color       string    `json:"color,omitempty"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Phases ordered by Order ascending. Populated on hydrated reads.
	Phases []*Phase `json:"phases,omitempty"`
}

// StartPhase returns the designated entry phase, or nil when phases are
// not loaded or the workflow is malformed.
func (w *Workflow) StartPhase() *Phase {
	for _, p := range w.Phases {
		if p.IsStartPhase {
			return p
		}
	}
	if len(w.Phases) > 0 {
		return w.Phases[0]
	}
	return nil
}

// PhaseByID looks up a phase by id within the workflow.
func (w *Workflow) PhaseByID(id string) *Phase {
	for _, p := range w.Phases {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Phase is a state a task can occupy within a workflow.
type Phase struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Color       string `json:"color,omitempty"`

	// AllowedUsers lists user ids permitted to act on this phase.
	// An empty list means the phase is unrestricted.
	AllowedUsers []string `json:"allowed_users"`

	AutoAssignUserID *string `json:"auto_assign_user_id,omitempty"`
	RequiresApproval bool    `json:"requires_approval"`
	IsStartPhase     bool    `json:"is_start_phase"`
	IsEndPhase       bool    `json:"is_end_phase"`
}

// Transition is a directed legal edge between two phases of the same
// workflow. The transition set is the workflow's adjacency list: absence
// of an edge means the move is illegal.
type Transition struct {
	ID          string   `json:"id"`
	WorkflowID  string   `json:"workflow_id"`
	FromPhaseID string   `json:"from_phase_id"`
	ToPhaseID   string   `json:"to_phase_id"`
	Name        string   `json:"name,omitempty"`
	NotifyUsers []string `json:"notify_users"`
}

// Default workflow colors used when the caller does not supply one.
const (
	DefaultWorkflowColor = "#3B82F6"
	DefaultPhaseColor    = "#6B7280"
)
