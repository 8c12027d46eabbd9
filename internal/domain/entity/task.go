package entity

import "time"

// Task is a unit of work moving through a workflow's phase graph.
// A task always references exactly one workflow and one current phase
// belonging to that workflow; it enters the graph on the start phase and
// is moved only through the phase-move orchestrator.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	TaskType       string     `json:"task_type"`
	Priority       string     `json:"priority,omitempty"`
	WorkflowID     string     `json:"workflow_id"`
	CurrentPhaseID string     `json:"current_phase_id"`
	AssignedToID   *string    `json:"assigned_to_id,omitempty"` // legacy single assignee
	CreatedByID    string     `json:"created_by_id"`
	DueDate        *time.Time `json:"due_date,omitempty"`

	// CompletedAt is derived: set when the current phase is an end phase,
	// cleared otherwise. Recomputed on every move.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version is the optimistic-concurrency token. Every successful phase
	// move increments it; a move against a stale version fails with
	// ErrConflict instead of silently losing an update.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Assignments populated on hydrated reads.
	Assignments []*TaskAssignment `json:"assignments,omitempty"`
}

// AssigneeIDs returns the deduplicated union of the legacy single
// assignee and all multi-assignee records, minus excludeUserID.
func (t *Task) AssigneeIDs(excludeUserID string) []string {
	seen := make(map[string]bool)
	var ids []string

	add := func(id string) {
		if id == "" || id == excludeUserID || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if t.AssignedToID != nil {
		add(*t.AssignedToID)
	}
	for _, a := range t.Assignments {
		add(a.UserID)
	}
	return ids
}

// TaskAssignment links a user to a task, recording who assigned them.
type TaskAssignment struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	UserID       string    `json:"user_id"`
	AssignedByID string    `json:"assigned_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subtask is a checklist item attached to a task. AI-suggested subtasks
// carry a phase-name hint that the creation binder maps onto a concrete
// phase of the task's workflow.
type Subtask struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	PhaseID   string    `json:"phase_id"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Task type constants for the starter catalog. Task types are open-ended
// strings; these are the categories the seed workflows cover.
const (
	TaskTypeGeneral     = "GENERAL"
	TaskTypeSocialMedia = "SOCIAL_MEDIA_POST"
	TaskTypeVideo       = "VIDEO_CONTENT"
)

// Priority constants.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)
