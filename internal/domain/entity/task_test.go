package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_AssigneeIDs(t *testing.T) {
	legacy := "user-legacy"

	tests := []struct {
		name    string
		task    Task
		exclude string
		want    []string
	}{
		{
			name: "union of legacy and assignments",
			task: Task{
				AssignedToID: &legacy,
				Assignments: []*TaskAssignment{
					{UserID: "user-a"},
					{UserID: "user-b"},
				},
			},
			want: []string{"user-legacy", "user-a", "user-b"},
		},
		{
			name: "legacy assignee deduplicated",
			task: Task{
				AssignedToID: &legacy,
				Assignments: []*TaskAssignment{
					{UserID: "user-legacy"},
					{UserID: "user-a"},
				},
			},
			want: []string{"user-legacy", "user-a"},
		},
		{
			name: "actor excluded",
			task: Task{
				AssignedToID: &legacy,
				Assignments: []*TaskAssignment{
					{UserID: "user-a"},
				},
			},
			exclude: "user-legacy",
			want:    []string{"user-a"},
		},
		{
			name: "no assignees",
			task: Task{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.AssigneeIDs(tt.exclude))
		})
	}
}

func TestWorkflow_StartPhase(t *testing.T) {
	wf := Workflow{
		Phases: []*Phase{
			{ID: "p1", Name: "Backlog"},
			{ID: "p2", Name: "To Do", IsStartPhase: true},
		},
	}
	assert.Equal(t, "p2", wf.StartPhase().ID)

	// Without an explicit start flag the first phase is the entry.
	wf.Phases[1].IsStartPhase = false
	assert.Equal(t, "p1", wf.StartPhase().ID)

	empty := Workflow{}
	assert.Nil(t, empty.StartPhase())
}

func TestWorkflow_PhaseByID(t *testing.T) {
	wf := Workflow{
		Phases: []*Phase{
			{ID: "p1", Name: "Draft"},
			{ID: "p2", Name: "Review"},
		},
	}
	assert.Equal(t, "Review", wf.PhaseByID("p2").Name)
	assert.Nil(t, wf.PhaseByID("p9"))
}
