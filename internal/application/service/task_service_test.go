package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
)

// contentWorkflow builds a three-phase workflow with a linear chain:
// Draft -> Review -> Done.
func contentWorkflow() *entity.Workflow {
	wf := &entity.Workflow{
		ID:       "wf-1",
		Name:     "Content Workflow",
		TaskType: entity.TaskTypeSocialMedia,
	}
	wf.Phases = []*entity.Phase{
		{ID: "phase-draft", WorkflowID: wf.ID, Name: "Draft", Order: 0, IsStartPhase: true},
		{ID: "phase-review", WorkflowID: wf.ID, Name: "Review", Order: 1},
		{ID: "phase-done", WorkflowID: wf.ID, Name: "Done", Order: 2, IsEndPhase: true},
	}
	return wf
}

func contentTransitions() []*entity.Transition {
	return []*entity.Transition{
		{ID: "t-1", WorkflowID: "wf-1", FromPhaseID: "phase-draft", ToPhaseID: "phase-review", Name: "Move to Review"},
		{ID: "t-2", WorkflowID: "wf-1", FromPhaseID: "phase-review", ToPhaseID: "phase-done", Name: "Move to Done"},
	}
}

func newTaskServiceForTest(
	taskRepo *mockTaskRepo,
	workflowRepo *mockWorkflowRepo,
	transitionRepo *mockTransitionRepo,
	assignmentRepo *mockAssignmentRepo,
	subtaskRepo *mockSubtaskRepo,
	historyRepo *mockHistoryRepo,
	classifier port.TaskClassifier,
	notifier *mockNotifier,
) TaskService {
	return NewTaskService(taskRepo, workflowRepo, transitionRepo, assignmentRepo, subtaskRepo,
		historyRepo, &mockTxManager{}, classifier, notifier, &mockLogger{})
}

func TestTaskService_CreateTask_ExplicitWorkflow(t *testing.T) {
	wf := contentWorkflow()
	workflowRepo := &mockWorkflowRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Workflow, error) {
			if id != wf.ID {
				t.Errorf("GetByID called with %q, want %q", id, wf.ID)
			}
			return wf, nil
		},
	}
	taskRepo := &mockTaskRepo{}
	assignmentRepo := &mockAssignmentRepo{}
	historyRepo := &mockHistoryRepo{}
	notifier := &mockNotifier{}

	svc := newTaskServiceForTest(taskRepo, workflowRepo, &mockTransitionRepo{}, assignmentRepo,
		&mockSubtaskRepo{}, historyRepo, nil, notifier)

	workflowID := wf.ID
	task, err := svc.CreateTask(context.Background(), "creator-1", CreateTaskInput{
		Title:       "Launch post",
		WorkflowID:  &workflowID,
		AssigneeIDs: []string{"user-a", "user-b"},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if task.CurrentPhaseID != "phase-draft" {
		t.Errorf("task.CurrentPhaseID = %q, want phase-draft", task.CurrentPhaseID)
	}
	if task.Version != 1 {
		t.Errorf("task.Version = %d, want 1", task.Version)
	}
	if task.TaskType != entity.TaskTypeSocialMedia {
		t.Errorf("task.TaskType = %q, want %q", task.TaskType, entity.TaskTypeSocialMedia)
	}
	if len(assignmentRepo.added) != 2 {
		t.Errorf("assignments created = %d, want 2", len(assignmentRepo.added))
	}

	// The opening history record has no from phase.
	if len(historyRepo.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(historyRepo.records))
	}
	record := historyRepo.records[0]
	if record.FromPhaseID != nil {
		t.Errorf("record.FromPhaseID = %v, want nil", *record.FromPhaseID)
	}
	if record.ToPhaseID != "phase-draft" {
		t.Errorf("record.ToPhaseID = %q, want phase-draft", record.ToPhaseID)
	}
	if record.MovedByID != "creator-1" {
		t.Errorf("record.MovedByID = %q, want creator-1", record.MovedByID)
	}

	// Both assignees are notified; the creator is not among them.
	if len(notifier.sent) != 2 {
		t.Fatalf("notifications sent = %d, want 2", len(notifier.sent))
	}
	for _, n := range notifier.sent {
		if n.UserID == "creator-1" {
			t.Errorf("creator was notified about their own action")
		}
		if n.Kind != entity.NotificationTaskAssigned {
			t.Errorf("notification kind = %q, want %q", n.Kind, entity.NotificationTaskAssigned)
		}
	}
}

func TestTaskService_CreateTask_ClassifierFailureFallsBack(t *testing.T) {
	general := &entity.Workflow{
		ID:       "wf-general",
		Name:     "General Task Workflow",
		TaskType: entity.TaskTypeGeneral,
		Phases: []*entity.Phase{
			{ID: "phase-todo", WorkflowID: "wf-general", Name: "To Do", IsStartPhase: true},
		},
	}
	var requestedTypes []string
	workflowRepo := &mockWorkflowRepo{
		getDefaultByTaskTypeFunc: func(ctx context.Context, taskType string) (*entity.Workflow, error) {
			requestedTypes = append(requestedTypes, taskType)
			if taskType == entity.TaskTypeGeneral {
				return general, nil
			}
			return nil, workflow.ErrNotFound
		},
	}
	classifier := &mockClassifier{
		classifyFunc: func(ctx context.Context, title, description string) (*port.ClassificationResult, error) {
			return nil, errors.New("model unavailable")
		},
	}

	svc := newTaskServiceForTest(&mockTaskRepo{}, workflowRepo, &mockTransitionRepo{},
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, classifier, &mockNotifier{})

	task, err := svc.CreateTask(context.Background(), "creator-1", CreateTaskInput{Title: "Untyped"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if task.TaskType != entity.TaskTypeGeneral {
		t.Errorf("task.TaskType = %q, want %q", task.TaskType, entity.TaskTypeGeneral)
	}
	if task.WorkflowID != general.ID {
		t.Errorf("task.WorkflowID = %q, want %q", task.WorkflowID, general.ID)
	}
	if len(requestedTypes) != 1 || requestedTypes[0] != entity.TaskTypeGeneral {
		t.Errorf("default lookups = %v, want [GENERAL]", requestedTypes)
	}
}

func TestTaskService_CreateTask_NoDefaultForTypeFallsBackToGeneral(t *testing.T) {
	general := &entity.Workflow{
		ID:       "wf-general",
		Name:     "General Task Workflow",
		TaskType: entity.TaskTypeGeneral,
		Phases: []*entity.Phase{
			{ID: "phase-todo", WorkflowID: "wf-general", Name: "To Do", IsStartPhase: true},
		},
	}
	var requestedTypes []string
	workflowRepo := &mockWorkflowRepo{
		getDefaultByTaskTypeFunc: func(ctx context.Context, taskType string) (*entity.Workflow, error) {
			requestedTypes = append(requestedTypes, taskType)
			if taskType == entity.TaskTypeGeneral {
				return general, nil
			}
			return nil, workflow.ErrNotFound
		},
	}
	classifier := &mockClassifier{
		classifyFunc: func(ctx context.Context, title, description string) (*port.ClassificationResult, error) {
			return &port.ClassificationResult{TaskType: entity.TaskTypeVideo}, nil
		},
	}

	svc := newTaskServiceForTest(&mockTaskRepo{}, workflowRepo, &mockTransitionRepo{},
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, classifier, &mockNotifier{})

	task, err := svc.CreateTask(context.Background(), "creator-1", CreateTaskInput{Title: "Promo video"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	// The classified type is kept even though its default is missing.
	if task.TaskType != entity.TaskTypeVideo {
		t.Errorf("task.TaskType = %q, want %q", task.TaskType, entity.TaskTypeVideo)
	}
	if task.WorkflowID != general.ID {
		t.Errorf("task.WorkflowID = %q, want %q", task.WorkflowID, general.ID)
	}
	want := []string{entity.TaskTypeVideo, entity.TaskTypeGeneral}
	if len(requestedTypes) != 2 || requestedTypes[0] != want[0] || requestedTypes[1] != want[1] {
		t.Errorf("default lookups = %v, want %v", requestedTypes, want)
	}
}

func TestTaskService_CreateTask_ClassifiedWithSubtasks(t *testing.T) {
	wf := contentWorkflow()
	workflowRepo := &mockWorkflowRepo{
		getDefaultByTaskTypeFunc: func(ctx context.Context, taskType string) (*entity.Workflow, error) {
			if taskType == entity.TaskTypeSocialMedia {
				return wf, nil
			}
			return nil, workflow.ErrNotFound
		},
	}
	classifier := &mockClassifier{
		classifyFunc: func(ctx context.Context, title, description string) (*port.ClassificationResult, error) {
			return &port.ClassificationResult{
				TaskType: entity.TaskTypeSocialMedia,
				Subtasks: []port.SubtaskSuggestion{
					{Title: "Write copy", PhaseHint: "Draft"},
					{Title: "Final check", PhaseHint: "review"},
					{Title: "No such phase", PhaseHint: "Shipping"},
				},
			}, nil
		},
	}
	subtaskRepo := &mockSubtaskRepo{}

	svc := newTaskServiceForTest(&mockTaskRepo{}, workflowRepo, &mockTransitionRepo{},
		&mockAssignmentRepo{}, subtaskRepo, &mockHistoryRepo{}, classifier, &mockNotifier{})

	task, err := svc.CreateTask(context.Background(), "creator-1", CreateTaskInput{Title: "Campaign"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.TaskType != entity.TaskTypeSocialMedia {
		t.Errorf("task.TaskType = %q, want %q", task.TaskType, entity.TaskTypeSocialMedia)
	}

	if len(subtaskRepo.created) != 3 {
		t.Fatalf("subtasks created = %d, want 3", len(subtaskRepo.created))
	}
	wantPhases := map[string]string{
		"Write copy":    "phase-draft",
		"Final check":   "phase-review",
		"No such phase": "phase-draft", // unmatched hint falls back to start
	}
	for _, s := range subtaskRepo.created {
		if want := wantPhases[s.Title]; s.PhaseID != want {
			t.Errorf("subtask %q bound to phase %q, want %q", s.Title, s.PhaseID, want)
		}
	}
}

func TestTaskService_MoveTaskToPhase(t *testing.T) {
	assignee := "user-a"
	baseTask := func() *entity.Task {
		return &entity.Task{
			ID:             "task-1",
			Title:          "Launch post",
			WorkflowID:     "wf-1",
			CurrentPhaseID: "phase-draft",
			Version:        3,
			Assignments: []*entity.TaskAssignment{
				{TaskID: "task-1", UserID: assignee},
				{TaskID: "task-1", UserID: "actor-1"},
			},
		}
	}

	tests := []struct {
		name         string
		toPhaseID    string
		actorID      string
		allowedUsers []string
		updateErr    error
		wantErr      error
		wantMoved    bool
	}{
		{
			name:      "legal move succeeds",
			toPhaseID: "phase-review",
			actorID:   "actor-1",
			wantMoved: true,
		},
		{
			name:      "skipping a phase is illegal",
			toPhaseID: "phase-done",
			actorID:   "actor-1",
			wantErr:   workflow.ErrIllegalTransition,
		},
		{
			name:      "backward move without edge is illegal",
			toPhaseID: "phase-draft",
			actorID:   "actor-1",
			wantErr:   workflow.ErrIllegalTransition,
		},
		{
			name:      "unknown phase is not found",
			toPhaseID: "phase-missing",
			actorID:   "actor-1",
			wantErr:   workflow.ErrNotFound,
		},
		{
			name:         "restricted phase rejects outsiders",
			toPhaseID:    "phase-review",
			actorID:      "actor-1",
			allowedUsers: []string{"reviewer-1"},
			wantErr:      workflow.ErrUnauthorized,
		},
		{
			name:         "restricted phase admits listed user",
			toPhaseID:    "phase-review",
			actorID:      "reviewer-1",
			allowedUsers: []string{"reviewer-1"},
			wantMoved:    true,
		},
		{
			name:      "stale version surfaces conflict",
			toPhaseID: "phase-review",
			actorID:   "actor-1",
			updateErr: workflow.ErrConflict,
			wantErr:   workflow.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := contentWorkflow()
			wf.Phases[1].AllowedUsers = tt.allowedUsers

			task := baseTask()
			taskRepo := &mockTaskRepo{
				getByIDFunc: func(ctx context.Context, id string) (*entity.Task, error) {
					return task, nil
				},
			}
			if tt.updateErr != nil {
				taskRepo.updatePhaseFunc = func(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error {
					return tt.updateErr
				}
			}
			workflowRepo := &mockWorkflowRepo{
				getByIDFunc: func(ctx context.Context, id string) (*entity.Workflow, error) {
					return wf, nil
				},
			}
			transitionRepo := &mockTransitionRepo{
				listByWorkflowIDFunc: func(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
					return contentTransitions(), nil
				},
			}
			historyRepo := &mockHistoryRepo{}
			notifier := &mockNotifier{}

			svc := newTaskServiceForTest(taskRepo, workflowRepo, transitionRepo,
				&mockAssignmentRepo{}, &mockSubtaskRepo{}, historyRepo, nil, notifier)

			moved, err := svc.MoveTaskToPhase(context.Background(), task.ID, tt.toPhaseID, tt.actorID, nil)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("MoveTaskToPhase() error = %v, want %v", err, tt.wantErr)
				}
				if tt.updateErr == nil && len(taskRepo.phaseMoves) != 0 {
					t.Errorf("task phase was updated despite rejected move")
				}
				if tt.updateErr == nil && len(historyRepo.records) != 0 {
					t.Errorf("history recorded despite rejected move")
				}
				return
			}

			if err != nil {
				t.Fatalf("MoveTaskToPhase() error = %v", err)
			}
			if moved == nil {
				t.Fatal("MoveTaskToPhase() returned nil task")
			}
			if !tt.wantMoved {
				return
			}

			if len(taskRepo.phaseMoves) != 1 || taskRepo.phaseMoves[0] != tt.toPhaseID {
				t.Errorf("phase moves = %v, want [%s]", taskRepo.phaseMoves, tt.toPhaseID)
			}
			if len(historyRepo.records) != 1 {
				t.Fatalf("history records = %d, want 1", len(historyRepo.records))
			}
			record := historyRepo.records[0]
			if record.FromPhaseID == nil || *record.FromPhaseID != "phase-draft" {
				t.Errorf("record.FromPhaseID = %v, want phase-draft", record.FromPhaseID)
			}
			if record.ToPhaseID != tt.toPhaseID {
				t.Errorf("record.ToPhaseID = %q, want %q", record.ToPhaseID, tt.toPhaseID)
			}
			if record.MovedByID != tt.actorID {
				t.Errorf("record.MovedByID = %q, want %q", record.MovedByID, tt.actorID)
			}

			// The actor never gets notified about their own move.
			for _, n := range notifier.sent {
				if n.UserID == tt.actorID {
					t.Errorf("actor %s was notified about their own move", tt.actorID)
				}
			}
		})
	}
}

func TestTaskService_MoveTaskToPhase_EndPhaseCompletesTask(t *testing.T) {
	wf := contentWorkflow()
	task := &entity.Task{
		ID:             "task-1",
		Title:          "Launch post",
		WorkflowID:     wf.ID,
		CurrentPhaseID: "phase-review",
		Version:        1,
		Assignments: []*entity.TaskAssignment{
			{TaskID: "task-1", UserID: "user-a"},
		},
	}
	taskRepo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Task, error) {
			return task, nil
		},
	}
	workflowRepo := &mockWorkflowRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Workflow, error) {
			return wf, nil
		},
	}
	transitionRepo := &mockTransitionRepo{
		listByWorkflowIDFunc: func(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
			return contentTransitions(), nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTaskServiceForTest(taskRepo, workflowRepo, transitionRepo,
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, nil, notifier)

	if _, err := svc.MoveTaskToPhase(context.Background(), task.ID, "phase-done", "actor-1", nil); err != nil {
		t.Fatalf("MoveTaskToPhase() error = %v", err)
	}

	if taskRepo.completedAt == nil {
		t.Error("completedAt not set on move to end phase")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(notifier.sent))
	}
	if notifier.sent[0].Kind != entity.NotificationTaskCompleted {
		t.Errorf("notification kind = %q, want %q", notifier.sent[0].Kind, entity.NotificationTaskCompleted)
	}
}

func TestTaskService_MoveTaskToPhase_OffEndPhaseClearsCompletedAt(t *testing.T) {
	wf := contentWorkflow()
	finished := time.Now()
	task := &entity.Task{
		ID:             "task-1",
		Title:          "Launch post",
		WorkflowID:     wf.ID,
		CurrentPhaseID: "phase-done",
		CompletedAt:    &finished,
		Version:        2,
	}
	var capturedCompletedAt *time.Time
	updatePhaseCalled := false
	taskRepo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Task, error) {
			return task, nil
		},
		updatePhaseFunc: func(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error {
			updatePhaseCalled = true
			capturedCompletedAt = completedAt
			return nil
		},
	}
	workflowRepo := &mockWorkflowRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Workflow, error) {
			return wf, nil
		},
	}
	transitionRepo := &mockTransitionRepo{
		listByWorkflowIDFunc: func(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
			// Reopening edge back out of the terminal phase.
			return append(contentTransitions(), &entity.Transition{
				ID: "t-3", WorkflowID: wf.ID, FromPhaseID: "phase-done", ToPhaseID: "phase-review", Name: "Reopen",
			}), nil
		},
	}

	svc := newTaskServiceForTest(taskRepo, workflowRepo, transitionRepo,
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, nil, &mockNotifier{})

	if _, err := svc.MoveTaskToPhase(context.Background(), task.ID, "phase-review", "actor-1", nil); err != nil {
		t.Fatalf("MoveTaskToPhase() error = %v", err)
	}

	if !updatePhaseCalled {
		t.Fatal("UpdatePhase was not called")
	}
	if capturedCompletedAt != nil {
		t.Errorf("completedAt = %v, want nil when leaving an end phase", *capturedCompletedAt)
	}
}

func TestTaskService_MoveTaskToPhase_TaskNotFound(t *testing.T) {
	svc := newTaskServiceForTest(&mockTaskRepo{}, &mockWorkflowRepo{}, &mockTransitionRepo{},
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, nil, &mockNotifier{})

	_, err := svc.MoveTaskToPhase(context.Background(), "missing", "phase-review", "actor-1", nil)
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("MoveTaskToPhase() error = %v, want ErrNotFound", err)
	}
}

func TestTaskService_MoveTaskToPhase_NotificationFailureDoesNotFailMove(t *testing.T) {
	wf := contentWorkflow()
	task := &entity.Task{
		ID:             "task-1",
		Title:          "Launch post",
		WorkflowID:     wf.ID,
		CurrentPhaseID: "phase-draft",
		Version:        1,
		Assignments: []*entity.TaskAssignment{
			{TaskID: "task-1", UserID: "user-a"},
		},
	}
	taskRepo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Task, error) {
			return task, nil
		},
	}
	workflowRepo := &mockWorkflowRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Workflow, error) {
			return wf, nil
		},
	}
	transitionRepo := &mockTransitionRepo{
		listByWorkflowIDFunc: func(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
			return contentTransitions(), nil
		},
	}
	notifier := &mockNotifier{
		notifyFunc: func(ctx context.Context, userID, kind, title, message string, taskID *string) error {
			return errors.New("delivery backend down")
		},
	}

	svc := newTaskServiceForTest(taskRepo, workflowRepo, transitionRepo,
		&mockAssignmentRepo{}, &mockSubtaskRepo{}, &mockHistoryRepo{}, nil, notifier)

	moved, err := svc.MoveTaskToPhase(context.Background(), task.ID, "phase-review", "actor-1", nil)
	if err != nil {
		t.Fatalf("MoveTaskToPhase() error = %v", err)
	}
	if moved == nil {
		t.Fatal("MoveTaskToPhase() returned nil task")
	}
}

func TestTaskService_ToggleSubtask_NotifiesOnCompletion(t *testing.T) {
	task := &entity.Task{
		ID:    "task-1",
		Title: "Launch post",
		Assignments: []*entity.TaskAssignment{
			{TaskID: "task-1", UserID: "user-a"},
			{TaskID: "task-1", UserID: "actor-1"},
		},
	}
	taskRepo := &mockTaskRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Task, error) {
			return task, nil
		},
	}
	subtaskRepo := &mockSubtaskRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Subtask, error) {
			return &entity.Subtask{ID: id, TaskID: task.ID, Title: "Write copy"}, nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTaskServiceForTest(taskRepo, &mockWorkflowRepo{}, &mockTransitionRepo{},
		&mockAssignmentRepo{}, subtaskRepo, &mockHistoryRepo{}, nil, notifier)

	if err := svc.ToggleSubtask(context.Background(), "sub-1", "actor-1", true); err != nil {
		t.Fatalf("ToggleSubtask() error = %v", err)
	}

	if !subtaskRepo.completed["sub-1"] {
		t.Error("subtask not marked completed")
	}
	if len(notifier.sent) != 1 || notifier.sent[0].UserID != "user-a" {
		t.Errorf("notifications = %+v, want exactly one to user-a", notifier.sent)
	}
	if notifier.sent[0].Kind != entity.NotificationSubtaskCompleted {
		t.Errorf("notification kind = %q, want %q", notifier.sent[0].Kind, entity.NotificationSubtaskCompleted)
	}
}
