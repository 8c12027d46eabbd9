package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
)

// classifyTimeout bounds the external classifier call during task
// creation. On expiry the task falls back to the general category.
const classifyTimeout = 10 * time.Second

// CreateTaskInput is the payload for creating a task. WorkflowID is
// optional: when absent the task is bound to the default workflow of
// its (possibly classified) task type.
type CreateTaskInput struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	TaskType     string     `json:"task_type"`
	Priority     string     `json:"priority"`
	WorkflowID   *string    `json:"workflow_id"`
	AssignedToID *string    `json:"assigned_to_id"`
	AssigneeIDs  []string   `json:"assignee_ids"`
	DueDate      *time.Time `json:"due_date"`
}

// TaskService manages the task lifecycle: creation binding, phase
// moves, assignment, and subtasks.
type TaskService interface {
	CreateTask(ctx context.Context, createdByID string, input CreateTaskInput) (*entity.Task, error)
	GetTask(ctx context.Context, id string) (*entity.Task, error)
	ListTasks(ctx context.Context, limit, offset int) ([]*entity.Task, error)

	// MoveTaskToPhase applies one phase transition on behalf of actorID
	// and returns the task in its new phase.
	MoveTaskToPhase(ctx context.Context, taskID, toPhaseID, actorID string, comment *string) (*entity.Task, error)

	GetTaskHistory(ctx context.Context, taskID string) ([]*entity.PhaseHistory, error)
	AssignUser(ctx context.Context, taskID, userID, assignedByID string) error
	UnassignUser(ctx context.Context, taskID, userID string) error
	ListSubtasks(ctx context.Context, taskID string) ([]*entity.Subtask, error)
	ToggleSubtask(ctx context.Context, subtaskID, actorID string, completed bool) error
}

type taskServiceImpl struct {
	taskRepo       port.TaskRepository
	workflowRepo   port.WorkflowRepository
	transitionRepo port.TransitionRepository
	assignmentRepo port.AssignmentRepository
	subtaskRepo    port.SubtaskRepository
	historyRepo    port.HistoryRepository
	txManager      port.TransactionManager
	classifier     port.TaskClassifier
	notifier       port.Notifier
	logger         Logger
}

// NewTaskService creates a new TaskService. classifier may be nil when
// no AI backend is configured; creation then defaults untyped tasks to
// the general category without suggesting subtasks.
func NewTaskService(
	taskRepo port.TaskRepository,
	workflowRepo port.WorkflowRepository,
	transitionRepo port.TransitionRepository,
	assignmentRepo port.AssignmentRepository,
	subtaskRepo port.SubtaskRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	classifier port.TaskClassifier,
	notifier port.Notifier,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:       taskRepo,
		workflowRepo:   workflowRepo,
		transitionRepo: transitionRepo,
		assignmentRepo: assignmentRepo,
		subtaskRepo:    subtaskRepo,
		historyRepo:    historyRepo,
		txManager:      txManager,
		classifier:     classifier,
		notifier:       notifier,
		logger:         logger,
	}
}

// CreateTask binds a new task into a workflow and places it on the
// start phase. The workflow is either the one the caller named or the
// default for the task's type; untyped tasks are classified first, with
// a fallback to the general category when the classifier is slow,
// unavailable, or returns garbage. The task row, its assignments, any
// suggested subtasks, and the opening history record are written in one
// transaction; notifications go out after commit, best-effort.
func (s *taskServiceImpl) CreateTask(ctx context.Context, createdByID string, input CreateTaskInput) (*entity.Task, error) {
	taskType := input.TaskType
	var suggestions []port.SubtaskSuggestion

	if input.WorkflowID == nil && taskType == "" {
		taskType, suggestions = s.classify(ctx, input.Title, input.Description)
	}

	wf, err := s.resolveWorkflow(ctx, input.WorkflowID, taskType)
	if err != nil {
		return nil, err
	}
	if taskType == "" {
		taskType = wf.TaskType
	}

	start := wf.StartPhase()
	if start == nil {
		return nil, fmt.Errorf("workflow %s has no phases", wf.ID)
	}

	now := time.Now()
	task := &entity.Task{
		ID:             uuid.NewString(),
		Title:          input.Title,
		Description:    input.Description,
		TaskType:       taskType,
		Priority:       input.Priority,
		WorkflowID:     wf.ID,
		CurrentPhaseID: start.ID,
		AssignedToID:   input.AssignedToID,
		CreatedByID:    createdByID,
		DueDate:        input.DueDate,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.Priority == "" {
		task.Priority = entity.PriorityMedium
	}
	if task.AssignedToID == nil && start.AutoAssignUserID != nil {
		task.AssignedToID = start.AutoAssignUserID
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.taskRepo.Create(txCtx, task); err != nil {
			return err
		}
		for _, userID := range input.AssigneeIDs {
			assignment := &entity.TaskAssignment{
				ID:           uuid.NewString(),
				TaskID:       task.ID,
				UserID:       userID,
				AssignedByID: createdByID,
				CreatedAt:    now,
			}
			if err := s.assignmentRepo.Add(txCtx, assignment); err != nil {
				return err
			}
			task.Assignments = append(task.Assignments, assignment)
		}
		for _, suggestion := range suggestions {
			subtask := &entity.Subtask{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Title:     suggestion.Title,
				PhaseID:   matchPhase(wf, suggestion.PhaseHint).ID,
				CreatedAt: now,
			}
			if err := s.subtaskRepo.Create(txCtx, subtask); err != nil {
				return err
			}
		}
		record := &entity.PhaseHistory{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			ToPhaseID: start.ID,
			MovedByID: createdByID,
			Timestamp: now,
		}
		return s.historyRepo.Create(txCtx, record)
	})
	if err != nil {
		s.logger.Error("Failed to create task", "title", input.Title, "error", err)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("Task created",
		"id", task.ID,
		"task_type", task.TaskType,
		"workflow_id", wf.ID,
		"phase", start.Name)

	s.notifyUsers(ctx, task.AssigneeIDs(createdByID), entity.NotificationTaskAssigned,
		"New task assigned",
		fmt.Sprintf("You were assigned to %q", task.Title),
		task.ID)
	return task, nil
}

// GetTask retrieves a task by id.
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}

// ListTasks retrieves tasks newest-first.
func (s *taskServiceImpl) ListTasks(ctx context.Context, limit, offset int) ([]*entity.Task, error) {
	return s.taskRepo.List(ctx, limit, offset)
}

// MoveTaskToPhase validates and applies one phase transition. Checks run
// in order: the task and target phase must exist, the actor must be
// allowed on the target phase, and a direct transition edge must link
// the current phase to the target. The phase change, the derived
// completion timestamp, and the history record commit atomically under
// the task's version guard. Assignees other than the actor are notified
// after commit; notification failures never fail the move.
func (s *taskServiceImpl) MoveTaskToPhase(ctx context.Context, taskID, toPhaseID, actorID string, comment *string) (*entity.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	wf, err := s.workflowRepo.GetByID(ctx, task.WorkflowID)
	if err != nil {
		return nil, err
	}

	toPhase := wf.PhaseByID(toPhaseID)
	if toPhase == nil {
		return nil, fmt.Errorf("phase %s not in workflow %s: %w", toPhaseID, wf.ID, workflow.ErrNotFound)
	}
	fromPhase := wf.PhaseByID(task.CurrentPhaseID)
	if fromPhase == nil {
		return nil, fmt.Errorf("phase %s not in workflow %s: %w", task.CurrentPhaseID, wf.ID, workflow.ErrNotFound)
	}

	if !workflow.Authorized(toPhase, actorID) {
		return nil, fmt.Errorf("user %s not allowed on phase %s: %w", actorID, toPhase.Name, workflow.ErrUnauthorized)
	}

	transitions, err := s.transitionRepo.ListByWorkflowID(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	graph := workflow.NewGraph(transitions)
	if !graph.CanMove(task.CurrentPhaseID, toPhaseID) {
		return nil, fmt.Errorf("no transition from %s to %s: %w", fromPhase.Name, toPhase.Name, workflow.ErrIllegalTransition)
	}

	var completedAt *time.Time
	if toPhase.IsEndPhase {
		now := time.Now()
		completedAt = &now
	}

	fromPhaseID := task.CurrentPhaseID
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.taskRepo.UpdatePhase(txCtx, task.ID, toPhaseID, completedAt, task.Version); err != nil {
			return err
		}
		if toPhase.AutoAssignUserID != nil {
			if err := s.taskRepo.UpdateAssignment(txCtx, task.ID, toPhase.AutoAssignUserID); err != nil {
				return err
			}
		}
		record := &entity.PhaseHistory{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			FromPhaseID: &fromPhaseID,
			ToPhaseID:   toPhaseID,
			MovedByID:   actorID,
			Comment:     comment,
			Timestamp:   time.Now(),
		}
		return s.historyRepo.Create(txCtx, record)
	})
	if err != nil {
		if errors.Is(err, workflow.ErrConflict) {
			s.logger.Info("Concurrent phase move rejected", "task_id", task.ID, "version", task.Version)
		} else {
			s.logger.Error("Failed to move task", "task_id", task.ID, "to_phase", toPhase.Name, "error", err)
		}
		return nil, err
	}

	s.logger.Info("Task moved",
		"task_id", task.ID,
		"from", fromPhase.Name,
		"to", toPhase.Name,
		"moved_by", actorID)

	moved, err := s.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	kind := entity.NotificationTaskPhaseChanged
	title := "Task moved"
	message := fmt.Sprintf("%q moved from %s to %s", moved.Title, fromPhase.Name, toPhase.Name)
	if toPhase.IsEndPhase {
		kind = entity.NotificationTaskCompleted
		title = "Task completed"
		message = fmt.Sprintf("%q was completed", moved.Title)
	}

	recipients := moved.AssigneeIDs(actorID)
	if edge := graph.Edge(fromPhaseID, toPhaseID); edge != nil {
		recipients = mergeRecipients(recipients, edge.NotifyUsers, actorID)
	}
	s.notifyUsers(ctx, recipients, kind, title, message, moved.ID)
	return moved, nil
}

// GetTaskHistory retrieves a task's audit trail oldest-first.
func (s *taskServiceImpl) GetTaskHistory(ctx context.Context, taskID string) ([]*entity.PhaseHistory, error) {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByTaskID(ctx, taskID)
}

// AssignUser adds userID to the task's assignees and notifies them.
func (s *taskServiceImpl) AssignUser(ctx context.Context, taskID, userID, assignedByID string) error {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	assignment := &entity.TaskAssignment{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		UserID:       userID,
		AssignedByID: assignedByID,
		CreatedAt:    time.Now(),
	}
	if err := s.assignmentRepo.Add(ctx, assignment); err != nil {
		return err
	}

	if userID != assignedByID {
		s.notifyUsers(ctx, []string{userID}, entity.NotificationTaskAssigned,
			"New task assigned",
			fmt.Sprintf("You were assigned to %q", task.Title),
			task.ID)
	}
	return nil
}

// UnassignUser removes userID from the task's assignees.
func (s *taskServiceImpl) UnassignUser(ctx context.Context, taskID, userID string) error {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return err
	}
	return s.assignmentRepo.Remove(ctx, taskID, userID)
}

// ListSubtasks retrieves a task's subtasks.
func (s *taskServiceImpl) ListSubtasks(ctx context.Context, taskID string) ([]*entity.Subtask, error) {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.subtaskRepo.ListByTaskID(ctx, taskID)
}

// ToggleSubtask sets a subtask's completion flag. Completing one
// notifies the parent task's assignees other than the actor.
func (s *taskServiceImpl) ToggleSubtask(ctx context.Context, subtaskID, actorID string, completed bool) error {
	subtask, err := s.subtaskRepo.GetByID(ctx, subtaskID)
	if err != nil {
		return err
	}
	if err := s.subtaskRepo.SetCompleted(ctx, subtaskID, completed); err != nil {
		return err
	}

	if completed {
		task, err := s.taskRepo.GetByID(ctx, subtask.TaskID)
		if err == nil {
			s.notifyUsers(ctx, task.AssigneeIDs(actorID), entity.NotificationSubtaskCompleted,
				"Subtask completed",
				fmt.Sprintf("%q was completed on %q", subtask.Title, task.Title),
				task.ID)
		}
	}
	return nil
}

// classify runs the external classifier under a deadline. Any failure
// degrades to the general category with no subtask suggestions.
func (s *taskServiceImpl) classify(ctx context.Context, title, description string) (string, []port.SubtaskSuggestion) {
	if s.classifier == nil {
		return entity.TaskTypeGeneral, nil
	}

	classifyCtx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	result, err := s.classifier.Classify(classifyCtx, title, description)
	if err != nil {
		s.logger.Error("Classification failed, using general category", "title", title, "error", err)
		return entity.TaskTypeGeneral, nil
	}
	if result.TaskType == "" {
		return entity.TaskTypeGeneral, result.Subtasks
	}
	return result.TaskType, result.Subtasks
}

// resolveWorkflow picks the workflow a new task binds to: the caller's
// explicit choice, the default for the task type, or the general
// default when the type has none.
func (s *taskServiceImpl) resolveWorkflow(ctx context.Context, workflowID *string, taskType string) (*entity.Workflow, error) {
	if workflowID != nil {
		return s.workflowRepo.GetByID(ctx, *workflowID)
	}

	if taskType == "" {
		taskType = entity.TaskTypeGeneral
	}
	wf, err := s.workflowRepo.GetDefaultByTaskType(ctx, taskType)
	if err == nil {
		return wf, nil
	}
	if !errors.Is(err, workflow.ErrNotFound) || taskType == entity.TaskTypeGeneral {
		return nil, err
	}
	return s.workflowRepo.GetDefaultByTaskType(ctx, entity.TaskTypeGeneral)
}

// matchPhase maps a free-text phase hint onto a workflow phase by
// case-insensitive substring match in either direction, falling back to
// the start phase.
func matchPhase(wf *entity.Workflow, hint string) *entity.Phase {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint != "" {
		for _, p := range wf.Phases {
			name := strings.ToLower(p.Name)
			if strings.Contains(name, hint) || strings.Contains(hint, name) {
				return p
			}
		}
	}
	return wf.StartPhase()
}

func mergeRecipients(base, extra []string, excludeUserID string) []string {
	seen := make(map[string]bool, len(base))
	for _, id := range base {
		seen[id] = true
	}
	for _, id := range extra {
		if id == "" || id == excludeUserID || seen[id] {
			continue
		}
		seen[id] = true
		base = append(base, id)
	}
	return base
}

// notifyUsers fans a notification out to each recipient. Failures are
// logged and swallowed: notification is best-effort and never blocks
// the operation that triggered it.
func (s *taskServiceImpl) notifyUsers(ctx context.Context, userIDs []string, kind, title, message, taskID string) {
	if s.notifier == nil {
		return
	}
	for _, userID := range userIDs {
		if err := s.notifier.Notify(ctx, userID, kind, title, message, &taskID); err != nil {
			s.logger.Error("Failed to notify user", "user_id", userID, "kind", kind, "error", err)
		}
	}
}

var _ TaskService = (*taskServiceImpl)(nil)
