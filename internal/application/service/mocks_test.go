package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
)

// Mock repositories

type mockWorkflowRepo struct {
	createFunc               func(ctx context.Context, wf *entity.Workflow) error
	getByIDFunc              func(ctx context.Context, id string) (*entity.Workflow, error)
	getDefaultByTaskTypeFunc func(ctx context.Context, taskType string) (*entity.Workflow, error)
	listFunc                 func(ctx context.Context, taskType string) ([]*entity.Workflow, error)
	updateFunc               func(ctx context.Context, wf *entity.Workflow) error
	deleteFunc               func(ctx context.Context, id string) error
	clearDefaultFunc         func(ctx context.Context, taskType string) error
	countAllFunc             func(ctx context.Context) (int, error)

	created        []*entity.Workflow
	clearedDefault []string
}

func (m *mockWorkflowRepo) Create(ctx context.Context, wf *entity.Workflow) error {
	m.created = append(m.created, wf)
	if m.createFunc != nil {
		return m.createFunc(ctx, wf)
	}
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, id string) (*entity.Workflow, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("workflow %s: %w", id, workflow.ErrNotFound)
}

func (m *mockWorkflowRepo) GetDefaultByTaskType(ctx context.Context, taskType string) (*entity.Workflow, error) {
	if m.getDefaultByTaskTypeFunc != nil {
		return m.getDefaultByTaskTypeFunc(ctx, taskType)
	}
	return nil, fmt.Errorf("default workflow for %s: %w", taskType, workflow.ErrNotFound)
}

func (m *mockWorkflowRepo) List(ctx context.Context, taskType string) ([]*entity.Workflow, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, taskType)
	}
	return nil, nil
}

func (m *mockWorkflowRepo) Update(ctx context.Context, wf *entity.Workflow) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, wf)
	}
	return nil
}

func (m *mockWorkflowRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockWorkflowRepo) ClearDefault(ctx context.Context, taskType string) error {
	m.clearedDefault = append(m.clearedDefault, taskType)
	if m.clearDefaultFunc != nil {
		return m.clearDefaultFunc(ctx, taskType)
	}
	return nil
}

func (m *mockWorkflowRepo) CountAll(ctx context.Context) (int, error) {
	if m.countAllFunc != nil {
		return m.countAllFunc(ctx)
	}
	return 0, nil
}

type mockPhaseRepo struct {
	created []*entity.Phase
}

func (m *mockPhaseRepo) Create(ctx context.Context, phase *entity.Phase) error {
	m.created = append(m.created, phase)
	return nil
}

func (m *mockPhaseRepo) GetByID(ctx context.Context, id string) (*entity.Phase, error) {
	for _, p := range m.created {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("phase %s: %w", id, workflow.ErrNotFound)
}

func (m *mockPhaseRepo) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Phase, error) {
	var phases []*entity.Phase
	for _, p := range m.created {
		if p.WorkflowID == workflowID {
			phases = append(phases, p)
		}
	}
	return phases, nil
}

type mockTransitionRepo struct {
	listByWorkflowIDFunc func(ctx context.Context, workflowID string) ([]*entity.Transition, error)
	existsFunc           func(ctx context.Context, fromPhaseID, toPhaseID string) (bool, error)

	created []*entity.Transition
	deleted []string
}

func (m *mockTransitionRepo) Create(ctx context.Context, transition *entity.Transition) error {
	m.created = append(m.created, transition)
	return nil
}

func (m *mockTransitionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTransitionRepo) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.Transition, error) {
	if m.listByWorkflowIDFunc != nil {
		return m.listByWorkflowIDFunc(ctx, workflowID)
	}
	return m.created, nil
}

func (m *mockTransitionRepo) Exists(ctx context.Context, fromPhaseID, toPhaseID string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, fromPhaseID, toPhaseID)
	}
	return false, nil
}

type mockTaskRepo struct {
	createFunc            func(ctx context.Context, task *entity.Task) error
	getByIDFunc           func(ctx context.Context, id string) (*entity.Task, error)
	listFunc              func(ctx context.Context, limit, offset int) ([]*entity.Task, error)
	updatePhaseFunc       func(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error
	updateAssignmentFunc  func(ctx context.Context, id string, assignedToID *string) error
	countByWorkflowIDFunc func(ctx context.Context, workflowID string) (int, error)

	created     []*entity.Task
	phaseMoves  []string
	completedAt *time.Time
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	m.created = append(m.created, task)
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("task %s: %w", id, workflow.ErrNotFound)
}

func (m *mockTaskRepo) List(ctx context.Context, limit, offset int) ([]*entity.Task, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockTaskRepo) UpdatePhase(ctx context.Context, id, phaseID string, completedAt *time.Time, expectedVersion int64) error {
	m.phaseMoves = append(m.phaseMoves, phaseID)
	m.completedAt = completedAt
	if m.updatePhaseFunc != nil {
		return m.updatePhaseFunc(ctx, id, phaseID, completedAt, expectedVersion)
	}
	return nil
}

func (m *mockTaskRepo) UpdateAssignment(ctx context.Context, id string, assignedToID *string) error {
	if m.updateAssignmentFunc != nil {
		return m.updateAssignmentFunc(ctx, id, assignedToID)
	}
	return nil
}

func (m *mockTaskRepo) CountByWorkflowID(ctx context.Context, workflowID string) (int, error) {
	if m.countByWorkflowIDFunc != nil {
		return m.countByWorkflowIDFunc(ctx, workflowID)
	}
	return 0, nil
}

type mockAssignmentRepo struct {
	added   []*entity.TaskAssignment
	removed []string
}

func (m *mockAssignmentRepo) Add(ctx context.Context, a *entity.TaskAssignment) error {
	m.added = append(m.added, a)
	return nil
}

func (m *mockAssignmentRepo) Remove(ctx context.Context, taskID, userID string) error {
	m.removed = append(m.removed, userID)
	return nil
}

func (m *mockAssignmentRepo) ListByTaskID(ctx context.Context, taskID string) ([]*entity.TaskAssignment, error) {
	return m.added, nil
}

type mockSubtaskRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.Subtask, error)

	created   []*entity.Subtask
	completed map[string]bool
}

func (m *mockSubtaskRepo) Create(ctx context.Context, s *entity.Subtask) error {
	m.created = append(m.created, s)
	return nil
}

func (m *mockSubtaskRepo) GetByID(ctx context.Context, id string) (*entity.Subtask, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	for _, s := range m.created {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("subtask %s: %w", id, workflow.ErrNotFound)
}

func (m *mockSubtaskRepo) ListByTaskID(ctx context.Context, taskID string) ([]*entity.Subtask, error) {
	return m.created, nil
}

func (m *mockSubtaskRepo) SetCompleted(ctx context.Context, id string, completed bool) error {
	if m.completed == nil {
		m.completed = make(map[string]bool)
	}
	m.completed[id] = completed
	return nil
}

type mockHistoryRepo struct {
	createFunc func(ctx context.Context, record *entity.PhaseHistory) error

	records []*entity.PhaseHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, record *entity.PhaseHistory) error {
	m.records = append(m.records, record)
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	return nil
}

func (m *mockHistoryRepo) ListByTaskID(ctx context.Context, taskID string) ([]*entity.PhaseHistory, error) {
	return m.records, nil
}

type mockNotificationRepo struct {
	createFunc func(ctx context.Context, n *entity.Notification) error

	created    []*entity.Notification
	sent       []string
	failed     []string
	lastErrors []string
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.created = append(m.created, n)
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, error) {
	return m.created, nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.created {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id string) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	m.failed = append(m.failed, id)
	m.lastErrors = append(m.lastErrors, lastError)
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockClassifier struct {
	classifyFunc func(ctx context.Context, title, description string) (*port.ClassificationResult, error)
}

func (m *mockClassifier) Classify(ctx context.Context, title, description string) (*port.ClassificationResult, error) {
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, title, description)
	}
	return &port.ClassificationResult{TaskType: entity.TaskTypeGeneral}, nil
}

type sentNotification struct {
	UserID string
	Kind   string
}

type mockNotifier struct {
	notifyFunc func(ctx context.Context, userID, kind, title, message string, taskID *string) error

	sent []sentNotification
}

func (m *mockNotifier) Notify(ctx context.Context, userID, kind, title, message string, taskID *string) error {
	m.sent = append(m.sent, sentNotification{UserID: userID, Kind: kind})
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, userID, kind, title, message, taskID)
	}
	return nil
}

type mockDeliverer struct {
	deliverFunc func(ctx context.Context, n *entity.Notification) error

	attempts int
}

func (m *mockDeliverer) Deliver(ctx context.Context, n *entity.Notification) error {
	m.attempts++
	if m.deliverFunc != nil {
		return m.deliverFunc(ctx, n)
	}
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
