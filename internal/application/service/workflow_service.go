package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/openteams/taskflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// PhaseInput describes one phase of a workflow being authored. Position
// in the slice determines order, start phase, and end phase.
type PhaseInput struct {
	Name             string   `json:"name" binding:"required"`
	Description      string   `json:"description"`
	Color            string   `json:"color"`
	AllowedUsers     []string `json:"allowed_users"`
	AutoAssignUserID *string  `json:"auto_assign_user_id"`
	RequiresApproval bool     `json:"requires_approval"`
}

// CreateWorkflowInput is the authoring payload for a new workflow.
type CreateWorkflowInput struct {
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	TaskType    string       `json:"task_type" binding:"required"`
	IsDefault   bool         `json:"is_default"`
	Color       string       `json:"color"`
	Phases      []PhaseInput `json:"phases" binding:"required,min=1"`
}

// UpdateWorkflowInput carries partial updates; nil fields are untouched.
type UpdateWorkflowInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsDefault   *bool   `json:"is_default"`
	IsActive    *bool   `json:"is_active"`
}

// AddTransitionInput describes one new edge in a workflow's phase graph.
type AddTransitionInput struct {
	FromPhaseID string   `json:"from_phase_id" binding:"required"`
	ToPhaseID   string   `json:"to_phase_id" binding:"required"`
	Name        string   `json:"name"`
	NotifyUsers []string `json:"notify_users"`
}

// WorkflowDetail bundles a hydrated workflow with its transition set.
type WorkflowDetail struct {
	Workflow    *entity.Workflow     `json:"workflow"`
	Transitions []*entity.Transition `json:"transitions"`
}

// WorkflowService manages workflow authoring: the workflow container,
// its ordered phases, and the transition edges between them.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, createdByID string, input CreateWorkflowInput) (*entity.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*WorkflowDetail, error)
	GetDefaultWorkflow(ctx context.Context, taskType string) (*entity.Workflow, error)
	ListWorkflows(ctx context.Context, taskType string) ([]*entity.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, input UpdateWorkflowInput) (*entity.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	AddTransition(ctx context.Context, workflowID string, input AddTransitionInput) (*entity.Transition, error)
	RemoveTransition(ctx context.Context, workflowID, transitionID string) error
	SeedDefaultWorkflows(ctx context.Context, createdByID string) error
}

type workflowServiceImpl struct {
	workflowRepo   port.WorkflowRepository
	phaseRepo      port.PhaseRepository
	transitionRepo port.TransitionRepository
	taskRepo       port.TaskRepository
	txManager      port.TransactionManager
	logger         Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	workflowRepo port.WorkflowRepository,
	phaseRepo port.PhaseRepository,
	transitionRepo port.TransitionRepository,
	taskRepo port.TaskRepository,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		workflowRepo:   workflowRepo,
		phaseRepo:      phaseRepo,
		transitionRepo: transitionRepo,
		taskRepo:       taskRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// CreateWorkflow persists the workflow, its phases in order, and the
// linear chain of transitions between adjacent phases, atomically.
// The first phase becomes the start phase and the last the end phase.
// When the new workflow is flagged default, any previous default for the
// same task type is demoted in the same transaction.
func (s *workflowServiceImpl) CreateWorkflow(ctx context.Context, createdByID string, input CreateWorkflowInput) (*entity.Workflow, error) {
	if len(input.Phases) == 0 {
		return nil, fmt.Errorf("workflow requires at least one phase")
	}

	now := time.Now()
	wf := &entity.Workflow{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		TaskType:    input.TaskType,
		IsDefault:   input.IsDefault,
		IsActive:    true,
		Color:       input.Color,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if wf.Color == "" {
		wf.Color = entity.DefaultWorkflowColor
	}

	for i, p := range input.Phases {
		phase := &entity.Phase{
			ID:               uuid.NewString(),
			WorkflowID:       wf.ID,
			Name:             p.Name,
			Description:      p.Description,
			Order:            i,
			Color:            p.Color,
			AllowedUsers:     p.AllowedUsers,
			AutoAssignUserID: p.AutoAssignUserID,
			RequiresApproval: p.RequiresApproval,
			IsStartPhase:     i == 0,
			IsEndPhase:       i == len(input.Phases)-1,
		}
		if phase.Color == "" {
			phase.Color = entity.DefaultPhaseColor
		}
		wf.Phases = append(wf.Phases, phase)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if wf.IsDefault {
			if err := s.workflowRepo.ClearDefault(txCtx, wf.TaskType); err != nil {
				return err
			}
		}
		if err := s.workflowRepo.Create(txCtx, wf); err != nil {
			return err
		}
		for _, phase := range wf.Phases {
			if err := s.phaseRepo.Create(txCtx, phase); err != nil {
				return err
			}
		}
		for i := 0; i < len(wf.Phases)-1; i++ {
			transition := &entity.Transition{
				ID:          uuid.NewString(),
				WorkflowID:  wf.ID,
				FromPhaseID: wf.Phases[i].ID,
				ToPhaseID:   wf.Phases[i+1].ID,
				Name:        fmt.Sprintf("Move to %s", wf.Phases[i+1].Name),
				NotifyUsers: []string{},
			}
			if err := s.transitionRepo.Create(txCtx, transition); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create workflow", "name", input.Name, "error", err)
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.Info("Workflow created",
		"id", wf.ID,
		"name", wf.Name,
		"task_type", wf.TaskType,
		"phases", len(wf.Phases))
	return wf, nil
}

// GetWorkflow retrieves a workflow with phases and transitions.
func (s *workflowServiceImpl) GetWorkflow(ctx context.Context, id string) (*WorkflowDetail, error) {
	wf, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	transitions, err := s.transitionRepo.ListByWorkflowID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkflowDetail{Workflow: wf, Transitions: transitions}, nil
}

// GetDefaultWorkflow retrieves the default workflow for a task type.
func (s *workflowServiceImpl) GetDefaultWorkflow(ctx context.Context, taskType string) (*entity.Workflow, error) {
	return s.workflowRepo.GetDefaultByTaskType(ctx, taskType)
}

// ListWorkflows retrieves workflows, optionally filtered by task type.
func (s *workflowServiceImpl) ListWorkflows(ctx context.Context, taskType string) ([]*entity.Workflow, error) {
	return s.workflowRepo.List(ctx, taskType)
}

// UpdateWorkflow applies the non-nil fields of input. Promoting a
// workflow to default demotes the previous default of its task type in
// the same transaction, preserving at most one default per type.
func (s *workflowServiceImpl) UpdateWorkflow(ctx context.Context, id string, input UpdateWorkflowInput) (*entity.Workflow, error) {
	wf, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		wf.Name = *input.Name
	}
	if input.Description != nil {
		wf.Description = *input.Description
	}
	if input.Color != nil {
		wf.Color = *input.Color
	}
	if input.IsActive != nil {
		wf.IsActive = *input.IsActive
	}
	promoting := input.IsDefault != nil && *input.IsDefault && !wf.IsDefault
	if input.IsDefault != nil {
		wf.IsDefault = *input.IsDefault
	}
	wf.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if promoting {
			if err := s.workflowRepo.ClearDefault(txCtx, wf.TaskType); err != nil {
				return err
			}
		}
		return s.workflowRepo.Update(txCtx, wf)
	})
	if err != nil {
		s.logger.Error("Failed to update workflow", "id", id, "error", err)
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.logger.Info("Workflow updated", "id", id)
	return wf, nil
}

// DeleteWorkflow removes a workflow and, via cascade, its phases and
// transitions. Workflows still referenced by tasks cannot be deleted.
func (s *workflowServiceImpl) DeleteWorkflow(ctx context.Context, id string) error {
	count, err := s.taskRepo.CountByWorkflowID(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("workflow %s has %d tasks: %w", id, count, workflow.ErrWorkflowInUse)
	}

	if err := s.workflowRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete workflow", "id", id, "error", err)
		return err
	}

	s.logger.Info("Workflow deleted", "id", id)
	return nil
}

// AddTransition adds a directed edge between two phases of the workflow.
// Both endpoints must belong to the workflow and the edge must not
// already exist.
func (s *workflowServiceImpl) AddTransition(ctx context.Context, workflowID string, input AddTransitionInput) (*entity.Transition, error) {
	wf, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	from := wf.PhaseByID(input.FromPhaseID)
	to := wf.PhaseByID(input.ToPhaseID)
	if from == nil || to == nil {
		return nil, fmt.Errorf("phase not in workflow %s: %w", workflowID, workflow.ErrNotFound)
	}

	exists, err := s.transitionRepo.Exists(ctx, input.FromPhaseID, input.ToPhaseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("transition %s -> %s already exists", from.Name, to.Name)
	}

	name := input.Name
	if name == "" {
		name = fmt.Sprintf("Move to %s", to.Name)
	}
	notifyUsers := input.NotifyUsers
	if notifyUsers == nil {
		notifyUsers = []string{}
	}
	transition := &entity.Transition{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		FromPhaseID: input.FromPhaseID,
		ToPhaseID:   input.ToPhaseID,
		Name:        name,
		NotifyUsers: notifyUsers,
	}
	if err := s.transitionRepo.Create(ctx, transition); err != nil {
		s.logger.Error("Failed to add transition", "workflow_id", workflowID, "error", err)
		return nil, err
	}

	s.logger.Info("Transition added", "workflow_id", workflowID, "from", from.Name, "to", to.Name)
	return transition, nil
}

// RemoveTransition deletes an edge from the workflow's graph.
func (s *workflowServiceImpl) RemoveTransition(ctx context.Context, workflowID, transitionID string) error {
	transitions, err := s.transitionRepo.ListByWorkflowID(ctx, workflowID)
	if err != nil {
		return err
	}
	found := false
	for _, t := range transitions {
		if t.ID == transitionID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("transition %s: %w", transitionID, workflow.ErrNotFound)
	}
	return s.transitionRepo.Delete(ctx, transitionID)
}

// SeedDefaultWorkflows installs the starter catalog on an empty system.
// It is a no-op when any workflow already exists.
func (s *workflowServiceImpl) SeedDefaultWorkflows(ctx context.Context, createdByID string) error {
	count, err := s.workflowRepo.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info("Workflows already present, skipping seed", "count", count)
		return nil
	}

	for _, input := range starterCatalog() {
		if _, err := s.CreateWorkflow(ctx, createdByID, input); err != nil {
			return fmt.Errorf("failed to seed workflow %s: %w", input.Name, err)
		}
	}

	s.logger.Info("Seeded starter workflows")
	return nil
}

func starterCatalog() []CreateWorkflowInput {
	return []CreateWorkflowInput{
		{
			Name:        "Social Media Workflow",
			Description: "Standard workflow for social media content creation",
			TaskType:    entity.TaskTypeSocialMedia,
			IsDefault:   true,
			Color:       "#3B82F6",
			Phases: []PhaseInput{
				{Name: "Research & Strategy", Description: "Define objectives and strategy", Color: "#9333EA"},
				{Name: "Content Creation", Description: "Write copy and create visuals", Color: "#2563EB"},
				{Name: "Review & Approval", Description: "Quality check and approval", Color: "#F59E0B", RequiresApproval: true},
				{Name: "Published", Description: "Content published", Color: "#10B981"},
			},
		},
		{
			Name:        "Video Content Workflow",
			Description: "Workflow for video content creation and production",
			TaskType:    entity.TaskTypeVideo,
			IsDefault:   false,
			Color:       "#EF4444",
			Phases: []PhaseInput{
				{Name: "Pre-production", Description: "Planning and scripting", Color: "#9333EA"},
				{Name: "Production", Description: "Recording and filming", Color: "#2563EB"},
				{Name: "Post-production", Description: "Editing and effects", Color: "#F59E0B"},
				{Name: "Review & Approval", Description: "Final review and approval", Color: "#F97316", RequiresApproval: true},
				{Name: "Published", Description: "Video published", Color: "#10B981"},
			},
		},
		{
			Name:        "General Task Workflow",
			Description: "Standard workflow for general tasks",
			TaskType:    entity.TaskTypeGeneral,
			IsDefault:   true,
			Color:       "#6B7280",
			Phases: []PhaseInput{
				{Name: "To Do", Description: "Task ready to start", Color: "#9333EA"},
				{Name: "In Progress", Description: "Task being worked on", Color: "#2563EB"},
				{Name: "Review", Description: "Task under review", Color: "#F59E0B"},
				{Name: "Complete", Description: "Task completed", Color: "#10B981"},
			},
		},
	}
}

var _ WorkflowService = (*workflowServiceImpl)(nil)
