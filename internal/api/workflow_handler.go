package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openteams/taskflow/internal/application/service"
	"go.uber.org/zap"
)

// WorkflowHandler serves workflow authoring endpoints.
type WorkflowHandler struct {
	workflows service.WorkflowService
	logger    *zap.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflows service.WorkflowService, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, logger: logger}
}

// Create handles POST /api/v1/workflows
func (h *WorkflowHandler) Create(c *gin.Context) {
	var input service.CreateWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.workflows.CreateWorkflow(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

// Get handles GET /api/v1/workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	detail, err := h.workflows.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// List handles GET /api/v1/workflows?task_type=
func (h *WorkflowHandler) List(c *gin.Context) {
	workflows, err := h.workflows.ListWorkflows(c.Request.Context(), c.Query("task_type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

// GetDefault handles GET /api/v1/task-types/:taskType/default-workflow
func (h *WorkflowHandler) GetDefault(c *gin.Context) {
	wf, err := h.workflows.GetDefaultWorkflow(c.Request.Context(), c.Param("taskType"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// Update handles PATCH /api/v1/workflows/:id
func (h *WorkflowHandler) Update(c *gin.Context) {
	var input service.UpdateWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := h.workflows.UpdateWorkflow(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// Delete handles DELETE /api/v1/workflows/:id
func (h *WorkflowHandler) Delete(c *gin.Context) {
	if err := h.workflows.DeleteWorkflow(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddTransition handles POST /api/v1/workflows/:id/transitions
func (h *WorkflowHandler) AddTransition(c *gin.Context) {
	var input service.AddTransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transition, err := h.workflows.AddTransition(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, transition)
}

// RemoveTransition handles DELETE /api/v1/workflows/:id/transitions/:transitionId
func (h *WorkflowHandler) RemoveTransition(c *gin.Context) {
	err := h.workflows.RemoveTransition(c.Request.Context(), c.Param("id"), c.Param("transitionId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Seed handles POST /api/v1/seed and installs the starter workflow
// catalog on an empty system.
func (h *WorkflowHandler) Seed(c *gin.Context) {
	if err := h.workflows.SeedDefaultWorkflows(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "seeded"})
}
