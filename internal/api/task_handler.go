package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openteams/taskflow/internal/application/service"
	"github.com/openteams/taskflow/internal/infrastructure/reporting"
	"go.uber.org/zap"
)

// TaskHandler serves task lifecycle endpoints.
type TaskHandler struct {
	tasks     service.TaskService
	workflows service.WorkflowService
	exporter  *reporting.HistoryExporter
	logger    *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks service.TaskService, workflows service.WorkflowService, exporter *reporting.HistoryExporter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, workflows: workflows, exporter: exporter, logger: logger}
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var input service.CreateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Get handles GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// List handles GET /api/v1/tasks?limit=&offset=
func (h *TaskHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	tasks, err := h.tasks.ListTasks(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "limit": limit, "offset": offset})
}

type movePhaseRequest struct {
	ToPhaseID string  `json:"to_phase_id" binding:"required"`
	Comment   *string `json:"comment"`
}

// MovePhase handles POST /api/v1/tasks/:id/move-phase
func (h *TaskHandler) MovePhase(c *gin.Context) {
	var req movePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.MoveTaskToPhase(c.Request.Context(), c.Param("id"), req.ToPhaseID, currentUserID(c), req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// History handles GET /api/v1/tasks/:id/history
func (h *TaskHandler) History(c *gin.Context) {
	records, err := h.tasks.GetTaskHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

// ExportHistory handles GET /api/v1/tasks/:id/history/export and
// streams the audit trail as an xlsx workbook.
func (h *TaskHandler) ExportHistory(c *gin.Context) {
	ctx := c.Request.Context()
	taskID := c.Param("id")

	task, err := h.tasks.GetTask(ctx, taskID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	records, err := h.tasks.GetTaskHistory(ctx, taskID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	detail, err := h.workflows.GetWorkflow(ctx, task.WorkflowID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data, err := h.exporter.Export(task, detail.Workflow, records)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("task-%s-history.xlsx", task.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

type assignRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Assign handles POST /api/v1/tasks/:id/assignees
func (h *TaskHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.AssignUser(c.Request.Context(), c.Param("id"), req.UserID, currentUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unassign handles DELETE /api/v1/tasks/:id/assignees/:userId
func (h *TaskHandler) Unassign(c *gin.Context) {
	if err := h.tasks.UnassignUser(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subtasks handles GET /api/v1/tasks/:id/subtasks
func (h *TaskHandler) Subtasks(c *gin.Context) {
	subtasks, err := h.tasks.ListSubtasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks})
}

type toggleSubtaskRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// ToggleSubtask handles PATCH /api/v1/subtasks/:id
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	var req toggleSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.ToggleSubtask(c.Request.Context(), c.Param("id"), currentUserID(c), *req.Completed); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
