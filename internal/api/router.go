package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires all HTTP routes. Workflow authoring is restricted to
// admins; everything else only requires an identified user.
func NewRouter(
	workflowHandler *WorkflowHandler,
	taskHandler *TaskHandler,
	notificationHandler *NotificationHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "taskflow",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	api.Use(IdentityMiddleware())
	{
		api.GET("/workflows", workflowHandler.List)
		api.GET("/workflows/:id", workflowHandler.Get)
		api.GET("/task-types/:taskType/default-workflow", workflowHandler.GetDefault)

		authoring := api.Group("")
		authoring.Use(RequireRole(RoleAdmin))
		{
			authoring.POST("/workflows", workflowHandler.Create)
			authoring.PATCH("/workflows/:id", workflowHandler.Update)
			authoring.DELETE("/workflows/:id", workflowHandler.Delete)
			authoring.POST("/seed", workflowHandler.Seed)
			authoring.POST("/workflows/:id/transitions", workflowHandler.AddTransition)
			authoring.DELETE("/workflows/:id/transitions/:transitionId", workflowHandler.RemoveTransition)
		}

		api.POST("/tasks", taskHandler.Create)
		api.GET("/tasks", taskHandler.List)
		api.GET("/tasks/:id", taskHandler.Get)
		api.POST("/tasks/:id/move-phase", taskHandler.MovePhase)
		api.GET("/tasks/:id/history", taskHandler.History)
		api.GET("/tasks/:id/history/export", taskHandler.ExportHistory)
		api.POST("/tasks/:id/assignees", taskHandler.Assign)
		api.DELETE("/tasks/:id/assignees/:userId", taskHandler.Unassign)
		api.GET("/tasks/:id/subtasks", taskHandler.Subtasks)
		api.PATCH("/subtasks/:id", taskHandler.ToggleSubtask)

		api.GET("/notifications", notificationHandler.List)
		api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		api.POST("/notifications/read/:id", notificationHandler.MarkRead)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	return router
}
