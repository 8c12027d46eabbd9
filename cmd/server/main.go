package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openteams/taskflow/internal/api"
	"github.com/openteams/taskflow/internal/application/port"
	"github.com/openteams/taskflow/internal/application/service"
	"github.com/openteams/taskflow/internal/config"
	"github.com/openteams/taskflow/internal/infrastructure/external/openai"
	"github.com/openteams/taskflow/internal/infrastructure/notify"
	"github.com/openteams/taskflow/internal/infrastructure/persistence/repository"
	"github.com/openteams/taskflow/internal/infrastructure/persistence/sqlite"
	"github.com/openteams/taskflow/internal/infrastructure/reporting"
	"github.com/openteams/taskflow/migrations"
	"github.com/openteams/taskflow/pkg/database"
	"github.com/openteams/taskflow/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env if present, before config reads the environment
	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting taskflow server",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	txManager := sqlite.NewDB(db.DB, logger)
	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	phaseRepo := repository.NewPhaseRepository(db.DB, logger)
	transitionRepo := repository.NewTransitionRepository(db.DB, logger)
	taskRepo := repository.NewTaskRepository(db.DB, logger)
	assignmentRepo := repository.NewAssignmentRepository(db.DB, logger)
	subtaskRepo := repository.NewSubtaskRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)

	// Optional AI classifier
	var classifier port.TaskClassifier
	if cfg.OpenAI.APIKey != "" {
		classifier = openai.NewClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
	} else {
		logger.Info("No OpenAI API key configured, task classification disabled")
	}

	// Optional delivery webhook
	var deliverer port.Deliverer
	if cfg.Notification.WebhookURL != "" {
		deliverer = notify.NewWebhookDeliverer(cfg.Notification.WebhookURL, cfg.Notification.Timeout, logger)
	}

	// Initialize services
	serviceLogger := &zapServiceLogger{logger: logger.Sugar()}
	notificationService := service.NewNotificationService(notificationRepo, deliverer, serviceLogger)
	workflowService := service.NewWorkflowService(workflowRepo, phaseRepo, transitionRepo, taskRepo, txManager, serviceLogger)
	taskService := service.NewTaskService(taskRepo, workflowRepo, transitionRepo, assignmentRepo, subtaskRepo,
		historyRepo, txManager, classifier, notificationService, serviceLogger)

	// Seed the starter workflow catalog
	if cfg.Seed.Enabled {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := workflowService.SeedDefaultWorkflows(seedCtx, cfg.Seed.AdminUserID); err != nil {
			cancel()
			logger.Fatal("Failed to seed workflows", zap.Error(err))
		}
		cancel()
	}

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize HTTP router
	exporter := reporting.NewHistoryExporter(logger)
	router := api.NewRouter(
		api.NewWorkflowHandler(workflowService, logger),
		api.NewTaskHandler(taskService, workflowService, exporter, logger),
		api.NewNotificationHandler(notificationService, logger),
		logger,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// zapServiceLogger adapts zap to the service.Logger interface.
type zapServiceLogger struct {
	logger *zap.SugaredLogger
}

func (l *zapServiceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *zapServiceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}
