package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/service"
	"github.com/expensehub/approval-workflow/internal/config"
	"github.com/expensehub/approval-workflow/internal/domain/policy"
	"github.com/expensehub/approval-workflow/internal/infrastructure/external/openai"
	"github.com/expensehub/approval-workflow/internal/infrastructure/persistence/repository"
	"github.com/expensehub/approval-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/expensehub/approval-workflow/internal/infrastructure/storage"
	"github.com/expensehub/approval-workflow/internal/infrastructure/worker"
	httpiface "github.com/expensehub/approval-workflow/internal/interfaces/http"
	"github.com/expensehub/approval-workflow/migrations"
	"github.com/expensehub/approval-workflow/pkg/database"
	"github.com/expensehub/approval-workflow/pkg/utils"
)

func main() {
	// Load .env if present; real environment wins
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

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

	logger.Info("Starting expense approval workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create storage directory", zap.Error(err))
	}

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

	migrator := database.NewMigrator(db, migrations.Files, logger)
	if err := migrator.Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories and transaction manager
	txManager := sqlite.NewDB(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	documentRepo := repository.NewDocumentRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)

	// Infrastructure collaborators
	fileStorage := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)
	extractor := openai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)

	// Policy engine: thresholds come from configuration, routes are computed
	// once at submission
	policyEngine := policy.NewEngine(policy.Thresholds{
		LowCents:  cfg.Approval.LowThresholdCents,
		HighCents: cfg.Approval.HighThresholdCents,
	})

	// Application services
	serviceLogger := &zapLoggerAdapter{logger: logger}
	expenseService := service.NewExpenseService(expenseRepo, documentRepo, historyRepo, txManager, policyEngine, serviceLogger)
	documentService := service.NewDocumentService(documentRepo, fileStorage, serviceLogger)
	userService := service.NewUserService(userRepo, serviceLogger)
	exportService := service.NewExportService(expenseRepo, serviceLogger)

	// Background extraction worker
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewExtractionWorker(documentRepo, extractor, fileStorage, worker.ExtractionWorkerConfig{
		PollInterval:   cfg.Worker.PollInterval,
		BatchSize:      cfg.Worker.BatchSize,
		ProcessTimeout: cfg.Worker.ProcessTimeout,
	}, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer workerManager.StopAll()

	// HTTP server
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expenseService, documentService, userService, exportService, userRepo, serviceLogger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server error", zap.Error(err))
	}

	logger.Info("Server exited")
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
