package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/handlers"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
	"github.com/ternarybob/pdfchat/internal/queue"
	"github.com/ternarybob/pdfchat/internal/services/account"
	"github.com/ternarybob/pdfchat/internal/services/chat"
	"github.com/ternarybob/pdfchat/internal/services/llm"
	"github.com/ternarybob/pdfchat/internal/services/pdf"
	"github.com/ternarybob/pdfchat/internal/services/scheduler"
	storagebadger "github.com/ternarybob/pdfchat/internal/storage/badger"
	"github.com/ternarybob/pdfchat/internal/workers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	QueueManager   interfaces.QueueManager
	WorkerPool     *queue.WorkerPool
	LLMService     interfaces.LLMService
	Scheduler      *scheduler.Scheduler

	AccountService  *account.Service
	DocumentService *pdf.Service
	ChatService     *chat.Service

	AccountHandler *handlers.AccountHandler
	PDFHandler     *handlers.PDFHandler
	ChatHandler    *handlers.ChatHandler
	APIHandler     *handlers.APIHandler
}

// New wires all services, workers and handlers from configuration
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := storagebadger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	queueManager, err := queue.NewBadgerManager(
		storageManager.DB(),
		config.Queue.QueueName,
		config.Queue.VisibilityTimeoutDuration(),
		config.Queue.MaxReceive,
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	llmService, err := llm.NewLLMService(&config.LLM, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize llm service: %w", err)
	}

	accountService := account.NewService(storageManager, config.Auth.SessionTTLDuration(), config.Auth.BcryptCost, logger)
	documentService := pdf.NewService(storageManager, queueManager, config.Upload.MaxSizeMB, logger)
	chatService := chat.NewService(storageManager, queueManager, logger)

	extractor := pdf.NewExtractor(logger)
	parseWorker := workers.NewParseWorker(storageManager, extractor, logger)
	llmWorker := workers.NewLLMWorker(storageManager, llmService, llm.NewRetryConfig(&config.LLM), config.LLM.RequestsPerMinute, logger)

	workerPool := queue.NewWorkerPool(queueManager, config.Queue.Concurrency, config.Queue.PollIntervalDuration(), logger)
	workerPool.RegisterHandler(models.JobTypeParse, parseWorker.Handle)
	workerPool.RegisterHandler(models.JobTypeLLM, llmWorker.Handle)

	maintenance := scheduler.NewScheduler(storageManager, accountService, &config.Scheduler, logger)

	app := &App{
		Config:          config,
		Logger:          logger,
		StorageManager:  storageManager,
		QueueManager:    queueManager,
		WorkerPool:      workerPool,
		LLMService:      llmService,
		Scheduler:       maintenance,
		AccountService:  accountService,
		DocumentService: documentService,
		ChatService:     chatService,
		AccountHandler:  handlers.NewAccountHandler(accountService),
		PDFHandler:      handlers.NewPDFHandler(documentService),
		ChatHandler:     handlers.NewChatHandler(chatService),
		APIHandler:      handlers.NewAPIHandler(queueManager),
	}

	logger.Info().Msg("Application wired")
	return app, nil
}

// Start launches the background components
func (a *App) Start() error {
	if err := a.WorkerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops background components and closes storage
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	a.Scheduler.Stop()
	if err := a.WorkerPool.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Worker pool stop failed")
	}
	if err := a.LLMService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM service close failed")
	}
	if err := a.QueueManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue close failed")
	}
	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
