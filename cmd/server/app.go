package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/soluna-labs/mirage-api/internal/config"
	"github.com/soluna-labs/mirage-api/internal/events"
	"github.com/soluna-labs/mirage-api/internal/platform/gemini"
	"github.com/soluna-labs/mirage-api/internal/platform/mediagen"
	"github.com/soluna-labs/mirage-api/internal/platform/postgres"
	"github.com/soluna-labs/mirage-api/internal/platform/profile"
	"github.com/soluna-labs/mirage-api/internal/service"
	"github.com/soluna-labs/mirage-api/internal/service/auth"
	"github.com/soluna-labs/mirage-api/internal/store"
	"github.com/soluna-labs/mirage-api/internal/task"
)

// speechSweepBatchSize bounds how many stale pending speech tasks one cron
// tick re-enqueues.
const speechSweepBatchSize = 50

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore         store.UserStore
	aigcStore         store.AIGCTaskStore
	humanStore        store.DigitalHumanStore
	speechStore       store.SpeechTaskStore
	usageStore        store.UsageStore
	conversationStore store.ConversationStore
	workStore         task.TaskStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	aigcService      service.AIGCService
	publishService   service.PublishService
	chatService      service.ChatService

	// Event system and background processing
	eventEmitter events.EventEmitter
	taskFactory  *task.Factory
	taskRunner   *task.TaskRunner
	cron         *cron.Cron
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies (configuration, logger, database
// connection) that must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Stores
	app.userStore = postgres.NewUserStore(db, logger, cfg.Auth.BcryptCost)
	app.aigcStore = postgres.NewAIGCTaskStore(db, logger)
	app.humanStore = postgres.NewDigitalHumanStore(db, logger)
	app.speechStore = postgres.NewSpeechTaskStore(db, logger)
	app.usageStore = postgres.NewUsageStore(db, logger)
	app.conversationStore = postgres.NewConversationStore(db, logger)
	app.workStore = postgres.NewPostgresTaskStore(db)

	// Provider clients
	textClient, err := gemini.NewClient(ctx, logger, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text generation client: %w", err)
	}
	mediaClient, err := mediagen.NewClient(cfg.Generation, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media client: %w", err)
	}
	profileClient, err := profile.NewClient(cfg.Generation, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile client: %w", err)
	}

	// Background processing
	app.taskRunner = task.NewTaskRunner(app.workStore, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	app.taskFactory, err = task.NewFactory(
		app.aigcStore,
		app.speechStore,
		mediaClient, // images
		mediaClient, // videos
		textClient,  // lyrics
		mediaClient, // music
		mediaClient, // speech
		mediaClient, // object store
		profileClient,
		task.FactoryConfig{
			DancePoseURL: cfg.Generation.DancePoseURL,
			SingPoseURL:  cfg.Generation.SingPoseURL,
			DefaultVoice: cfg.Publish.DefaultVoice,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factory: %w", err)
	}

	// Recovered work items are rebuilt through the factory.
	app.taskRunner.SetResolver(app.taskFactory.Rehydrate)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	// Event system: stage requests flow through the emitter to the factory
	// handler, which queues executable tasks on the runner.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(app.taskFactory, app.taskRunner, logger))
	app.eventEmitter = emitter

	// Services
	limiter, err := service.NewUsageLimiter(app.usageStore, cfg.Quota.DefaultLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage limiter: %w", err)
	}

	app.aigcService, err = service.NewAIGCService(
		app.aigcStore,
		limiter,
		profileClient,
		textClient,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aigc service: %w", err)
	}

	app.publishService, err = service.NewPublishService(
		app.aigcStore,
		app.humanStore,
		app.speechStore,
		profileClient,
		app.eventEmitter,
		service.PublishConfig{
			RequireSongs:   cfg.Publish.RequireSongs,
			FallbackRegion: cfg.Publish.FallbackRegion,
			DefaultVoice:   cfg.Publish.DefaultVoice,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish service: %w", err)
	}

	app.chatService, err = service.NewChatService(app.conversationStore, textClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	if err := app.setupCron(); err != nil {
		return nil, fmt.Errorf("failed to set up cron jobs: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupCron schedules the periodic maintenance jobs: resetting stuck work
// items and re-enqueuing stale pending speech tasks whose original event was
// lost.
func (app *application) setupCron() error {
	app.cron = cron.New()

	sweepSpec := fmt.Sprintf("@every %dm", app.config.Task.StuckTaskSweepMinutes)

	if _, err := app.cron.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := app.taskRunner.SweepStuckTasks(ctx); err != nil {
			app.logger.Error("stuck task sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stuck task sweep: %w", err)
	}

	if _, err := app.cron.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		app.sweepPendingSpeechTasks(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule speech task sweep: %w", err)
	}

	app.cron.Start()
	return nil
}

// sweepPendingSpeechTasks re-enqueues derivative speech tasks that have been
// pending longer than the stuck-task age. Fresh pending tasks are skipped;
// their original work item is usually still in flight.
func (app *application) sweepPendingSpeechTasks(ctx context.Context) {
	pending, err := app.speechStore.FindPending(ctx, speechSweepBatchSize)
	if err != nil {
		app.logger.Error("failed to find pending speech tasks", "error", err)
		return
	}

	cutoff := time.Now().UTC().Add(-time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute)
	for _, item := range pending {
		if item.UpdatedAt.After(cutoff) {
			continue
		}

		built, err := app.taskFactory.CreateSpeechTask(item.ID)
		if err != nil {
			app.logger.Error("failed to rebuild pending speech task",
				"speech_task_id", item.ID, "error", err)
			continue
		}
		if err := app.taskRunner.Submit(ctx, built); err != nil {
			app.logger.Error("failed to re-enqueue pending speech task",
				"speech_task_id", item.ID, "error", err)
		}
	}
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.cron != nil {
		cronCtx := app.cron.Stop()
		<-cronCtx.Done()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
