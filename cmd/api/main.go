package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/authz"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/persistence"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/storage"
	"github.com/spec-kit/case-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	caseRepo := repository.NewCaseRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	catalogRepo := repository.NewCachedCatalog(
		repository.NewCatalogRepository(pool),
		redis.Client,
		cfg.Workflow.CatalogCacheTTL(),
		logger,
	)
	txRunner := repository.NewTxRunner(pool)

	metrics := observability.NewMetrics()
	authorizer := authz.New(logger)
	dispatcher := events.NewInMemoryDispatcher()
	store := storage.NewLocalStore(cfg.Storage.Root)

	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TxRunner:    txRunner,
		CaseRepo:    caseRepo,
		UserRepo:    userRepo,
		CatalogRepo: catalogRepo,
		Authorizer:  authorizer,
		Dispatcher:  dispatcher,
		Config:      cfg.Workflow,
		Logger:      logger,
	})
	queryService := service.NewQueryService(service.QueryDependencies{
		CaseRepo:       caseRepo,
		HistoryRepo:    historyRepo,
		AttachmentRepo: attachmentRepo,
		Authorizer:     authorizer,
		Config:         cfg.Workflow,
	})
	attachmentService := service.NewAttachmentService(caseRepo, attachmentRepo, store, authorizer, cfg.Storage, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, notificationRepo, userRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewCasesHandler(domain.CaseKindTicket, workflowService, queryService, attachmentService),
		Incidents:      handlers.NewCasesHandler(domain.CaseKindIncident, workflowService, queryService, attachmentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("service started", zap.String("addr", cfg.App.Addr()), zap.String("version", cfg.App.Version))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
