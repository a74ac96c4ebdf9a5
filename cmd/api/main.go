package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/municipal-service/internal/api/http"
	"github.com/spec-kit/municipal-service/internal/api/http/handlers"
	"github.com/spec-kit/municipal-service/internal/auth"
	"github.com/spec-kit/municipal-service/internal/config"
	"github.com/spec-kit/municipal-service/internal/events"
	"github.com/spec-kit/municipal-service/internal/observability"
	"github.com/spec-kit/municipal-service/internal/persistence"
	"github.com/spec-kit/municipal-service/internal/repository"
	"github.com/spec-kit/municipal-service/internal/service"
	"github.com/spec-kit/municipal-service/internal/worker"
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
	issueRepo := repository.NewIssueRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:      issueRepo,
		NoteRepo:       noteRepo,
		EscalationRepo: escalationRepo,
		Dispatcher:     dispatcher,
	})
	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		IssueRepo:      issueRepo,
		TechnicianRepo: technicianRepo,
		AssignmentRepo: assignmentRepo,
		Dispatcher:     dispatcher,
	})
	technicianService := service.NewTechnicianService(technicianRepo, teamRepo)
	paymentService := service.NewPaymentService(paymentRepo, voucherRepo, dispatcher)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		StaffRepo:         staffRepo,
		PasswordResetRepo: resetRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)
	submissionLimiter := httptransport.NewSubmissionLimiter(redis.Client, logger, cfg.RateLimit)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Issues:            handlers.NewIssuesHandler(issueService),
		Technicians:       handlers.NewTechniciansHandler(technicianService, dispatchService),
		Payments:          handlers.NewPaymentsHandler(paymentService),
		Users:             handlers.NewUsersHandler(authService),
		Staff:             handlers.NewStaffHandler(authService),
		AuthMiddleware:    authMiddleware,
		SubmissionLimiter: submissionLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
	)

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
