package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"policy-engine/internal/config"
	"policy-engine/internal/database/postgres"
	"policy-engine/internal/database/redis"
	"policy-engine/internal/event"
	"policy-engine/internal/handlers"
	"policy-engine/internal/repository"
	"policy-engine/internal/services"
	"policy-engine/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/agrisa", "log", "policy_engine")
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	slog.SetDefault(slog.New(slog.NewJSONHandler(file, nil)))

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitConn.Close()

	publisher := event.NewClaimEventPublisher(rabbitConn)

	// Repositories
	dataSourceRepo := repository.NewDataSourceRepository(db)
	basePolicyRepo := repository.NewBasePolicyRepository(db)
	registeredPolicyRepo := repository.NewRegisteredPolicyRepository(db)
	monitoringRepo := repository.NewMonitoringDataRepository(db)
	breachRunRepo := repository.NewBreachRunRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	claimRejectionRepo := repository.NewClaimRejectionRepository(db)
	cancelRequestRepo := repository.NewCancelRequestRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	evalLogRepo := repository.NewEvaluationLogRepository(db)

	// Services
	payoutCalc := services.NewPayoutCalculator()
	evaluationService := services.NewTriggerEvaluationService(
		basePolicyRepo,
		registeredPolicyRepo,
		dataSourceRepo,
		monitoringRepo,
		breachRunRepo,
		claimRepo,
		evalLogRepo,
		payoutCalc,
		redisClient,
		publisher,
		cfg.EngineCfg,
	)
	claimLifecycleService := services.NewClaimLifecycleService(
		claimRepo,
		claimRejectionRepo,
		payoutRepo,
		registeredPolicyRepo,
		publisher,
		cfg.EngineCfg,
	)
	payoutService := services.NewPayoutService(payoutRepo, claimRepo, publisher)
	cancelRequestService := services.NewCancelRequestService(
		cancelRequestRepo,
		registeredPolicyRepo,
		basePolicyRepo,
	)

	// Background workers
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var managerWg sync.WaitGroup

	pool := worker.NewWorkingPool(cfg.EngineCfg.EvaluationWorkers, cfg.EngineCfg.EvaluationWorkers*4)
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	evaluationScheduler := worker.NewJobScheduler("trigger-evaluation", time.Hour)
	evaluationScheduler.AddJob(func(jobCtx context.Context) error {
		pool.SubmitJob(func(workerCtx context.Context) error {
			return evaluationService.EvaluateActivePolicies(workerCtx)
		})
		return nil
	})
	go evaluationScheduler.Run(ctx)

	sweepScheduler := worker.NewJobScheduler("auto-approval-sweep", cfg.EngineCfg.SweepInterval)
	sweepScheduler.AddJob(func(jobCtx context.Context) error {
		_, err := claimLifecycleService.RunAutoApprovalSweep(jobCtx)
		return err
	})
	go sweepScheduler.Run(ctx)

	// HTTP API
	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Policy engine is healthy")
	})
	app.Get("/checkhealth/publisher", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(publisher.HealthCheck())
	})

	handlers.NewClaimHandler(claimLifecycleService).Register(app)
	handlers.NewPayoutHandler(payoutService).Register(app)
	handlers.NewCancelRequestHandler(cancelRequestService).Register(app)
	handlers.NewEvaluationHandler(evaluationService, evalLogRepo).Register(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	slog.Info("Policy engine started", "port", cfg.Port)

	<-ctx.Done()

	slog.Info("Shutting down policy engine")
	if err := app.Shutdown(); err != nil {
		slog.Error("Error during server shutdown", "error", err)
	}
	managerWg.Wait()
	slog.Info("Policy engine stopped")
}
