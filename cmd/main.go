package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"crm-sync-service/internal/config"
	"crm-sync-service/internal/database/redis"
	"crm-sync-service/internal/event"
	"crm-sync-service/internal/handlers"
	"crm-sync-service/internal/insly"
	"crm-sync-service/internal/pipedrive"
	"crm-sync-service/internal/repository"
	"crm-sync-service/internal/rest"
	"crm-sync-service/internal/services"
	"crm-sync-service/internal/sheets"
	"crm-sync-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/var", "log", "crm_sync_service")
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

	slog.SetDefault(slog.New(slog.NewTextHandler(file, nil)))
	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment")
	}

	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()
	if cfg.InslyCfg.Token == "" || cfg.PipedriveCfg.Token == "" {
		log.Fatal("INSLY_BEARER_TOKEN and PIPEDRIVE_TOKEN are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caller := rest.NewCaller(cfg.CallerCfg)
	sourceClient := insly.NewClient(cfg.InslyCfg, caller)
	crmClient := pipedrive.NewClient(cfg.PipedriveCfg, caller)

	// Infrastructure beyond the two APIs is optional: the sync itself must
	// run even when Redis, RabbitMQ, or the reference sheet are unavailable.
	var checkpoints services.CheckpointStore
	if redisClient, err := redis.NewRedisClient(cfg.RedisCfg); err != nil {
		slog.Warn("Redis unavailable, running without checkpoint resume", "error", err)
	} else {
		defer redisClient.Close()
		checkpoints = repository.NewCheckpointRepository(redisClient.GetClient())
	}

	var publisher services.RunEventPublisher
	if cfg.RabbitMQCfg.Username != "" {
		if conn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg); err != nil {
			slog.Warn("RabbitMQ unavailable, running without run events", "error", err)
		} else {
			defer conn.Close()
			publisher = event.NewSyncRunPublisher(conn)
		}
	}

	var worksheet services.WorksheetReader
	if cfg.SheetsCfg.KeyfilePath != "" && cfg.SheetsCfg.SpreadsheetID != "" {
		if reader, err := sheets.NewReader(ctx, cfg.SheetsCfg); err != nil {
			slog.Warn("Reference worksheet unavailable", "error", err)
		} else {
			worksheet = reader
		}
	}

	codes := services.NewCachingCodeResolver(sourceClient)
	orchestrator := services.NewSyncOrchestrator(services.OrchestratorDeps{
		Source:      sourceClient,
		Resolver:    services.NewEntityResolver(crmClient, cfg.PipedriveCfg.OwnerID),
		Deals:       services.NewDealSynchronizer(crmClient, codes, cfg.PipedriveCfg.WonStage),
		Notes:       services.NewNoteSynchronizer(crmClient),
		Classifier:  services.NewClassificationService(cfg.SyncCfg),
		Reference:   services.NewReferenceLoader(worksheet),
		Maintenance: crmClient,
		Checkpoints: checkpoints,
		Publisher:   publisher,
	}, cfg.SyncCfg, cfg.PipedriveCfg.OwnerID)

	app := fiber.New()
	handlers.NewHealthHandler(orchestrator.Stats).RegisterRoutes(app)
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Health server stopped", "error", err)
		}
	}()

	scheduler := worker.NewDailyScheduler("crm-sync", orchestrator, time.Saturday, true)
	scheduler.Run(ctx)

	if err := app.Shutdown(); err != nil {
		slog.Error("Failed to shut down health server", "error", err)
	}
}
