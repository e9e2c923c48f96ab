package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-crm/internal/database"
	"github.com/hugh/go-crm/internal/jobs"
	"github.com/hugh/go-crm/pkg/config"
	"github.com/hugh/go-crm/pkg/queue"
	"github.com/hugh/go-crm/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting CRM worker")

	if err := util.ValidateCronExpr(cfg.Jobs.ReminderCron); err != nil {
		logger.Error("invalid reminder schedule", "cron", cfg.Jobs.ReminderCron, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Jobs.Concurrency)

	handler := jobs.NewHandler(db, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Jobs.ReminderCron, jobs.NewTaskRemindersTask())
	if err != nil {
		logger.Error("failed to register reminder schedule", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Jobs.ReminderCron, time.Now().UTC()); err == nil {
		logger.Info("task reminders scheduled", "entry_id", entryID, "cron", cfg.Jobs.ReminderCron, "next_run", next)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	runErr := runUntilDone(ctx, func() error { return srv.Run(mux) })
	if runErr != nil {
		logger.Error("worker error", "error", runErr)
		scheduler.Shutdown()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

// runUntilDone runs the asynq server and then waits for the shutdown signal
// to finish. A run error returns immediately.
func runUntilDone(ctx context.Context, run func() error) error {
	if err := run(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
