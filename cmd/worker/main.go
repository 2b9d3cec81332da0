// Package main runs the background worker: the scheduled sync tick, webhook-queued session syncs
// and "recording ready" email delivery.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matchvault/backend/config"
	"github.com/matchvault/backend/internal/app"
	"github.com/matchvault/backend/internal/notify"
	"github.com/matchvault/backend/internal/worker"
	"github.com/matchvault/backend/pkg/queue"
)

func main() {
	logger := app.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, app.Options{Migrate: true, RequireRedis: true}, logger)
	if err != nil {
		logger.Fatal("open app", zap.Error(err))
	}
	defer a.Close()

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		User:        cfg.Email.SMTPUser,
		Pass:        cfg.Email.SMTPPass,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	})
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set; ready emails will fail and be retried")
	}

	runner := worker.NewRunner(a.Queue, logger)
	runner.Handle(queue.JobTypeRecordingReady, notify.NewEmailProcessor(mailer, a.EmailLogs, cfg.Email.LibraryURL, logger))
	runner.Handle(queue.JobTypeSyncSession, worker.NewSyncProcessor(a.Reconciler, a.Metrics, logger))

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := worker.NewScheduler(a.Reconciler, a.Redis, a.Metrics, cfg.Sync.PollMaxWait+5*time.Minute, logger)
	cronJob, err := scheduler.Start(workerCtx, cfg.Sync.Schedule)
	if err != nil {
		logger.Fatal("sync schedule", zap.Error(err), zap.String("spec", cfg.Sync.Schedule))
	}

	done := make(chan struct{})
	go func() {
		runner.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopped := cronJob.Stop()
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("job runner did not stop in time")
	}
	select {
	case <-stopped.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("sync tick did not stop in time")
	}
	logger.Info("worker stopped")
}
