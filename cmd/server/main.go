// Package main runs the recording sync HTTP server: on-demand status and sync, platform webhooks,
// download URLs and metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/matchvault/backend/config"
	"github.com/matchvault/backend/internal/app"
	"github.com/matchvault/backend/internal/auth"
	"github.com/matchvault/backend/internal/emaillogs"
	"github.com/matchvault/backend/internal/middleware"
	"github.com/matchvault/backend/internal/organizations"
	"github.com/matchvault/backend/internal/recordings"
	"github.com/matchvault/backend/pkg/metrics"
	"github.com/matchvault/backend/pkg/response"
	"github.com/matchvault/backend/pkg/utils"
)

func main() {
	logger := app.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, app.Options{Migrate: true, RequireRedis: true, Registry: registry}, logger)
	if err != nil {
		logger.Fatal("open app", zap.Error(err))
	}
	defer a.Close()

	var keyHash string
	if cfg.Sync.APIKey != "" {
		keyHash, err = utils.HashSecret(cfg.Sync.APIKey)
		if err != nil {
			logger.Fatal("hash api key", zap.Error(err))
		}
	}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	guard := middleware.AdminOrAPIKey(keyHash, jwtService)

	recordingHandler := recordings.NewHandler(a.Reconciler, a.Recordings, a.Store, a.Access, a.Metrics,
		a.Store.PresignExpire(), logger)
	webhookHandler := recordings.NewWebhookHandler(a.Queue, logger)
	orgHandler := organizations.NewHandler(a.Orgs, logger)
	emailLogsHandler := emaillogs.NewHandler(a.EmailLogs, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	// Sync (API key or admin JWT)
	router.GET("/sync", guard, recordingHandler.Status)
	router.POST("/sync", guard, recordingHandler.Sync)

	// Platform webhooks share the API key
	router.POST("/webhooks/session-finished", guard, webhookHandler.SessionFinished)

	admin := router.Group("", guard)
	{
		admin.GET("/organizations/scenes", orgHandler.ListScenes)
		admin.PUT("/organizations/scenes/:scene_id", orgHandler.MapScene)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/recordings/:id/download-url", recordingHandler.DownloadURL)
		api.GET("/recordings/:id/emails", middleware.RequireRole(auth.RoleAdmin, auth.RoleOperator), emailLogsHandler.ListByRecording)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
