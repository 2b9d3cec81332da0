// Package app builds the shared dependency graph for every entry point: server, worker, lambda and CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matchvault/backend/config"
	"github.com/matchvault/backend/internal/access"
	"github.com/matchvault/backend/internal/emaillogs"
	"github.com/matchvault/backend/internal/notify"
	"github.com/matchvault/backend/internal/organizations"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/internal/reconcile"
	"github.com/matchvault/backend/internal/recordings"
	"github.com/matchvault/backend/pkg/database"
	"github.com/matchvault/backend/pkg/metrics"
	"github.com/matchvault/backend/pkg/queue"
	"github.com/matchvault/backend/pkg/redis"
	"github.com/matchvault/backend/pkg/storage"
)

// Options select the optional parts of the graph.
type Options struct {
	// Migrate applies embedded migrations after connecting.
	Migrate bool
	// RequireRedis fails Open when Redis is unreachable. Otherwise the app runs without the
	// job queue and ready notifications are not sent.
	RequireRedis bool
	// Registry receives the sync collectors. Nil uses a fresh registry.
	Registry *prometheus.Registry
}

// App holds the wired components. Queue and Redis are nil when Redis is unavailable.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Queue      *queue.Queue
	Store      *storage.S3
	Platform   *platform.Client
	Registry   *prometheus.Registry
	Metrics    *metrics.Sync
	Recordings *recordings.Repository
	Orgs       *organizations.Repository
	Access     *access.Repository
	EmailLogs  *emaillogs.Repository
	Reconciler *reconcile.Reconciler
}

// NewLogger returns the production JSON logger used by every binary.
func NewLogger() *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Open connects to Postgres, Redis, S3 and the platform and wires the reconciler.
// Call Close when done.
func Open(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.ValidateSync(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Registry: opts.Registry}
	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{}, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.Pool = pool
	if opts.Migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	switch {
	case err == nil:
		a.Redis = rdb
		a.Queue = queue.NewQueue(rdb.Client, logger)
	case opts.RequireRedis:
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	default:
		logger.Warn("redis unavailable; ready notifications disabled", zap.Error(err))
	}

	a.Store, err = storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		RecordingsBucket:     cfg.AWS.RecordingsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("s3: %w", err)
	}

	account, err := cfg.Platform.SelectedAccount()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Platform, err = platform.NewClient(cfg.Platform.ClientConfig(), account, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Metrics = metrics.NewSync(a.Registry)
	a.Recordings = recordings.NewRepository(pool)
	a.Orgs = organizations.NewRepository(pool)
	a.Access = access.NewRepository(pool)
	a.EmailLogs = emaillogs.NewRepository(pool)

	deps := reconcile.Deps{
		Directory: a.Platform,
		Objects:   a.Store,
		Records:   a.Recordings,
		Orgs:      a.Orgs,
		Metrics:   a.Metrics,
	}
	if a.Queue != nil {
		deps.Notifier = notify.NewNotifier(a.Access, a.Orgs, notify.NewQueueDispatcher(a.Queue), logger)
	}
	a.Reconciler = reconcile.New(deps, reconcile.NewPoller(cfg.Sync.PollMaxWait, cfg.Sync.PollInterval), logger)

	logger.Info("app wired",
		zap.String("platform_account", account.Key),
		zap.String("recordings_bucket", cfg.AWS.RecordingsBucket),
		zap.Bool("notifications", a.Queue != nil),
	)
	return a, nil
}

// Close releases connections. Safe on a partially opened App.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
