// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dalemusser/positivevibes/internal/app/system/cache"
	"github.com/dalemusser/positivevibes/internal/app/system/indexes"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	connectMaxElapsed      = time.Minute
	connectInitialInterval = 500 * time.Millisecond
	connectMaxInterval     = 10 * time.Second
)

// ConnectDB connects to MongoDB, retrying with exponential backoff while the
// server is unreachable, and opens the optional Redis cache client.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	client, err := connectMongo(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}
	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		services:      &services{},
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	if appCfg.RedisAddr != "" {
		rc, err := cache.Connect(appCfg.RedisAddr, appCfg.RedisPassword)
		if err != nil {
			// The cache is optional; serve uncached rather than refuse to start.
			logger.Warn("Redis unavailable; stats cache disabled", zap.Error(err))
		} else {
			deps.Redis = rc
			logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
		}
	}
	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("positivevibes").
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		// Connect only fails on bad options; retrying will not help.
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(connectMaxElapsed),
		backoff.WithInitialInterval(connectInitialInterval),
		backoff.WithMaxInterval(connectMaxInterval),
	)
	attempt := 0
	err = backoff.RetryNotify(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("MongoDB not reachable; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping after %d attempts: %w", attempt, err)
	}
	return client, nil
}

// EnsureSchema applies collection validators and reconciles indexes. Both
// steps are idempotent and run on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("collection validators failed", zap.Error(err))
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
