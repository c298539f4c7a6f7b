// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Shutdown stops background jobs, then tears down the cache and database
// connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.services; svc != nil {
		if svc.Scheduler != nil {
			svc.Scheduler.Stop(ctx)
		}
		if svc.LoginLimiter != nil {
			svc.LoginLimiter.Stop()
		}
		for _, l := range []*ratelimit.Limiter{svc.SignupLimiter, svc.ForgotLimiter, svc.ContactLimiter} {
			if l != nil {
				l.Stop()
			}
		}
		if svc.sentry {
			sentry.Flush(2 * time.Second)
		}
	}

	if deps.Redis != nil {
		logger.Info("closing Redis client")
		deps.Redis.Close()
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
