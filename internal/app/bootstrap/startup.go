// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	errorsfeature "github.com/dalemusser/positivevibes/internal/app/features/errors"
	vibesfeature "github.com/dalemusser/positivevibes/internal/app/features/vibes"
	"github.com/dalemusser/positivevibes/internal/app/store/audit"
	resetstore "github.com/dalemusser/positivevibes/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	vibestore "github.com/dalemusser/positivevibes/internal/app/store/vibes"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/dalemusser/positivevibes/internal/app/system/cache"
	"github.com/dalemusser/positivevibes/internal/app/system/mailer"
	"github.com/dalemusser/positivevibes/internal/app/system/metrics"
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/dalemusser/positivevibes/internal/app/system/tasks"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"github.com/dalemusser/positivevibes/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// services are the long-lived components shared by the HTTP handlers and
// the background scheduler.
type services struct {
	Metrics    *metrics.Metrics
	Cache      *cache.Cache
	Mailer     *mailer.Mailer
	Audit      *auditlog.Logger
	ErrLog     *errorsfeature.ErrorLogger
	SessionMgr *auth.SessionManager
	Vibes      *vibesfeature.Service
	Scheduler  *workers.Scheduler

	LoginLimiter   *ratelimit.LoginLimiter
	SignupLimiter  *ratelimit.Limiter
	ForgotLimiter  *ratelimit.Limiter
	ContactLimiter *ratelimit.Limiter

	sentry bool
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services and starts the background scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	svc := deps.services
	if svc == nil {
		return fmt.Errorf("startup: services not allocated; was ConnectDB run?")
	}
	db := deps.MongoDatabase

	logger.Info("timeouts configured",
		zap.Duration("short", timeouts.Short()),
		zap.Duration("medium", timeouts.Medium()),
		zap.Duration("long", timeouts.Long()))

	if appCfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         appCfg.SentryDSN,
			Environment: coreCfg.Env,
		})
		if err != nil {
			// Error reporting is best effort; logs still carry every error.
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			svc.sentry = true
			logger.Info("sentry error reporting enabled")
		}
	}

	svc.Metrics = metrics.New()
	if deps.Redis != nil {
		svc.Cache = cache.New(deps.Redis, appCfg.CacheTTL, logger, svc.Metrics)
	}

	svc.Mailer = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	if !svc.Mailer.Enabled() {
		logger.Warn("mail_smtp_host not set; password reset and contact mail are disabled")
	}

	svc.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	svc.ErrLog = errorsfeature.NewErrorLogger(logger)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewMongoSessionManager(db, appCfg.SessionKey, appCfg.SessionName,
		appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return err
	}
	svc.SessionMgr = sessionMgr

	svc.Vibes = vibesfeature.NewService(userstore.New(db), vibestore.New(db), svc.Cache, svc.Metrics, svc.Audit, logger)

	svc.LoginLimiter = ratelimit.NewLoginLimiter()
	svc.SignupLimiter = ratelimit.New(10, time.Hour)
	svc.ForgotLimiter = ratelimit.New(5, 15*time.Minute)
	svc.ContactLimiter = ratelimit.New(5, time.Hour)

	sched := workers.NewScheduler(logger, svc.Metrics)
	jobs := []tasks.Job{
		tasks.WeeklyStreakSweepJob(svc.Vibes, appCfg.StreakSweepSchedule, logger),
		tasks.ResetTokenCleanupJob(resetstore.New(db, appCfg.ResetTokenTTL), logger),
	}
	if d, ok := sessionMgr.Store().(tasks.ExpiredDeleter); ok {
		jobs = append(jobs, tasks.SessionCleanupJob(d, logger))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	sched.Start()
	svc.Scheduler = sched

	return nil
}
