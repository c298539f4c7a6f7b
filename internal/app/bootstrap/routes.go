// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	contactfeature "github.com/dalemusser/positivevibes/internal/app/features/contact"
	errorsfeature "github.com/dalemusser/positivevibes/internal/app/features/errors"
	healthfeature "github.com/dalemusser/positivevibes/internal/app/features/health"
	loginfeature "github.com/dalemusser/positivevibes/internal/app/features/login"
	logoutfeature "github.com/dalemusser/positivevibes/internal/app/features/logout"
	resetfeature "github.com/dalemusser/positivevibes/internal/app/features/passwordreset"
	signupfeature "github.com/dalemusser/positivevibes/internal/app/features/signup"
	themefeature "github.com/dalemusser/positivevibes/internal/app/features/theme"
	vibesfeature "github.com/dalemusser/positivevibes/internal/app/features/vibes"
	"github.com/dalemusser/positivevibes/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed; the shared services built by Startup are
// available on deps.
//
// Everything under /api speaks JSON. The static front end, when configured,
// is served from the site root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.services
	if svc == nil || svc.SessionMgr == nil {
		return nil, fmt.Errorf("build handler: Startup has not run")
	}
	db := deps.MongoDatabase
	errLog := svc.ErrLog

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if svc.sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(middleware.Recoverer)
	r.Use(svc.Metrics.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(svc.SessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Mount("/api/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint; 404 unless credentials are configured.
	r.Handle("/metrics", metrics.BasicAuth(appCfg.MetricsUser, appCfg.MetricsPass, svc.Metrics.Handler()))

	// Authentication
	signupHandler := signupfeature.NewHandler(db, errLog, svc.Audit, logger)
	r.Mount("/api/auth/signup", signupfeature.Routes(signupHandler, svc.SignupLimiter))

	loginHandler := loginfeature.NewHandler(db, svc.SessionMgr, errLog, svc.Audit, svc.LoginLimiter, logger)
	r.Mount("/api/auth/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(svc.SessionMgr, errLog, svc.Audit, logger)
	r.Mount("/api/auth/logout", logoutfeature.Routes(logoutHandler))

	resetHandler := resetfeature.NewHandler(db, appCfg.ResetTokenTTL, svc.Mailer, appCfg.BaseURL,
		appCfg.MailFromName, errLog, svc.Audit, logger)
	r.Mount("/api/auth/forgot-password", resetfeature.ForgotRoutes(resetHandler, svc.ForgotLimiter))
	r.Mount("/api/auth/reset-password", resetfeature.ResetRoutes(resetHandler))

	// Vibes, streaks and the public aggregates
	vibesHandler := vibesfeature.NewHandler(svc.Vibes, svc.SessionMgr, errLog, logger)
	r.Get("/api/auth/status", vibesHandler.ServeStatus)
	r.Mount("/api/vibes", vibesfeature.Routes(vibesHandler, svc.SessionMgr))
	r.Get("/api/stats", vibesHandler.ServeStats)
	r.Get("/api/map-data", vibesHandler.ServeMapData)

	// Weekly theme
	themeHandler := themefeature.NewHandler(db, errLog, logger)
	r.Mount("/api/theme", themefeature.Routes(themeHandler))

	// Contact form
	contactHandler := contactfeature.NewHandler(svc.Mailer, appCfg.MailTo, appCfg.MailFromName, errLog, logger)
	r.Mount("/api/contact", contactfeature.Routes(contactHandler, svc.ContactLimiter))

	// Anything else under /api is a JSON 404, never the front end.
	r.HandleFunc("/api/*", errorsfeature.APINotFound)

	// Static front end (index.html, reset-password.html, scripts, images)
	if appCfg.StaticDir != "" {
		r.Handle("/*", fileserver.Handler("/", appCfg.StaticDir))
	}

	return r, nil
}
