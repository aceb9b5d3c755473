package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"growly/internal/config"
	"growly/internal/database"
	"growly/internal/domain/lead"
	"growly/internal/notification"
	"growly/internal/pkg/logger"
	"growly/internal/server"
)

var exit = os.Exit

// fatal logs and reports err, flushes pending Sentry events and exits.
// Deferred calls do not run after os.Exit, so the flush happens here.
func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
	exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(logger.New("info").With("service", "growly-api"), "failed to load config", err)
	}

	appLog := logger.New(cfg.LogLevel).With("service", "growly-api", "env", cfg.AppEnv)

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			Release:          "growly-api@" + server.Version,
			AttachStacktrace: true,
		})
		if err != nil {
			appLog.Warn("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		fatal(appLog, "failed to connect database", err)
	}
	if err := lead.Migrate(db); err != nil {
		fatal(appLog, "failed to migrate database", err)
	}
	appLog.Info("database ready", "driver", database.Driver(cfg.DatabaseURL))

	var opts []server.Option
	if n := notification.FromConfig(cfg.Notify, appLog.With("component", "notification")); n != nil {
		opts = append(opts, server.WithNotifier(n))
		appLog.Info("new lead notifications enabled", "channel", n.Channel())
	} else {
		appLog.Info("new lead notifications disabled (EMAIL_TO not set)")
	}
	if !cfg.HasAdminCredentials() {
		appLog.Warn("no admin credentials configured", "anonymous_admin", cfg.Admin.AllowAnonymous)
	}

	app := server.New(cfg, db, appLog, opts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("server listening", "addr", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLog.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(appLog, "server error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Feed connections are hijacked and not tracked by Shutdown.
	app.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}

	if err := database.Close(db); err != nil {
		appLog.Error("close database", "error", err)
	}
}
