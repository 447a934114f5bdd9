package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/vestibule/pkg/api"
	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/config"
	"github.com/platinummonkey/vestibule/pkg/identity"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/session"
	"github.com/platinummonkey/vestibule/pkg/userstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, nil).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, nil)
	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		if providers != nil {
			otelMetrics, err := observability.NewOTelMetrics()
			if err != nil {
				logger.WithError(err).Error("failed to create OTel metric instruments")
				os.Exit(1)
			}
			metrics.AttachOTel(otelMetrics)
		}
	}

	db, err := sql.Open(cfg.UserStore.Driver, cfg.UserStore.DSN)
	if err != nil {
		logger.WithError(err).Error("failed to open user store database")
		os.Exit(1)
	}
	defer db.Close()

	store := userstore.NewSQLStore(db)
	if err := store.Migrate(ctx, cfg.UserStore.Driver); err != nil {
		logger.WithError(err).Error("failed to migrate user store schema")
		os.Exit(1)
	}
	logger.WithField("driver", cfg.UserStore.Driver).Info("user store ready")

	sessions, err := session.NewRedisStore(cfg.Session)
	if err != nil {
		logger.WithError(err).Error("failed to connect to session store")
		os.Exit(1)
	}
	defer sessions.Close()

	provider, err := cognito.NewClient(ctx, cfg.Cognito)
	if err != nil {
		logger.WithError(err).Error("failed to initialize identity provider client")
		os.Exit(1)
	}
	if metrics != nil {
		provider.WithMetrics(metrics)
	}
	logger.WithField("user_pool_id", cfg.Cognito.UserPoolID).Info("identity provider client ready")

	backend := identity.NewCognitoBackend(provider, store, identity.Options{
		Mapping:       cfg.Mapping,
		AutoProvision: cfg.AutoProvision,
		Logger:        logger,
		Metrics:       metrics,
	})

	health := observability.NewHealthChecker(db, sessions.Client())

	server := api.NewServer(backend, sessions, api.Options{
		Logger:     logger,
		Metrics:    metrics,
		Health:     health,
		SessionTTL: cfg.Session.TTL,
	})

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", addr).Info("starting vestibule auth gateway")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("telemetry shutdown failed")
	}

	logger.Info("vestibule stopped")
}
