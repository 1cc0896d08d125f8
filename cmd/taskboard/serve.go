package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/taskboard/pkg/api"
	"github.com/platinummonkey/taskboard/pkg/audit"
	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/cascade"
	"github.com/platinummonkey/taskboard/pkg/config"
	"github.com/platinummonkey/taskboard/pkg/middleware"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/orgs"
	"github.com/platinummonkey/taskboard/pkg/projects"
	"github.com/platinummonkey/taskboard/pkg/rbac"
	"github.com/platinummonkey/taskboard/pkg/storage"
	"github.com/platinummonkey/taskboard/pkg/storage/memory"
	"github.com/platinummonkey/taskboard/pkg/storage/postgres"
	"github.com/platinummonkey/taskboard/pkg/tasks"
	"github.com/platinummonkey/taskboard/pkg/users"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the health/metrics server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func newLogger(cfg *config.Config, out io.Writer) *observability.Logger {
	if cfg.Observability.LogFormat == "text" {
		return observability.NewTextLogger(cfg.LogLevel(), out)
	}
	return observability.NewLogger(cfg.LogLevel(), out)
}

type backend struct {
	store storage.Store
	// pg is only set for postgres, whose pool stats are exported
	pg *postgres.Store
}

func openStore(ctx context.Context, cfg *config.Config) (*backend, error) {
	settings := cfg.StorageSettings()
	if settings.Type == "postgres" {
		pg, err := postgres.Open(ctx, settings)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &backend{store: pg, pg: pg}, nil
	}
	return &backend{store: memory.New()}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, os.Stdout)

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	be, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.WithField("storage", cfg.Storage.Type).Info("storage ready")

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.StorageSettings())
		if err != nil {
			return err
		}
	}

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	auditLog := audit.NewLogrusLogger(logger)
	visibility := rbac.NewVisibility(be.store)
	enforcer := rbac.NewEnforcer(metrics, auditLog)
	coordinator := cascade.NewCoordinator(be.store, metrics, auditLog)

	apiCfg := api.Config{
		Projects:      projects.NewService(be.store, coordinator, enforcer),
		Tasks:         tasks.NewService(be.store, visibility, enforcer),
		Users:         users.NewService(be.store, coordinator, enforcer, auditLog),
		Organizations: orgs.NewService(be.store, visibility, enforcer, tokens, auditLog),
		Resolver:      auth.NewResolver(tokens, be.store),
		OrgStore:      be.store,
		Logger:        logger,
		Metrics:       metrics,
		Tracing:       cfg.Observability.OTelEnabled,
		ServiceName:   cfg.Observability.OTelServiceName,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	}

	if cfg.RateLimit.Enabled {
		var limiter middleware.Limiter
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, cfg.Limits(), "taskboard:ratelimit:")
		} else {
			local := middleware.NewRateLimiter(cfg.Limits())
			local.StartCleanup(ctx)
			limiter = local
		}
		apiCfg.RateLimit = middleware.NewRateLimitMiddleware(limiter, metrics)
	}

	checker := observability.NewHealthChecker(be.store, redisClient, version)
	opsRouter := mux.NewRouter()
	observability.RegisterHealthRoutes(opsRouter, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsRouter, registry)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(apiCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	opsServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      opsRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}

	if be.pg != nil {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Storage.StatsSchedule, func() {
			defer observability.RecoverPanic(logger, "db stats job")
			metrics.RecordDBStats(be.pg.DB().Stats())
		}); err != nil {
			return fmt.Errorf("schedule pool stats: %w", err)
		}
		scheduler.Start()
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			select {
			case <-scheduler.Stop().Done():
			case <-ctx.Done():
			}
			return be.pg.Close()
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		srv := srv
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown()
	})

	return g.Wait()
}
