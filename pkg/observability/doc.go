// Package observability provides structured logging, Prometheus metrics,
// health checks, and OpenTelemetry tracing.
//
// # Structured Logging
//
// Logger wraps logrus and emits JSON by default:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("project_id", id).Info("project deleted")
//
// Request-scoped fields (request, user and organization IDs) are attached by
// FromContext:
//
//	observability.FromContext(r.Context()).Warn("access denied")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordDecision("project.view", false)
//	metrics.RecordCascade("user", elapsed, err, effects)
//
// All Record methods are safe on a nil *Metrics, so components can run
// without instrumentation in tests.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient, version)
//	status := checker.Check(ctx)
//
// The database is required; Redis only degrades the status.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "taskboard",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
