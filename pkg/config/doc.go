// Package config loads and validates taskboard configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// TASKBOARD_CONFIG, then TASKBOARD_* environment variables. Nested keys map
// onto variables by upper-casing and joining with underscores:
//
//	TASKBOARD_SERVER_PORT="8080"
//	TASKBOARD_SERVER_HEALTH_PORT="9090"
//	TASKBOARD_STORAGE_TYPE="postgres"   # memory, postgres
//	TASKBOARD_STORAGE_POSTGRES_URL="postgres://localhost/taskboard?sslmode=disable"
//	TASKBOARD_STORAGE_REDIS_URL="redis://localhost:6379/0"
//	TASKBOARD_AUTH_JWT_SECRET="<at least 32 bytes>"
//	TASKBOARD_AUTH_TOKEN_TTL="24h"
//	TASKBOARD_RATELIMIT_REQUESTS_PER_WINDOW="100"
//	TASKBOARD_OBSERVABILITY_LOG_LEVEL="info"
//	TASKBOARD_OBSERVABILITY_OTEL_ENABLED="true"
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
