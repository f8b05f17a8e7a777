/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Scheduling defaults
	SchedulerHorizon     time.Duration // default auto-schedule horizon when the request omits one
	DailyCapacityMinutes int           // fallback capacity when a work center has no daily hours set

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("FORGEPLAN_ENV", "development"),
		HTTPBind:    getEnv("FORGEPLAN_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("FORGEPLAN_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("FORGEPLAN_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("FORGEPLAN_DB_DSN", ""),

		JWTSigningKey: getEnv("FORGEPLAN_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("FORGEPLAN_METRICS_BIND", "127.0.0.1:9000"),

		SchedulerHorizon:     time.Duration(getEnvInt("FORGEPLAN_SCHEDULER_HORIZON_DAYS", 14)) * 24 * time.Hour,
		DailyCapacityMinutes: getEnvInt("FORGEPLAN_DAILY_CAPACITY_MINUTES", 480),

		TracingEnabled:    getEnvBool("FORGEPLAN_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("FORGEPLAN_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("FORGEPLAN_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("FORGEPLAN_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("FORGEPLAN_JWT_SIGNING_KEY must be provided")
	}

	if cfg.DailyCapacityMinutes <= 0 {
		return nil, fmt.Errorf("FORGEPLAN_DAILY_CAPACITY_MINUTES must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
