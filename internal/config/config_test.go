/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FORGEPLAN_DB_DSN", "file::memory:")
	t.Setenv("FORGEPLAN_DB_BACKEND", "sqlite")
	t.Setenv("FORGEPLAN_JWT_SIGNING_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("unexpected environment %q", cfg.Environment)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected port %d", cfg.HTTPPort)
	}
	if cfg.SchedulerHorizon != 14*24*time.Hour {
		t.Fatalf("unexpected horizon %v", cfg.SchedulerHorizon)
	}
	if cfg.DailyCapacityMinutes != 480 {
		t.Fatalf("unexpected daily capacity %d", cfg.DailyCapacityMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FORGEPLAN_HTTP_PORT", "9090")
	t.Setenv("FORGEPLAN_SCHEDULER_HORIZON_DAYS", "7")
	t.Setenv("FORGEPLAN_DAILY_CAPACITY_MINUTES", "720")
	t.Setenv("FORGEPLAN_TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("unexpected port %d", cfg.HTTPPort)
	}
	if cfg.SchedulerHorizon != 7*24*time.Hour {
		t.Fatalf("unexpected horizon %v", cfg.SchedulerHorizon)
	}
	if cfg.DailyCapacityMinutes != 720 {
		t.Fatalf("unexpected daily capacity %d", cfg.DailyCapacityMinutes)
	}
	if !cfg.TracingEnabled {
		t.Fatal("tracing should be enabled")
	}
}

func TestLoadValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FORGEPLAN_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	setRequiredEnv(t)
	t.Setenv("FORGEPLAN_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DSN")
	}

	setRequiredEnv(t)
	t.Setenv("FORGEPLAN_JWT_SIGNING_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing signing key")
	}

	setRequiredEnv(t)
	t.Setenv("FORGEPLAN_DAILY_CAPACITY_MINUTES", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive capacity")
	}
}
