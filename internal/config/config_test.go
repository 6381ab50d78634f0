package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %q", cfg.DB.Driver)
	}
	if cfg.Queue.Type != "embedded" {
		t.Errorf("expected default queue type embedded, got %q", cfg.Queue.Type)
	}
	if cfg.Scheduler.PollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %s", cfg.Scheduler.PollInterval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected overridden port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.DB.Driver != "postgres" {
		t.Errorf("expected overridden driver postgres, got %q", cfg.DB.Driver)
	}
}

func TestGetEnvKeyValueInts(t *testing.T) {
	t.Setenv("CONCURRENCY_LIMIT_OVERRIDES", "report.generate=6, email.digest=3,bogus")

	overrides := getEnvKeyValueInts("CONCURRENCY_LIMIT_OVERRIDES")
	if overrides["report.generate"] != 6 {
		t.Errorf("expected report.generate=6, got %d", overrides["report.generate"])
	}
	if overrides["email.digest"] != 3 {
		t.Errorf("expected email.digest=3, got %d", overrides["email.digest"])
	}
	if _, ok := overrides["bogus"]; ok {
		t.Error("expected a malformed entry to be skipped, not zero-valued")
	}
}

func TestGetEnvKeyValueInts_Unset(t *testing.T) {
	overrides := getEnvKeyValueInts("TRIGGERSTORE_UNSET_OVERRIDES_VAR")
	if len(overrides) != 0 {
		t.Errorf("expected empty map for an unset env var, got %v", overrides)
	}
}

func TestGetEnvSlice_Default(t *testing.T) {
	got := getEnvSlice("TRIGGERSTORE_UNSET_SLICE_VAR", []string{"a", "b"})
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("expected default slice, got %v", got)
	}
}
