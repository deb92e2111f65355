package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  listen: ":9000"
  sqlitePath: "/tmp/questlog.db"
  redisAddr: "localhost:6379"
  resolveCacheTTL: "1m"
layout:
  store: redis
  storeAddr: "localhost:6379"
  tickBudget: 50
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Listen != ":9000" || cfg.Server.SqlitePath != "/tmp/questlog.db" {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	ttl, err := cfg.Server.CacheTTL()
	if err != nil || ttl != time.Minute {
		t.Fatalf("unexpected ttl %v %v", ttl, err)
	}
	if cfg.Layout.Store != "redis" || cfg.Layout.TickBudget != 50 {
		t.Fatalf("unexpected layout section %+v", cfg.Layout)
	}
	// untouched defaults survive
	if cfg.Layout.EnergyThreshold != 0.01 || cfg.Layout.APIBase == "" {
		t.Fatalf("defaults lost %+v", cfg.Layout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUESTLOG_LISTEN", ":7000")
	t.Setenv("QUESTLOG_POSTGRES_DSN", "host=db user=questlog")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Listen != ":7000" {
		t.Fatalf("listen not overridden: %s", cfg.Server.Listen)
	}
	if cfg.Server.PostgresDsn != "host=db user=questlog" {
		t.Fatalf("dsn not overridden: %s", cfg.Server.PostgresDsn)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfig(t, "layout:\n  store: floppy\n")); err == nil {
		t.Fatalf("expected unknown store to be rejected")
	}
	if _, err := Load(writeConfig(t, "server:\n  resolveCacheTTL: soon\n")); err == nil {
		t.Fatalf("expected bad ttl to be rejected")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Listen == "" || cfg.Layout.Store != "memory" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
