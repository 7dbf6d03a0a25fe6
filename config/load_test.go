package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("db driver = %q", cfg.DBDriver)
	}
	if cfg.ListenAddr != "0.0.0.0:8091" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Ingest.MaxConcurrent != 8 {
		t.Fatalf("max concurrent = %d", cfg.Ingest.MaxConcurrent)
	}
	if cfg.Units.CacheTTL() != 5*time.Minute {
		t.Fatalf("cache ttl = %s", cfg.Units.CacheTTL())
	}
	if cfg.Retention.RawMessageDays != 30 {
		t.Fatalf("raw message days = %d", cfg.Retention.RawMessageDays)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OSPREY_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("OSPREY_TIMEZONE", "UTC")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("location = %v, %v", loc, err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "listen_addr: \"127.0.0.1:9100\"\ningest:\n  max_concurrent: 2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9100" || cfg.Ingest.MaxConcurrent != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	var ic IngestConfig
	if ic.MessageTimeout() != 20*time.Second {
		t.Fatalf("message timeout = %s", ic.MessageTimeout())
	}
	var uc UnitsConfig
	if uc.CacheTTL() != 5*time.Minute {
		t.Fatalf("cache ttl = %s", uc.CacheTTL())
	}
}
