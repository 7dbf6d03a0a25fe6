package ingest

import (
	"context"
	"testing"
	"time"

	"osprey-cad/config"
	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

func retentionConfig() config.RetentionConfig {
	return config.RetentionConfig{
		Enabled:            true,
		RawMessageDays:     1,
		PurgeSchedule:      "@hourly",
		CachePruneSchedule: "@every 5m",
	}
}

func TestMaintenancePurge(t *testing.T) {
	_, _, archive, _ := setupPipeline(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-72 * time.Hour)

	if err := archive.SaveRawMessage(ctx, &store.RawMessage{ID: "art-old", Source: "smtp", Body: []byte("x"), ReceivedAt: old}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := archive.SaveRawMessage(ctx, &store.RawMessage{ID: "art-new", Source: "smtp", Body: []byte("y")}); err != nil {
		t.Fatalf("save: %v", err)
	}

	m := NewMaintenance(retentionConfig(), archive, nil, utils.NewLogger())
	m.purge()

	if got, _ := archive.GetRawMessage(ctx, "art-old"); got != nil {
		t.Fatal("expired payload not purged")
	}
	if got, _ := archive.GetRawMessage(ctx, "art-new"); got == nil {
		t.Fatal("recent payload purged")
	}
}

func TestMaintenanceStartStop(t *testing.T) {
	_, _, archive, _ := setupPipeline(t)
	m := NewMaintenance(retentionConfig(), archive, nil, utils.NewLogger())
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestMaintenanceDisabled(t *testing.T) {
	m := NewMaintenance(config.RetentionConfig{Enabled: false}, nil, nil, utils.NewLogger())
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestMaintenanceRejectsBadSchedule(t *testing.T) {
	cfg := retentionConfig()
	cfg.PurgeSchedule = "not a schedule"
	m := NewMaintenance(cfg, nil, nil, utils.NewLogger())
	if err := m.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
