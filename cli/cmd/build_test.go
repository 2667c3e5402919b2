package cmd

import (
	"testing"

	"github.com/embedstyle/stylehost/archive"
	"github.com/embedstyle/stylehost/config"
	"github.com/embedstyle/stylehost/telemetry"
)

func TestBuildTelemetry_None(t *testing.T) {
	c := newTestContext(t, nil)
	pol, err := buildTelemetry(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildTelemetry failed: %v", err)
	}
	if pol != nil {
		t.Errorf("expected nil policy, got %T", pol)
	}
}

func TestBuildTelemetry_Strict(t *testing.T) {
	c := newTestContext(t, map[string]string{"telemetry-policy": "strict"})
	pol, err := buildTelemetry(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildTelemetry failed: %v", err)
	}
	if _, ok := pol.(*telemetry.StrictPolicy); !ok {
		t.Errorf("expected *StrictPolicy, got %T", pol)
	}
}

func TestBuildTelemetry_BufferedUsesConfigLimits(t *testing.T) {
	c := newTestContext(t, map[string]string{"telemetry-policy": "buffered"})
	cfg := &config.Config{}
	cfg.Telemetry.BufferEvents = 10
	pol, err := buildTelemetry(cfg, c)
	if err != nil {
		t.Fatalf("buildTelemetry failed: %v", err)
	}
	if _, ok := pol.(*telemetry.BufferedPolicy); !ok {
		t.Errorf("expected *BufferedPolicy, got %T", pol)
	}
}

func TestBuildTelemetry_InvalidPolicy(t *testing.T) {
	c := newTestContext(t, map[string]string{"telemetry-policy": "bogus"})
	_, err := buildTelemetry(&config.Config{}, c)
	if err == nil {
		t.Fatal("expected error for unknown telemetry policy")
	}
}

func TestBuildArchive_None(t *testing.T) {
	c := newTestContext(t, nil)
	store, err := buildArchive(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildArchive failed: %v", err)
	}
	if store != nil {
		t.Errorf("expected nil store, got %T", store)
	}
}

func TestBuildArchive_FSRequiresRoot(t *testing.T) {
	c := newTestContext(t, map[string]string{"archive-backend": "fs"})
	_, err := buildArchive(&config.Config{}, c)
	if err == nil {
		t.Fatal("expected error when fs backend has no root")
	}
}

func TestBuildArchive_FS(t *testing.T) {
	c := newTestContext(t, map[string]string{"archive-backend": "fs", "archive-root": t.TempDir()})
	store, err := buildArchive(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildArchive failed: %v", err)
	}
	if _, ok := store.(*archive.FSStore); !ok {
		t.Errorf("expected *FSStore, got %T", store)
	}
}

func TestBuildArchive_InvalidBackend(t *testing.T) {
	c := newTestContext(t, map[string]string{"archive-backend": "bogus"})
	_, err := buildArchive(&config.Config{}, c)
	if err == nil {
		t.Fatal("expected error for unknown archive backend")
	}
}

func TestBuildAdapters_None(t *testing.T) {
	c := newTestContext(t, nil)
	adapters, err := buildAdapters(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildAdapters failed: %v", err)
	}
	if len(adapters) != 0 {
		t.Errorf("expected no adapters, got %d", len(adapters))
	}
}

func TestBuildAdapters_WebhookRequiresURL(t *testing.T) {
	c := newTestContext(t, map[string]string{"adapter-type": "webhook"})
	_, err := buildAdapters(&config.Config{}, c)
	if err == nil {
		t.Fatal("expected error when webhook adapter has no URL")
	}
}

func TestBuildAdapters_Webhook(t *testing.T) {
	c := newTestContext(t, map[string]string{
		"adapter-type": "webhook",
		"adapter-url":  "https://example.com/hook",
	})
	adapters, err := buildAdapters(&config.Config{}, c)
	if err != nil {
		t.Fatalf("buildAdapters failed: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("expected one adapter, got %d", len(adapters))
	}
}

func TestBuildAdapters_InvalidType(t *testing.T) {
	c := newTestContext(t, map[string]string{"adapter-type": "bogus"})
	_, err := buildAdapters(&config.Config{}, c)
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
}

func TestRetriesOrDefault(t *testing.T) {
	three := 3
	if got := retriesOrDefault(nil, 5); got != 5 {
		t.Errorf("expected fallback 5, got %d", got)
	}
	if got := retriesOrDefault(&three, 5); got != 3 {
		t.Errorf("expected override 3, got %d", got)
	}
}
