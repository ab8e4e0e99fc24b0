package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/fireroute/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("fireroute-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Routing.BufferKm != 2 || cfg.Routing.MaxAvoidRects != 10 {
		t.Errorf("unexpected routing defaults %+v", cfg.Routing)
	}
	if cfg.Routing.PerimeterTTL != 15*time.Minute || cfg.Routing.LinkTTL != 24*time.Hour {
		t.Errorf("unexpected ttl defaults %+v", cfg.Routing)
	}
	if cfg.Telemetry.ServiceName != "fireroute-test" {
		t.Errorf("expected service name from argument, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIREROUTE_ROUTING_BUFFER_KM", "7.5")
	t.Setenv("FIREROUTE_STORAGE_LINK_BACKEND", "memory")
	t.Setenv("FIREROUTE_ROUTING_LINK_TTL", "2h")

	cfg, err := config.Load("fireroute-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Routing.BufferKm != 7.5 {
		t.Errorf("expected 7.5, got %v", cfg.Routing.BufferKm)
	}
	if cfg.Storage.LinkBackend != config.BackendMemory {
		t.Errorf("expected memory link backend, got %q", cfg.Storage.LinkBackend)
	}
	if cfg.Routing.LinkTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.Routing.LinkTTL)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Storage: config.StorageConfig{PerimeterBackend: "s3", LinkBackend: config.BackendMemory},
		Routing: config.RoutingConfig{BufferKm: 150, MaxAvoidRects: 10, PerimeterTTL: time.Minute, LinkTTL: time.Hour},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "storage.perimeter_backend", "routing.buffer_km"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_MemoryNeedsNoInfrastructure(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1},
		Storage: config.StorageConfig{PerimeterBackend: config.BackendMemory, LinkBackend: config.BackendMemory},
		Routing: config.RoutingConfig{BufferKm: 2, MaxAvoidRects: 10, PerimeterTTL: time.Minute, LinkTTL: time.Hour},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
