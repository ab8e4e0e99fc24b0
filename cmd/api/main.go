package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fireroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/fireroute/internal/adapters/nats"
	"github.com/samirrijal/fireroute/internal/app"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/config"
	"github.com/samirrijal/fireroute/internal/pkg/logging"
	"github.com/samirrijal/fireroute/internal/pkg/metrics"
	"github.com/samirrijal/fireroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fireroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	// NATS is optional: without it links and alerts are not announced.
	var publisher ports.EventPublisher
	var warmer ports.WarmRequestPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		warmer = pub
	}

	svc := app.NewServices(cfg, stores, publisher, logger)

	deps := &http.Dependencies{
		Routing:    svc.Routing,
		Perimeters: svc.Perimeters,
		Links:      svc.Links,
		Warmer:     warmer,
		DB:         stores.DB,
		Cache:      stores.Cache,
		Logger:     logger,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Pool gauges
	if stores.DB != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					metrics.UpdateDBPoolMetrics(stores.DB.Stat())
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Fiber
	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "FireRoute API",
	})

	http.SetupRoutes(fiberApp, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr,
			"perimeter_backend", cfg.Storage.PerimeterBackend, "link_backend", cfg.Storage.LinkBackend)
		if err := fiberApp.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
