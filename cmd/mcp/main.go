package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/samirrijal/fireroute/internal/adapters/mcp"
	natsadapter "github.com/samirrijal/fireroute/internal/adapters/nats"
	"github.com/samirrijal/fireroute/internal/app"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/pkg/config"
	"github.com/samirrijal/fireroute/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("fireroute-mcp")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// stdout carries the protocol; logs go to stderr.
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logger.Error("storage unavailable", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		logger.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	svc := app.NewServices(cfg, stores, publisher, logger)
	s := mcpadapter.New(mcpadapter.Services{
		Routing:    svc.Routing,
		Perimeters: svc.Perimeters,
		Links:      svc.Links,
	})

	logger.Info("mcp server listening on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server stopped", "error", err)
	}
}
