package http

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/fireroute/internal/adapters/postgres"
	"github.com/samirrijal/fireroute/internal/adapters/valkey"
	"github.com/samirrijal/fireroute/internal/core/ports"
	"github.com/samirrijal/fireroute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// NATS, DB and Cache are optional and only used for readiness and the event relay.
type Dependencies struct {
	Routing    *usecases.RoutingService
	Perimeters *usecases.PerimeterService
	Links      *usecases.LinkStore
	Warmer     ports.WarmRequestPublisher // nil warms inline
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
	Logger     *slog.Logger // base for request and websocket loggers; nil uses slog.Default
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
