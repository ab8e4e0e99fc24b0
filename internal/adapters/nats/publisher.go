package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// Subjects used on the event bus.
const (
	SubjectLinkCreated   = "fireroute.links.created"
	SubjectFireZoneAlert = "fireroute.firezone.alert"
	SubjectWarmRequest   = "fireroute.perimeters.warm"
	SubjectAll           = "fireroute.>"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:       "FIREROUTE_LINKS",
			Subjects:   []string{"fireroute.links.>"},
			Retention:  nats.InterestPolicy,
			MaxAge:     24 * time.Hour,
			Storage:    nats.FileStorage,
			Duplicates: 24 * time.Hour,
		},
		{
			Name:      "FIREROUTE_ALERTS",
			Subjects:  []string{"fireroute.firezone.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "FIREROUTE_WARM",
			Subjects:  []string{SubjectWarmRequest},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishLinkCreated announces a new route link. The link id doubles as the
// JetStream message id, so a retried publish is dropped as a duplicate.
func (p *Publisher) PublishLinkCreated(ctx context.Context, event *domain.LinkCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectLinkCreated, data, nats.MsgId(event.ID), nats.Context(ctx))
	return err
}

func (p *Publisher) PublishFireZoneAlert(ctx context.Context, alert *domain.FireZoneAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFireZoneAlert, data, nats.MsgId(alert.EventID), nats.Context(ctx))
	return err
}

// PublishWarmRequest queues a cache warm-up for the warmer.
func (p *Publisher) PublishWarmRequest(ctx context.Context, req *domain.WarmRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectWarmRequest, data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for readiness checks and relays.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("fireroute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
