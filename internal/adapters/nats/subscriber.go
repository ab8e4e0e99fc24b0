package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewSubscriber connects to NATS and makes sure the streams exist.
func NewSubscriber(url string, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
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
	return &Subscriber{conn: conn, js: js, logger: logger}, nil
}

// SubscribeWarmRequests delivers queued warm-ups to handler. Undecodable
// messages are terminated; handler failures are redelivered up to 3 times.
func (s *Subscriber) SubscribeWarmRequests(ctx context.Context, handler func(ctx context.Context, req *domain.WarmRequest) error) error {
	sub, err := s.js.Subscribe(SubjectWarmRequest, func(msg *nats.Msg) {
		var req domain.WarmRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.logger.Warn("dropping malformed warm request", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &req); err != nil {
			s.logger.Warn("warm request failed", "region", req.Name, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("perimeter-warmer"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
