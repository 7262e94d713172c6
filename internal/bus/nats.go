package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// NATSBus implements EventBus using NATS.
// Used as the Pro tier event bus for distributed deployments.
type NATSBus struct {
	conn *nats.Conn
}

type natsSubscription struct {
	sub    *nats.Subscription
	topic  string
	cancel context.CancelFunc
}

// NewNATSBus creates a new NATS-backed event bus.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	url := cfg.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("qvalley"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSBus{conn: conn}, nil
}

// Publish sends a message to a NATS subject.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return b.conn.Publish(topic, data)
}

// Subscribe registers a handler for a NATS subject.
func (b *NATSBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	sub, err := b.conn.Subscribe(topic, func(m *nats.Msg) {
		var msg domain.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// Not a wrapped message, deliver raw payload
			msg = domain.Message{
				ID:        uuid.New().String(),
				Topic:     m.Subject,
				Payload:   m.Data,
				Metadata:  make(map[string]string),
				Timestamp: time.Now().UnixNano(),
			}
		}
		_ = handler(subCtx, &msg)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return &natsSubscription{sub: sub, topic: topic, cancel: cancel}, nil
}

// Ping checks NATS connectivity.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats connection lost")
	}
	return nil
}

// Close drains and closes the NATS connection.
func (b *NATSBus) Close() error {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}

// Unsubscribe stops receiving messages.
func (s *natsSubscription) Unsubscribe() error {
	s.cancel()
	return s.sub.Unsubscribe()
}

// Topic returns the subscribed subject.
func (s *natsSubscription) Topic() string {
	return s.topic
}
