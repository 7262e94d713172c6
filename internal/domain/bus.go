package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the analysis pipeline.
const (
	TopicAnalysisCompleted = "qvalley.analysis.completed"
	TopicAlert             = "qvalley.alert"
)

// AnalysisEvent is the payload published on TopicAnalysisCompleted after
// every persisted analysis.
type AnalysisEvent struct {
	Feature    string   `json:"feature"`
	InputValue string   `json:"inputValue,omitempty"`
	Trust      int      `json:"trust"`
	Verdict    Verdict  `json:"verdict"`
	Reasons    []string `json:"reasons,omitempty"`
}

// AlertEvent is the payload published on TopicAlert for every fraud
// verdict. Escalated is set once WindowHits crosses the worker threshold.
type AlertEvent struct {
	Feature    string   `json:"feature"`
	InputValue string   `json:"inputValue,omitempty"`
	Trust      int      `json:"trust"`
	Reasons    []string `json:"reasons,omitempty"`
	WindowHits int64    `json:"windowHits"`
	Escalated  bool     `json:"escalated"`
}
