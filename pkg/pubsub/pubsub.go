package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "page", "diagram:succ-pred")
	Type    string          `json:"type"`    // Event type (e.g., "frame", "state", "reloaded")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// HasSubscribers reports whether anyone listens on a topic
	HasSubscribers(topic string) bool

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Topics and event types
const (
	PageTopic = "page"

	EventFrame    = "frame"    // a diagram was redrawn
	EventState    = "state"    // a diagram was started or stopped
	EventReloaded = "reloaded" // the page was rebuilt from new configuration
)

// DiagramTopic returns the topic carrying frames of one diagram
func DiagramTopic(id string) string {
	return "diagram:" + id
}

// FrameData is the payload of a frame event
type FrameData struct {
	Seq   int     `json:"seq"`
	Tick  int     `json:"tick"`
	Alpha float64 `json:"alpha"`
	SVG   string  `json:"svg"`
}

// StateData is the payload of a state event
type StateData struct {
	ID    string `json:"id"`
	State string `json:"state"` // running or stopped
}

// PageData is the payload of a reloaded event
type PageData struct {
	Diagrams []string          `json:"diagrams"`         // ids in page order
	Failed   map[string]string `json:"failed,omitempty"` // id -> error for diagrams that could not be built
}
