package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/nameless-numbers/pkg/logging"
)

var log = logging.New("pubsub")

// ErrClosed is returned by Publish and Subscribe after Close
var ErrClosed = errors.New("publisher is closed")

// subscriberQueue is the number of undelivered events a subscriber may hold
const subscriberQueue = 64

// TopicConfig configures buffering and delivery for a topic
type TopicConfig struct {
	BufferSize int  // Number of events kept for new subscribers (0 = none)
	ReplayAll  bool // Replay every buffered event instead of only the last
	// Coalesce lets a subscriber that falls behind skip its oldest queued
	// event rather than miss the newest. Frame topics want this: only the
	// latest picture matters.
	Coalesce bool
}

// SSEPublisher implements Publisher using Server-Sent Events
type SSEPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*sseSubscription]bool // topic -> set of subscriptions
	version       map[string]int                       // topic -> version counter
	eventBuffer   map[string][]Event                   // topic -> most recent events
	topicConfig   map[string]TopicConfig               // topic -> configuration
	dropped       map[string]int                       // topic -> events lost to full queues
	closed        bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		eventBuffer:   make(map[string][]Event),
		topicConfig:   make(map[string]TopicConfig),
		dropped:       make(map[string]int),
	}
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

// Subscribe creates a subscription that ends with ctx. Buffered events are
// queued before Subscribe returns.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true

	// Replay under the lock so Close cannot race the first sends
	config := p.topicConfig[topic]
	replay := p.eventBuffer[topic]
	if !config.ReplayAll && len(replay) > 1 {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		p.deliver(sub, event, config)
	}
	if len(replay) > 0 {
		log.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	config := p.topicConfig[topic]
	if config.BufferSize > 0 {
		buffer := append(p.eventBuffer[topic], event)
		if len(buffer) > config.BufferSize {
			buffer = buffer[len(buffer)-config.BufferSize:]
		}
		p.eventBuffer[topic] = buffer
	}

	for sub := range p.subscriptions[topic] {
		p.deliver(sub, event, config)
	}
	return nil
}

// deliver queues an event without blocking. Must hold p.mu.
func (p *SSEPublisher) deliver(sub *sseSubscription, event Event, config TopicConfig) {
	select {
	case sub.events <- event:
		return
	default:
	}

	if config.Coalesce {
		// Make room by discarding the oldest queued event
		select {
		case <-sub.events:
		default:
		}
		select {
		case sub.events <- event:
			return
		default:
		}
	}

	p.dropped[event.Topic]++
	log.Warn("subscription queue full, dropping event", "topic", event.Topic, "type", event.Type)
}

// HasSubscribers reports whether a topic has at least one subscriber
func (p *SSEPublisher) HasSubscribers(topic string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscriptions[topic]) > 0
}

// Dropped returns how many events of a topic never reached a subscriber
func (p *SSEPublisher) Dropped(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped[topic]
}

// ForgetTopic drops the buffered events and configuration of a topic.
// Current subscribers stay subscribed.
func (p *SSEPublisher) ForgetTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.eventBuffer, topic)
	delete(p.topicConfig, topic)
	delete(p.dropped, topic)
}

// Close shuts down the publisher and ends every subscription
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, subs := range p.subscriptions {
		for sub := range subs {
			close(sub.events)
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]bool)
	return nil
}

// unsubscribe removes a subscription (called by subscription.Close())
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool
	mu        sync.Mutex
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close stops delivery. The events channel is closed only by the publisher.
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE writes an event to an SSE response writer.
// Format: "id: <version>\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, jsonData)
	return err
}
