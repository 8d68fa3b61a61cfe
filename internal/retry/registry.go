package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Handler processes one delivery for a topic. Implementations must be
// safe to invoke more than once with the same payload: delivery is
// at-least-once and a success that fails to be recorded will be retried.
type Handler interface {
	HandleDelivery(ctx context.Context, shop string, payload json.RawMessage) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, shop string, payload json.RawMessage) error

// HandleDelivery calls f.
func (f HandlerFunc) HandleDelivery(ctx context.Context, shop string, payload json.RawMessage) error {
	return f(ctx, shop, payload)
}

// Common errors returned by the Registry
var (
	ErrEmptyTopic     = errors.New("topic cannot be empty")
	ErrNilHandler     = errors.New("handler cannot be nil")
	ErrDuplicateTopic = errors.New("topic already has a registered handler")
)

// Registry maps delivery topics to their handlers. Registration happens
// once at process start; unknown topics are rejected here rather than
// discovered at delivery time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty handler registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With(slog.String("component", "retry_registry")),
	}
}

// Register binds a handler to a topic. Registering an empty topic, a
// nil handler, or a topic that already has a handler is an error.
func (r *Registry) Register(topic string, h Handler) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if h == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[topic]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, topic)
	}

	r.handlers[topic] = h
	r.logger.Debug("registered delivery handler",
		"topic", topic,
		"handler_count", len(r.handlers))
	return nil
}

// Resolve returns the handler for a topic, if one is registered.
func (r *Registry) Resolve(topic string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[topic]
	return h, ok
}

// Topics returns the registered topic names.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	return topics
}
