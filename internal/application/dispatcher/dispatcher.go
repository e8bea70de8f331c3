package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Dispatch sends event to all registered handlers synchronously.
	// Returns first error encountered (handlers run in order).
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync sends event to handlers asynchronously.
	// Does not wait for handlers to complete.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   *zap.Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(logger *zap.Logger) Dispatcher {
	return &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		logger:   logger,
	}
}

// Subscribe registers a handler with an auto-generated name
func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	name := fmt.Sprintf("handler-%d", len(d.handlers[eventType]))
	d.SubscribeNamed(eventType, name, handler)
}

// SubscribeNamed registers a handler with a specific name for debugging
func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	d.logger.Info("Handler registered",
		zap.String("event_type", eventType.String()),
		zap.String("handler_name", name))
}

// Dispatch sends event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logger.Error("Handler error",
				zap.String("event_type", evt.Type.String()),
				zap.String("event_id", evt.ID),
				zap.String("handler_name", info.Name),
				zap.Error(err))
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}

	return nil
}

// DispatchAsync sends event to handlers asynchronously
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logger.Error("Cannot dispatch async event, dispatcher is closed",
			zap.String("event_type", evt.Type.String()),
			zap.String("event_id", evt.ID))
		return
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, info := range handlers {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()

			if err := d.safeExecute(ctx, evt, h); err != nil {
				d.logger.Error("Async handler error",
					zap.String("event_type", evt.Type.String()),
					zap.String("event_id", evt.ID),
					zap.String("handler_name", h.Name),
					zap.Error(err))
			}
		}(info)
	}
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.wg.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return info.Handler(ctx, evt)
}
