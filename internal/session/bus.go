package session

import (
	"log/slog"
	"sync"
)

// Handler consumes an inbound login callback.
type Handler func(cb Callback) error

// Bus delivers login callbacks from whichever channel received them (the
// loopback listener or an OS deep link) to the session. Handlers run
// synchronously, in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish hands cb to every handler and returns the last handler's error.
func (b *Bus) Publish(cb Callback) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrCallbackIgnored
	}

	var err error
	for _, h := range b.handlers {
		err = h(cb)
		if err != nil {
			b.logger.Debug("login callback handler failed", "err", err)
		}
	}
	return err
}

// Close stops delivery; later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
