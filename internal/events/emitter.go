package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives change notifications. Handlers run synchronously on
// the mutating goroutine and must not call back into the manager.
type Handler func(Change)

// Emitter dispatches change notifications to subscribed handlers. There
// is no implicit global broadcast: observers subscribe explicitly and
// unsubscribe with the token Subscribe returned.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[uuid.UUID]Handler
	logger   *slog.Logger
}

// NewEmitter creates a new Emitter.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{
		handlers: make(map[uuid.UUID]Handler),
		logger:   logger.With("component", "change_emitter"),
	}
}

// Subscribe registers a handler and returns the token that removes it.
func (e *Emitter) Subscribe(handler Handler) uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New()
	e.handlers[id] = handler
	e.logger.Debug("subscriber registered", "subscriber_id", id, "count", len(e.handlers))
	return id
}

// Unsubscribe removes a previously registered handler. Unknown tokens
// are ignored.
func (e *Emitter) Unsubscribe(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.handlers, id)
	e.logger.Debug("subscriber removed", "subscriber_id", id, "count", len(e.handlers))
}

// Emit delivers the change to every subscriber. The handler map is
// copied first so a handler may unsubscribe itself during delivery.
func (e *Emitter) Emit(change Change) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(change)
	}
}
