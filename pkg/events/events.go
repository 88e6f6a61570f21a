package events

import (
	"sync"

	"github.com/cuemby/hostbroker/pkg/types"
)

// Publisher dispatches a domain event to every registered sink. It is
// the contract pkg/unitofwork holds: Commit calls Publish once per
// pending event, after the storage transaction has already succeeded.
type Publisher interface {
	Publish(event types.Event) error
}

// Handler is a typed subscriber for one event type, registered at
// startup with Registry.On, following the handler-discovery-by-event-type
// pattern events are grounded on.
type Handler func(event types.Event) error

// Registry holds typed per-event-type subscribers shared by every
// Publisher implementation in this package.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.EventType][]Handler
}

// NewRegistry builds an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.EventType][]Handler)}
}

// On registers handler to run whenever an event of the given type is
// published. Multiple handlers may register for the same type; all run.
func (r *Registry) On(eventType types.EventType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

func (r *Registry) dispatch(event types.Event) []error {
	r.mu.RLock()
	handlers := append([]Handler(nil), r.handlers[event.Type]...)
	r.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
