package events

import (
	"errors"
	"sync"

	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/types"
)

// LoggingPublisher only logs every event through a component-scoped
// logger; it registers no typed handlers and is the default for
// environments that have no external event sink configured.
type LoggingPublisher struct{}

// NewLoggingPublisher builds a LoggingPublisher.
func NewLoggingPublisher() *LoggingPublisher {
	return &LoggingPublisher{}
}

func (p *LoggingPublisher) Publish(event types.Event) error {
	log.WithComponent("events").Info().
		Str("event_type", string(event.Type)).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Msg(event.Message)
	return nil
}

// SyncPublisher dispatches to every registered typed Handler
// synchronously, within the Publish call. A handler error is returned to
// the caller (pkg/unitofwork logs and swallows it per the commit
// contract) rather than retried.
type SyncPublisher struct {
	registry *Registry
}

// NewSyncPublisher builds a SyncPublisher around registry.
func NewSyncPublisher(registry *Registry) *SyncPublisher {
	return &SyncPublisher{registry: registry}
}

func (p *SyncPublisher) Publish(event types.Event) error {
	if errs := p.registry.dispatch(event); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AsyncPublisher hands each event to a buffered broker goroutine that
// fans it out to registered handlers and to any ad hoc channel
// subscribers, so Publish never blocks on slow handlers. Publish only
// reports a full outbound buffer or a stopped broker; handler errors are logged by the
// broker's run loop, not returned to the caller (the caller has already
// moved on by the time a handler runs).
type AsyncPublisher struct {
	registry    *Registry
	eventCh     chan types.Event
	stopCh      chan struct{}
	subscribers map[chan types.Event]bool
	mu          sync.RWMutex
}

// NewAsyncPublisher builds an AsyncPublisher with the given outbound
// buffer size; call Start before the first Publish.
func NewAsyncPublisher(registry *Registry, bufferSize int) *AsyncPublisher {
	return &AsyncPublisher{
		registry:    registry,
		eventCh:     make(chan types.Event, bufferSize),
		stopCh:      make(chan struct{}),
		subscribers: make(map[chan types.Event]bool),
	}
}

// Start begins the broker's dispatch loop in its own goroutine.
func (p *AsyncPublisher) Start() {
	go p.run()
}

// Stop terminates the dispatch loop. Events already queued but not yet
// drained are discarded.
func (p *AsyncPublisher) Stop() {
	close(p.stopCh)
}

// Subscribe returns a channel that receives every published event
// alongside the typed Registry handlers — for callers that want to
// observe the raw event stream (e.g. a debug `--human` tail) rather than
// register a typed Handler.
func (p *AsyncPublisher) Subscribe() chan types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub := make(chan types.Event, 50)
	p.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (p *AsyncPublisher) Unsubscribe(sub chan types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribers[sub] {
		delete(p.subscribers, sub)
		close(sub)
	}
}

func (p *AsyncPublisher) Publish(event types.Event) error {
	select {
	case <-p.stopCh:
		return errors.New("async publisher stopped")
	default:
	}
	select {
	case p.eventCh <- event:
		return nil
	default:
		return errors.New("async publisher buffer full")
	}
}

func (p *AsyncPublisher) run() {
	for {
		select {
		case event := <-p.eventCh:
			p.dispatchAndBroadcast(event)
		case <-p.stopCh:
			return
		}
	}
}

func (p *AsyncPublisher) dispatchAndBroadcast(event types.Event) {
	logger := log.WithComponent("events")
	for _, err := range p.registry.dispatch(event) {
		logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("async event handler failed")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for sub := range p.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full; drop rather than block the dispatch loop.
		}
	}
}
