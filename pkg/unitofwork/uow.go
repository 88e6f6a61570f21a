// Package unitofwork coordinates one or more aggregate mutations against
// a storage.Strategy as a single atomic commit, followed by event
// dispatch (spec.md §4.2). There is no nested unit of work, and Begin
// does not detect nesting: a second Begin for a key that is already held
// blocks until the first unit closes, while other keys open independent
// units.
package unitofwork

import (
	"fmt"
	"sync"

	"github.com/cuemby/hostbroker/pkg/events"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// Factory opens a UnitOfWork against one storage.Strategy and one
// events.Publisher. It also enforces the at-most-one-writer-per-aggregate
// guarantee described in spec.md §5: a second Begin for the same
// aggregate key blocks until the first UnitOfWork closes.
type Factory struct {
	strategy  storage.Strategy
	publisher events.Publisher

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	waiting map[string]int
}

// NewFactory builds a Factory over strategy and publisher.
func NewFactory(strategy storage.Strategy, publisher events.Publisher) *Factory {
	return &Factory{
		strategy:  strategy,
		publisher: publisher,
		locks:     make(map[string]*sync.Mutex),
		waiting:   make(map[string]int),
	}
}

// Begin opens a UnitOfWork holding the exclusive per-aggregate lock for
// key (e.g. "Request:req-<uuid>"). The lock is released when the
// returned UnitOfWork is closed via Commit or Rollback.
func (f *Factory) Begin(key string) (*UnitOfWork, error) {
	tx, err := f.strategy.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("begin storage transaction: %w", err)
	}

	lock := f.acquire(key)
	return &UnitOfWork{
		factory: f,
		key:     key,
		lock:    lock,
		tx:      tx,
	}, nil
}

func (f *Factory) acquire(key string) *sync.Mutex {
	f.mu.Lock()
	lock, ok := f.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[key] = lock
	}
	f.waiting[key]++
	f.mu.Unlock()

	lock.Lock()
	return lock
}

func (f *Factory) release(key string, lock *sync.Mutex) {
	lock.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiting[key]--
	if f.waiting[key] <= 0 {
		delete(f.waiting, key)
		delete(f.locks, key)
	}
}

// UnitOfWork stages one or more aggregate mutations and a pending event
// list, and applies both atomically on Commit.
type UnitOfWork struct {
	factory *Factory
	key     string
	lock    *sync.Mutex
	tx      storage.Transaction

	pendingEvents []types.Event
	closed        bool
}

// Save stages a write to collection under the unit of work's
// transaction.
func (u *UnitOfWork) Save(collection string, rec storage.Record) error {
	if u.closed {
		return fmt.Errorf("unit of work already closed")
	}
	return u.tx.Save(collection, rec)
}

// Delete stages a delete under the unit of work's transaction.
func (u *UnitOfWork) Delete(collection, id string) error {
	if u.closed {
		return fmt.Errorf("unit of work already closed")
	}
	return u.tx.Delete(collection, id)
}

// Register queues an event to be dispatched only after Commit succeeds.
func (u *UnitOfWork) Register(event types.Event) {
	u.pendingEvents = append(u.pendingEvents, event)
}

// Commit flushes the storage transaction, then dispatches every
// registered event. A failed storage commit never publishes anything. A
// failed event dispatch does not roll back storage — it is logged and
// swallowed, since the storage mutation already succeeded and is the
// source of truth (spec.md §4.2).
func (u *UnitOfWork) Commit() error {
	if u.closed {
		return fmt.Errorf("unit of work already closed")
	}
	defer u.close()

	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit storage transaction: %w", err)
	}

	for _, event := range u.pendingEvents {
		if err := u.factory.publisher.Publish(event); err != nil {
			log.WithComponent("unitofwork").Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Str("aggregate_id", event.AggregateID).
				Msg("event dispatch failed after successful commit")
		}
	}
	return nil
}

// Rollback discards the staged storage transaction and every queued
// event.
func (u *UnitOfWork) Rollback() error {
	if u.closed {
		return nil
	}
	defer u.close()
	u.pendingEvents = nil
	return u.tx.Rollback()
}

func (u *UnitOfWork) close() {
	u.closed = true
	u.factory.release(u.key, u.lock)
}
