/*
Package events decouples the lifecycle engine and reconciler from whatever
consumes domain events (audit logs, webhooks, CLI tails), via a small
Publisher abstraction with three interchangeable implementations.

# Architecture

	┌──────────────────── EVENT PIPELINE ───────────────────────┐
	│                                                            │
	│  pkg/unitofwork.Commit()                                  │
	│        │ (after storage transaction succeeds)             │
	│        ▼                                                  │
	│  Publisher.Publish(types.Event)                           │
	│        │                                                   │
	│   ┌────┴─────────┬───────────────────┐                    │
	│   ▼               ▼                   ▼                   │
	│  Logging       Sync                Async                  │
	│  (log only)    (inline dispatch)   (buffered broker)       │
	│                     │                   │                  │
	│                     ▼                   ▼                  │
	│              Registry.dispatch   Registry.dispatch +       │
	│              (typed Handlers)    ad hoc Subscribe chans     │
	└────────────────────────────────────────────────────────┘

# Publisher implementations

LoggingPublisher:
  - Writes one structured log line per event, no typed dispatch.
  - Default when events.publisher_mode is unset; suitable for a single-process
    deployment with no external consumers.

SyncPublisher:
  - Dispatches to every Registry handler inline, within Publish.
  - Handler errors are joined (errors.Join) and returned to the caller,
    which per pkg/unitofwork's contract means they are logged and
    swallowed rather than rolled back.

AsyncPublisher:
  - Publish only enqueues onto a buffered channel (config: events.buffer_size)
    and returns; a single broker goroutine started by Start drains it,
    dispatching to the Registry and fanning out to ad hoc Subscribe
    channels. A full buffer or a stopped broker makes Publish return an
    error instead of blocking the caller.
  - Subscribe/Unsubscribe exist alongside the typed Registry for
    consumers that want the raw event stream (a debug tail, a future
    webhook forwarder) without registering a Handler for every type.

# Registry

Registry is shared state, not a Publisher itself: both SyncPublisher and
AsyncPublisher hold one and call its unexported dispatch method. Handlers
register with On(eventType, handler) at startup; multiple handlers may
register for the same event type and all run, with individual failures
collected rather than short-circuiting the rest.

# Choosing a mode

File and key-value storage back-ends typically pair with LoggingPublisher
or SyncPublisher (single process, no need for a background goroutine).
AsyncPublisher is for deployments that register several handlers per
event type (e.g. a metrics counter and an audit-log writer) where neither
should add latency to the request path that triggered the event.
*/
package events
