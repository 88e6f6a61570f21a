package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/types"
)

func TestLoggingPublisherNeverErrors(t *testing.T) {
	p := NewLoggingPublisher()
	err := p.Publish(types.Event{Type: types.EventMachineCreated, Message: "m"})
	assert.NoError(t, err)
}

func TestSyncPublisherReturnsHandlerErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("handler failed")
	r.On(types.EventRequestCreated, func(types.Event) error { return boom })

	p := NewSyncPublisher(r)
	err := p.Publish(types.Event{Type: types.EventRequestCreated})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSyncPublisherOKWithNoHandlers(t *testing.T) {
	p := NewSyncPublisher(NewRegistry())
	assert.NoError(t, p.Publish(types.Event{Type: types.EventMachineCreated}))
}

func TestAsyncPublisherDispatchesToRegistry(t *testing.T) {
	r := NewRegistry()
	done := make(chan types.Event, 1)
	r.On(types.EventMachineStatusChanged, func(e types.Event) error {
		done <- e
		return nil
	})

	p := NewAsyncPublisher(r, 8)
	p.Start()
	defer p.Stop()

	require.NoError(t, p.Publish(types.Event{Type: types.EventMachineStatusChanged, AggregateID: "m-1"}))

	select {
	case e := <-done:
		assert.Equal(t, "m-1", e.AggregateID)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestAsyncPublisherSubscribeReceivesEvent(t *testing.T) {
	p := NewAsyncPublisher(NewRegistry(), 8)
	p.Start()
	defer p.Stop()

	sub := p.Subscribe()
	defer p.Unsubscribe(sub)

	require.NoError(t, p.Publish(types.Event{Type: types.EventRequestCreated, AggregateID: "r-1"}))

	select {
	case e := <-sub:
		assert.Equal(t, "r-1", e.AggregateID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestAsyncPublisherUnsubscribeClosesChannel(t *testing.T) {
	p := NewAsyncPublisher(NewRegistry(), 8)
	p.Start()
	defer p.Stop()

	sub := p.Subscribe()
	p.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok)
}

func TestAsyncPublisherReturnsErrorWhenStopped(t *testing.T) {
	p := NewAsyncPublisher(NewRegistry(), 1)
	p.Start()
	p.Stop()

	// allow the run loop goroutine to observe stopCh
	time.Sleep(10 * time.Millisecond)

	err := p.Publish(types.Event{Type: types.EventMachineCreated})
	assert.Error(t, err)
}

func TestAsyncPublisherReturnsErrorWhenBufferFull(t *testing.T) {
	p := NewAsyncPublisher(NewRegistry(), 1)
	// Do not Start: nothing drains the buffered channel, so the first
	// Publish fills it and the second must observe it full.
	require.NoError(t, p.Publish(types.Event{Type: types.EventMachineCreated}))
	err := p.Publish(types.Event{Type: types.EventMachineCreated})
	assert.Error(t, err)
}
