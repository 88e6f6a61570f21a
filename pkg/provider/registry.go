package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/hostbroker/pkg/types"
)

// Registry dispatches a Request's Strategy tag to its registered Handler,
// wrapping every call in the uniform retry policy (spec §4.6, "uniform
// retry-with-backoff wrapper").
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.ProviderStrategy]Handler
	policy   RetryPolicy
}

// NewRegistry builds an empty Registry using policy for every dispatched
// call.
func NewRegistry(policy RetryPolicy) *Registry {
	return &Registry{handlers: make(map[types.ProviderStrategy]Handler), policy: policy}
}

// Register binds a Handler implementation to a strategy tag.
func (r *Registry) Register(strategy types.ProviderStrategy, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strategy] = handler
}

// Dispatch returns the Handler registered for strategy, wrapped so every
// method call retries on transient provider errors per the Registry's
// policy. It returns an error if no handler is registered for strategy.
func (r *Registry) Dispatch(strategy types.ProviderStrategy) (Handler, error) {
	r.mu.RLock()
	inner, ok := r.handlers[strategy]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider handler registered for strategy %q", strategy)
	}
	return &retryingHandler{inner: inner, policy: r.policy}, nil
}

// retryingHandler decorates a Handler so every method's cloud call flows
// through the common retry wrapper, keeping each variant implementation
// free of retry logic of its own.
type retryingHandler struct {
	inner  Handler
	policy RetryPolicy
}

func (h *retryingHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	var id, version string
	err := withRetry(ctx, h.policy, func() error {
		var err error
		id, version, err = h.inner.CreateLaunchTemplate(ctx, tmpl, req)
		return err
	})
	return id, version, err
}

func (h *retryingHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	var resourceID string
	err := withRetry(ctx, h.policy, func() error {
		var err error
		resourceID, err = h.inner.AcquireHosts(ctx, req, tmpl)
		return err
	})
	return resourceID, err
}

func (h *retryingHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]InstanceRecord, error) {
	var records []InstanceRecord
	err := withRetry(ctx, h.policy, func() error {
		var err error
		records, err = h.inner.CheckHostsStatus(ctx, req)
		return err
	})
	return records, err
}

func (h *retryingHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	return withRetry(ctx, h.policy, func() error {
		return h.inner.ReleaseHosts(ctx, req, machineIDs)
	})
}
