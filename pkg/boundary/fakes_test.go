package boundary

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/events"
	"github.com/cuemby/hostbroker/pkg/lifecycle"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/reconcile"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/template"
	"github.com/cuemby/hostbroker/pkg/types"
	"github.com/cuemby/hostbroker/pkg/unitofwork"
)

// memStrategy is a minimal in-process storage.Strategy backed by maps,
// the same fixture shape pkg/lifecycle and pkg/reconcile test against.
type memStrategy struct {
	mu   sync.Mutex
	data map[string]map[string]storage.Record
}

func newMemStrategy() *memStrategy {
	return &memStrategy{data: make(map[string]map[string]storage.Record)}
}

func (m *memStrategy) collection(name string) map[string]storage.Record {
	c, ok := m.data[name]
	if !ok {
		c = make(map[string]storage.Record)
		m.data[name] = c
	}
	return c
}

func (m *memStrategy) Save(collection string, rec storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[rec.ID] = rec
	return nil
}

func (m *memStrategy) FindByID(collection, id string) (storage.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.collection(collection)[id]
	return rec, ok, nil
}

func (m *memStrategy) FindAll(collection string) ([]storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Record
	for _, rec := range m.collection(collection) {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStrategy) FindByCriteria(collection string, match storage.Criteria) ([]storage.Record, error) {
	all, _ := m.FindAll(collection)
	var out []storage.Record
	for _, rec := range all {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStrategy) Delete(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collection(collection), id)
	return nil
}

func (m *memStrategy) Exists(collection, id string) (bool, error) {
	_, ok, err := m.FindByID(collection, id)
	return ok, err
}

func (m *memStrategy) SaveBatch(collection string, recs []storage.Record) error {
	for _, rec := range recs {
		if err := m.Save(collection, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStrategy) DeleteBatch(collection string, ids []string) error {
	for _, id := range ids {
		if err := m.Delete(collection, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStrategy) BeginTransaction() (storage.Transaction, error) {
	return &memTransaction{strategy: m}, nil
}

func (m *memStrategy) Close() error { return nil }

type memTransaction struct {
	strategy *memStrategy
	pending  []func()
}

func (t *memTransaction) Save(collection string, rec storage.Record) error {
	t.pending = append(t.pending, func() { t.strategy.Save(collection, rec) })
	return nil
}

func (t *memTransaction) Delete(collection, id string) error {
	t.pending = append(t.pending, func() { t.strategy.Delete(collection, id) })
	return nil
}

func (t *memTransaction) Commit() error {
	for _, fn := range t.pending {
		fn()
	}
	return nil
}

func (t *memTransaction) Rollback() error {
	t.pending = nil
	return nil
}

// fakeHandler is a stub provider.Handler whose behavior is driven by
// function fields; a nil field falls back to a no-op success.
type fakeHandler struct {
	createLaunchTemplateFn func(context.Context, *types.Template, *types.Request) (string, string, error)
	acquireHostsFn         func(context.Context, *types.Request, *types.Template) (string, error)
	checkHostsStatusFn     func(context.Context, *types.Request) ([]provider.InstanceRecord, error)
	releaseHostsFn         func(context.Context, *types.Request, []string) error
}

func (f *fakeHandler) CreateLaunchTemplate(ctx context.Context, tmpl *types.Template, req *types.Request) (string, string, error) {
	if f.createLaunchTemplateFn != nil {
		return f.createLaunchTemplateFn(ctx, tmpl, req)
	}
	return "lt-1", "1", nil
}

func (f *fakeHandler) AcquireHosts(ctx context.Context, req *types.Request, tmpl *types.Template) (string, error) {
	if f.acquireHostsFn != nil {
		return f.acquireHostsFn(ctx, req, tmpl)
	}
	return "res-1", nil
}

func (f *fakeHandler) CheckHostsStatus(ctx context.Context, req *types.Request) ([]provider.InstanceRecord, error) {
	if f.checkHostsStatusFn != nil {
		return f.checkHostsStatusFn(ctx, req)
	}
	return nil, nil
}

func (f *fakeHandler) ReleaseHosts(ctx context.Context, req *types.Request, machineIDs []string) error {
	if f.releaseHostsFn != nil {
		return f.releaseHostsFn(ctx, req, machineIDs)
	}
	return nil
}

const testTemplatesYAML = `
templates:
  - template_id: small-ondemand
    strategy: DirectLaunch
    max_number: 5
    image_id: ami-0123456789
    subnet_id: subnet-abc123
    instance_type: t3.micro
    security_group_ids: [sg-1]
`

func writeTestTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testTemplatesYAML), 0o644))
	return path
}

// newTestService assembles a Service wired to a real lifecycle Engine
// backed by fakes, mirroring pkg/lifecycle/engine_test.go's
// newTestEngine helper. rateCfg lets tests exercise Allow/rate-limit
// rejection; the zero value leaves rate limiting disabled.
func newTestService(t *testing.T, handler provider.Handler, rateCfg config.RateLimitConfig) (*Service, *memStrategy) {
	t.Helper()
	path := writeTestTemplates(t)
	store, err := template.NewStore(path, template.NewAliasResolver(nil))
	require.NoError(t, err)

	strategy := newMemStrategy()
	uow := unitofwork.NewFactory(strategy, events.NewLoggingPublisher())
	registry := provider.NewRegistry(provider.RetryPolicy{})
	if handler != nil {
		registry.Register(types.StrategyDirectLaunch, handler)
	}
	reconciler := reconcile.NewReconciler(strategy, uow, registry)
	engine := lifecycle.NewEngine(strategy, uow, store, registry, reconciler, nil)

	limiter := NewLimiter(rateCfg)
	return NewService(engine, store, strategy, limiter), strategy
}
