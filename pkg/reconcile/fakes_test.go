package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/hostbroker/pkg/health"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// memStrategy is a minimal in-process storage.Strategy backed by maps,
// used to exercise the reconciler without a real backend.
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

// memTransaction applies writes directly to the backing memStrategy;
// Rollback is a no-op staging discard since nothing was buffered.
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

// fakeHandler is a stub provider.Handler whose CheckHostsStatus returns a
// fixed record set.
type fakeHandler struct {
	records []provider.InstanceRecord
	err     error
}

func (f *fakeHandler) CreateLaunchTemplate(context.Context, *types.Template, *types.Request) (string, string, error) {
	return "lt-1", "1", nil
}
func (f *fakeHandler) AcquireHosts(context.Context, *types.Request, *types.Template) (string, error) {
	return "res-1", nil
}
func (f *fakeHandler) CheckHostsStatus(context.Context, *types.Request) ([]provider.InstanceRecord, error) {
	return f.records, f.err
}
func (f *fakeHandler) ReleaseHosts(context.Context, *types.Request, []string) error { return nil }

// fakeChecker is a stub health.Checker returning a fixed result.
type fakeChecker struct {
	checkType string
	healthy   bool
}

func (f *fakeChecker) Check(context.Context) health.Result {
	return health.Result{Healthy: f.healthy, Message: fmt.Sprintf("%s check", f.checkType), CheckedAt: time.Now()}
}

func (f *fakeChecker) Type() health.CheckType {
	return health.CheckType(f.checkType)
}
