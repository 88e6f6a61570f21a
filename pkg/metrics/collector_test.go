package metrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// fakeStrategy implements storage.Strategy over an in-memory map; only the
// read paths the Collector uses are exercised, the rest are unused no-ops.
type fakeStrategy struct {
	data map[string][]storage.Record
}

func newFakeStrategy() *fakeStrategy {
	return &fakeStrategy{data: make(map[string][]storage.Record)}
}

func (f *fakeStrategy) Save(collection string, rec storage.Record) error {
	f.data[collection] = append(f.data[collection], rec)
	return nil
}
func (f *fakeStrategy) FindByID(collection, id string) (storage.Record, bool, error) {
	for _, r := range f.data[collection] {
		if r.ID == id {
			return r, true, nil
		}
	}
	return storage.Record{}, false, nil
}
func (f *fakeStrategy) FindAll(collection string) ([]storage.Record, error) {
	return f.data[collection], nil
}
func (f *fakeStrategy) FindByCriteria(collection string, match storage.Criteria) ([]storage.Record, error) {
	var out []storage.Record
	for _, r := range f.data[collection] {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeStrategy) Delete(collection, id string) error { return nil }
func (f *fakeStrategy) Exists(collection, id string) (bool, error) {
	_, ok, err := f.FindByID(collection, id)
	return ok, err
}
func (f *fakeStrategy) SaveBatch(collection string, recs []storage.Record) error { return nil }
func (f *fakeStrategy) DeleteBatch(collection string, ids []string) error        { return nil }
func (f *fakeStrategy) BeginTransaction() (storage.Transaction, error)           { return nil, nil }
func (f *fakeStrategy) Close() error                                             { return nil }

func TestCollectorSnapshotsRequestAndMachineCounts(t *testing.T) {
	strategy := newFakeStrategy()

	req := types.Request{RequestID: "req-1", Type: types.RequestTypeAcquire, Status: types.RequestRunning}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if err := strategy.Save(types.CollectionRequests, storage.Record{ID: req.RequestID, Data: data}); err != nil {
		t.Fatal(err)
	}

	m := types.Machine{MachineID: "i-1", Status: types.MachineRunning}
	mdata, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := strategy.Save(types.CollectionMachines, storage.Record{ID: m.MachineID, Data: mdata}); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(strategy)
	c.collect()

	if got := testutil.ToFloat64(RequestsTotal.WithLabelValues("Acquire", "Running")); got != 1 {
		t.Errorf("RequestsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(MachinesTotal.WithLabelValues("Running")); got != 1 {
		t.Errorf("MachinesTotal = %v, want 1", got)
	}
}

func TestCollectorStartStop(t *testing.T) {
	strategy := newFakeStrategy()
	c := NewCollector(strategy)
	c.interval = time.Millisecond
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
}
