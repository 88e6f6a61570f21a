package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) *KVStrategy {
	t.Helper()
	s, err := NewKVStrategy(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKVStrategyCRUD(t *testing.T) {
	s := newTestKV(t)

	require.NoError(t, s.Save("requests", Record{ID: "req-1", Data: []byte(`{"status":"Pending"}`)}))

	rec, ok, err := s.FindByID("requests", "req-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"status":"Pending"}`, string(rec.Data))

	exists, err := s.Exists("requests", "req-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete("requests", "req-1"))
	exists, err = s.Exists("requests", "req-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKVStrategyFindAllOnMissingBucketIsEmpty(t *testing.T) {
	s := newTestKV(t)
	all, err := s.FindAll("never-touched")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestKVStrategyTransactionCommit(t *testing.T) {
	s := newTestKV(t)

	tx, err := s.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, tx.Save("machines", Record{ID: "i-1", Data: []byte(`{}`)}))
	require.NoError(t, tx.Commit())

	_, ok, err := s.FindByID("machines", "i-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKVStrategyTransactionRollback(t *testing.T) {
	s := newTestKV(t)

	tx, err := s.BeginTransaction()
	require.NoError(t, err)
	require.NoError(t, tx.Save("machines", Record{ID: "i-1", Data: []byte(`{}`)}))
	require.NoError(t, tx.Rollback())

	_, ok, err := s.FindByID("machines", "i-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
