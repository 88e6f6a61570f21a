package storage

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// KVStrategy is the key-value storage strategy: one bbolt bucket per
// collection, created on first use, JSON blob per record. Unlike
// cuemby/warren's fixed bucket list this opens buckets lazily by collection
// name, since the storage-strategy contract is generic over collections
// rather than a fixed per-entity-type interface.
type KVStrategy struct {
	db *bolt.DB
}

// NewKVStrategy opens (creating if absent) a bbolt database file at path.
func NewKVStrategy(path string) (*KVStrategy, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}
	return &KVStrategy{db: db}, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (k *KVStrategy) Close() error {
	return k.db.Close()
}

func (k *KVStrategy) Save(collection string, rec Record) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), rec.Data)
	})
}

func (k *KVStrategy) FindByID(collection, id string) (Record, bool, error) {
	var rec Record
	found := false
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		rec = Record{ID: id, Data: append([]byte(nil), data...)}
		return nil
	})
	return rec, found, err
}

func (k *KVStrategy) FindAll(collection string) ([]Record, error) {
	var out []Record
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(id, data []byte) error {
			out = append(out, Record{ID: string(id), Data: append([]byte(nil), data...)})
			return nil
		})
	})
	return out, err
}

func (k *KVStrategy) FindByCriteria(collection string, match Criteria) ([]Record, error) {
	all, err := k.FindAll(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (k *KVStrategy) Delete(collection, id string) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

func (k *KVStrategy) Exists(collection, id string) (bool, error) {
	_, ok, err := k.FindByID(collection, id)
	return ok, err
}

func (k *KVStrategy) SaveBatch(collection string, recs []Record) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := b.Put([]byte(rec.ID), rec.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *KVStrategy) DeleteBatch(collection string, ids []string) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// BeginTransaction opens a native bbolt read-write transaction. Commit
// and Rollback map directly onto bolt.Tx's own semantics.
func (k *KVStrategy) BeginTransaction() (Transaction, error) {
	tx, err := k.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &kvTransaction{tx: tx}, nil
}

type kvTransaction struct {
	tx *bolt.Tx
}

func (t *kvTransaction) Save(collection string, rec Record) error {
	b, err := t.tx.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return err
	}
	return b.Put([]byte(rec.ID), rec.Data)
}

func (t *kvTransaction) Delete(collection, id string) error {
	b := t.tx.Bucket([]byte(collection))
	if b == nil {
		return nil
	}
	return b.Delete([]byte(id))
}

func (t *kvTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *kvTransaction) Rollback() error {
	return t.tx.Rollback()
}
