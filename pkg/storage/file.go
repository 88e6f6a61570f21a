package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/hostbroker/pkg/log"
)

// FileStrategy is the file-based storage strategy: one JSON document per
// collection (<collection>.json, e.g. Requests.json), guarded by
// a single process-wide RWMutex. It has no multi-process support — two
// processes pointed at the same base path will corrupt each other's
// writes (spec.md §5); the relational or key-value strategies are
// required for that.
type FileStrategy struct {
	basePath string
	mu       sync.RWMutex
	docs     map[string]map[string]json.RawMessage // collection -> id -> data
}

// NewFileStrategy builds a FileStrategy rooted at basePath, creating the
// directory if it does not exist. Existing collection files are not read
// until first use, per collection, so a fresh FileStrategy is cheap to
// construct even over a large existing store.
func NewFileStrategy(basePath string) (*FileStrategy, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", basePath, err)
	}
	return &FileStrategy{
		basePath: basePath,
		docs:     make(map[string]map[string]json.RawMessage),
	}, nil
}

func (f *FileStrategy) collectionPath(collection string) string {
	return filepath.Join(f.basePath, collection+".json")
}

func (f *FileStrategy) backupPath(collection string) string {
	return f.collectionPath(collection) + ".bak"
}

// load returns the in-memory document for collection, reading it from
// disk (recovering from backup, then degrading to empty, on a corrupt
// primary file) the first time the collection is touched.
func (f *FileStrategy) load(collection string) (map[string]json.RawMessage, error) {
	if doc, ok := f.docs[collection]; ok {
		return doc, nil
	}

	doc, err := f.readDocument(f.collectionPath(collection))
	if err != nil {
		logger := log.WithComponent("storage.file")
		logger.Warn().Err(err).Str("collection", collection).Msg("primary collection file unreadable, attempting backup recovery")

		doc, err = f.readDocument(f.backupPath(collection))
		if err != nil {
			logger.Warn().Str("collection", collection).Msg("no usable backup, starting from an empty collection")
			doc = make(map[string]json.RawMessage)
		}
	}
	f.docs[collection] = doc
	return doc, nil
}

func (f *FileStrategy) readDocument(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return make(map[string]json.RawMessage), nil
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// flush backs up the existing collection file (if any), then writes the
// new content to a temp file and renames it into place — rename is
// atomic within one filesystem, so readers never observe a partially
// written document.
func (f *FileStrategy) flush(collection string, doc map[string]json.RawMessage) error {
	path := f.collectionPath(collection)

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, f.backupPath(collection)); err != nil {
			return fmt.Errorf("backup %s: %w", collection, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file for %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file for %s: %w", collection, err)
	}

	f.docs[collection] = doc
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (f *FileStrategy) Save(collection string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load(collection)
	if err != nil {
		return err
	}
	doc[rec.ID] = json.RawMessage(rec.Data)
	return f.flush(collection, doc)
}

func (f *FileStrategy) FindByID(collection, id string) (Record, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.load(collection)
	if err != nil {
		return Record{}, false, err
	}
	raw, ok := doc[id]
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: id, Data: []byte(raw)}, true, nil
}

func (f *FileStrategy) FindAll(collection string) ([]Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.load(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(doc))
	for id, raw := range doc {
		out = append(out, Record{ID: id, Data: []byte(raw)})
	}
	return out, nil
}

func (f *FileStrategy) FindByCriteria(collection string, match Criteria) ([]Record, error) {
	all, err := f.FindAll(collection)
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

func (f *FileStrategy) Delete(collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load(collection)
	if err != nil {
		return err
	}
	delete(doc, id)
	return f.flush(collection, doc)
}

func (f *FileStrategy) Exists(collection, id string) (bool, error) {
	_, ok, err := f.FindByID(collection, id)
	return ok, err
}

func (f *FileStrategy) SaveBatch(collection string, recs []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load(collection)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		doc[rec.ID] = json.RawMessage(rec.Data)
	}
	return f.flush(collection, doc)
}

func (f *FileStrategy) DeleteBatch(collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load(collection)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(doc, id)
	}
	return f.flush(collection, doc)
}

func (f *FileStrategy) Close() error {
	return nil
}

// BeginTransaction stages mutations in memory and applies them to the
// live document only on Commit, so a rollback (or a crash before commit)
// leaves the on-disk files untouched.
func (f *FileStrategy) BeginTransaction() (Transaction, error) {
	return &fileTransaction{strategy: f, saves: make(map[string][]Record), deletes: make(map[string][]string)}, nil
}

type fileTransaction struct {
	strategy *FileStrategy
	saves    map[string][]Record
	deletes  map[string][]string
}

func (tx *fileTransaction) Save(collection string, rec Record) error {
	tx.saves[collection] = append(tx.saves[collection], rec)
	return nil
}

func (tx *fileTransaction) Delete(collection, id string) error {
	tx.deletes[collection] = append(tx.deletes[collection], id)
	return nil
}

func (tx *fileTransaction) Commit() error {
	for collection, recs := range tx.saves {
		if err := tx.strategy.SaveBatch(collection, recs); err != nil {
			return err
		}
	}
	for collection, ids := range tx.deletes {
		if err := tx.strategy.DeleteBatch(collection, ids); err != nil {
			return err
		}
	}
	return nil
}

func (tx *fileTransaction) Rollback() error {
	tx.saves = nil
	tx.deletes = nil
	return nil
}
