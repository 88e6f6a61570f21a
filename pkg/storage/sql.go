package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// SQLStrategy is the relational storage strategy: one table per
// collection (created on first use), with the record id and JSON blob as
// columns. It is the variant spec.md §5 calls for when multiple broker
// processes must share one repository — unlike FileStrategy its locking
// is the database's, not an in-process mutex.
type SQLStrategy struct {
	db *sql.DB
}

// NewSQLStrategy opens a relational backend through database/sql. driver
// is typically "mysql"; dsn is the driver-specific connection string.
func NewSQLStrategy(driver, dsn string) (*SQLStrategy, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return &SQLStrategy{db: db}, nil
}

func tableName(collection string) string {
	return "hostbroker_" + collection
}

func (s *SQLStrategy) ensureTable(collection string) error {
	_, err := s.db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			data JSON NOT NULL
		)`, tableName(collection)))
	return err
}

func (s *SQLStrategy) Save(collection string, rec Record) error {
	if err := s.ensureTable(collection); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (id, data) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE data = VALUES(data)`, tableName(collection)),
		rec.ID, rec.Data)
	return err
}

func (s *SQLStrategy) FindByID(collection, id string) (Record, bool, error) {
	if err := s.ensureTable(collection); err != nil {
		return Record{}, false, err
	}
	row := s.db.QueryRow(fmt.Sprintf(
		`SELECT data FROM %s WHERE id = ?`, tableName(collection)), id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return Record{ID: id, Data: data}, true, nil
}

func (s *SQLStrategy) FindAll(collection string) ([]Record, error) {
	if err := s.ensureTable(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, data FROM %s`, tableName(collection)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out = append(out, Record{ID: id, Data: data})
	}
	return out, rows.Err()
}

func (s *SQLStrategy) FindByCriteria(collection string, match Criteria) ([]Record, error) {
	all, err := s.FindAll(collection)
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

func (s *SQLStrategy) Delete(collection, id string) error {
	if err := s.ensureTable(collection); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tableName(collection)), id)
	return err
}

func (s *SQLStrategy) Exists(collection, id string) (bool, error) {
	_, ok, err := s.FindByID(collection, id)
	return ok, err
}

func (s *SQLStrategy) SaveBatch(collection string, recs []Record) error {
	for _, rec := range recs {
		if err := s.Save(collection, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStrategy) DeleteBatch(collection string, ids []string) error {
	for _, id := range ids {
		if err := s.Delete(collection, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStrategy) Close() error {
	return s.db.Close()
}

// BeginTransaction opens a native database/sql transaction scoped to
// every collection touched during its lifetime; tables are created
// (if missing) lazily on first Save within the transaction.
func (s *SQLStrategy) BeginTransaction() (Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqlTransaction{strategy: s, tx: tx}, nil
}

type sqlTransaction struct {
	strategy *SQLStrategy
	tx       *sql.Tx
}

func (t *sqlTransaction) Save(collection string, rec Record) error {
	if err := t.strategy.ensureTable(collection); err != nil {
		return err
	}
	_, err := t.tx.Exec(fmt.Sprintf(
		`INSERT INTO %s (id, data) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE data = VALUES(data)`, tableName(collection)),
		rec.ID, rec.Data)
	return err
}

func (t *sqlTransaction) Delete(collection, id string) error {
	if err := t.strategy.ensureTable(collection); err != nil {
		return err
	}
	_, err := t.tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tableName(collection)), id)
	return err
}

func (t *sqlTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTransaction) Rollback() error {
	return t.tx.Rollback()
}
