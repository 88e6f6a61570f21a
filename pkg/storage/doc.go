/*
Package storage implements the Storage Strategy abstraction (spec.md
§4.1): a CRUD-plus-transaction contract over opaque JSON blobs, grouped
into named collections (one per aggregate type — requests, machines,
templates).

Three backends are registered under a storage-type string
("file", "kv", "sql"):

  - FileStrategy: one JSON document per collection, process-local
    RWMutex, backup-before-write with atomic rename, and
    backup-then-empty recovery on a corrupt primary file. No
    multi-process support.
  - KVStrategy: one bbolt bucket per collection, native bbolt
    transactions.
  - SQLStrategy: one table per collection via database/sql, native SQL
    transactions — the strategy required when more than one broker
    process must share a repository.

Callers never construct a backend directly; they call storage.New with a
config.StorageConfig and let the registry dispatch on cfg.Kind.
*/
package storage
