package storage

import (
	"fmt"
	"sync"

	"github.com/cuemby/hostbroker/pkg/config"
)

// StrategyFactory builds a Strategy from the storage section of Config.
type StrategyFactory func(cfg config.StorageConfig) (Strategy, error)

// Registration is what a storage backend registers under its type
// string. The original three-factory registration this is grounded on
// also threads through a per-backend config factory and unit-of-work
// factory; Go's interfaces make both unnecessary here: config.StorageConfig
// is already one typed struct shared by every backend, and
// pkg/unitofwork opens its transaction generically off of
// Strategy.BeginTransaction rather than needing a backend-specific
// constructor.
type Registration struct {
	Type        string
	NewStrategy StrategyFactory
}

type registry struct {
	mu            sync.RWMutex
	registrations map[string]Registration
}

var globalRegistry = &registry{registrations: make(map[string]Registration)}

// Register adds a storage backend under its type string. Re-registering
// the same type overwrites the previous registration — used by tests to
// swap in a fake strategy factory.
func Register(r Registration) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.registrations[r.Type] = r
}

// New builds a Strategy for cfg.Kind via its registered factory.
func New(cfg config.StorageConfig) (Strategy, error) {
	globalRegistry.mu.RLock()
	r, ok := globalRegistry.registrations[cfg.Kind]
	globalRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage kind %q", cfg.Kind)
	}
	return r.NewStrategy(cfg)
}

func init() {
	Register(Registration{
		Type: "file",
		NewStrategy: func(cfg config.StorageConfig) (Strategy, error) {
			return NewFileStrategy(cfg.FileBasePath)
		},
	})
	Register(Registration{
		Type: "kv",
		NewStrategy: func(cfg config.StorageConfig) (Strategy, error) {
			return NewKVStrategy(cfg.KVPath)
		},
	})
	Register(Registration{
		Type: "sql",
		NewStrategy: func(cfg config.StorageConfig) (Strategy, error) {
			driver := cfg.SQLDriver
			if driver == "" {
				driver = "mysql"
			}
			return NewSQLStrategy(driver, cfg.SQLDSN)
		},
	})
}
