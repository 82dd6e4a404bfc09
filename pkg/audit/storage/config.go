package storage

import (
	"fmt"
	"time"

	"mercator-hq/archivist/pkg/audit"
)

// Supported drivers.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
	DriverMemory  = "memory"
)

// DefaultPageLimit is used by Search when the page carries no limit.
const DefaultPageLimit = 100

// Config contains configuration for the primary store.
type Config struct {
	// Driver selects the backend: "sqlite3", "sqlite" or "memory".
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:       DriverModernc,
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// New creates the backend selected by cfg.Driver.
func New(cfg *Config) (audit.Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMattn, DriverModernc, "":
		s, err := NewSQLiteStore(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, audit.NewStorageError(cfg.Driver, "open",
			fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
}
