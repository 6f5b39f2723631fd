package options

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ninthcircle/diceroller/internal/config"
)

// Open returns the store selected by cfg.Backend. The returned close
// function releases any resource the store opened itself; it does not
// close database.
func Open(cfg config.OptionsConfig, database *sql.DB) (Store, func() error, error) {
	switch cfg.Backend {
	case "", "sql":
		return NewSQLStore(database), func() error { return nil }, nil
	case "bolt":
		if err := os.MkdirAll(filepath.Dir(cfg.BoltPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create options directory: %w", err)
		}
		bdb, err := bolt.Open(cfg.BoltPath, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open options database: %w", err)
		}
		store, err := NewBoltStore(bdb)
		if err != nil {
			bdb.Close()
			return nil, nil, err
		}
		return store, bdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown options backend %q", cfg.Backend)
	}
}
