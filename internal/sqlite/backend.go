// Package sqlite implements the history store on SQLite.
//
// A Backend owns one database file in the configured data directory. It is
// opened lazily by Attach, which initializes on first use and reuses the open
// handle afterwards; concurrent first calls share a single open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

// DatabaseFile is the history database file name inside DataDir.
const DatabaseFile = "history.db"

// busyTimeoutMillis bounds how long a writer waits on a locked database.
const busyTimeoutMillis = 5000

// Compile-time interface check: Backend must implement types.Backend.
var _ types.Backend = (*Backend)(nil)

// Backend implements types.HistoryStore on a SQLite database.
type Backend struct {
	mu     sync.RWMutex
	config types.Config
	db     *sql.DB
	path   string

	attach singleflight.Group
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the database described by config, or reuses the handle when
// the backend is already attached. Creates DataDir if it does not exist and
// applies pending migrations.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	_, err, _ := b.attach.Do("attach", func() (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.db != nil {
			return nil, nil
		}
		db, path, err := open(ctx, config)
		if err != nil {
			return nil, err
		}
		b.db = db
		b.path = path
		b.config = config
		return nil, nil
	})
	return err
}

func open(ctx context.Context, config types.Config) (*sql.DB, string, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("connecting to %s: %w", path, err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, "", err
	}
	// One connection serializes writers from overlapping capture handlers.
	db.SetMaxOpenConns(1)
	return db, path, nil
}

// Detach releases the database handle. Detach is idempotent. After Detach,
// all operations return ErrBackendDetached until the next Attach.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.path = ""
	return err
}

// Path returns the database file path, or "" when detached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// conn returns the open handle or ErrBackendDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, types.ErrBackendDetached
	}
	return b.db, nil
}

// Optimize rebuilds the database file to reclaim free pages, then refreshes
// the query planner statistics.
func (b *Backend) Optimize(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}
