// Package sqlite exposes the SQLite history store to programs outside this
// module while keeping its implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/scraps/internal/sqlite"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// DatabaseFile is the history database file name inside Config.DataDir.
const DatabaseFile = sqlite.DatabaseFile

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dataDir,
//	})
//	defer backend.Detach()
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}
