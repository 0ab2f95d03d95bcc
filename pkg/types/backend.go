package types

import "context"

// Backend is a HistoryStore with an attach/detach lifecycle.
// Callers attach to a backend, use the store, and detach when done.
type Backend interface {
	HistoryStore

	// Attach opens the store described by config, creating DataDir if it
	// does not exist. Attaching an attached backend reuses the open store.
	Attach(ctx context.Context, config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrBackendDetached.
	Detach() error
}
