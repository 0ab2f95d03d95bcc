package types

import (
	"context"
	"time"
)

// Filter is an equality predicate over indexed history columns. Keys are
// column names: "type", "value", "group", "favorite", "createTime". The
// special key "limit" caps the number of returned rows. Values are in
// persisted form (favorite as int, createTime as a TimeLayout string).
type Filter map[string]any

// Query selects entries for display.
type Query struct {
	Group    string // "" or GroupAll matches every group.
	Favorite bool   // Only favorites when true.
	Search   string // Substring match over search text and note.
	Limit    int    // No limit when <= 0.
	Offset   int
}

// EntryPatch lists the fields UpdateByID may change. Nil fields are left
// untouched. The capture pipeline only ever sets CreateTime.
type EntryPatch struct {
	CreateTime *time.Time
	Favorite   *bool
	Note       *string
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool {
	return p.CreateTime == nil && p.Favorite == nil && p.Note == nil
}

// HistoryStore persists and queries history entries. Failures of the backing
// store wrap ErrStorage in every method; argument errors (ErrInvalidID,
// ErrInvalidFilter, ErrInvalidGroup) and ErrNotFound are returned unwrapped.
type HistoryStore interface {
	// Insert appends a record. Returns ErrInvalidID for an empty id and an
	// error wrapping ErrStorage when the id collides or the backing store is
	// unavailable.
	Insert(ctx context.Context, rec Record) error

	// UpdateByID applies patch to the row with the given id. Updating an
	// unknown id is a no-op.
	UpdateByID(ctx context.Context, id string, patch EntryPatch) error

	// SelectWhere returns records matching every pair in filter, in the
	// store's natural order.
	SelectWhere(ctx context.Context, filter Filter) ([]Record, error)

	// Fetch returns entries matching q, most recent first.
	Fetch(ctx context.Context, q Query) ([]HistoryEntry, error)

	// Get returns the entry with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (HistoryEntry, error)

	// Delete removes the entry with the given id or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// Decision is the reconciliation outcome for one clipboard event.
type Decision string

const (
	DecisionSkip   Decision = "skip"   // Empty event, nothing classified.
	DecisionInsert Decision = "insert" // New row and, if visible, list prepend.
	DecisionUpdate Decision = "update" // Existing row refreshed to the front.
	DecisionNoOp   Decision = "noop"   // Duplicate suppressed.
)

// Outcome reports what the reconciliation engine did with one event.
type Outcome struct {
	Decision Decision
	Entry    HistoryEntry // The inserted or refreshed entry; zero for skip.
	Visible  bool         // The visible list was mutated.
}
