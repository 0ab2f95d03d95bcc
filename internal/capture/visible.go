package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Fetcher loads entries for display.
type Fetcher interface {
	Fetch(ctx context.Context, q types.Query) ([]types.HistoryEntry, error)
}

// VisibleList is the recency-ordered subset of history shown under the
// current group filter. Front is most recent. It is safe for concurrent use.
type VisibleList struct {
	mu    sync.RWMutex
	group string
	items []types.HistoryEntry

	// While a Reload is in flight, offered and refreshed entries are kept in
	// pending and replayed over the fetched rows.
	reloading int
	pending   []types.HistoryEntry
}

// NewVisibleList returns an empty list filtered to group. An invalid group
// falls back to GroupAll.
func NewVisibleList(group string) *VisibleList {
	if !types.ValidFilter(group) {
		group = types.GroupAll
	}
	return &VisibleList{group: group}
}

// Group returns the active group filter.
func (l *VisibleList) Group() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.group
}

// Accepts reports whether entries of group are shown under the active filter.
func (l *VisibleList) Accepts(group string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accepts(group)
}

func (l *VisibleList) accepts(group string) bool {
	return l.group == types.GroupAll || l.group == group
}

// Unshift prepends e.
func (l *VisibleList) Unshift(e types.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unshift(e)
}

func (l *VisibleList) unshift(e types.HistoryEntry) {
	l.items = append(l.items, types.HistoryEntry{})
	copy(l.items[1:], l.items)
	l.items[0] = e
}

// RemoveByID removes the first element with the given id and reports
// whether one was found.
func (l *VisibleList) RemoveByID(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeByID(id)
}

func (l *VisibleList) removeByID(id string) bool {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Offer prepends e when its group passes the filter and reports whether it did.
func (l *VisibleList) Offer(e types.HistoryEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.track(e)
	if !l.accepts(e.Group) {
		return false
	}
	l.unshift(e)
	return true
}

// Refresh moves the entry with e.ID to the front, replacing it with e, when
// its group passes the filter. The entry is prepended even if it was not
// loaded into the list before.
func (l *VisibleList) Refresh(e types.HistoryEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.track(e)
	if !l.accepts(e.Group) {
		return false
	}
	l.removeByID(e.ID)
	l.unshift(e)
	return true
}

func (l *VisibleList) track(e types.HistoryEntry) {
	if l.reloading > 0 {
		l.pending = append(l.pending, e)
	}
}

// Items returns a snapshot of the list, front first.
func (l *VisibleList) Items() []types.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.HistoryEntry, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of visible entries.
func (l *VisibleList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Reload switches the filter to group and rebuilds the list from storage
// with at most limit entries (no limit when limit <= 0). Entries offered or
// refreshed while the fetch runs are moved to the front of the new list when
// they pass the new filter, since storage may not hold them yet.
func (l *VisibleList) Reload(ctx context.Context, f Fetcher, group string, limit int) error {
	if !types.ValidFilter(group) {
		return fmt.Errorf("%w: %q", types.ErrInvalidGroup, group)
	}

	l.mu.Lock()
	l.reloading++
	start := len(l.pending)
	l.mu.Unlock()

	items, err := f.Fetch(ctx, types.Query{Group: group, Limit: limit})

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.endReload()
	if err != nil {
		return fmt.Errorf("reloading visible list: %w", err)
	}
	l.group = group
	l.items = items
	for _, e := range l.pending[start:] {
		if l.accepts(e.Group) {
			l.removeByID(e.ID)
			l.unshift(e)
		}
	}
	return nil
}

func (l *VisibleList) endReload() {
	l.reloading--
	if l.reloading == 0 {
		l.pending = nil
	}
}
