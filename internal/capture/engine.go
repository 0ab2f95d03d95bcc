// Package capture turns clipboard events into history.
//
// The Engine classifies each event and reconciles it against stored history
// under the live deduplication and sorting policies, keeping the in-memory
// VisibleList and the persistent store in step. The Listener feeds events
// from a Source to the Engine and contains every per-event failure.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Store is the persistence the Engine needs.
type Store interface {
	Insert(ctx context.Context, rec types.Record) error
	UpdateByID(ctx context.Context, id string, patch types.EntryPatch) error
	SelectWhere(ctx context.Context, filter types.Filter) ([]types.Record, error)
}

// Classifier builds an entry from an event; ok is false for empty events.
type Classifier interface {
	Classify(ctx context.Context, ev types.ClipboardEvent, copyPlain bool) (types.HistoryEntry, bool, error)
}

// Settings supplies the capture policies. It is consulted once per event.
type Settings interface {
	CaptureSettings() types.CaptureSettings
}

// StaticSettings is a fixed Settings value.
type StaticSettings types.CaptureSettings

// CaptureSettings returns s.
func (s StaticSettings) CaptureSettings() types.CaptureSettings {
	return types.CaptureSettings(s)
}

// Engine reconciles classified entries with stored history.
//
// Without GuardDuplicates the duplicate lookup and the write that follows are
// not atomic: two identical events handled concurrently may both miss the
// lookup and insert two rows even with deduplication on.
type Engine struct {
	classifier Classifier
	store      Store
	settings   Settings
	list       *VisibleList
	log        logging.Logger

	guard singleflight.Group
}

// NewEngine wires an Engine. A nil logger discards reports.
func NewEngine(classifier Classifier, store Store, settings Settings, list *VisibleList, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		classifier: classifier,
		store:      store,
		settings:   settings,
		list:       list,
		log:        log,
	}
}

// List returns the visible list the engine mutates.
func (e *Engine) List() *VisibleList {
	return e.list
}

// Handle processes one clipboard event. A storage failure after the visible
// list was mutated is returned alongside the outcome; the list is not rolled
// back.
func (e *Engine) Handle(ctx context.Context, ev types.ClipboardEvent) (types.Outcome, error) {
	out, err := e.handle(ctx, ev)
	if err == nil && out.Decision != types.DecisionSkip {
		e.log.Debug(ctx, "reconciled event",
			"decision", string(out.Decision),
			"id", out.Entry.ID,
			"type", out.Entry.Type,
			"visible", out.Visible,
		)
	}
	return out, err
}

func (e *Engine) handle(ctx context.Context, ev types.ClipboardEvent) (types.Outcome, error) {
	settings := e.settings.CaptureSettings()

	entry, ok, err := e.classifier.Classify(ctx, ev, settings.CopyPlain)
	if err != nil {
		return types.Outcome{}, kind(types.ErrClassification, "classifying event", err)
	}
	if !ok {
		return types.Outcome{Decision: types.DecisionSkip}, nil
	}
	rec, err := types.ToRecord(entry)
	if err != nil {
		return types.Outcome{}, kind(types.ErrClassification, "serializing entry", err)
	}

	if settings.FastPath() {
		return e.insert(ctx, entry, rec)
	}
	if !settings.GuardDuplicates || !settings.AutoDeduplicate {
		return e.reconcile(ctx, entry, rec, settings)
	}

	ran := false
	v, err, _ := e.guard.Do(rec.Type+"\x00"+rec.Value, func() (any, error) {
		ran = true
		return e.reconcile(ctx, entry, rec, settings)
	})
	if !ran {
		// Collapsed into a concurrent identical event that did the work.
		return types.Outcome{Decision: types.DecisionNoOp}, nil
	}
	out, _ := v.(types.Outcome)
	return out, err
}

// reconcile looks up a stored duplicate and decides insert, update or no-op.
func (e *Engine) reconcile(ctx context.Context, entry types.HistoryEntry, rec types.Record, settings types.CaptureSettings) (types.Outcome, error) {
	matches, err := e.store.SelectWhere(ctx, types.Filter{
		"type":  rec.Type,
		"value": rec.Value,
		"limit": 1,
	})
	if err != nil {
		return types.Outcome{}, kind(types.ErrStorage, "looking up duplicates", err)
	}

	switch {
	case len(matches) == 0, !settings.AutoDeduplicate:
		return e.insert(ctx, entry, rec)
	case settings.AutoSort:
		return e.refresh(ctx, entry, matches[0])
	default:
		return types.Outcome{Decision: types.DecisionNoOp}, nil
	}
}

func (e *Engine) insert(ctx context.Context, entry types.HistoryEntry, rec types.Record) (types.Outcome, error) {
	out := types.Outcome{
		Decision: types.DecisionInsert,
		Entry:    entry,
		Visible:  e.list.Offer(entry),
	}
	if err := e.store.Insert(ctx, rec); err != nil {
		return out, kind(types.ErrStorage, "inserting "+entry.ID, err)
	}
	return out, nil
}

// refresh moves a stored duplicate to the front under its original id.
func (e *Engine) refresh(ctx context.Context, entry types.HistoryEntry, matched types.Record) (types.Outcome, error) {
	refreshed := entry
	refreshed.ID = matched.ID
	refreshed.Favorite = types.IntToBool(matched.Favorite)
	refreshed.Note = matched.Note

	// createTime never moves backwards.
	if prev, err := types.ParseTime(matched.CreateTime); err == nil && !refreshed.CreateTime.After(prev) {
		refreshed.CreateTime = prev.Add(time.Nanosecond)
	}

	out := types.Outcome{
		Decision: types.DecisionUpdate,
		Entry:    refreshed,
		Visible:  e.list.Refresh(refreshed),
	}
	if err := e.store.UpdateByID(ctx, matched.ID, types.EntryPatch{CreateTime: &refreshed.CreateTime}); err != nil {
		return out, kind(types.ErrStorage, "refreshing "+matched.ID, err)
	}
	return out, nil
}

// kind wraps err with the sentinel unless it already carries it.
func kind(sentinel error, op string, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, op, err)
}
