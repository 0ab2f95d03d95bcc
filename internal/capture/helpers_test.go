package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/scraps/internal/classify"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

var errDisk = errors.New("disk I/O error")

// memStore is an in-memory Store that counts calls.
type memStore struct {
	mu   sync.Mutex
	rows []types.Record

	inserts atomic.Int32
	updates atomic.Int32
	selects atomic.Int32

	insertErr error
	updateErr error
	selectErr error

	// beforeSelect runs inside SelectWhere before the rows are read.
	beforeSelect func()
	// afterSelect runs after the rows are read, outside the lock.
	afterSelect func()
}

func (s *memStore) Insert(_ context.Context, rec types.Record) error {
	s.inserts.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == rec.ID {
			return fmt.Errorf("duplicate id %s", rec.ID)
		}
	}
	s.rows = append(s.rows, rec)
	return nil
}

func (s *memStore) UpdateByID(_ context.Context, id string, patch types.EntryPatch) error {
	s.updates.Add(1)
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		if patch.CreateTime != nil {
			s.rows[i].CreateTime = types.FormatTime(*patch.CreateTime)
		}
		if patch.Favorite != nil {
			s.rows[i].Favorite = types.BoolToInt(*patch.Favorite)
		}
		if patch.Note != nil {
			s.rows[i].Note = *patch.Note
		}
	}
	return nil
}

func (s *memStore) SelectWhere(_ context.Context, filter types.Filter) ([]types.Record, error) {
	s.selects.Add(1)
	if s.beforeSelect != nil {
		s.beforeSelect()
	}
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	out := s.match(filter)
	if s.afterSelect != nil {
		s.afterSelect()
	}
	return out, nil
}

func (s *memStore) match(filter types.Filter) []types.Record {
	limit, _ := filter["limit"].(int)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Record
	for _, r := range s.rows {
		if v, ok := filter["type"]; ok && v != r.Type {
			continue
		}
		if v, ok := filter["value"]; ok && v != r.Value {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *memStore) all() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Record, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *memStore) row(id string) (types.Record, bool) {
	for _, r := range s.all() {
		if r.ID == id {
			return r, true
		}
	}
	return types.Record{}, false
}

// liveSettings is a Settings whose value can change between events.
type liveSettings struct {
	mu sync.Mutex
	s  types.CaptureSettings
}

func (l *liveSettings) CaptureSettings() types.CaptureSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}

func (l *liveSettings) set(s types.CaptureSettings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s = s
}

type fixedDetector string

func (d fixedDetector) DetectSubtype(context.Context, string) (string, error) {
	return string(d), nil
}

type identityResolver struct{ err error }

func (r identityResolver) Resolve(_ context.Context, v string) (string, error) {
	return v, r.err
}

// newTestClassifier returns a classifier whose clock starts one hour after
// t0 and advances a second per entry, with ids new-1, new-2, ...
func newTestClassifier(resolver classify.Resolver) *classify.Classifier {
	var seq atomic.Int64
	var tick atomic.Int64
	return classify.New(fixedDetector("url"), resolver,
		classify.WithClock(func() time.Time {
			return t0.Add(time.Hour + time.Duration(tick.Add(1))*time.Second)
		}),
		classify.WithIDGenerator(func() string {
			return fmt.Sprintf("new-%d", seq.Add(1))
		}),
	)
}

func newTestEngine(store Store, settings Settings, group string) *Engine {
	return NewEngine(newTestClassifier(identityResolver{}), store, settings, NewVisibleList(group), nil)
}

func textEvent(value string) types.ClipboardEvent {
	return types.ClipboardEvent{Text: &types.TextItem{Type: "text/plain", Value: value}}
}

// storedText is a persisted text/plain record created at t0+offset.
func storedText(id, value string, offset time.Duration) types.Record {
	return types.Record{
		ID:         id,
		Type:       "text/plain",
		Group:      types.GroupText,
		Value:      value,
		Search:     value,
		CreateTime: types.FormatTime(t0.Add(offset)),
	}
}

func mustEntry(rec types.Record) types.HistoryEntry {
	e, err := rec.Entry()
	if err != nil {
		panic(err)
	}
	return e
}

func ids(entries []types.HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
