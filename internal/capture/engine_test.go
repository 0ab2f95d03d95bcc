package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

var allSettings = []types.CaptureSettings{
	{},
	{AutoDeduplicate: true},
	{AutoSort: true},
	{AutoDeduplicate: true, AutoSort: true},
	{AutoDeduplicate: true, AutoSort: true, GuardDuplicates: true},
	{CopyPlain: true},
}

func TestHandleEmptyEventSkips(t *testing.T) {
	events := []types.ClipboardEvent{
		{},
		{Text: &types.TextItem{}},
		{Files: &types.FilesItem{Value: []string{}}, Image: &types.ImageItem{}},
		{HTML: &types.TextItem{}, RTF: &types.TextItem{}},
	}
	for _, s := range allSettings {
		for _, ev := range events {
			store := &memStore{}
			e := newTestEngine(store, StaticSettings(s), types.GroupAll)

			out, err := e.Handle(context.Background(), ev)
			require.NoError(t, err)
			assert.Equal(t, types.DecisionSkip, out.Decision)
			assert.Zero(t, store.inserts.Load()+store.updates.Load()+store.selects.Load(), "settings %+v", s)
			assert.Zero(t, e.List().Len())
		}
	}
}

func TestHandleFastPathSkipsLookup(t *testing.T) {
	store := &memStore{rows: []types.Record{storedText("a", "x", 0)}}
	e := newTestEngine(store, StaticSettings{}, types.GroupAll)

	for range 3 {
		out, err := e.Handle(context.Background(), textEvent("x"))
		require.NoError(t, err)
		assert.Equal(t, types.DecisionInsert, out.Decision)
	}

	assert.Zero(t, store.selects.Load())
	assert.EqualValues(t, 3, store.inserts.Load())
	assert.Len(t, store.all(), 4)
}

func TestHandleHelloScenario(t *testing.T) {
	store := &memStore{}
	e := newTestEngine(store, StaticSettings{}, types.GroupAll)

	out, err := e.Handle(context.Background(), types.ClipboardEvent{Text: &types.TextItem{Value: "hello"}})
	require.NoError(t, err)

	assert.Equal(t, types.DecisionInsert, out.Decision)
	assert.True(t, out.Visible)
	assert.Equal(t, types.GroupText, out.Entry.Group)
	assert.Equal(t, types.TypeText, out.Entry.Type)
	assert.Equal(t, "hello", out.Entry.Search)
	assert.Equal(t, "url", out.Entry.Subtype())

	rec, ok := store.row(out.Entry.ID)
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Value)
	assert.Equal(t, 0, rec.Favorite)
	assert.Equal(t, []string{out.Entry.ID}, ids(e.List().Items()))
}

func TestHandleDedupSortRefreshes(t *testing.T) {
	a := storedText("a", "x", 0)
	b := storedText("b", "y", time.Minute)
	store := &memStore{rows: []types.Record{a, b}}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)
	e.List().Unshift(mustEntry(a))
	e.List().Unshift(mustEntry(b))

	out, err := e.Handle(context.Background(), textEvent("x"))
	require.NoError(t, err)

	assert.Equal(t, types.DecisionUpdate, out.Decision)
	assert.Equal(t, "a", out.Entry.ID)
	assert.True(t, out.Entry.CreateTime.After(t0))
	assert.True(t, out.Visible)

	assert.Zero(t, store.inserts.Load())
	assert.EqualValues(t, 1, store.updates.Load())
	got, _ := store.row("a")
	assert.Equal(t, types.FormatTime(out.Entry.CreateTime), got.CreateTime)
	assert.Len(t, store.all(), 2)

	items := e.List().Items()
	assert.Equal(t, []string{"a", "b"}, ids(items))
	assert.Equal(t, out.Entry.CreateTime, items[0].CreateTime)
}

func TestHandleRefreshKeepsFavoriteAndNote(t *testing.T) {
	a := storedText("a", "x", 0)
	a.Favorite = 1
	a.Note = "keep"
	store := &memStore{rows: []types.Record{a}}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)

	out, err := e.Handle(context.Background(), textEvent("x"))
	require.NoError(t, err)

	assert.True(t, out.Entry.Favorite)
	assert.Equal(t, "keep", out.Entry.Note)
	got, _ := store.row("a")
	assert.Equal(t, 1, got.Favorite)
	assert.Equal(t, "keep", got.Note)
}

func TestHandleRefreshNeverMovesTimeBackwards(t *testing.T) {
	// Stored entry is ahead of the classifier clock.
	a := storedText("a", "x", 24*time.Hour)
	store := &memStore{rows: []types.Record{a}}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)

	out, err := e.Handle(context.Background(), textEvent("x"))
	require.NoError(t, err)

	want := t0.Add(24*time.Hour + time.Nanosecond)
	assert.Equal(t, want, out.Entry.CreateTime)
	got, _ := store.row("a")
	assert.Equal(t, types.FormatTime(want), got.CreateTime)
}

func TestHandleDedupWithoutSortFreezes(t *testing.T) {
	a := storedText("a", "x", 0)
	b := storedText("b", "y", time.Minute)
	store := &memStore{rows: []types.Record{a, b}}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true}, types.GroupAll)
	e.List().Unshift(mustEntry(a))
	e.List().Unshift(mustEntry(b))

	out, err := e.Handle(context.Background(), textEvent("x"))
	require.NoError(t, err)

	assert.Equal(t, types.DecisionNoOp, out.Decision)
	assert.False(t, out.Visible)
	assert.EqualValues(t, 1, store.selects.Load())
	assert.Zero(t, store.inserts.Load()+store.updates.Load())
	assert.Equal(t, []types.Record{a, b}, store.all())
	assert.Equal(t, []string{"b", "a"}, ids(e.List().Items()))
}

func TestHandleWithoutDedupInsertsDuplicateRow(t *testing.T) {
	for _, autoSort := range []bool{false, true} {
		store := &memStore{rows: []types.Record{storedText("a", "x", 0)}}
		e := newTestEngine(store, StaticSettings{AutoSort: autoSort}, types.GroupAll)

		out, err := e.Handle(context.Background(), textEvent("x"))
		require.NoError(t, err)

		assert.Equal(t, types.DecisionInsert, out.Decision, "autoSort=%v", autoSort)
		assert.NotEqual(t, "a", out.Entry.ID)
		rows := store.all()
		require.Len(t, rows, 2)
		assert.Equal(t, rows[0].Type, rows[1].Type)
		assert.Equal(t, rows[0].Value, rows[1].Value)
		assert.Zero(t, store.updates.Load())
	}
}

func TestHandleNoMatchInserts(t *testing.T) {
	store := &memStore{rows: []types.Record{storedText("a", "x", 0)}}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)

	out, err := e.Handle(context.Background(), textEvent("z"))
	require.NoError(t, err)

	assert.Equal(t, types.DecisionInsert, out.Decision)
	assert.EqualValues(t, 1, store.selects.Load())
	assert.Len(t, store.all(), 2)
}

func TestHandleVisibilityFilter(t *testing.T) {
	t.Run("insert outside filter only persists", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store, StaticSettings{}, types.GroupFiles)

		out, err := e.Handle(context.Background(), textEvent("x"))
		require.NoError(t, err)

		assert.Equal(t, types.DecisionInsert, out.Decision)
		assert.False(t, out.Visible)
		assert.Zero(t, e.List().Len())
		assert.Len(t, store.all(), 1)
	})

	t.Run("refresh outside filter only persists", func(t *testing.T) {
		store := &memStore{rows: []types.Record{storedText("a", "x", 0)}}
		e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupImage)

		out, err := e.Handle(context.Background(), textEvent("x"))
		require.NoError(t, err)

		assert.Equal(t, types.DecisionUpdate, out.Decision)
		assert.False(t, out.Visible)
		assert.Zero(t, e.List().Len())
		assert.EqualValues(t, 1, store.updates.Load())
	})

	t.Run("matching group is shown", func(t *testing.T) {
		store := &memStore{}
		e := newTestEngine(store, StaticSettings{}, types.GroupFiles)

		out, err := e.Handle(context.Background(), types.ClipboardEvent{
			Files: &types.FilesItem{Value: []string{"/tmp/a", "/tmp/b"}},
		})
		require.NoError(t, err)

		assert.True(t, out.Visible)
		files, ok := e.List().Items()[0].Files()
		require.True(t, ok)
		assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, files.Paths)
	})
}

func TestHandleReadsSettingsPerEvent(t *testing.T) {
	store := &memStore{}
	settings := &liveSettings{}
	e := newTestEngine(store, settings, types.GroupAll)
	ctx := context.Background()

	_, err := e.Handle(ctx, textEvent("x"))
	require.NoError(t, err)
	assert.Zero(t, store.selects.Load())

	settings.set(types.CaptureSettings{AutoDeduplicate: true})
	out, err := e.Handle(ctx, textEvent("x"))
	require.NoError(t, err)
	assert.Equal(t, types.DecisionNoOp, out.Decision)
	assert.EqualValues(t, 1, store.selects.Load())
	assert.Len(t, store.all(), 1)
}

func TestHandleStorageFailures(t *testing.T) {
	t.Run("insert failure keeps visible entry", func(t *testing.T) {
		store := &memStore{insertErr: errDisk}
		e := newTestEngine(store, StaticSettings{}, types.GroupAll)

		out, err := e.Handle(context.Background(), textEvent("x"))
		require.ErrorIs(t, err, types.ErrStorage)
		assert.ErrorIs(t, err, errDisk)
		assert.Equal(t, types.DecisionInsert, out.Decision)
		assert.Equal(t, []string{out.Entry.ID}, ids(e.List().Items()))
		assert.Empty(t, store.all())
	})

	t.Run("update failure keeps refreshed position", func(t *testing.T) {
		a := storedText("a", "x", 0)
		store := &memStore{rows: []types.Record{a, storedText("b", "y", time.Minute)}, updateErr: errDisk}
		e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)
		e.List().Unshift(mustEntry(a))
		e.List().Unshift(mustEntry(store.all()[1]))

		out, err := e.Handle(context.Background(), textEvent("x"))
		require.ErrorIs(t, err, types.ErrStorage)
		assert.Equal(t, types.DecisionUpdate, out.Decision)
		assert.Equal(t, []string{"a", "b"}, ids(e.List().Items()))
		got, _ := store.row("a")
		assert.Equal(t, a.CreateTime, got.CreateTime)
	})

	t.Run("lookup failure leaves everything untouched", func(t *testing.T) {
		store := &memStore{selectErr: errDisk}
		e := newTestEngine(store, StaticSettings{AutoDeduplicate: true}, types.GroupAll)

		_, err := e.Handle(context.Background(), textEvent("x"))
		require.ErrorIs(t, err, types.ErrStorage)
		assert.Zero(t, store.inserts.Load())
		assert.Zero(t, e.List().Len())
	})
}

func TestHandleClassificationFailure(t *testing.T) {
	store := &memStore{}
	e := NewEngine(newTestClassifier(identityResolver{err: errDisk}), store, StaticSettings{}, NewVisibleList(types.GroupAll), nil)

	_, err := e.Handle(context.Background(), types.ClipboardEvent{
		Files: &types.FilesItem{Value: []string{"~/a"}},
	})
	require.ErrorIs(t, err, types.ErrClassification)
	assert.Zero(t, store.inserts.Load()+store.selects.Load())
	assert.Zero(t, e.List().Len())
}

// barrier blocks each caller until n callers have arrived.
func barrier(n int) func() {
	var wg sync.WaitGroup
	wg.Add(n)
	return func() {
		wg.Done()
		wg.Wait()
	}
}

func TestHandleConcurrentDuplicatesWithoutGuard(t *testing.T) {
	store := &memStore{}
	store.afterSelect = barrier(2)
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true}, types.GroupAll)

	var wg sync.WaitGroup
	outs := make([]types.Outcome, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Handle(context.Background(), textEvent("x"))
			assert.NoError(t, err)
			outs[i] = out
		}()
	}
	wg.Wait()

	// Both lookups ran before either insert: the known race.
	assert.Equal(t, types.DecisionInsert, outs[0].Decision)
	assert.Equal(t, types.DecisionInsert, outs[1].Decision)
	assert.Len(t, store.all(), 2)
	assert.Equal(t, 2, e.List().Len())
}

func TestHandleConcurrentDuplicatesWithGuard(t *testing.T) {
	for _, autoSort := range []bool{false, true} {
		store := &memStore{}
		release := make(chan struct{})
		var once sync.Once
		store.beforeSelect = func() { once.Do(func() { <-release }) }
		e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: autoSort, GuardDuplicates: true}, types.GroupAll)

		const n = 8
		var wg sync.WaitGroup
		outs := make([]types.Outcome, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := e.Handle(context.Background(), textEvent("x"))
				assert.NoError(t, err)
				outs[i] = out
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		inserts := 0
		for _, out := range outs {
			if out.Decision == types.DecisionInsert {
				inserts++
			}
		}
		assert.Equal(t, 1, inserts, "autoSort=%v", autoSort)
		assert.Len(t, store.all(), 1)
		assert.Equal(t, 1, e.List().Len())
	}
}

func TestHandleGuardIgnoredWithoutDedup(t *testing.T) {
	store := &memStore{}
	store.afterSelect = barrier(2)
	e := newTestEngine(store, StaticSettings{AutoSort: true, GuardDuplicates: true}, types.GroupAll)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Handle(context.Background(), textEvent("x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Both lookups saw an empty store, and the guard did not collapse them.
	assert.Len(t, store.all(), 2)
	assert.Equal(t, 2, e.List().Len())
}
