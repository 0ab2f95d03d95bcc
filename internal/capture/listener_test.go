package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

type failingSource struct{}

func (failingSource) Events(context.Context) (<-chan types.ClipboardEvent, error) {
	return nil, errors.New("no display")
}

type sliceSource []types.ClipboardEvent

func (s sliceSource) Events(context.Context) (<-chan types.ClipboardEvent, error) {
	ch := make(chan types.ClipboardEvent, len(s))
	for _, ev := range s {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// handlerFunc adapts a function to Handler.
type handlerFunc func(ctx context.Context, ev types.ClipboardEvent) (types.Outcome, error)

func (f handlerFunc) Handle(ctx context.Context, ev types.ClipboardEvent) (types.Outcome, error) {
	return f(ctx, ev)
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestListenerUnavailable(t *testing.T) {
	var buf syncBuffer
	l := NewListener(failingSource{}, handlerFunc(nil), logging.NewText(&buf, slog.LevelDebug))

	err := l.Run(context.Background())
	require.ErrorIs(t, err, types.ErrListenerUnavailable)
	assert.Contains(t, buf.String(), "capture disabled")
}

func TestListenerContainsFailures(t *testing.T) {
	events := sliceSource{
		textEvent("panic"),
		textEvent("fail"),
		textEvent("ok-1"),
		textEvent("ok-2"),
	}
	h := handlerFunc(func(_ context.Context, ev types.ClipboardEvent) (types.Outcome, error) {
		switch ev.Text.Value {
		case "panic":
			panic("handler bug")
		case "fail":
			return types.Outcome{Decision: types.DecisionInsert}, errors.Join(types.ErrStorage, errDisk)
		}
		return types.Outcome{Decision: types.DecisionInsert, Entry: types.HistoryEntry{ID: ev.Text.Value}}, nil
	})

	for _, serial := range []bool{false, true} {
		var buf syncBuffer
		var mu sync.Mutex
		var seen []string
		opts := []ListenerOption{WithOutcome(func(out types.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, out.Entry.ID)
		})}
		if serial {
			opts = append(opts, WithSerial())
		}
		l := NewListener(events, h, logging.NewText(&buf, slog.LevelDebug), opts...)

		require.NoError(t, l.Run(context.Background()))

		assert.ElementsMatch(t, []string{"ok-1", "ok-2"}, seen, "serial=%v", serial)
		logs := buf.String()
		assert.Contains(t, logs, "event handler panicked")
		assert.Contains(t, logs, "handler bug")
		assert.Contains(t, logs, "event dropped")
		assert.Contains(t, logs, errDisk.Error())
	}
}

func TestListenerSerialKeepsOrder(t *testing.T) {
	var got []string
	h := handlerFunc(func(_ context.Context, ev types.ClipboardEvent) (types.Outcome, error) {
		got = append(got, ev.Text.Value)
		return types.Outcome{}, nil
	})
	l := NewListener(sliceSource{textEvent("a"), textEvent("b"), textEvent("c")}, h, nil, WithSerial())

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestListenerWithEngine(t *testing.T) {
	store := &memStore{}
	e := newTestEngine(store, StaticSettings{AutoDeduplicate: true, AutoSort: true}, types.GroupAll)
	input := strings.Join([]string{
		`{"text":{"value":"x"}}`,
		`not json`,
		`{}`,
		`{"text":{"value":"y"}}`,
		`{"text":{"value":"x"}}`,
	}, "\n")
	src := NewStreamSource(strings.NewReader(input), nil)
	l := NewListener(src, e, nil, WithSerial())

	require.NoError(t, l.Run(context.Background()))

	rows := store.all()
	require.Len(t, rows, 2)
	items := e.List().Items()
	require.Len(t, items, 2)
	first, _ := items[0].Text()
	second, _ := items[1].Text()
	assert.Equal(t, "x", first.Value)
	assert.Equal(t, "y", second.Value)
}

func TestListenerStopsOnCancel(t *testing.T) {
	ch := make(chan types.ClipboardEvent)
	src := chanSource(ch)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	l := NewListener(src, handlerFunc(func(context.Context, types.ClipboardEvent) (types.Outcome, error) {
		return types.Outcome{}, nil
	}), nil)

	go func() { done <- l.Run(ctx) }()
	ch <- textEvent("a")
	cancel()

	assert.NoError(t, <-done)
}

type chanSource chan types.ClipboardEvent

func (c chanSource) Events(context.Context) (<-chan types.ClipboardEvent, error) {
	return c, nil
}
