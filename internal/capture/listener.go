package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Source delivers clipboard events. Events registers the consumer and
// returns a channel that is closed when the source is exhausted or ctx is
// done.
type Source interface {
	Events(ctx context.Context) (<-chan types.ClipboardEvent, error)
}

// Handler processes one clipboard event.
type Handler interface {
	Handle(ctx context.Context, ev types.ClipboardEvent) (types.Outcome, error)
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithOutcome registers fn to observe every successfully handled event.
func WithOutcome(fn func(types.Outcome)) ListenerOption {
	return func(l *Listener) { l.onOutcome = fn }
}

// WithSerial handles events one at a time in arrival order instead of one
// goroutine per event.
func WithSerial() ListenerOption {
	return func(l *Listener) { l.serial = true }
}

// Listener feeds events from a Source to a Handler. Every failure while
// handling an event, panics included, is logged and contained to that event.
type Listener struct {
	source    Source
	handler   Handler
	log       logging.Logger
	onOutcome func(types.Outcome)
	serial    bool

	wg sync.WaitGroup
}

// NewListener returns a Listener. A nil logger discards reports.
func NewListener(source Source, handler Handler, log logging.Logger, opts ...ListenerOption) *Listener {
	if log == nil {
		log = logging.Discard()
	}
	l := &Listener{source: source, handler: handler, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run registers with the source and dispatches events until the source
// closes or ctx is done, then waits for in-flight handlers. A registration
// failure returns an error wrapping ErrListenerUnavailable; capture is then
// disabled but nothing else is affected.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.source.Events(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", types.ErrListenerUnavailable, err)
		l.log.Error(ctx, "capture disabled", "err", err)
		return err
	}
	defer l.wg.Wait()

	// Handlers started before ctx ends run to completion.
	hctx := context.WithoutCancel(ctx)
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			seq++
			if l.serial {
				l.dispatch(hctx, seq, ev)
				continue
			}
			l.wg.Add(1)
			go func(seq int, ev types.ClipboardEvent) {
				defer l.wg.Done()
				l.dispatch(hctx, seq, ev)
			}(seq, ev)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, seq int, ev types.ClipboardEvent) {
	log := l.log.With("event", seq)
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "event handler panicked", "panic", fmt.Sprint(r))
		}
	}()

	out, err := l.handler.Handle(ctx, ev)
	if err != nil {
		log.Error(ctx, "event dropped",
			"decision", string(out.Decision),
			"id", out.Entry.ID,
			"visible", out.Visible,
			"err", err,
		)
		return
	}
	if l.onOutcome != nil {
		l.onOutcome(out)
	}
}
