package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// maxEventLine bounds a single JSONL event line.
const maxEventLine = 16 * 1024 * 1024

var errSourceStarted = errors.New("event source already started")

// StreamSource reads newline-delimited JSON clipboard events from a reader,
// such as stdin piped from an external clipboard watcher. Blank and
// malformed lines are dropped and logged. It can be started once.
type StreamSource struct {
	r   io.Reader
	log logging.Logger

	mu      sync.Mutex
	started bool
}

// NewStreamSource returns a source over r. A nil logger discards reports.
func NewStreamSource(r io.Reader, log logging.Logger) *StreamSource {
	if log == nil {
		log = logging.Discard()
	}
	return &StreamSource{r: r, log: log}
}

// Events starts decoding and returns the event channel.
func (s *StreamSource) Events(ctx context.Context) (<-chan types.ClipboardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, errSourceStarted
	}
	if s.r == nil {
		return nil, errors.New("event source has no reader")
	}
	s.started = true

	ch := make(chan types.ClipboardEvent)
	go s.read(ctx, ch)
	return ch, nil
}

func (s *StreamSource) read(ctx context.Context, ch chan<- types.ClipboardEvent) {
	defer close(ch)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var ev types.ClipboardEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn(ctx, "dropping malformed event", "line", line, "err", err)
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Error(ctx, "reading events", "line", line, "err", err)
	}
}
