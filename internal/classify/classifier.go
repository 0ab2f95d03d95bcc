// Package classify turns raw clipboard events into history entries.
//
// Classification picks exactly one payload from the event in priority order
// (files, html, rtf, text, image) and builds the matching content variant.
// Plain text is refined with a subtype from a Detector; file and image paths
// are normalized by a Resolver.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Detector refines plain text into a subtype label such as "url".
type Detector interface {
	DetectSubtype(ctx context.Context, text string) (string, error)
}

// Resolver normalizes a raw file or image value into its canonical form.
type Resolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// Classifier builds history entries from clipboard events.
type Classifier struct {
	detector Detector
	resolver Resolver
	log      logging.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger that receives subtype detection failures.
func WithLogger(l logging.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Classifier) { c.newID = gen }
}

// New returns a Classifier. A nil detector or resolver falls back to
// TextDetector and PathResolver.
func New(detector Detector, resolver Resolver, opts ...Option) *Classifier {
	if detector == nil {
		detector = NewTextDetector()
	}
	if resolver == nil {
		resolver = NewPathResolver()
	}
	c := &Classifier{
		detector: detector,
		resolver: resolver,
		log:      logging.Discard(),
		now:      time.Now,
		newID:    generateUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateUUID generates a new UUID v7 for entry IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// Classify builds an entry from ev. It returns ok=false, with no error, when
// every payload field is absent or empty. copyPlain disables the html and rtf
// branches. Failures wrap types.ErrClassification.
func (c *Classifier) Classify(ctx context.Context, ev types.ClipboardEvent, copyPlain bool) (entry types.HistoryEntry, ok bool, err error) {
	if ev.Empty() {
		return types.HistoryEntry{}, false, nil
	}

	base := types.HistoryEntry{
		ID:         c.newID(),
		CreateTime: c.now().UTC(),
		Favorite:   false,
	}
	if ev.HasText() {
		base.Search = ev.Text.Value
	}

	switch {
	case ev.HasFiles():
		paths, err := c.resolveAll(ctx, ev.Files.Value)
		if err != nil {
			return types.HistoryEntry{}, false, err
		}
		entry = fromFiles(base, ev.Files, paths)
	case ev.HasHTML() && !copyPlain:
		entry = fromMarkup(base, ev.HTML, types.TypeHTML)
	case ev.HasRTF() && !copyPlain:
		entry = fromMarkup(base, ev.RTF, types.TypeRTF)
	case ev.HasText():
		entry = fromText(base, ev.Text, c.subtype(ctx, ev.Text.Value))
	case ev.HasImage():
		path, err := c.resolver.Resolve(ctx, ev.Image.Value)
		if err != nil {
			return types.HistoryEntry{}, false, fmt.Errorf("%w: resolving image %q: %w", types.ErrClassification, ev.Image.Value, err)
		}
		entry = fromImage(base, ev.Image, path)
	default:
		// Only html or rtf with copyPlain on and no text to fall back to.
		return types.HistoryEntry{}, false, nil
	}
	return entry, true, nil
}

func (c *Classifier) resolveAll(ctx context.Context, raw []string) ([]string, error) {
	paths := make([]string, 0, len(raw))
	for _, p := range raw {
		resolved, err := c.resolver.Resolve(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving file %q: %w", types.ErrClassification, p, err)
		}
		paths = append(paths, resolved)
	}
	return paths, nil
}

// subtype asks the detector for a label; detection failures mean no subtype.
func (c *Classifier) subtype(ctx context.Context, text string) string {
	label, err := c.detector.DetectSubtype(ctx, text)
	if err != nil {
		c.log.Warn(ctx, "subtype detection failed", "err", fmt.Errorf("%w: %w", types.ErrSubtypeDetection, err))
		return ""
	}
	return label
}

func typeOr(t, fallback string) string {
	if t == "" {
		return fallback
	}
	return t
}

func fromFiles(base types.HistoryEntry, item *types.FilesItem, paths []string) types.HistoryEntry {
	base.Type = typeOr(item.Type, types.TypeFiles)
	base.Group = types.GroupFiles
	base.Content = types.FilesContent{Paths: paths}
	base.Search = strings.Join(paths, " ")
	base.Count = item.Count
	return base
}

func fromMarkup(base types.HistoryEntry, item *types.TextItem, kind string) types.HistoryEntry {
	base.Type = typeOr(item.Type, kind)
	base.Group = types.GroupText
	base.Content = types.TextContent{Value: item.Value}
	base.Count = item.Count
	return base
}

func fromText(base types.HistoryEntry, item *types.TextItem, subtype string) types.HistoryEntry {
	base.Type = typeOr(item.Type, types.TypeText)
	base.Group = types.GroupText
	base.Content = types.TextContent{Value: item.Value, Subtype: subtype}
	base.Search = item.Value
	base.Count = item.Count
	return base
}

func fromImage(base types.HistoryEntry, item *types.ImageItem, path string) types.HistoryEntry {
	base.Type = typeOr(item.Type, types.TypeImage)
	base.Group = types.GroupImage
	base.Content = types.ImageContent{Path: path, Width: item.Width, Height: item.Height}
	base.Count = item.Count
	return base
}
