package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/capture"
	"github.com/mesh-intelligence/scraps/internal/classify"
	"github.com/mesh-intelligence/scraps/internal/config"
	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/internal/sqlite"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		file   string
		serial bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Record clipboard events read as JSON lines",
		Long: `Watch reads clipboard events, one JSON object per line, from stdin or
--file and records them until the input ends or the process is interrupted.

Each event may carry any of files, image, html, rtf and text:

  {"text":{"value":"hello"}}
  {"files":{"value":["/tmp/a.txt"]}}
  {"image":{"value":"/tmp/shot.png","width":640,"height":480}}

Capture settings in config.yaml are reloaded while watch runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open events: %w", err)
				}
				defer f.Close()
				in = f
			}
			return a.watch(cmd, in, serial)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read events from a file instead of stdin")
	cmd.Flags().BoolVar(&serial, "serial", false, "handle events one at a time in arrival order")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, in io.Reader, serial bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := a.attach(ctx)
	if err != nil {
		return err
	}
	defer b.Detach()

	live := config.NewLive(a.v, a.settings, a.log)
	list := capture.NewVisibleList(a.settings.Capture.Filter)
	if err := list.Reload(ctx, b, a.settings.Capture.Filter, a.settings.Capture.VisibleLimit); err != nil {
		return err
	}
	live.OnChange(func(prev, next config.Settings) {
		if prev.Capture.Filter == next.Capture.Filter && prev.Capture.VisibleLimit == next.Capture.VisibleLimit {
			return
		}
		if err := list.Reload(ctx, b, next.Capture.Filter, next.Capture.VisibleLimit); err != nil {
			a.log.Warn(ctx, "reloading visible list", "err", err)
		}
	})
	live.Watch(ctx)

	engine := newEngine(b, live, list, a.log)
	opts := []capture.ListenerOption{capture.WithOutcome(a.outcomePrinter(cmd.OutOrStdout()))}
	if serial {
		opts = append(opts, capture.WithSerial())
	}
	listener := capture.NewListener(capture.NewStreamSource(in, a.log), engine, a.log, opts...)

	a.log.Info(ctx, "watching clipboard events", "database", b.Path(), "filter", list.Group())
	return listener.Run(ctx)
}

// newEngine wires the default classifier to a store.
func newEngine(b *sqlite.Backend, settings capture.Settings, list *capture.VisibleList, log logging.Logger) *capture.Engine {
	classifier := classify.New(classify.NewTextDetector(), classify.NewPathResolver(), classify.WithLogger(log))
	return capture.NewEngine(classifier, b, settings, list, log)
}

// outcomePrinter reports each handled event on w. Skips and no-ops are
// silent.
func (a *app) outcomePrinter(w io.Writer) func(types.Outcome) {
	var mu sync.Mutex
	return func(out types.Outcome) {
		if out.Decision == types.DecisionSkip || out.Decision == types.DecisionNoOp {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err := a.printOutcome(w, out); err != nil {
			a.log.Warn(context.Background(), "writing outcome", "err", err)
		}
	}
}

// outcomeJSON is the --json rendering of an Outcome.
type outcomeJSON struct {
	Decision types.Decision `json:"decision"`
	Visible  bool           `json:"visible"`
	Entry    *types.Record  `json:"entry,omitempty"`
}

func (a *app) printOutcome(w io.Writer, out types.Outcome) error {
	if a.jsonMode {
		o := outcomeJSON{Decision: out.Decision, Visible: out.Visible}
		if out.Entry.ID != "" {
			rec, err := types.ToRecord(out.Entry)
			if err != nil {
				return err
			}
			o.Entry = &rec
		}
		data, err := jsonLine(o)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	if out.Entry.ID == "" {
		_, err := fmt.Fprintln(w, out.Decision)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", out.Decision, out.Entry.ID, truncate(preview(out.Entry), 60))
	return err
}
