// Package cli implements the scraps command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/scraps/internal/config"
	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/internal/paths"
	"github.com/mesh-intelligence/scraps/internal/sqlite"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// app holds global flag values and the state loaded before a subcommand runs.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool

	v        *viper.Viper
	settings config.Settings
	log      logging.Logger
}

// NewRootCmd creates the top-level "scraps" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: logging.Discard()}
	root := &cobra.Command{
		Use:   "scraps",
		Short: "A clipboard history manager",
		Long: `Scraps records clipboard changes into a searchable history.

Events are read as JSON lines by "scraps watch" (pipe a clipboard watcher
into it) or added one at a time with "scraps capture".`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newWatchCmd(a),
		newCaptureCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newFavoriteCmd(a),
		newNoteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newOptimizeCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps storage and environment failures to exitSysError and
// everything else to exitUserError.
func exitCode(err error) int {
	for _, sys := range []error{types.ErrStorage, types.ErrBackendDetached, types.ErrListenerUnavailable} {
		if errors.Is(err, sys) {
			return exitSysError
		}
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return exitSysError
	}
	return exitUserError
}

// load resolves the config directory, reads config.yaml and sets up logging.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = logging.NewText(cmd.ErrOrStderr(), level)

	if cmd.Name() == "version" {
		return nil
	}
	dir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, settings, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.configDir = dir
	a.v = v
	a.settings = settings
	return nil
}

// attach resolves the data directory and attaches a SQLite backend. The
// caller must Detach it.
func (a *app) attach(ctx context.Context) (*sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	b := sqlite.NewBackend()
	cfg := types.Config{Backend: a.settings.Backend, DataDir: dataDir}
	if err := b.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return b, nil
}

// withBackend attaches, runs fn and detaches.
func (a *app) withBackend(cmd *cobra.Command, fn func(b *sqlite.Backend, out io.Writer) error) error {
	b, err := a.attach(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Detach()
	return fn(b, cmd.OutOrStdout())
}
