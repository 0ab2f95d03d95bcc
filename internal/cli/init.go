package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/paths"
	"github.com/mesh-intelligence/scraps/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and history database",
		Long: `Init writes a default config.yaml when none exists and creates the
history database, applying any pending schema migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				if a.jsonMode {
					return printJSON(out, map[string]string{
						"config":   paths.ConfigFile(a.configDir),
						"database": b.Path(),
					})
				}
				fmt.Fprintln(out, "config:  ", paths.ConfigFile(a.configDir))
				fmt.Fprintln(out, "database:", b.Path())
				return nil
			})
		},
	}
}
