package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/sqlite"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var q types.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history entries, most recent first",
		Long: `List shows history entries newest first.

--group defaults to capture.filter and --limit to capture.visible_limit
from config.yaml. --search matches the entry text and its note.

Example:
  scraps list
  scraps list --group files
  scraps list --favorites --search invoice
  scraps list --limit 20 --offset 20 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("group") {
				q.Group = a.settings.Capture.Filter
			}
			if !cmd.Flags().Changed("limit") {
				q.Limit = a.settings.Capture.VisibleLimit
			}
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				entries, err := b.Fetch(cmd.Context(), q)
				if err != nil {
					return err
				}
				if a.jsonMode {
					recs, err := records(entries)
					if err != nil {
						return err
					}
					return printJSON(out, recs)
				}
				printEntries(out, entries, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&q.Group, "group", "g", types.GroupAll, "group filter: all, text, files or image")
	cmd.Flags().BoolVar(&q.Favorite, "favorites", false, "only favorite entries")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "substring to match in text or note")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "maximum number of entries (0 = no limit)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "entries to skip")
	return cmd
}
