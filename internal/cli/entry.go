package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/sqlite"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				e, err := b.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printEntry(out, e)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete history entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				for _, id := range args {
					if err := b.Delete(cmd.Context(), id); err != nil {
						return err
					}
					if !a.jsonMode {
						fmt.Fprintln(out, "deleted", id)
					}
				}
				if a.jsonMode {
					return printJSON(out, map[string]any{"deleted": args})
				}
				return nil
			})
		},
	}
}

func newFavoriteCmd(a *app) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Mark an entry as favorite",
		Long: `Favorite marks an entry as favorite, or clears the mark with --off.
Favorites can be listed with "scraps list --favorites".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			favorite := !off
			return a.patch(cmd, args[0], types.EntryPatch{Favorite: &favorite})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the favorite mark")
	return cmd
}

func newNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> [text...]",
		Short: "Attach a note to an entry",
		Long:  `Note sets the note of an entry. Without text the note is cleared.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args[1:], " ")
			return a.patch(cmd, args[0], types.EntryPatch{Note: &note})
		},
	}
}

// patch applies p to an existing entry and prints the result.
func (a *app) patch(cmd *cobra.Command, id string, p types.EntryPatch) error {
	return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
		ctx := cmd.Context()
		if _, err := b.Get(ctx, id); err != nil {
			return err
		}
		if err := b.UpdateByID(ctx, id, p); err != nil {
			return err
		}
		e, err := b.Get(ctx, id)
		if err != nil {
			return err
		}
		return a.printEntry(out, e)
	})
}

func (a *app) printEntry(out io.Writer, e types.HistoryEntry) error {
	if a.jsonMode {
		rec, err := types.ToRecord(e)
		if err != nil {
			return err
		}
		return printJSON(out, rec)
	}
	printEntry(out, e)
	return nil
}
