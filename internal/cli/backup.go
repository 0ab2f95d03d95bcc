package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the history to a JSONL file",
		Long: `Export writes every history entry, oldest first, as one JSON object per
line. The file is replaced atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				n, err := b.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				info, err := os.Stat(args[0])
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(out, map[string]any{"file": args[0], "entries": n, "bytes": info.Size()})
				}
				fmt.Fprintf(out, "exported %s entries (%s) to %s\n",
					humanize.Comma(int64(n)), humanize.Bytes(uint64(info.Size())), args[0])
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add entries from a JSONL export",
		Long: `Import adds the entries of an export whose ids are not in the history
yet. Existing entries are left unchanged and malformed lines are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				res, err := b.Import(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(out, res)
				}
				fmt.Fprintf(out, "imported %s, existing %s, skipped %s\n",
					humanize.Comma(int64(res.Imported)), humanize.Comma(int64(res.Existing)), humanize.Comma(int64(res.Skipped)))
				return nil
			})
		},
	}
}

func newOptimizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Compact the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(b *sqlite.Backend, out io.Writer) error {
				before, _ := fileSize(b.Path())
				if err := b.Optimize(cmd.Context()); err != nil {
					return err
				}
				after, _ := fileSize(b.Path())
				if a.jsonMode {
					return printJSON(out, map[string]int64{"before": before, "after": after})
				}
				fmt.Fprintf(out, "optimized %s: %s -> %s\n", b.Path(),
					humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after)))
				return nil
			})
		},
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
