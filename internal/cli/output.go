package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/mesh-intelligence/scraps/pkg/types"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 120

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// terminalWidth returns the column count of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// oneLine collapses all whitespace runs to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-1]) + "…"
}

// preview renders the display value of e on one line.
func preview(e types.HistoryEntry) string {
	p := oneLine(e.Preview())
	if img, ok := e.Image(); ok && img.Width > 0 && img.Height > 0 {
		p = fmt.Sprintf("%s (%dx%d)", p, img.Width, img.Height)
	}
	return p
}

// kind is the TYPE column: the type, refined by subtype when present.
func kind(e types.HistoryEntry) string {
	if st := e.Subtype(); st != "" {
		return e.Type + "/" + st
	}
	return e.Type
}

// printEntries writes entries as a table sized to the terminal.
func printEntries(w io.Writer, entries []types.HistoryEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	// ID, TYPE, FAV and AGE columns take roughly this many cells.
	const fixed = 36 + 12 + 4 + 16 + 8
	width := max(terminalWidth(w)-fixed, 20)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tFAV\tAGE\tPREVIEW")
	for _, e := range entries {
		fav := ""
		if e.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, kind(e), fav, humanize.RelTime(e.CreateTime, now, "ago", "from now"), truncate(preview(e), width))
	}
	tw.Flush()
	fmt.Fprintf(w, "%s entries\n", humanize.Comma(int64(len(entries))))
}

// printEntry writes every field of e, one per line.
func printEntry(w io.Writer, e types.HistoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", e.ID)
	fmt.Fprintf(tw, "type:\t%s\n", e.Type)
	fmt.Fprintf(tw, "group:\t%s\n", e.Group)
	if st := e.Subtype(); st != "" {
		fmt.Fprintf(tw, "subtype:\t%s\n", st)
	}
	fmt.Fprintf(tw, "created:\t%s (%s)\n", e.CreateTime.Local().Format(time.DateTime), humanize.Time(e.CreateTime))
	fmt.Fprintf(tw, "favorite:\t%t\n", e.Favorite)
	if e.Note != "" {
		fmt.Fprintf(tw, "note:\t%s\n", e.Note)
	}
	switch c := e.Content.(type) {
	case types.FilesContent:
		for _, p := range c.Paths {
			fmt.Fprintf(tw, "file:\t%s\n", p)
		}
	case types.ImageContent:
		fmt.Fprintf(tw, "image:\t%s\n", c.Path)
		fmt.Fprintf(tw, "size:\t%dx%d\n", c.Width, c.Height)
	}
	tw.Flush()
	if c, ok := e.Text(); ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, c.Value)
	}
}

// records converts entries to their persisted form for JSON output.
func records(entries []types.HistoryEntry) ([]types.Record, error) {
	out := make([]types.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := types.ToRecord(e)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// jsonLine marshals v as a single newline-terminated JSON line.
func jsonLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	return append(data, '\n'), nil
}
