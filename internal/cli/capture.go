package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/scraps/internal/capture"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		files  []string
		image  string
		width  int
		height int
		html   string
		rtf    string
	)
	cmd := &cobra.Command{
		Use:   "capture [text...]",
		Short: "Record a single clipboard event",
		Long: `Capture records one clipboard event built from the arguments and flags,
applying the same classification and deduplication as watch.

Example:
  scraps capture "hello world"
  scraps capture --files /tmp/a.txt --files /tmp/b.txt
  scraps capture --image /tmp/shot.png --width 640 --height 480
  scraps capture --html "<b>hi</b>" hi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := types.ClipboardEvent{}
			if len(args) > 0 {
				ev.Text = &types.TextItem{Value: strings.Join(args, " ")}
			}
			if len(files) > 0 {
				ev.Files = &types.FilesItem{Value: files}
			}
			if image != "" {
				ev.Image = &types.ImageItem{Value: image, Width: width, Height: height}
			}
			if html != "" {
				ev.HTML = &types.TextItem{Value: html}
			}
			if rtf != "" {
				ev.RTF = &types.TextItem{Value: rtf}
			}
			if ev.Empty() {
				return errors.New("nothing to capture: pass text or one of --files, --image, --html, --rtf")
			}

			b, err := a.attach(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Detach()

			settings := capture.StaticSettings(a.settings.Capture.CaptureSettings)
			list := capture.NewVisibleList(a.settings.Capture.Filter)
			out, err := newEngine(b, settings, list, a.log).Handle(cmd.Context(), ev)
			if err != nil {
				return err
			}
			return a.printOutcome(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVar(&files, "files", nil, "copied file path (repeatable)")
	cmd.Flags().StringVar(&image, "image", "", "path of a copied image")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels")
	cmd.Flags().StringVar(&html, "html", "", "html payload")
	cmd.Flags().StringVar(&rtf, "rtf", "", "rtf payload")
	return cmd
}
