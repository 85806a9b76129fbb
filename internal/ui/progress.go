// Package ui renders download progress for the CLI, falling back to
// plain line output when stdout is not a terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DownloadProgress drives a single progress bar for one archive
// download, or prints periodic plain-text lines when not attached to
// a terminal.
type DownloadProgress struct {
	w        io.Writer
	isTTY    bool
	progress *mpb.Progress
	bar      *mpb.Bar
	label    string
	lastPct  int
}

// NewDownloadProgress creates a progress reporter for a single
// download labeled with the version being fetched.
func NewDownloadProgress(w io.Writer, label string) *DownloadProgress {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	dp := &DownloadProgress{w: w, isTTY: isTTY, label: label, lastPct: -1}
	if isTTY {
		dp.progress = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
		dp.bar = dp.progress.AddBar(0,
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("  downloading %s ", label), decor.WC{W: 30, C: decor.DindentRight}),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f"),
				decor.OnComplete(decor.Name(""), " done"),
			),
		)
	}
	return dp
}

// Callback reports bytes written so far against the total, suitable
// for download.WithCallback.
func (dp *DownloadProgress) Callback(written, total int64) {
	if dp.isTTY {
		if total > 0 {
			dp.bar.SetTotal(total, false)
		}
		dp.bar.SetCurrent(written)
		return
	}

	if total <= 0 {
		return
	}
	pct := int(written * 100 / total)
	if pct >= dp.lastPct+10 || pct == 100 {
		dp.lastPct = pct
		fmt.Fprintf(dp.w, "  downloading %s: %d%%\n", dp.label, pct)
	}
}

// Wait blocks until the terminal progress bar finishes rendering. A
// no-op when not attached to a terminal.
func (dp *DownloadProgress) Wait() {
	if dp.progress != nil {
		dp.bar.SetTotal(dp.bar.Current(), true)
		dp.progress.Wait()
	}
}
