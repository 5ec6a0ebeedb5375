package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"github.com/tendant/thumbcache/internal/batch"
)

// progressBar counts finished files. A nil *progressBar is a no-op.
type progressBar struct {
	bar    *progressbar.ProgressBar
	failed atomic.Int64
}

func newProgressBar(w io.Writer, total int) *progressBar {
	return &progressBar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("thumbnails"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(0),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		),
	}
}

// Observe is a batch.Options.OnProgress callback.
func (p *progressBar) Observe(r batch.Result) {
	if p == nil {
		return
	}
	if r.Err != nil {
		n := p.failed.Add(1)
		p.bar.Describe(fmt.Sprintf("thumbnails (%d failed)", n))
	}
	_ = p.bar.Add(1)
}

func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
