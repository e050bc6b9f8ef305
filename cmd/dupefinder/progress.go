package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// scanProgress shows a byte-counting spinner while engine output streams.
// A nil *scanProgress is a valid no-op.
type scanProgress struct {
	bar *progressbar.ProgressBar
}

func newScanProgress(w io.Writer, enabled bool) *scanProgress {
	if !enabled {
		return nil
	}
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &scanProgress{bar: bar}
}

func (p *scanProgress) add(chunk string) {
	if p == nil {
		return
	}
	_ = p.bar.Add64(int64(len(chunk)))
}

func (p *scanProgress) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
