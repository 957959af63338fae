// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressPrinter draws one progress bar per data file, sized to the
// file's record count. Update is called from pipeline workers, so it is
// serialized here.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	bar  *progressbar.ProgressBar
	last int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// StartFile replaces the current bar with one for the next file of a run.
func (p *progressPrinter) StartFile(index, count int, path string, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = 0
	desc := fmt.Sprintf("[%d/%d] %s", index+1, count, filepath.Base(path))
	if records == 0 {
		p.bar = nil
		fmt.Fprintf(p.w, "%s: no records\n", desc)
		return
	}

	w := p.w
	p.bar = progressbar.NewOptions(records,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// Update moves the bar to done. Counts can arrive out of order; stale ones
// are dropped.
func (p *progressPrinter) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || done <= p.last {
		return
	}
	p.last = done
	_ = p.bar.Set(done)
}
