// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package main

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressBar wraps the terminal progress display. When stderr is not a TTY
// (piped output, CI, cron) the bar stays nil and every method is a no-op;
// structured logs remain the record of progress.
type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(description string) *progressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return &progressBar{}
	}
	return &progressBar{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
		),
	}
}

// update is the collector-shaped progress callback.
func (p *progressBar) update(done, total int) {
	p.update64(int64(done), int64(total))
}

// update64 is the enricher-shaped progress callback.
func (p *progressBar) update64(done, total int64) {
	if p.bar == nil {
		return
	}
	if p.bar.GetMax64() != total && total > 0 {
		p.bar.ChangeMax64(total)
	}
	_ = p.bar.Set64(done)
}

func (p *progressBar) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
