package canbus

import (
	"fmt"
	"time"
)

// dropReportInterval is how often a run of dropped frames is summarised
const dropReportInterval = 5 * time.Second

// dropLog rate limits the logging of frames dropped because a receive queue
// is full. The first drop of a run is reported, then a count every
// dropReportInterval, then the total when frames get through again.
// It is not safe for concurrent use; callers own it from a single goroutine.
type dropLog struct {
	now func() time.Time

	dropping   bool
	pending    int
	total      int
	lastReport time.Time
}

func newDropLog() *dropLog {
	return &dropLog{now: time.Now}
}

// Dropped records one dropped frame and returns a line to log, or "" when
// nothing is due
func (d *dropLog) Dropped(f Frame) string {
	now := d.now()
	d.total++
	if !d.dropping {
		d.dropping = true
		d.lastReport = now
		return fmt.Sprintf("receive queue full, dropping frames (first %s)", f)
	}
	d.pending++
	if now.Sub(d.lastReport) < dropReportInterval {
		return ""
	}
	msg := fmt.Sprintf("receive queue still full, dropped %d frames in the last %v", d.pending, now.Sub(d.lastReport).Round(time.Second))
	d.pending = 0
	d.lastReport = now
	return msg
}

// Delivered records a queued frame and returns a line to log when it ends a
// run of drops
func (d *dropLog) Delivered() string {
	if !d.dropping {
		return ""
	}
	msg := fmt.Sprintf("receive queue recovered, dropped %d frames in total", d.total)
	d.dropping = false
	d.pending = 0
	d.total = 0
	return msg
}
