package canbus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// TrafficLog records frames in the can-utils "candump -L" format:
//
//	(1697712345.123456) can0 100#A6000000
//
// so a bench session can be replayed with canplayer or inspected with
// other can-utils tools.
type TrafficLog struct {
	mu  sync.Mutex
	w   *bufio.Writer
	c   io.Closer
	now func() time.Time
}

// NewTrafficLog writes to w. If w is also an io.Closer it is closed by Close.
func NewTrafficLog(w io.Writer) *TrafficLog {
	t := &TrafficLog{w: bufio.NewWriter(w), now: time.Now}
	if c, ok := w.(io.Closer); ok {
		t.c = c
	}
	return t
}

// Record appends one frame seen on iface
func (t *TrafficLog) Record(iface string, f Frame) {
	ts := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "(%d.%06d) %s %s\n", ts.Unix(), ts.Nanosecond()/1000, iface, f.Candump())
}

// Flush writes buffered lines to the underlying writer
func (t *TrafficLog) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Flush()
}

// Close flushes and closes the underlying writer
func (t *TrafficLog) Close() error {
	err := t.Flush()
	if t.c != nil {
		if cerr := t.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewLoggedBus wraps inner so every successfully sent or received frame is
// recorded in the traffic log under the given interface name.
func NewLoggedBus(inner Bus, traffic *TrafficLog, iface string) Bus {
	return &loggedBus{inner: inner, traffic: traffic, iface: iface}
}

type loggedBus struct {
	inner   Bus
	traffic *TrafficLog
	iface   string
}

func (l *loggedBus) Send(ctx context.Context, frame Frame) error {
	err := l.inner.Send(ctx, frame)
	if err == nil {
		l.traffic.Record(l.iface, frame)
	}
	return err
}

func (l *loggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := l.inner.Receive(ctx)
	if err == nil {
		l.traffic.Record(l.iface, f)
	}
	return f, err
}

// Close forwards to the inner Bus; the traffic log is owned by the caller
func (l *loggedBus) Close() error {
	return l.inner.Close()
}
