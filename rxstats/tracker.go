// Package rxstats keeps receive-side statistics: the overall message rate and,
// per arbitration ID, how regularly the controller is sending each frame.
package rxstats

import (
	"slices"
	"sync"
	"time"

	"github.com/ryansname/sbox-sim/canbus"
)

// intervalWindow is how far back interval percentiles look
const intervalWindow = time.Minute

// IDStats summarises one arbitration ID
type IDStats struct {
	ID       uint32
	Count    uint64
	Last     canbus.Frame
	LastSeen time.Time

	// Inter-arrival interval over the last minute
	P1, P50, P99 time.Duration
	Min, Max     time.Duration
}

type idState struct {
	count     uint64
	last      canbus.Frame
	lastSeen  time.Time
	intervals Readings
	minMax    RollingMinMax
}

// Tracker accumulates statistics for received frames. Safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	ids map[uint32]*idState

	// messages per second, over the last complete second
	rate    int
	newMsgs int
	lastSec int64

	now func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[uint32]*idState), now: time.Now}
}

// Observe records a received frame
func (t *Tracker) Observe(f canbus.Frame) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.newMsgs++
	if sec := now.Unix(); sec != t.lastSec {
		t.rate = t.newMsgs
		t.newMsgs = 0
		t.lastSec = sec
	}

	st, ok := t.ids[f.ID]
	if !ok {
		st = &idState{minMax: NewRollingMinMax()}
		t.ids[f.ID] = st
	}
	if st.count > 0 {
		interval := now.Sub(st.lastSeen).Seconds()
		st.intervals = append(st.intervals, Reading{Value: interval, Timestamp: now}).Prune(intervalWindow, now)
		st.minMax.UpdateAt(interval, now.Unix())
	}
	st.count++
	st.last = f
	st.lastSeen = now
}

// Rate returns the number of messages received in the last complete second.
// It reads zero once the bus has been silent for more than a second.
func (t *Tracker) Rate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.now().Unix()-t.lastSec > 1 {
		return 0
	}
	return t.rate
}

// Lookup returns statistics for one ID
func (t *Tracker) Lookup(id uint32) (IDStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.ids[id]
	if !ok {
		return IDStats{}, false
	}
	return st.summary(id, t.now()), true
}

// Snapshot returns statistics for every ID seen, ordered by ID
func (t *Tracker) Snapshot() []IDStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := make([]IDStats, 0, len(t.ids))
	for id, st := range t.ids {
		out = append(out, st.summary(id, now))
	}
	slices.SortFunc(out, func(a, b IDStats) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// summary reports the last intervalWindow as of now, so an ID that stopped
// arriving drops back to zero instead of showing its final minute forever
func (st *idState) summary(id uint32, now time.Time) IDStats {
	st.minMax.Advance(now.Unix())
	p1, p50, p99 := calculatePercentiles(st.intervals.Within(intervalWindow, now))
	return IDStats{
		ID:       id,
		Count:    st.count,
		Last:     st.last,
		LastSeen: st.lastSeen,
		P1:       seconds(p1),
		P50:      seconds(p50),
		P99:      seconds(p99),
		Min:      seconds(st.minMax.Min()),
		Max:      seconds(st.minMax.Max()),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
