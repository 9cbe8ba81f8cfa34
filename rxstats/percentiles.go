package rxstats

import (
	"slices"
	"time"
)

// Reading is one inter-arrival interval observed at Timestamp
type Reading struct {
	Value     float64 // seconds
	Timestamp time.Time
}

// Readings is a collection of timestamped readings, oldest first
type Readings []Reading

// Prune drops readings older than the window, keeping at least the most recent
func (rs Readings) Prune(window time.Duration, now time.Time) Readings {
	if len(rs) == 0 {
		return rs
	}
	cutoff := now.Add(-window)
	i := 0
	for i < len(rs)-1 && !rs[i].Timestamp.After(cutoff) {
		i++
	}
	return rs[i:]
}

// Within returns the readings newer than window, possibly none
func (rs Readings) Within(window time.Duration, now time.Time) Readings {
	cutoff := now.Add(-window)
	i := 0
	for i < len(rs) && !rs[i].Timestamp.After(cutoff) {
		i++
	}
	return rs[i:]
}

// calculatePercentiles returns P1, P50 and P99 of the readings in a single
// pass over the sorted values
func calculatePercentiles(readings Readings) (p1, p50, p99 float64) {
	if len(readings) == 0 {
		return 0, 0, 0
	}
	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}
	slices.Sort(values)
	if len(values) == 1 {
		v := values[0]
		return v, v, v
	}

	total := float64(len(values))
	target1 := total * 0.01
	target50 := total * 0.50
	target99 := total * 0.99

	// Walk through sorted values once, capturing values as we cross thresholds
	var cumulative float64
	var found1, found50, found99 bool
	for _, v := range values {
		cumulative++

		if !found1 && cumulative >= target1 {
			p1 = v
			found1 = true
		}
		if !found50 && cumulative >= target50 {
			p50 = v
			found50 = true
		}
		if !found99 && cumulative >= target99 {
			p99 = v
			found99 = true
			break
		}
	}

	last := values[len(values)-1]
	if !found1 {
		p1 = last
	}
	if !found50 {
		p50 = last
	}
	if !found99 {
		p99 = last
	}
	return p1, p50, p99
}
