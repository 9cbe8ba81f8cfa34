package rxstats

import "math"

// minMaxBucket holds min/max values for a single second
type minMaxBucket struct {
	min, max float64
}

// RollingMinMax tracks min/max values over a rolling 1-minute window using 60 1-second buckets
type RollingMinMax struct {
	buckets       [60]minMaxBucket
	currentSecond int64 // -1 = uninitialized
}

// NewRollingMinMax creates a new RollingMinMax with all buckets initialized to sentinel values
func NewRollingMinMax() RollingMinMax {
	r := RollingMinMax{currentSecond: -1}
	for i := range r.buckets {
		r.buckets[i] = emptyBucket()
	}
	return r
}

func emptyBucket() minMaxBucket {
	return minMaxBucket{min: math.MaxFloat64, max: -math.MaxFloat64}
}

// UpdateAt records a value at the given unix second
func (r *RollingMinMax) UpdateAt(value float64, second int64) {
	if r.currentSecond >= 0 && second != r.currentSecond {
		// Clear every bucket skipped since the last update, at most the whole ring
		gap := min(second-r.currentSecond, int64(len(r.buckets))+1)
		for i := int64(1); i < gap; i++ {
			r.buckets[(r.currentSecond+i)%60] = emptyBucket()
		}
	}

	idx := second % 60
	if second != r.currentSecond {
		// First value for this second - init directly
		r.buckets[idx] = minMaxBucket{min: value, max: value}
		r.currentSecond = second
		return
	}

	b := &r.buckets[idx]
	b.min = min(b.min, value)
	b.max = max(b.max, value)
}

// Advance moves the window forward to second without recording a value, so
// buckets that have aged out stop counting
func (r *RollingMinMax) Advance(second int64) {
	if r.currentSecond < 0 || second <= r.currentSecond {
		return
	}
	gap := min(second-r.currentSecond, int64(len(r.buckets)))
	for i := int64(1); i <= gap; i++ {
		r.buckets[(r.currentSecond+i)%60] = emptyBucket()
	}
	r.currentSecond = second
}

// Min returns the minimum value across all buckets, or 0 if no data
func (r *RollingMinMax) Min() float64 {
	result := math.MaxFloat64
	for _, b := range r.buckets {
		result = min(result, b.min)
	}
	if result == math.MaxFloat64 {
		return 0
	}
	return result
}

// Max returns the maximum value across all buckets, or 0 if no data
func (r *RollingMinMax) Max() float64 {
	result := -math.MaxFloat64
	for _, b := range r.buckets {
		result = max(result, b.max)
	}
	if result == -math.MaxFloat64 {
		return 0
	}
	return result
}
