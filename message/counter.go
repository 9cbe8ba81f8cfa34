package message

import "math/bits"

// NoSkip disables the skip value of a Counter
const NoSkip = -1

// Counter is a rolling alive counter held in the masked bits of one payload byte
type Counter struct {
	Index int  // byte offset in the payload
	Mask  byte // bits holding the counter
	Delta int  // step per update
	Skip  int  // value stepped over, or NoSkip

	shift int
}

// NewCounter returns a counter that counts down by one, the common case
func NewCounter(index int, mask byte) Counter {
	return NewCounterStep(index, mask, -1, NoSkip)
}

// NewCounterStep returns a counter with an explicit step and skip value
func NewCounterStep(index int, mask byte, delta, skip int) Counter {
	return Counter{
		Index: index,
		Mask:  mask,
		Delta: delta,
		Skip:  skip,
		shift: bits.TrailingZeros8(mask),
	}
}

// Get returns the counter value stored in data
func (c Counter) Get(data []byte) int {
	return int(data[c.Index]&c.Mask) >> c.shift
}

// Set stores v in the counter bits, leaving the rest of the byte untouched
func (c Counter) Set(data []byte, v int) {
	rest := data[c.Index] &^ c.Mask
	data[c.Index] = rest | (byte(v<<c.shift) & c.Mask)
}

// Update advances the counter by Delta, stepping twice if it lands on Skip
func (c Counter) Update(data []byte) {
	limit := int(c.Mask >> c.shift)
	v := (c.Get(data) + c.Delta) & limit
	if v == c.Skip {
		v = (v + c.Delta) & limit
	}
	c.Set(data, v)
}

// SumChecksum stores the low byte of the sum of all payload bytes except
// data[idx] into data[idx]
func SumChecksum(data []byte, idx int) {
	data[idx] = 0
	var sum byte
	for _, b := range data {
		sum += b
	}
	data[idx] = sum
}
