package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_CountsUpSkippingF(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0x01, 0, 0}
	c := NewCounterStep(5, 0xF0, 1, 0xF)

	var seen []int
	for range 16 {
		c.Update(data)
		seen = append(seen, c.Get(data))
		// Lower nibble is never disturbed
		assert.Equal(t, byte(0x01), data[5]&0x0F)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0, 1}, seen)
}

func TestCounter_CountsDownSkippingF(t *testing.T) {
	data := []byte{0x20, 0x80, 0x10, 0xFF, 0x00, 0xFF, 0x00, 0x00}
	c := NewCounterStep(6, 0xF0, -1, 0xF)

	c.Update(data)
	assert.Equal(t, 0xE, c.Get(data), "0 - 1 lands on F, which is skipped")
	c.Update(data)
	assert.Equal(t, 0xD, c.Get(data))
}

func TestCounter_TwoBitFieldWithoutSkip(t *testing.T) {
	data := []byte{0x00, 0x3F}
	c := NewCounter(1, 0xC0)

	var seen []int
	for range 5 {
		c.Update(data)
		seen = append(seen, c.Get(data))
		assert.Equal(t, byte(0x3F), data[1]&0x3F)
	}
	assert.Equal(t, []int{3, 2, 1, 0, 3}, seen)
}

func TestCounter_LowNibble(t *testing.T) {
	data := []byte{0xA0}
	c := NewCounterStep(0, 0x0F, -1, 0xE)

	c.Set(data, 0)
	c.Update(data)
	assert.Equal(t, 0xF, c.Get(data))
	c.Update(data)
	assert.Equal(t, 0xD, c.Get(data), "E is skipped")
	assert.Equal(t, byte(0xA0), data[0]&0xF0)
}

func TestSumChecksum(t *testing.T) {
	data := []byte{0x20, 0x80, 0x10, 0xFF, 0x00, 0xFF, 0x00, 0x99}
	SumChecksum(data, 7)
	assert.Equal(t, byte((0x20+0x80+0x10+0xFF+0xFF)&0xFF), data[7])

	// Checksum byte in the middle of the payload includes the bytes after it
	data = []byte{0x0A, 0x0D, 0x00, 0x00, 0x00, 0x55, 0x0A, 0x00}
	SumChecksum(data, 5)
	assert.Equal(t, byte(0x0A+0x0D+0x0A), data[5])
}
