package rxstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingMinMax_Empty(t *testing.T) {
	r := NewRollingMinMax()
	assert.Equal(t, 0.0, r.Min())
	assert.Equal(t, 0.0, r.Max())
}

func TestRollingMinMax_SingleValue(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(100, 0)
	assert.Equal(t, 100.0, r.Min())
	assert.Equal(t, 100.0, r.Max())
}

func TestRollingMinMax_MultipleValuesSameSecond(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(100, 0)
	r.UpdateAt(50, 0)
	r.UpdateAt(150, 0)
	assert.Equal(t, 50.0, r.Min())
	assert.Equal(t, 150.0, r.Max())
}

func TestRollingMinMax_MultipleSeconds(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(100, 1000)
	r.UpdateAt(200, 1001)
	r.UpdateAt(50, 1002)
	assert.Equal(t, 50.0, r.Min())
	assert.Equal(t, 200.0, r.Max())
}

func TestRollingMinMax_MissedSecondsClearsOldData(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(10, 0)
	r.UpdateAt(500, 1)
	// Jump ahead so second 1 falls out of the window
	r.UpdateAt(20, 61)
	assert.Equal(t, 20.0, r.Min())
	assert.Equal(t, 20.0, r.Max())
}

func TestRollingMinMax_LongSilenceClearsEverything(t *testing.T) {
	r := NewRollingMinMax()
	for s := int64(0); s < 60; s++ {
		r.UpdateAt(float64(s), s)
	}
	assert.Equal(t, 0.0, r.Min())
	assert.Equal(t, 59.0, r.Max())

	r.UpdateAt(7, 59+61)
	assert.Equal(t, 7.0, r.Min())
	assert.Equal(t, 7.0, r.Max())
}

func TestRollingMinMax_WrapAround(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(100, 58)
	r.UpdateAt(200, 59)
	r.UpdateAt(300, 60)
	r.UpdateAt(50, 61)
	assert.Equal(t, 50.0, r.Min())
	assert.Equal(t, 300.0, r.Max())
}

func TestRollingMinMax_AdvanceExpiresOldBuckets(t *testing.T) {
	r := NewRollingMinMax()
	r.UpdateAt(5, 100)
	r.UpdateAt(7, 130)

	r.Advance(150)
	assert.Equal(t, 5.0, r.Min())
	assert.Equal(t, 7.0, r.Max())

	// Second 100 falls out, 130 is still inside the minute
	r.Advance(160)
	assert.Equal(t, 7.0, r.Min())

	r.Advance(500)
	assert.Equal(t, 0.0, r.Min())
	assert.Equal(t, 0.0, r.Max())

	// Updating in the second Advance moved to keeps working
	r.UpdateAt(3, 500)
	assert.Equal(t, 3.0, r.Min())
}
