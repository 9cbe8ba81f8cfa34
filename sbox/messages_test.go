package sbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt24_RoundTrip(t *testing.T) {
	buf := make([]byte, 3)
	for _, v := range []int32{0, 1, -1, 350000, -200000, 8388607, -8388608} {
		PutInt24(buf, v)
		assert.Equal(t, v, Int24(buf), "value %d", v)
	}

	PutInt24(buf, 9_000_000)
	assert.Equal(t, int32(8388607), Int24(buf), "saturates high")
	PutInt24(buf, -9_000_000)
	assert.Equal(t, int32(-8388608), Int24(buf), "saturates low")

	PutInt24(buf, 2)
	assert.Equal(t, []byte{0x02, 0x00, 0x00}, buf)
	PutInt24(buf, -2)
	assert.Equal(t, []byte{0xFE, 0xFF, 0xFF}, buf)
}

func TestMessages_Layout(t *testing.T) {
	s, _ := newTestSBox()
	msgs := s.Messages()
	require.Len(t, msgs, 3)

	ids := []uint32{msgs[0].ID, msgs[1].ID, msgs[2].ID}
	assert.Equal(t, []uint32{IDCurrent, IDPackVoltage, IDPostContactorVoltage}, ids)
	for _, m := range msgs {
		assert.Equal(t, 100, m.Frequency)
		assert.Equal(t, uint8(8), m.Peek().Len)
	}
}

func TestMessages_EncodeMeasurements(t *testing.T) {
	s, _ := newTestSBox()
	require.NoError(t, s.SetCurrent(-12.345))
	s.HandleFrame(setupOK())
	s.HandleFrame(control(CmdClosed))

	msgs := s.Messages()

	current := msgs[0].Next()
	assert.Equal(t, int32(-12345), Int24(current.Data[:]))

	pack := msgs[1].Next()
	assert.Equal(t, int32(350000), Int24(pack.Data[:]))

	post := msgs[2].Next()
	assert.Equal(t, int32(350000), Int24(post.Data[:]))

	// Bytes outside the measurement and counter keep the template
	assert.Equal(t, []byte{0x80, 0x22}, current.Data[3:5])
	assert.Equal(t, byte(0x01), current.Data[5]&0x0F)
	assert.Equal(t, []byte{0xD9, 0x71}, current.Data[6:8])

	require.NoError(t, s.SetVoltage(0))
	assert.Equal(t, int32(0), Int24(msgs[2].Next().Payload()))
}

func TestMessages_AliveCounter(t *testing.T) {
	s, _ := newTestSBox()
	m := s.Messages()[1]

	var seen []byte
	for range 16 {
		seen = append(seen, m.Next().Data[5]>>4)
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0, 1}, seen)
}

func TestMessages_PostContactorFollowsContactors(t *testing.T) {
	s, _ := newTestSBox()
	post := s.Messages()[2]

	assert.Equal(t, int32(0), Int24(post.Next().Payload()))

	s.HandleFrame(setupOK())
	s.HandleFrame(control(CmdClosed))
	assert.Equal(t, int32(350000), Int24(post.Next().Payload()))

	s.HandleFrame(control(CmdOpen))
	assert.Equal(t, int32(0), Int24(post.Next().Payload()))
}
