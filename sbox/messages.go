package sbox

import (
	"math"

	"github.com/ryansname/sbox-sim/message"
)

// Frames sent by the SBox
const (
	IDCurrent              uint32 = 0x200
	IDPackVoltage          uint32 = 0x210
	IDPostContactorVoltage uint32 = 0x220
)

const (
	txFrequency = 100 // Hz
	aliveByte   = 5
	aliveMask   = 0xF0
	aliveSkip   = 0xF
)

// Messages returns the periodic frames transmitted by the SBox. Each frame
// carries a signed 24-bit little-endian measurement in bytes 0-2 (mA or mV)
// and an alive counter in the upper nibble of byte 5 counting 0..E.
func (s *SBox) Messages() []*message.Periodic {
	return []*message.Periodic{
		measurement(IDCurrent, "Current", "020000802201D971", s.Current),
		measurement(IDPackVoltage, "PackVoltage", "F60900800004C8A7", s.Voltage),
		measurement(IDPostContactorVoltage, "PostContactorVoltage", "230000800101C6F0", s.OutputVoltage),
	}
}

func measurement(id uint32, name, template string, value func() float64) *message.Periodic {
	alive := message.NewCounterStep(aliveByte, aliveMask, 1, aliveSkip)
	return message.MustNew(id, name, message.MustHex(template), txFrequency, func(data []byte) {
		alive.Update(data)
		PutInt24(data, milli(value()))
	})
}

// milli converts a base-unit value to a rounded milli-unit integer
func milli(v float64) int32 {
	return int32(math.Round(v * 1000))
}

// PutInt24 stores v as a signed 24-bit little-endian integer in data[0:3],
// saturating at the 24-bit range
func PutInt24(data []byte, v int32) {
	const lo, hi = -(1 << 23), (1 << 23) - 1
	v = max(lo, min(hi, v))
	u := uint32(v)
	data[0] = byte(u)
	data[1] = byte(u >> 8)
	data[2] = byte(u >> 16)
}

// Int24 decodes a signed 24-bit little-endian integer from data[0:3]
func Int24(data []byte) int32 {
	u := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	return int32(u<<8) >> 8
}
