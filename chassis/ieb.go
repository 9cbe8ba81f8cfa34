// Package chassis holds optional message groups for other modules of the donor
// car that a controller under test may expect to see on the bus: the
// integrated electronic brake (IEB) and the airbag controller (SRS).
package chassis

import (
	"sync/atomic"

	"github.com/ryansname/sbox-sim/message"
)

// Brake is the simulated brake pedal input
type Brake struct {
	pressed atomic.Bool
}

// SetBraking presses or releases the pedal
func (b *Brake) SetBraking(v bool) {
	b.pressed.Store(v)
}

// Braking reports whether the pedal is pressed
func (b *Brake) Braking() bool {
	return b.pressed.Load()
}

// IEBMessages returns the brake/ABS/TCS module frames
func IEBMessages(brake *Brake) []*message.Periodic {
	return []*message.Periodic{
		ieb153(),
		ieb2A2(brake),
		ieb331(brake),
		ieb386(),
		ieb387(),
		message.MustNew(0x507, "IEB TCS lamps", message.MustHex("00000001"), 10, nil),
	}
}

// ieb153 is the TCS status frame: alive counter in the upper nibble of byte 6,
// sum checksum in byte 7
func ieb153() *message.Periodic {
	alive := message.NewCounterStep(6, 0xF0, -1, 0xF)
	return message.MustNew(0x153, "IEB TCS", message.MustHex("208010FF00FF0000"), 100, func(data []byte) {
		alive.Update(data)
		message.SumChecksum(data, 7)
	})
}

// ieb2A2 carries brake pedal force in bytes 3-4 and a heartbeat bit in byte 0
func ieb2A2(brake *Brake) *message.Periodic {
	return message.MustNew(0x2A2, "IEB brake pedal", message.MustHex("0500001C1000005E"), 100, func(data []byte) {
		data[0] ^= 0x01
		if brake.Braking() {
			data[3] = 0x1C
			data[4] = 0x10
			data[7] = 0x5E // roughly tracks pedal force
		} else {
			data[3] = 0x00
			data[4] = 0x00
			data[7] = 0x00
		}
	})
}

// ieb331 is an unknown brake frame; byte 0 is about twice byte 7 of 0x2A2
func ieb331(brake *Brake) *message.Periodic {
	return message.MustNew(0x331, "IEB brake unknown", message.MustHex("F000000000000000"), 100, func(data []byte) {
		if brake.Braking() {
			data[0] = 0xEB
		} else {
			data[0] = 0x00
		}
	})
}

// ieb386 is wheel speed; the front wheels carry 2-bit alive counters in the
// top bits of each 16-bit speed. Rear wheels use checksums that stay valid
// while the speed is zero.
func ieb386() *message.Periodic {
	fl := message.NewCounter(1, 0xC0)
	fr := message.NewCounter(3, 0xC0)
	return message.MustNew(0x386, "IEB wheel speed", message.MustHex("0000000000400080"), 50, func(data []byte) {
		fl.Update(data)
		fr.Update(data)
	})
}

// ieb387 is wheel pulse counts: counter in the low nibble of byte 6 and a
// checksum in byte 5 covering the whole frame
func ieb387() *message.Periodic {
	alive := message.NewCounterStep(6, 0x0F, -1, 0xE)
	return message.MustNew(0x387, "IEB wheel pulses", message.MustHex("0A0D000000210A00"), 50, func(data []byte) {
		alive.Update(data)
		message.SumChecksum(data, 5)
	})
}
