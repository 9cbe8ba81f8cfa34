package sbox

import (
	"bytes"
	"log"
	"time"

	"github.com/ryansname/sbox-sim/canbus"
)

// Frames sent to the SBox by the controller
const (
	IDControlContactors uint32 = 0x100 // 4 bytes every 20 ms
	IDSetup             uint32 = 0x300 // 4 bytes every 20 ms
)

// ControlContactors commands, byte 0 of 0x100
const (
	CmdOpen              byte = 0x00
	CmdPrecharge         byte = 0xA6 // neg + pch, starts the pre-charge curve
	CmdClosed            byte = 0xAA // all closed
	CmdPrechargeOnly     byte = 0x86
	CmdPositiveOnly      byte = 0x0A
	CmdNegativePrecharge byte = 0x62 // neg + pch without the pre-charge curve
)

// setupFrame is the only known setup payload that enables contactor access
var setupFrame = []byte{0xFF, 0xFE, 0xFF, 0xFF}

func (s *SBox) onControlContactors(f canbus.Frame) {
	if f.Len != 4 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var next Contactors
	var prechargeStart time.Time

	switch cmd := f.Data[0]; cmd {
	case CmdOpen:
		// all open

	case CmdPrecharge:
		next = Contactors{Negative: true, Precharge: true}
		prechargeStart = s.prechargeStart
		if s.contactors == (Contactors{}) {
			prechargeStart = s.now()
		}

	case CmdClosed:
		next = Contactors{Positive: true, Negative: true, Precharge: true}

	case CmdPrechargeOnly:
		next = Contactors{Precharge: true}

	case CmdPositiveOnly:
		next = Contactors{Positive: true}

	case CmdNegativePrecharge:
		next = Contactors{Negative: true, Precharge: true}

	default:
		log.Printf("Unrecognised ContactorControl state %#x\n", cmd)
	}

	s.contactors = next
	s.prechargeStart = prechargeStart
}

func (s *SBox) onSetup(f canbus.Frame) {
	ok := f.Len == 4 && bytes.Equal(f.Payload(), setupFrame)
	s.mu.Lock()
	s.setup = ok
	s.mu.Unlock()
}
