// Package sbox models a BMW SBox: the contactor and current/voltage sensing
// junction box that sits between the HV battery and the inverter.
package sbox

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ryansname/sbox-sim/canbus"
)

// Pre-charge circuit parameters
const (
	PrechargeResistance = 300.0                  // Ohms
	InverterCapacitance = (550 + 68 + 68) * 1e-6 // Farads, Tesla M3 inverter
	PrechargeRC         = PrechargeResistance * InverterCapacitance
)

// Set-point limits accepted from the front ends
const (
	MinVoltage = 0.0
	MaxVoltage = 500.0
	MinCurrent = -200.0
	MaxCurrent = 200.0

	DefaultVoltage = 350.0
)

// ErrOutOfRange is returned when a set-point is outside its limits
var ErrOutOfRange = errors.New("value out of range")

// Contactors holds the state of the three SBox contactors
type Contactors struct {
	Positive  bool
	Negative  bool
	Precharge bool
}

func (c Contactors) String() string {
	return fmt.Sprintf("pos=%s neg=%s pch=%s", onOff(c.Positive), onOff(c.Negative), onOff(c.Precharge))
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// State is a consistent snapshot of the simulated SBox
type State struct {
	Voltage       float64 // pack voltage set-point
	Current       float64 // shunt current set-point
	OutputVoltage float64 // synthesized voltage after the contactors
	Setup         bool    // contactor access enabled by the setup frame
	Precharging   bool
	Contactors    Contactors
}

// SBox is the simulated junction box. All methods are safe for concurrent use.
type SBox struct {
	mu sync.Mutex

	// updated by the user
	voltage float64
	current float64

	// updated from CAN
	setup          bool
	contactors     Contactors
	prechargeStart time.Time // zero when not pre-charging

	now func() time.Time
}

// Option configures an SBox
type Option func(*SBox)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *SBox) { s.now = now }
}

// WithVoltage sets the initial pack voltage
func WithVoltage(v float64) Option {
	return func(s *SBox) { s.voltage = v }
}

// New creates an SBox with all contactors open
func New(opts ...Option) *SBox {
	s := &SBox{voltage: DefaultVoltage, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetVoltage changes the simulated pack voltage
func (s *SBox) SetVoltage(v float64) error {
	if math.IsNaN(v) || v < MinVoltage || v > MaxVoltage {
		return fmt.Errorf("voltage %.1f V: %w (%.0f..%.0f)", v, ErrOutOfRange, MinVoltage, MaxVoltage)
	}
	s.mu.Lock()
	s.voltage = v
	s.mu.Unlock()
	log.Printf("Voltage now %.1f V\n", v)
	return nil
}

// SetCurrent changes the simulated shunt current; positive is discharge
func (s *SBox) SetCurrent(a float64) error {
	if math.IsNaN(a) || a < MinCurrent || a > MaxCurrent {
		return fmt.Errorf("current %.1f A: %w (%.0f..%.0f)", a, ErrOutOfRange, MinCurrent, MaxCurrent)
	}
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()
	log.Printf("Current now %.1f A\n", a)
	return nil
}

// Voltage returns the pack voltage set-point
func (s *SBox) Voltage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voltage
}

// Current returns the current set-point
func (s *SBox) Current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OutputVoltage synthesizes the voltage after the contactors
func (s *SBox) OutputVoltage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputVoltageLocked()
}

func (s *SBox) outputVoltageLocked() float64 {
	if !s.setup {
		return 0
	}
	if !s.prechargeStart.IsZero() {
		t := s.now().Sub(s.prechargeStart).Seconds()
		return s.voltage * (1 - math.Exp(-t/PrechargeRC))
	}
	c := s.contactors
	if (c.Positive || c.Precharge) && c.Negative {
		return s.voltage
	}
	return 0
}

// Snapshot returns a copy of the full state
func (s *SBox) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Voltage:       s.voltage,
		Current:       s.current,
		OutputVoltage: s.outputVoltageLocked(),
		Setup:         s.setup,
		Precharging:   !s.prechargeStart.IsZero(),
		Contactors:    s.contactors,
	}
}

// HandleFrame applies a frame received from the controller. It returns true
// if the frame was addressed to the SBox.
func (s *SBox) HandleFrame(f canbus.Frame) bool {
	if f.Extended || f.RTR {
		return false
	}
	switch f.ID {
	case IDControlContactors:
		s.onControlContactors(f)
		return true
	case IDSetup:
		s.onSetup(f)
		return true
	}
	return false
}

// RxIDs returns the identifiers HandleFrame consumes
func RxIDs() []uint32 {
	return []uint32{IDControlContactors, IDSetup}
}
