// Package message defines the periodically transmitted frames a simulated
// module puts on the bus, and the helpers used to keep their alive counters
// and checksums moving.
package message

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryansname/sbox-sim/canbus"
)

// MaxFrequency is the fastest a message may be scheduled. A classical CAN bus
// cannot carry much more than this for a single ID anyway.
const MaxFrequency = 1000

// UpdateFunc mutates the payload in place before each transmission
type UpdateFunc func(data []byte)

// Periodic is a CAN frame transmitted at a fixed frequency
type Periodic struct {
	ID        uint32
	Name      string
	Frequency int // Hz

	mu      sync.Mutex
	frame   canbus.Frame
	update  UpdateFunc
	enabled atomic.Bool
}

// New creates an enabled periodic message from a payload template
func New(id uint32, name string, data []byte, hz int, update UpdateFunc) (*Periodic, error) {
	if hz <= 0 || hz > MaxFrequency {
		return nil, fmt.Errorf("message %#x: frequency must be 1..%d Hz, got %d", id, MaxFrequency, hz)
	}
	f, err := canbus.NewFrame(id, data)
	if err != nil {
		return nil, fmt.Errorf("message %#x: %w", id, err)
	}
	p := &Periodic{ID: id, Name: name, Frequency: hz, frame: f, update: update}
	p.enabled.Store(true)
	return p, nil
}

// MustNew is New that panics, for the fixed message tables compiled into the binary
func MustNew(id uint32, name string, data []byte, hz int, update UpdateFunc) *Periodic {
	p, err := New(id, name, data, hz, update)
	if err != nil {
		panic(err)
	}
	return p
}

// Period returns the transmit interval
func (p *Periodic) Period() time.Duration {
	return time.Second / time.Duration(p.Frequency)
}

// Next runs the update hook and returns the frame to transmit
func (p *Periodic) Next() canbus.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.update != nil {
		p.update(p.frame.Data[:p.frame.Len])
	}
	return p.frame
}

// Peek returns the current payload without advancing counters
func (p *Periodic) Peek() canbus.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// Enabled reports whether the message is being transmitted
func (p *Periodic) Enabled() bool {
	return p.enabled.Load()
}

// SetEnabled turns transmission of the message on or off
func (p *Periodic) SetEnabled(v bool) {
	p.enabled.Store(v)
}

func (p *Periodic) String() string {
	return fmt.Sprintf("%#03x - %s (%d Hz)", p.ID, p.Name, p.Frequency)
}
