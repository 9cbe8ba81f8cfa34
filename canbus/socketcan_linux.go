//go:build linux

package canbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/brutella/can"
)

// SocketCAN can_id flag bits as carried in the raw identifier
const (
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
)

// socketCAN adapts the push-style brutella/can bus to the Bus interface
type socketCAN struct {
	iface string
	bus   *can.Bus
	rx    chan Frame
	drops *dropLog

	closeOnce sync.Once
	closed    chan struct{}
}

// DialSocketCAN opens a raw CAN socket bound to the given interface (e.g. "can0")
func DialSocketCAN(iface string) (Bus, error) {
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("open socketcan %s: %w", iface, err)
	}

	s := &socketCAN{
		iface:  iface,
		bus:    bus,
		rx:     make(chan Frame, 1024),
		drops:  newDropLog(),
		closed: make(chan struct{}),
	}
	bus.SubscribeFunc(s.handle)

	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			select {
			case <-s.closed:
			default:
				log.Printf("socketcan %s receive loop stopped: %v\n", iface, err)
			}
		}
		s.shutdown()
	}()

	return s, nil
}

// handle is called from the brutella/can receive loop for every frame, so
// drops is only touched from that one goroutine
func (s *socketCAN) handle(raw can.Frame) {
	if raw.ID&canErrFlag != 0 {
		return
	}
	f := fromRaw(raw)
	var msg string
	select {
	case s.rx <- f:
		msg = s.drops.Delivered()
	case <-s.closed:
	default:
		msg = s.drops.Dropped(f)
	}
	if msg != "" {
		log.Printf("socketcan %s %s\n", s.iface, msg)
	}
}

func fromRaw(raw can.Frame) Frame {
	f := Frame{
		Extended: raw.ID&canEffFlag != 0,
		RTR:      raw.ID&canRtrFlag != 0,
		Len:      min(raw.Length, 8),
		Data:     raw.Data,
	}
	if f.Extended {
		f.ID = raw.ID & MaxExtID
	} else {
		f.ID = raw.ID & MaxStdID
	}
	return f
}

func toRaw(f Frame) can.Frame {
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	return can.Frame{ID: id, Length: f.Len, Data: f.Data}
}

// Send writes one frame. The underlying socket write does not take a context,
// so cancellation is only observed before the write starts.
func (s *socketCAN) Send(ctx context.Context, frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return s.bus.Publish(toRaw(frame))
}

// Receive returns the next frame from the interface
func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.rx:
		return f, nil
	case <-s.closed:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (s *socketCAN) shutdown() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Close disconnects the socket
func (s *socketCAN) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	s.shutdown()
	return s.bus.Disconnect()
}
