// Package canbus provides classical CAN frames and the bus transports used by
// the simulator: an in-memory loopback bus and Linux SocketCAN.
package canbus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Frame represents a classical CAN (2.0A/2.0B) frame
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool   // true for 29-bit identifier
	RTR      bool   // remote transmission request
	Len      uint8  // 0..8
	Data     [8]byte
}

const (
	MaxStdID = 0x7FF
	MaxExtID = 0x1FFFFFFF
)

var (
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// Validate returns an error if the frame is not valid
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > MaxExtID {
			return ErrInvalidID
		}
	} else if f.ID > MaxStdID {
		return ErrInvalidID
	}
	return nil
}

// NewFrame builds a data frame, choosing an extended identifier when id does
// not fit in 11 bits
func NewFrame(id uint32, data []byte) (Frame, error) {
	var f Frame
	f.ID = id
	f.Extended = id > MaxStdID
	if len(data) > 8 {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// MustFrame is NewFrame that panics on invalid input
func MustFrame(id uint32, data []byte) Frame {
	f, err := NewFrame(id, data)
	if err != nil {
		panic(err)
	}
	return f
}

// Payload returns the used part of Data
func (f Frame) Payload() []byte {
	n := min(int(f.Len), len(f.Data))
	return f.Data[:n]
}

// String renders the frame as "123 [2] DE AD"
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X", f.ID)
	}
	fmt.Fprintf(&b, " [%d]", f.Len)
	if f.RTR {
		b.WriteString(" RTR")
		return b.String()
	}
	for _, d := range f.Payload() {
		fmt.Fprintf(&b, " %02X", d)
	}
	return b.String()
}

// Candump renders the frame in can-utils compact form, e.g. "100#A6000000"
func (f Frame) Candump() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X#", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X#", f.ID)
	}
	if f.RTR {
		b.WriteByte('R')
		if f.Len > 0 {
			b.WriteString(strconv.Itoa(int(f.Len)))
		}
		return b.String()
	}
	b.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	return b.String()
}

// ParseFrame parses the can-utils compact form "<id>#<data>" as accepted by
// cansend. Identifiers of 8 hex digits are extended; "R" marks a remote frame.
// Data bytes may be separated by dots.
func ParseFrame(s string) (Frame, error) {
	idPart, dataPart, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok {
		return Frame{}, fmt.Errorf("canbus: missing '#' in %q", s)
	}
	if len(idPart) != 3 && len(idPart) != 8 {
		return Frame{}, fmt.Errorf("canbus: identifier %q must be 3 or 8 hex digits", idPart)
	}
	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("canbus: parse identifier %q: %w", idPart, err)
	}

	f := Frame{ID: uint32(id), Extended: len(idPart) == 8}

	if strings.HasPrefix(strings.ToUpper(dataPart), "R") {
		f.RTR = true
		if rest := dataPart[1:]; rest != "" {
			n, err := strconv.ParseUint(rest, 10, 8)
			if err != nil {
				return Frame{}, fmt.Errorf("canbus: parse RTR length %q: %w", rest, err)
			}
			f.Len = uint8(n)
		}
		return f, f.Validate()
	}

	raw, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
	if err != nil {
		return Frame{}, fmt.Errorf("canbus: parse data %q: %w", dataPart, err)
	}
	if len(raw) > 8 {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(raw))
	copy(f.Data[:], raw)
	return f, f.Validate()
}
