//go:build !linux

package canbus

import (
	"errors"
	"fmt"
)

var errNoSocketCAN = errors.New("canbus: SocketCAN is only available on Linux")

// DialSocketCAN is unavailable outside Linux; use --virtual instead
func DialSocketCAN(iface string) (Bus, error) {
	return nil, fmt.Errorf("open %s: %w", iface, errNoSocketCAN)
}

// IsInterfaceUp reports an error outside Linux
func IsInterfaceUp(name string) (bool, error) {
	return false, errNoSocketCAN
}

// SetInterfaceUp reports an error outside Linux
func SetInterfaceUp(name string) error {
	return errNoSocketCAN
}
