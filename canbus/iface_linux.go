//go:build linux

package canbus

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func interfaceFlags(fd int, name string) (*unix.Ifreq, error) {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return nil, fmt.Errorf("canbus: invalid interface name %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return nil, fmt.Errorf("canbus: read flags of %s: %w", name, err)
	}
	return ifr, nil
}

// IsInterfaceUp returns true if the network interface has IFF_UP set
func IsInterfaceUp(name string) (bool, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return false, err
	}
	defer unix.Close(fd)

	ifr, err := interfaceFlags(fd, name)
	if err != nil {
		return false, err
	}
	return ifr.Uint16()&unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on the given interface. Bitrate must already be
// configured (ip link set <name> type can bitrate ...). Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	ifr, err := interfaceFlags(fd, name)
	if err != nil {
		return err
	}
	flags := ifr.Uint16()
	if flags&unix.IFF_UP != 0 {
		return nil
	}
	ifr.SetUint16(flags | unix.IFF_UP)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		if errors.Is(err, unix.EPERM) {
			return fmt.Errorf("bringing up %s requires CAP_NET_ADMIN (or root): %w", name, err)
		}
		return fmt.Errorf("canbus: set flags of %s: %w", name, err)
	}
	return nil
}
