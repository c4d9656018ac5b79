//go:build !linux

package i2c

import "errors"

// OpenDev requires the Linux i2c-dev interface.
func OpenDev(bus int, addr uint16) (Transport, error) {
	return nil, errors.New("i2c: /dev/i2c-N transport is only available on linux")
}
