//go:build linux

package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl — raw i2c_msg transfers
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec = 500
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// DevTransport talks to a device on /dev/i2c-N using the I2C_RDWR ioctl.
// Each i2c_msg is transferred whole or not at all, which gives the
// exact-count contract of Transport for free.
type DevTransport struct {
	mu      sync.Mutex
	fd      int
	addr    uint16
	limiter *rate.Limiter
}

// OpenDev opens /dev/i2c-<bus> for transfers to the given 7-bit address.
func OpenDev(bus int, addr uint16) (*DevTransport, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &DevTransport{
		fd:      fd,
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(maxOpsPerSec), 10),
	}, nil
}

func (t *DevTransport) Write(ctx context.Context, p []byte) error {
	return t.transfer(ctx, p, 0)
}

func (t *DevTransport) Read(ctx context.Context, p []byte) error {
	return t.transfer(ctx, p, i2cMsgRD)
}

func (t *DevTransport) transfer(ctx context.Context, p []byte, flags uint16) error {
	if len(p) == 0 {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fd < 0 {
		return errors.New("i2c: transport closed")
	}

	msgs := [1]i2cMsg{{
		addr:   t.addr,
		flags:  flags,
		length: uint16(len(p)),
		buf:    uintptr(unsafe.Pointer(&p[0])),
	}}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 1}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(t.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		dir := "write"
		if flags&i2cMsgRD != 0 {
			dir = "read"
		}
		return fmt.Errorf("i2c: I2C_RDWR %s addr 0x%02x len %d: %w", dir, t.addr, len(p), errno)
	}
	return nil
}

// Close releases the I2C file descriptor.
func (t *DevTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}
