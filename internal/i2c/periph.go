package i2c

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var hostInitialized atomic.Bool

// PeriphTransport is a Transport backed by a periph.io i2c.Bus. It is the
// portable alternative to DevTransport for hosts where periph has a bus
// driver registered.
type PeriphTransport struct {
	bus  pi2c.BusCloser
	addr uint16
}

// OpenPeriph opens I2C bus number bus through the periph host drivers.
func OpenPeriph(bus int, addr uint16) (*PeriphTransport, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("i2c: host initialization failed: %w", err)
		}
	}
	b, err := i2creg.Open(strconv.Itoa(bus))
	if err != nil {
		return nil, fmt.Errorf("i2c: open periph bus %d: %w", bus, err)
	}
	return &PeriphTransport{bus: b, addr: addr}, nil
}

func (t *PeriphTransport) Write(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := t.bus.Tx(t.addr, p, nil); err != nil {
		return fmt.Errorf("i2c: write %d bytes to 0x%02x: %w", len(p), t.addr, err)
	}
	return nil
}

func (t *PeriphTransport) Read(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := t.bus.Tx(t.addr, nil, p); err != nil {
		return fmt.Errorf("i2c: read %d bytes from 0x%02x: %w", len(p), t.addr, err)
	}
	return nil
}

func (t *PeriphTransport) Close() error {
	return t.bus.Close()
}
