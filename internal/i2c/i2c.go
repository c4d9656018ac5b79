// Package i2c provides buffered I2C transports to a device at a fixed
// 7-bit address. Transports move whole buffers in a single bus
// transaction; partial transfers are reported as errors so callers can
// rely on exact byte counts.
package i2c

import "context"

// Transport is a blocking, buffered byte channel to one I2C device.
// Write and Read transfer exactly len(p) bytes or fail.
type Transport interface {
	// Write sends p to the device in one transaction.
	Write(ctx context.Context, p []byte) error

	// Read fills p from the device in one transaction.
	Read(ctx context.Context, p []byte) error

	// Close releases the underlying bus handle.
	Close() error
}
