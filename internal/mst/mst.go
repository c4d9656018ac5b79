// Package mst drives the SPI-NOR flash behind a Realtek MST display
// retimer. The retimer's MCU exposes a small register file over I2C;
// writing specific register sequences makes it issue SPI transactions on
// the flash and stage data through a paged transfer buffer.
//
// A Session owns the hardware state (ISP mode, page window registers)
// shared by every operation, so callers must serialize all use of one
// session: one flashing session, one goroutine.
package mst

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkszuba/flashrom/internal/i2c"
)

// Session is an open ISP-mode session with the MCU. Create with New,
// release with Close.
type Session struct {
	t i2c.Transport
}

// New resets the MCU to a known state and enters ISP mode on it. The
// session takes ownership of the transport; Close releases it.
func New(ctx context.Context, t i2c.Transport) (*Session, error) {
	s := &Session{t: t}
	if err := s.resetMPU(ctx); err != nil {
		return nil, fmt.Errorf("mst: reset mpu: %w", err)
	}
	if err := s.enterISPMode(ctx); err != nil {
		return nil, fmt.Errorf("mst: enter isp mode: %w", err)
	}
	slog.Debug("mst: entered ISP mode")
	return s, nil
}

// Close returns the MCU to normal operation and releases the transport.
// The reset is always attempted before the transport is closed,
// regardless of prior operation outcomes.
func (s *Session) Close() error {
	err := s.resetMPU(context.Background())
	if err != nil {
		err = fmt.Errorf("mst: reset mpu on shutdown: %w", err)
	}
	if cerr := s.t.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// steps accumulates the outcome of a best-effort sequence: every step
// runs, the first failure is kept.
type steps struct {
	first error
}

func (st *steps) run(err error) {
	if err != nil && st.first == nil {
		st.first = err
	}
}

// writeRegister sends exactly the two bytes {reg, value}.
func (s *Session) writeRegister(ctx context.Context, reg, value byte) error {
	if err := s.t.Write(ctx, []byte{reg, value}); err != nil {
		return fmt.Errorf("write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// readRegister selects reg with a one-byte write, then reads one byte
// back.
func (s *Session) readRegister(ctx context.Context, reg byte) (byte, error) {
	if err := s.t.Write(ctx, []byte{reg}); err != nil {
		return 0, fmt.Errorf("select reg 0x%02x: %w", reg, err)
	}
	var buf [1]byte
	if err := s.t.Read(ctx, buf[:]); err != nil {
		return 0, fmt.Errorf("read reg 0x%02x: %w", reg, err)
	}
	return buf[0], nil
}

// waitCommandDone polls reg until value&mask == target, bounded by
// maxWaitRetries*multiplier reads. A failing read aborts the wait with
// its error; an exhausted budget yields ErrWaitTimeout.
func (s *Session) waitCommandDone(ctx context.Context, reg, mask, target byte, multiplier int) error {
	budget := maxWaitRetries * multiplier
	var val byte
	for tried := 0; tried < budget; tried++ {
		v, err := s.readRegister(ctx, reg)
		if err != nil {
			return fmt.Errorf("wait on reg 0x%02x: %w", reg, err)
		}
		val = v
		if val&mask == target {
			return nil
		}
	}
	if budget > 0 {
		return fmt.Errorf("wait on reg 0x%02x after %d reads: %w", reg, budget, ErrWaitTimeout)
	}
	return fmt.Errorf("wait on reg 0x%02x: %w", reg, ErrNotDone)
}

// enterISPMode switches the MCU into in-system-programming mode and
// retunes its internal oscillator divider (0x06A0 = 0x74) so the MCU
// runs fast enough to keep up with programming. All writes are
// best-effort: a failing one does not stop the rest.
func (s *Session) enterISPMode(ctx context.Context) error {
	var st steps
	st.run(s.writeRegister(ctx, regMCUMode, ispModeEnter))
	st.run(s.writeRegister(ctx, regIndirectHi, 0x9F))
	st.run(s.writeRegister(ctx, regIndirectLo, 0x06))
	st.run(s.writeRegister(ctx, regIndirectHi, 0xA0))
	st.run(s.writeRegister(ctx, regIndirectLo, 0x74))
	return st.first
}

// resetMPU forces bit 1 of the MCU control register to the run state
// (0xFFEE[1] = 1), bringing the MCU back to normal operation.
func (s *Session) resetMPU(ctx context.Context) error {
	var st steps
	val, err := s.readRegister(ctx, regMCUCtrl)
	st.run(err)
	st.run(s.writeRegister(ctx, regMCUCtrl, (val&0xFD)|0x02))
	return st.first
}

// disableProtection clears the flash write-protection bits (0xAB[2:0] =
// b001) through the MCU's indirect register window and drives the
// write-protect pin high (0xFFD7[0] = 1). Protection is not re-enabled
// afterwards; write sessions leave it off and the shutdown reset takes
// the MCU out of ISP mode anyway.
func (s *Session) disableProtection(ctx context.Context) error {
	var st steps

	// Select protection sub-register 0xAB and read the current bits.
	st.run(s.writeRegister(ctx, regIndirectHi, 0x9F))
	st.run(s.writeRegister(ctx, regIndirectLo, 0x10))
	st.run(s.writeRegister(ctx, regIndirectHi, 0xAB))
	val, err := s.readRegister(ctx, regIndirectLo)
	st.run(err)

	// Select it again and write them back with [2:0] forced to b001.
	st.run(s.writeRegister(ctx, regIndirectHi, 0x9F))
	st.run(s.writeRegister(ctx, regIndirectLo, 0x10))
	st.run(s.writeRegister(ctx, regIndirectHi, 0xAB))
	st.run(s.writeRegister(ctx, regIndirectLo, (val&0xF8)|0x01))

	wp, err := s.readRegister(ctx, regWPPin)
	st.run(err)
	st.run(s.writeRegister(ctx, regWPPin, (wp&0xFE)|0x01))

	return st.first
}

// mapPage programs the 24-bit page window, high byte first. Subsequent
// paged I/O starts at the selected flash address.
func (s *Session) mapPage(ctx context.Context, block, page, byteIdx byte) error {
	var st steps
	st.run(s.writeRegister(ctx, regMapPageByte2, block))
	st.run(s.writeRegister(ctx, regMapPageByte1, page))
	st.run(s.writeRegister(ctx, regMapPageByte0, byteIdx))
	return st.first
}

// executeWrite kicks off a staged page write and waits for the MCU to
// finish it.
func (s *Session) executeWrite(ctx context.Context) error {
	var st steps
	st.run(s.writeRegister(ctx, regMCUMode, startWriteXfer))
	st.run(s.waitCommandDone(ctx, regMCUMode, writeXferStatus, 0, 1))
	return st.first
}
