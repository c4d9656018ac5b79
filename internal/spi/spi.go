// Package spi defines the generic SPI-master abstraction the flashing
// layer drives, plus byte-granular fallback routines for masters whose
// fast paths only handle page-aligned transfers.
package spi

import (
	"context"
	"fmt"
)

// JEDEC SPI-NOR opcodes used by masters and the flashing layer.
const (
	OpWREN        = 0x06 // Write Enable
	OpWRSR        = 0x01 // Write Status Register
	OpRDSR        = 0x05 // Read Status Register
	OpRDID        = 0x9F // Read JEDEC ID
	OpREMS        = 0x90 // Read Manufacturer/Device ID
	OpRead        = 0x03 // Read Data
	OpPageProgram = 0x02 // Page Program
	OpSectorErase = 0x20 // Sector Erase (4KB)
	OpBlockErase52 = 0x52 // Block Erase (32KB)
	OpBlockEraseD7 = 0xD7 // Block Erase (alt 4KB)
	OpBlockEraseD8 = 0xD8 // Block Erase (64KB)
	OpChipErase60  = 0x60 // Chip Erase (alt)
	OpChipEraseC7  = 0xC7 // Chip Erase
)

// Status register bit 0: write/erase in progress.
const statusWIP = 1 << 0

// Master executes SPI transactions against a flash chip.
type Master interface {
	// Command runs one SPI command. writearr[0] is the opcode, the rest
	// is outgoing data; the response fills readarr.
	Command(ctx context.Context, writearr, readarr []byte) error

	// ReadAt fills buf from flash starting at byte address start.
	ReadAt(ctx context.Context, buf []byte, start uint32) error

	// WriteAt programs buf to flash starting at byte address start.
	WriteAt(ctx context.Context, buf []byte, start uint32) error

	// WriteAAI programs buf using auto-address-increment writes.
	WriteAAI(ctx context.Context, buf []byte, start uint32) error

	// MaxDataRead and MaxDataWrite are the advertised per-command data
	// limits for the flashing layer.
	MaxDataRead() int
	MaxDataWrite() int
}

// CommandOp is one entry of a multi-command sequence.
type CommandOp struct {
	W []byte
	R []byte
}

// RunCommands dispatches a sequence of commands, stopping at the first
// failure.
func RunCommands(ctx context.Context, m Master, cmds []CommandOp) error {
	for i, c := range cmds {
		if err := m.Command(ctx, c.W, c.R); err != nil {
			return fmt.Errorf("spi: command %d of %d: %w", i+1, len(cmds), err)
		}
	}
	return nil
}

// Register-bridge command emulators return at most three response bytes
// per command, whatever read limit the master advertises.
const maxReadPerCommand = 3

// How many times to poll the status register before declaring a stuck
// program operation.
const statusPollLimit = 1000

// ReadFallback reads buf from start one short command at a time. It is
// the slow path for masters whose native read requires page alignment.
func ReadFallback(ctx context.Context, m Master, buf []byte, start uint32) error {
	chunk := m.MaxDataRead()
	if chunk <= 0 || chunk > maxReadPerCommand {
		chunk = maxReadPerCommand
	}
	for off := 0; off < len(buf); off += chunk {
		end := min(off+chunk, len(buf))
		addr := start + uint32(off)
		cmd := [4]byte{OpRead, byte(addr >> 16), byte(addr >> 8), byte(addr)}
		if err := m.Command(ctx, cmd[:], buf[off:end]); err != nil {
			return fmt.Errorf("spi: read %d bytes at 0x%06x: %w", end-off, addr, err)
		}
	}
	return nil
}

// WriteFallback programs buf from start one short page-program command at
// a time, issuing a write enable before each and polling the status
// register until the chip is idle again.
func WriteFallback(ctx context.Context, m Master, buf []byte, start uint32) error {
	chunk := m.MaxDataWrite()
	if chunk <= 0 {
		chunk = 1
	}
	for off := 0; off < len(buf); off += chunk {
		end := min(off+chunk, len(buf))
		addr := start + uint32(off)
		if err := m.Command(ctx, []byte{OpWREN}, nil); err != nil {
			return fmt.Errorf("spi: write enable at 0x%06x: %w", addr, err)
		}
		cmd := make([]byte, 4+end-off)
		cmd[0] = OpPageProgram
		cmd[1] = byte(addr >> 16)
		cmd[2] = byte(addr >> 8)
		cmd[3] = byte(addr)
		copy(cmd[4:], buf[off:end])
		if err := m.Command(ctx, cmd, nil); err != nil {
			return fmt.Errorf("spi: program %d bytes at 0x%06x: %w", end-off, addr, err)
		}
		if err := waitIdle(ctx, m); err != nil {
			return fmt.Errorf("spi: program at 0x%06x: %w", addr, err)
		}
	}
	return nil
}

// waitIdle polls the status register until the write-in-progress bit
// clears.
func waitIdle(ctx context.Context, m Master) error {
	var sr [1]byte
	for i := 0; i < statusPollLimit; i++ {
		if err := m.Command(ctx, []byte{OpRDSR}, sr[:]); err != nil {
			return err
		}
		if sr[0]&statusWIP == 0 {
			return nil
		}
	}
	return fmt.Errorf("flash busy after %d status polls", statusPollLimit)
}
