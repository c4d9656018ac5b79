package mst

import (
	"context"
	"fmt"

	"github.com/mkszuba/flashrom/internal/spi"
)

// Per-command size limits of the MCU's emulation registers: the opcode
// plus at most three data bytes out, at most three response bytes back.
const (
	maxCommandWrite = 4
	maxCommandRead  = 3
)

// Command emulates one SPI command through the MCU. writearr[0] is the
// opcode, the remaining bytes are staged as data; the response fills
// readarr. A write-enable opcode succeeds immediately with no register
// traffic: the MCU does not accept a forwarded WREN and does not need
// one.
func (s *Session) Command(ctx context.Context, writearr, readarr []byte) error {
	writecnt, readcnt := len(writearr), len(readarr)
	if writecnt == 0 || writecnt > maxCommandWrite || readcnt > maxCommandRead {
		return fmt.Errorf("mst: command size out of range (write %d, read %d): %w",
			writecnt, readcnt, ErrUnsupported)
	}

	op := writearr[0]
	if op == spi.OpWREN {
		return nil
	}
	data := writearr[1:]
	class, multiplier := classifyOpcode(op)
	ctrl := ctrlWord(len(data), readcnt, class)

	// Stage the control word, opcode and data, then trigger execution by
	// rewriting the control word with its start bit set. Staging is
	// best-effort, but a failed staging must not be executed.
	var st steps
	st.run(s.writeRegister(ctx, regCommand, ctrl))
	st.run(s.writeRegister(ctx, regOpcode, op))
	for i, b := range data {
		st.run(s.writeRegister(ctx, regWriteData+byte(i), b))
	}
	st.run(s.writeRegister(ctx, regCommand, ctrl|0x01))
	if st.first != nil {
		return st.first
	}

	if err := s.waitCommandDone(ctx, regCommand, 0x01, 0, multiplier); err != nil {
		return err
	}

	// Best-effort readback: collect whatever response bytes we can and
	// report the first failure.
	for i := range readarr {
		v, err := s.readRegister(ctx, regReadData+byte(i))
		st.run(err)
		readarr[i] = v
	}
	return st.first
}

// MaxDataRead and MaxDataWrite are the per-command data limits advertised
// to the flashing layer.
func (s *Session) MaxDataRead() int  { return 16 }
func (s *Session) MaxDataWrite() int { return 8 }
