package mst

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkszuba/flashrom/internal/spi"
)

// ReadAt fills buf from flash starting at start. The MCU's paged read
// only supports page-aligned starts; unaligned reads take the generic
// byte-granular path. The page window is programmed once and the
// hardware streams the whole transfer through the data port.
func (s *Session) ReadAt(ctx context.Context, buf []byte, start uint32) error {
	if start&0xFF != 0 {
		return spi.ReadFallback(ctx, s, buf, start)
	}
	slog.Debug("mst: paged read", "start", fmt.Sprintf("0x%06x", start), "len", len(buf))

	// The page window is one-indexed relative to the requested address.
	start--

	ctrl := ctrlWord(0, maxCommandRead, classDefault)
	var st steps
	st.run(s.writeRegister(ctx, regCommand, ctrl))
	st.run(s.writeRegister(ctx, regOpcode, spi.OpRead))
	st.run(s.mapPage(ctx, byte(start>>16), byte(start>>8), byte(start)))
	st.run(s.writeRegister(ctx, regReadLen, 0x03))
	st.run(s.writeRegister(ctx, regCommand, ctrl|0x01))
	if st.first != nil {
		return st.first
	}
	if err := s.waitCommandDone(ctx, regCommand, 0x01, 0, 1); err != nil {
		return err
	}

	// The hardware prefixes the transfer with one throwaway byte on the
	// data port.
	_, _ = s.readRegister(ctx, regDataPort)

	for off := 0; off < len(buf); off += pageSize {
		end := min(off+pageSize, len(buf))
		if err := s.t.Read(ctx, buf[off:end]); err != nil {
			return fmt.Errorf("mst: read page at +0x%x: %w", off, err)
		}
	}
	return nil
}

// WriteAt programs buf to flash starting at start in chunks of up to one
// page. Unaligned starts take the generic byte-granular path. Write
// protection is disabled once up front and intentionally left disabled.
// Unlike reads, the page window must be re-programmed for every chunk.
func (s *Session) WriteAt(ctx context.Context, buf []byte, start uint32) error {
	if start&0xFF != 0 {
		return spi.WriteFallback(ctx, s, buf, start)
	}
	slog.Debug("mst: paged write", "start", fmt.Sprintf("0x%06x", start), "len", len(buf))

	if err := s.disableProtection(ctx); err != nil {
		return fmt.Errorf("mst: disable protection: %w", err)
	}

	var st steps
	st.run(s.writeRegister(ctx, regWriteOpcode, spi.OpPageProgram))
	st.run(s.writeRegister(ctx, regPageSize, pageSize-1))

	for off := 0; off < len(buf); off += pageSize {
		chunk := min(len(buf)-off, pageSize)
		if chunk < pageSize {
			// Final short chunk: shrink the transfer size.
			st.run(s.writeRegister(ctx, regPageSize, byte(chunk-1)))
		}
		// Writes always start at byte 0 of the selected page.
		addr := start + uint32(off)
		st.run(s.mapPage(ctx, byte(addr>>16), byte(addr>>8), 0))
		if st.first != nil {
			break
		}
		// Wait for the MCU's transfer buffer to drain.
		st.run(s.waitCommandDone(ctx, regMCUMode, writeBufferEmpty, writeBufferEmpty, 1))
		if st.first != nil {
			break
		}
		st.run(s.writePage(ctx, buf[off:off+chunk]))
		if st.first != nil {
			break
		}
		st.run(s.executeWrite(ctx))
		if st.first != nil {
			break
		}
	}
	return st.first
}

// writePage stages up to one page into the MCU's transfer buffer as a
// single contiguous write prefixed with the data port register address.
func (s *Session) writePage(ctx context.Context, data []byte) error {
	if len(data) > pageSize {
		return fmt.Errorf("mst: page write of %d bytes exceeds %d", len(data), pageSize)
	}
	wbuf := make([]byte, 1+len(data))
	wbuf[0] = regDataPort
	copy(wbuf[1:], data)
	if err := s.t.Write(ctx, wbuf); err != nil {
		return fmt.Errorf("mst: stage %d bytes: %w", len(data), err)
	}
	return nil
}

// WriteAAI is not implemented by the MCU protocol.
func (s *Session) WriteAAI(ctx context.Context, buf []byte, start uint32) error {
	return fmt.Errorf("mst: auto-address-increment write: %w", ErrUnsupported)
}
