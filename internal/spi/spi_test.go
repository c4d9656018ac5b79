package spi_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mkszuba/flashrom/internal/spi"
)

// fakeMaster records commands and serves canned responses.
type fakeMaster struct {
	maxRead  int
	maxWrite int
	cmds     [][]byte
	respond  func(w, r []byte) error
}

func (f *fakeMaster) Command(ctx context.Context, w, r []byte) error {
	cp := make([]byte, len(w))
	copy(cp, w)
	f.cmds = append(f.cmds, cp)
	if f.respond != nil {
		return f.respond(w, r)
	}
	return nil
}

func (f *fakeMaster) ReadAt(ctx context.Context, buf []byte, start uint32) error  { return nil }
func (f *fakeMaster) WriteAt(ctx context.Context, buf []byte, start uint32) error { return nil }
func (f *fakeMaster) WriteAAI(ctx context.Context, buf []byte, start uint32) error {
	return errors.New("unsupported")
}
func (f *fakeMaster) MaxDataRead() int  { return f.maxRead }
func (f *fakeMaster) MaxDataWrite() int { return f.maxWrite }

func TestReadFallbackChunking(t *testing.T) {
	f := &fakeMaster{maxRead: 16, maxWrite: 8}
	f.respond = func(w, r []byte) error {
		for i := range r {
			r[i] = w[3] + byte(i) // low address byte, for traceability
		}
		return nil
	}
	buf := make([]byte, 7)
	if err := spi.ReadFallback(context.Background(), f, buf, 0x0101); err != nil {
		t.Fatalf("ReadFallback: %v", err)
	}
	// 16-byte advertised limit clamps to the 3-byte command response cap.
	wantAddrs := []byte{0x01, 0x04, 0x07}
	if len(f.cmds) != len(wantAddrs) {
		t.Fatalf("issued %d commands, want %d", len(f.cmds), len(wantAddrs))
	}
	for i, cmd := range f.cmds {
		if cmd[0] != spi.OpRead || cmd[1] != 0x00 || cmd[2] != 0x01 || cmd[3] != wantAddrs[i] {
			t.Errorf("command %d = %#v, want READ at 0x0001%02x", i, cmd, wantAddrs[i])
		}
	}
	if buf[0] != 0x01 || buf[6] != 0x07 {
		t.Errorf("buf = %#v, data not placed at right offsets", buf)
	}
}

func TestWriteFallbackSequence(t *testing.T) {
	f := &fakeMaster{maxRead: 16, maxWrite: 8}
	f.respond = func(w, r []byte) error {
		if w[0] == spi.OpRDSR {
			r[0] = 0x00 // idle
		}
		return nil
	}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if err := spi.WriteFallback(context.Background(), f, data, 0x0101); err != nil {
		t.Fatalf("WriteFallback: %v", err)
	}
	// Two chunks (8+2 bytes), each WREN + program + one status poll.
	wantOps := []byte{
		spi.OpWREN, spi.OpPageProgram, spi.OpRDSR,
		spi.OpWREN, spi.OpPageProgram, spi.OpRDSR,
	}
	if len(f.cmds) != len(wantOps) {
		t.Fatalf("issued %d commands, want %d", len(f.cmds), len(wantOps))
	}
	for i, cmd := range f.cmds {
		if cmd[0] != wantOps[i] {
			t.Errorf("command %d opcode = %#02x, want %#02x", i, cmd[0], wantOps[i])
		}
	}
	if got := f.cmds[1]; len(got) != 4+8 || got[3] != 0x01 {
		t.Errorf("first program command = %#v, want 8 data bytes at 0x000101", got)
	}
	if got := f.cmds[4]; len(got) != 4+2 || got[3] != 0x09 {
		t.Errorf("second program command = %#v, want 2 data bytes at 0x000109", got)
	}
}

func TestWriteFallbackBusyTimeout(t *testing.T) {
	f := &fakeMaster{maxRead: 16, maxWrite: 8}
	f.respond = func(w, r []byte) error {
		if w[0] == spi.OpRDSR {
			r[0] = 0x01 // busy forever
		}
		return nil
	}
	err := spi.WriteFallback(context.Background(), f, []byte{1}, 0x0101)
	if err == nil {
		t.Fatal("WriteFallback = nil, want busy timeout")
	}
}

func TestRunCommandsStopsAtFirstFailure(t *testing.T) {
	f := &fakeMaster{maxRead: 16, maxWrite: 8}
	f.respond = func(w, r []byte) error {
		if w[0] == spi.OpWRSR {
			return fmt.Errorf("boom")
		}
		return nil
	}
	cmds := []spi.CommandOp{
		{W: []byte{spi.OpWREN}},
		{W: []byte{spi.OpWRSR, 0x00}},
		{W: []byte{spi.OpRDID}, R: make([]byte, 3)},
	}
	err := spi.RunCommands(context.Background(), f, cmds)
	if err == nil {
		t.Fatal("RunCommands = nil, want error")
	}
	if len(f.cmds) != 2 {
		t.Errorf("issued %d commands, want 2 (stop at failure)", len(f.cmds))
	}
}
