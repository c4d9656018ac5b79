package mst

import (
	"context"
	"testing"

	"github.com/mkszuba/flashrom/internal/i2c"
	"github.com/mkszuba/flashrom/internal/programmer"
)

func TestInitWithInjectedTransport(t *testing.T) {
	m := i2c.NewMock()
	var shutdown programmer.Stack

	s, err := Init(context.Background(), programmer.Opts{Transport: m}, &shutdown)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s == nil {
		t.Fatal("Init returned nil session")
	}
	// Init reset + ISP entry already happened.
	if got := m.RegWrites(regMCUMode); len(got) != 1 || got[0] != ispModeEnter {
		t.Errorf("mode writes = %#v, want [0x80]", got)
	}

	// Shutdown resets the MCU again and closes the transport.
	if err := shutdown.Run(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := m.RegWrites(regMCUCtrl); len(got) != 2 {
		t.Errorf("MCU control written %d times, want 2 (init + shutdown)", len(got))
	}
	if !m.Closed() {
		t.Error("transport not closed by shutdown hook")
	}
}

func TestInitRequiresBusParam(t *testing.T) {
	var shutdown programmer.Stack
	if _, err := Init(context.Background(), programmer.Opts{Params: map[string]string{}}, &shutdown); err == nil {
		t.Fatal("Init without bus param = nil error, want configuration error")
	}
}

func TestProgrammerRegistered(t *testing.T) {
	if _, ok := programmer.Lookup(Name); !ok {
		t.Fatalf("programmer %q not in registry", Name)
	}
}
