package programmer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mkszuba/flashrom/internal/programmer"
	"github.com/mkszuba/flashrom/internal/spi"
)

func TestRegisterLookup(t *testing.T) {
	called := false
	programmer.Register("test_dummy", func(ctx context.Context, opts programmer.Opts, shutdown *programmer.Stack) (spi.Master, error) {
		called = true
		return nil, errors.New("dummy")
	})

	fn, ok := programmer.Lookup("test_dummy")
	if !ok {
		t.Fatal("Lookup(test_dummy) not found")
	}
	if _, err := fn(context.Background(), programmer.Opts{}, &programmer.Stack{}); err == nil || !called {
		t.Error("registered init func not invoked")
	}
	if _, ok := programmer.Lookup("no_such_programmer"); ok {
		t.Error("Lookup returned a driver for an unknown name")
	}
}

func TestStackRunsLIFO(t *testing.T) {
	var order []int
	var s programmer.Stack
	for i := 1; i <= 3; i++ {
		i := i // per-iteration capture under the pre-1.22 go directive
		s.Push(func() error {
			order = append(order, i)
			return nil
		})
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("hook order = %v, want [3 2 1]", order)
	}
}

func TestStackRunsAllHooksAndReportsFirstError(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	ran := 0
	var s programmer.Stack
	s.Push(func() error { ran++; return errA })
	s.Push(func() error { ran++; return errB })
	s.Push(func() error { ran++; return nil })

	// LIFO: nil, errB, errA — errB is the first failure observed.
	err := s.Run()
	if !errors.Is(err, errB) {
		t.Errorf("Run = %v, want %v", err, errB)
	}
	if ran != 3 {
		t.Errorf("ran %d hooks, want 3", ran)
	}
}
