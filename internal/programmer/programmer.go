// Package programmer hosts the registry of flash programmer drivers and
// the shutdown hook stack the CLI runs on exit.
package programmer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mkszuba/flashrom/internal/i2c"
	"github.com/mkszuba/flashrom/internal/spi"
)

// Opts carries everything a driver needs to bring up its hardware.
type Opts struct {
	// Params is the parsed programmer parameter map (e.g. bus=8).
	Params map[string]string

	// Transport, when non-nil, is used instead of opening hardware.
	// The -mock CLI flag injects a mock device this way.
	Transport i2c.Transport

	// UsePeriph selects the periph.io transport over raw /dev/i2c-N.
	UsePeriph bool
}

// InitFunc brings up a programmer and returns its SPI master. Drivers
// push cleanup onto shutdown; hooks run LIFO when the session ends.
type InitFunc func(ctx context.Context, opts Opts, shutdown *Stack) (spi.Master, error)

var (
	mu       sync.Mutex
	registry = make(map[string]InitFunc)
)

// Register makes a driver available under name. Drivers call this from
// an init function.
func Register(name string, fn InitFunc) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("programmer: duplicate registration of %q", name))
	}
	registry[name] = fn
}

// Lookup returns the driver registered under name.
func Lookup(name string) (InitFunc, bool) {
	mu.Lock()
	defer mu.Unlock()
	fn, ok := registry[name]
	return fn, ok
}

// Names lists the registered drivers, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stack is a LIFO stack of shutdown hooks. Every hook runs even when
// earlier ones fail; the first error is reported.
type Stack struct {
	fns []func() error
}

// Push adds a hook to run on shutdown.
func (s *Stack) Push(fn func() error) {
	s.fns = append(s.fns, fn)
}

// Run executes all hooks in reverse registration order.
func (s *Stack) Run() error {
	var first error
	for i := len(s.fns) - 1; i >= 0; i-- {
		if err := s.fns[i](); err != nil && first == nil {
			first = err
		}
	}
	s.fns = nil
	return first
}
