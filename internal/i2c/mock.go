package i2c

import (
	"context"
	"errors"
	"sync"
)

// Mock is a thread-safe in-memory register device for testing and -mock
// runs. It models the register-file behaviour of an MCU behind an I2C
// control address: a one-byte write selects a register, a two-byte write
// sets one, and longer writes are treated as a register-prefixed burst.
// Single-byte reads are served from scripted queues or the register map;
// multi-byte reads stream from a separate bulk buffer.
type Mock struct {
	mu        sync.Mutex
	regs      map[byte]byte
	queues    map[byte][]byte // scripted reads, consumed before regs
	selected  byte
	writes    [][]byte
	readCount map[byte]int
	bulk      []byte
	closed    bool
	failWrite bool
	failRead  bool
}

// NewMock creates a mock device with all registers reading as zero.
func NewMock() *Mock {
	return &Mock{
		regs:      make(map[byte]byte),
		queues:    make(map[byte][]byte),
		readCount: make(map[byte]int),
	}
}

func (m *Mock) Write(ctx context.Context, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("i2c: mock closed")
	}
	if m.failWrite {
		return errors.New("i2c: mock write failure")
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	m.writes = append(m.writes, cp)
	if len(p) >= 1 {
		m.selected = p[0]
	}
	if len(p) == 2 {
		m.regs[p[0]] = p[1]
	}
	return nil
}

func (m *Mock) Read(ctx context.Context, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("i2c: mock closed")
	}
	if m.failRead {
		return errors.New("i2c: mock read failure")
	}
	if len(p) == 1 {
		m.readCount[m.selected]++
		if q := m.queues[m.selected]; len(q) > 0 {
			p[0] = q[0]
			m.queues[m.selected] = q[1:]
		} else {
			p[0] = m.regs[m.selected]
		}
		return nil
	}
	n := copy(p, m.bulk)
	m.bulk = m.bulk[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetReg sets the value every unscripted read of reg returns.
func (m *Mock) SetReg(reg, val byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg] = val
}

// PushReads queues values to be served, in order, by the next reads of reg
// before the register map is consulted again.
func (m *Mock) PushReads(reg byte, vals ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[reg] = append(m.queues[reg], vals...)
}

// SetBulkData sets the byte stream served to multi-byte reads.
func (m *Mock) SetBulkData(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk = append([]byte(nil), p...)
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// Writes returns every buffer written so far, in order.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// RegWrites returns the values written to reg by two-byte register writes,
// in order.
func (m *Mock) RegWrites(reg byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		if len(w) == 2 && w[0] == reg {
			out = append(out, w[1])
		}
	}
	return out
}

// ReadCount returns how many single-byte reads selected reg.
func (m *Mock) ReadCount(reg byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCount[reg]
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
