//go:build !wasip1

// Package fresstest provides an in-process guest for host tests.
//
// Module runs the guest package's fixture exports directly against a
// simulated linear memory, so the host side of the protocol can be tested
// without compiling a wasm binary. A panic inside an export behaves like a
// Go guest on wasip1: the message goes to stderr, the module exits with code
// 2 and stays closed.
package fresstest

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/sys"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/guest"
	"github.com/reglet-dev/fress-sdk/internal/abi"
)

// panicExitCode is what the Go runtime exits with after an unrecovered panic.
const panicExitCode = 2

// Export is an exported function. params and results are wasm values.
type Export struct {
	Params int
	Fn     func(b *guest.Boundary, params []uint32) []uint64
}

// Module is an in-process guest. It is not safe for concurrent use.
type Module struct {
	boundary *guest.Boundary
	exports  map[string]Export
	stderr   strings.Builder
	exit     *sys.ExitError
	closed   bool
	calls    []string
}

// NewModule returns a module exporting the fixture operations.
func NewModule(opts ...abi.Option) *Module {
	m := &Module{
		boundary: guest.NewBoundary(abi.NewAllocator(opts...)),
		exports:  make(map[string]Export),
	}
	for name, export := range fixtureExports() {
		m.exports[name] = export
	}
	return m
}

func fixtureExports() map[string]Export {
	produce := func(f func(*guest.Boundary) uint32) Export {
		return Export{Fn: func(b *guest.Boundary, _ []uint32) []uint64 {
			return []uint64{uint64(f(b))}
		}}
	}
	return map[string]Export{
		guest.ExportProduceGreeting:    produce((*guest.Boundary).ProduceGreeting),
		guest.ExportProduceWideText:    produce((*guest.Boundary).ProduceWideText),
		guest.ExportProduceErrorBatch:  produce((*guest.Boundary).ProduceErrorBatch),
		guest.ExportProduceCustomError: produce((*guest.Boundary).ProduceCustomError),
		guest.ExportConsumeAndReply: {Params: 2, Fn: func(b *guest.Boundary, p []uint32) []uint64 {
			return []uint64{uint64(b.ConsumeAndReply(p[0], p[1]))}
		}},
		guest.ExportAllocate: {Params: 1, Fn: func(b *guest.Boundary, p []uint32) []uint64 {
			return []uint64{uint64(b.Allocate(p[0]))}
		}},
		guest.ExportDeallocate: {Params: 2, Fn: func(b *guest.Boundary, p []uint32) []uint64 {
			b.Deallocate(p[0], p[1])
			return nil
		}},
		guest.ExportInduceFault: {Fn: func(*guest.Boundary, []uint32) []uint64 {
			guest.InduceFault()
			return nil
		}},
	}
}

// Export adds or replaces an export.
func (m *Module) Export(name string, e Export) {
	m.exports[name] = e
}

// Boundary returns the guest side of the module.
func (m *Module) Boundary() *guest.Boundary {
	return m.boundary
}

// Calls returns the names of the exports called so far, in order.
func (m *Module) Calls() []string {
	return append([]string(nil), m.calls...)
}

// Stderr returns what the guest wrote to stderr.
func (m *Module) Stderr() string {
	return m.stderr.String()
}

// String implements fmt.Stringer with the captured stderr.
func (m *Module) String() string {
	return m.Stderr()
}

// Closed reports whether the module was closed or exited.
func (m *Module) Closed() bool {
	return m.closed
}

// Call invokes an export.
func (m *Module) Call(_ context.Context, name string, params ...uint64) (results []uint64, err error) {
	if m.closed {
		if m.exit != nil {
			return nil, fmt.Errorf("module closed: %w", m.exit)
		}
		return nil, fmt.Errorf("module closed: %w", sys.NewExitError(0))
	}
	e, ok := m.exports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrExportNotFound, name)
	}
	if len(params) != e.Params {
		return nil, fmt.Errorf("%s: expected %d params, but passed %d", name, e.Params, len(params))
	}
	m.calls = append(m.calls, name)

	args := make([]uint32, len(params))
	for i, p := range params {
		args[i] = uint32(p) //nolint:gosec // G115: i32 parameters
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(&m.stderr, "panic: %v\n", r)
			m.exit = sys.NewExitError(panicExitCode)
			m.closed = true
			results, err = nil, fmt.Errorf("%s: %w", name, m.exit)
		}
	}()
	return e.Fn(m.boundary, args), nil
}

// Read returns a view of n bytes at addr.
func (m *Module) Read(addr, n uint32) ([]byte, bool) {
	return m.boundary.Allocator().View(addr, n)
}

// Write copies data to addr.
func (m *Module) Write(addr uint32, data []byte) bool {
	buf, ok := m.boundary.Allocator().View(addr, uint32(len(data))) //nolint:gosec // G115: test data
	if !ok {
		return false
	}
	copy(buf, data)
	return true
}

// Close closes the module.
func (m *Module) Close(context.Context) error {
	m.closed = true
	return nil
}
