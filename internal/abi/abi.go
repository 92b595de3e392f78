// Package abi provides memory management for buffers that cross the WASM
// linear-memory boundary.
//
// Every buffer handed across the boundary is tracked by address together with
// its shape and its current owner. The external interface only ever carries an
// (address, length) pair; the Allocator resolves the real allocation from the
// address, so a frame released with its payload length still frees the header.
//
// The guest is single-threaded and the Allocator takes no locks.
package abi

import (
	"fmt"

	"github.com/reglet-dev/fress-sdk/domain/errors"
)

// MaxTotalAllocations is the maximum total memory that can be live at once.
// This prevents unbounded memory growth in WASM linear memory.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Shape is the layout of a tracked allocation.
type Shape uint8

const (
	// ShapeRaw is a plain region of exactly Len bytes, requested by the host
	// to write input into.
	ShapeRaw Shape = iota + 1
	// ShapeFrame is a length header followed by Len payload bytes.
	ShapeFrame
)

func (s Shape) String() string {
	switch s {
	case ShapeRaw:
		return "raw"
	case ShapeFrame:
		return "frame"
	default:
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
}

// Owner says which side of the boundary may use a buffer.
type Owner uint8

const (
	// OwnerGuest buffers are being filled or read by guest code.
	OwnerGuest Owner = iota
	// OwnerHost buffers have been handed out and must come back through
	// deallocate or consume-and-reply.
	OwnerHost
)

func (o Owner) String() string {
	if o == OwnerHost {
		return "host"
	}
	return "guest"
}

// Handle identifies a tracked buffer. Len is the payload length, which for a
// frame excludes the header.
type Handle struct {
	Addr  uint32
	Len   uint32
	Shape Shape
}

// Size returns the number of bytes the allocation really occupies.
func (h Handle) Size() uint32 {
	if h.Shape == ShapeFrame {
		return h.Len + HeaderSize
	}
	return h.Len
}

type allocation struct {
	handle Handle
	owner  Owner
	pin    []byte // keeps the backing array reachable on wasip1
}

// Allocator tracks live boundary buffers.
type Allocator struct {
	mem   memory
	live  map[uint32]*allocation
	total int
	limit int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLimit overrides MaxTotalAllocations.
func WithLimit(bytes int) Option {
	return func(a *Allocator) {
		a.limit = bytes
	}
}

// NewAllocator returns an Allocator over the module's linear memory. Outside
// wasip1 every Allocator gets its own simulated memory.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		mem:   newMemory(),
		live:  make(map[uint32]*allocation),
		limit: MaxTotalAllocations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// reserve carves size bytes out of linear memory. Exceeding the budget is
// unrecoverable and panics with *errors.MemoryError.
func (a *Allocator) reserve(h Handle) *allocation {
	size := int(h.Size())
	if a.total+size > a.limit {
		panic(&errors.MemoryError{Requested: size, Current: a.total, Limit: a.limit})
	}
	addr, pin := a.mem.alloc(h.Size())
	h.Addr = addr
	al := &allocation{handle: h, owner: OwnerGuest, pin: pin}
	a.live[addr] = al
	a.total += size
	return al
}

// AllocRaw reserves a zeroed region of size bytes. A zero size returns the
// zero Handle and tracks nothing.
func (a *Allocator) AllocRaw(size uint32) Handle {
	if size == 0 {
		return Handle{}
	}
	return a.reserve(Handle{Len: size, Shape: ShapeRaw}).handle
}

// AllocFrame reserves a frame holding payload and writes its header.
func (a *Allocator) AllocFrame(payload []byte) Handle {
	n := uint32(len(payload))
	al := a.reserve(Handle{Len: n, Shape: ShapeFrame})
	buf := a.mem.view(al.handle.Addr, n+HeaderSize)
	PutHeader(buf, n)
	copy(buf[HeaderSize:], payload)
	return al.handle
}

// Transfer hands a guest-owned buffer to the host. It reports false for
// untracked addresses.
func (a *Allocator) Transfer(addr uint32) bool {
	return a.setOwner(addr, OwnerHost)
}

// Reclaim takes a host-owned buffer back for guest use.
func (a *Allocator) Reclaim(addr uint32) bool {
	return a.setOwner(addr, OwnerGuest)
}

func (a *Allocator) setOwner(addr uint32, o Owner) bool {
	al, ok := a.live[addr]
	if !ok {
		return false
	}
	al.owner = o
	return true
}

// Lookup returns the handle and owner of a tracked address.
func (a *Allocator) Lookup(addr uint32) (Handle, Owner, bool) {
	al, ok := a.live[addr]
	if !ok {
		return Handle{}, OwnerGuest, false
	}
	return al.handle, al.owner, true
}

// Release frees the allocation at addr using its recorded shape. The length
// the caller passes back is not trusted for accounting. Untracked addresses
// are ignored and reported as false.
func (a *Allocator) Release(addr, _ uint32) bool {
	al, ok := a.live[addr]
	if !ok {
		return false
	}
	delete(a.live, addr)
	a.total -= int(al.handle.Size())
	if a.total < 0 {
		a.total = 0
	}
	return true
}

// View returns n bytes of linear memory at addr without copying. The slice
// aliases memory and must not outlive the buffer it points into.
func (a *Allocator) View(addr, n uint32) ([]byte, bool) {
	if n == 0 {
		return []byte{}, true
	}
	if addr == 0 {
		return nil, false
	}
	return a.mem.checkedView(addr, n)
}

// Payload returns the payload of a tracked frame without copying.
func (a *Allocator) Payload(addr uint32) ([]byte, bool) {
	al, ok := a.live[addr]
	if !ok || al.handle.Shape != ShapeFrame {
		return nil, false
	}
	return a.mem.view(addr+HeaderSize, al.handle.Len), true
}

// Live returns the number of tracked allocations.
func (a *Allocator) Live() int { return len(a.live) }

// Total returns the number of bytes currently tracked.
func (a *Allocator) Total() int { return a.total }

// FreeAll forgets every tracked allocation. This is typically called during
// module shutdown to prevent leaks.
func (a *Allocator) FreeAll() {
	clear(a.live)
	a.total = 0
}

// memory is the linear memory backing an Allocator.
type memory interface {
	alloc(size uint32) (addr uint32, pin []byte)
	view(addr, n uint32) []byte
	checkedView(addr, n uint32) ([]byte, bool)
}
