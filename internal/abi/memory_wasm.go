//go:build wasip1

package abi

import "unsafe"

// linearMemory hands out Go-allocated slices. Their addresses are offsets in
// the module's linear memory, and the Allocator keeps each slice pinned until
// it is released.
type linearMemory struct{}

func newMemory() memory { return linearMemory{} }

func (linearMemory) alloc(size uint32) (uint32, []byte) {
	buf := make([]byte, size)
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return uint32(uintptr(unsafe.Pointer(&buf[0]))), buf
}

func (linearMemory) view(addr, n uint32) []byte {
	// WASM linear memory: uint32 offset -> pointer conversion is safe and necessary
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}

func (m linearMemory) checkedView(addr, n uint32) ([]byte, bool) {
	return m.view(addr, n), true
}
