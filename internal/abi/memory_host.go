//go:build !wasip1

package abi

import "math"

const (
	pageSize  = 64 * 1024
	arenaBase = 8
	alignment = 8
)

// arena simulates linear memory for native builds. It is a bump allocator:
// addresses are never reused, so a stale address can never alias a newer
// buffer.
type arena struct {
	data []byte
	next uint32
}

func newMemory() memory {
	return &arena{data: make([]byte, pageSize), next: arenaBase}
}

func (m *arena) alloc(size uint32) (uint32, []byte) {
	addr := m.next
	end := uint64(addr) + uint64(size)
	if end > math.MaxUint32 {
		panic("abi: simulated linear memory exhausted")
	}
	if end > uint64(len(m.data)) {
		grown := uint64(len(m.data))
		for grown < end {
			grown *= 2
		}
		data := make([]byte, min(grown, math.MaxUint32))
		copy(data, m.data)
		m.data = data
	}
	m.next = uint32(min((end+alignment-1)&^(alignment-1), math.MaxUint32))
	return addr, nil
}

func (m *arena) view(addr, n uint32) []byte {
	end := addr + n
	return m.data[addr:end:end]
}

func (m *arena) checkedView(addr, n uint32) ([]byte, bool) {
	if uint64(addr)+uint64(n) > uint64(len(m.data)) {
		return nil, false
	}
	return m.view(addr, n), true
}
