//go:build !wasip1

package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/fress-sdk/domain/errors"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{
			name:   "typical values",
			ptr:    0x12345678,
			length: 0xABCDEF00,
			want:   (uint64(0x12345678) << PtrHighBits) | uint64(0xABCDEF00),
		},
		{
			name:   "zero pointer zero length",
			ptr:    0,
			length: 0,
			want:   0,
		},
		{
			name:   "max pointer",
			ptr:    0xFFFFFFFF,
			length: 1,
			want:   (uint64(0xFFFFFFFF) << PtrHighBits) | 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed, "packed value mismatch")

			gotPtr, gotLen := UnpackPtrLen(packed)
			assert.Equal(t, tt.ptr, gotPtr, "unpacked pointer mismatch")
			assert.Equal(t, tt.length, gotLen, "unpacked length mismatch")
		})
	}
}

func TestPackPtrLen_PanicsOnNullPointerWithLength(t *testing.T) {
	assert.Panics(t, func() {
		PackPtrLen(0, 100)
	}, "expected panic for null pointer with non-zero length")

	assert.Panics(t, func() {
		UnpackPtrLen(uint64(1))
	}, "expected panic for invalid packed value")
}

func TestHeader(t *testing.T) {
	buf := make([]byte, HeaderSize)
	PutHeader(buf, 0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)

	n, ok := ReadHeader(buf)
	require.True(t, ok)
	assert.Equal(t, uint32(0x01020304), n)

	_, ok = ReadHeader(buf[:3])
	assert.False(t, ok)
}

func TestAllocRaw(t *testing.T) {
	a := NewAllocator()

	h := a.AllocRaw(1024)
	require.NotZero(t, h.Addr)
	assert.Equal(t, ShapeRaw, h.Shape)
	assert.Equal(t, 1, a.Live())
	assert.Equal(t, 1024, a.Total())

	buf, ok := a.View(h.Addr, h.Len)
	require.True(t, ok)
	assert.Len(t, buf, 1024)
	assert.Equal(t, make([]byte, 1024), buf, "fresh regions are zeroed")

	_, owner, ok := a.Lookup(h.Addr)
	require.True(t, ok)
	assert.Equal(t, OwnerGuest, owner)

	assert.True(t, a.Release(h.Addr, h.Len))
	assert.Zero(t, a.Live())
	assert.Zero(t, a.Total())
}

func TestAllocRawZero(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, Handle{}, a.AllocRaw(0))
	assert.Zero(t, a.Live())
}

func TestAllocFrame(t *testing.T) {
	a := NewAllocator()
	payload := []byte("payload")

	h := a.AllocFrame(payload)
	assert.Equal(t, ShapeFrame, h.Shape)
	assert.Equal(t, uint32(len(payload)), h.Len)
	assert.Equal(t, uint32(len(payload)+HeaderSize), h.Size())
	assert.Equal(t, len(payload)+HeaderSize, a.Total())

	raw, ok := a.View(h.Addr, h.Size())
	require.True(t, ok)
	n, ok := ReadHeader(raw)
	require.True(t, ok)
	assert.Equal(t, h.Len, n)
	assert.Equal(t, payload, raw[HeaderSize:])

	got, ok := a.Payload(h.Addr)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestReleaseFrameWithPayloadLength(t *testing.T) {
	a := NewAllocator()
	h := a.AllocFrame([]byte{1, 2, 3})

	// The host only knows the payload length; the header must be freed too.
	require.True(t, a.Release(h.Addr, h.Len))
	assert.Zero(t, a.Total())
	assert.Zero(t, a.Live())
}

func TestReleaseIgnoresUntracked(t *testing.T) {
	a := NewAllocator()
	h := a.AllocRaw(16)

	assert.False(t, a.Release(h.Addr+1, 16))
	assert.False(t, a.Release(0, 0))
	assert.True(t, a.Release(h.Addr, 16))
	assert.False(t, a.Release(h.Addr, 16), "second release is ignored")
	assert.Zero(t, a.Total())
}

func TestOwnership(t *testing.T) {
	a := NewAllocator()
	h := a.AllocFrame(nil)

	require.True(t, a.Transfer(h.Addr))
	_, owner, _ := a.Lookup(h.Addr)
	assert.Equal(t, OwnerHost, owner)

	require.True(t, a.Reclaim(h.Addr))
	_, owner, _ = a.Lookup(h.Addr)
	assert.Equal(t, OwnerGuest, owner)

	assert.False(t, a.Transfer(h.Addr+100))
}

func TestAddressesAreIndependent(t *testing.T) {
	a := NewAllocator()
	seen := map[uint32]bool{}

	for i := range 100 {
		h := a.AllocFrame(make([]byte, i))
		assert.False(t, seen[h.Addr], "address %d reused", h.Addr)
		seen[h.Addr] = true
		if i%2 == 0 {
			a.Release(h.Addr, h.Len)
		}
	}
	assert.Equal(t, 50, a.Live())
}

func TestAllocatorsDoNotShareMemory(t *testing.T) {
	a, b := NewAllocator(), NewAllocator()
	ha := a.AllocRaw(4)
	hb := b.AllocRaw(4)

	va, _ := a.View(ha.Addr, 4)
	copy(va, "aaaa")
	vb, _ := b.View(hb.Addr, 4)
	assert.Equal(t, make([]byte, 4), vb)
}

func TestMemoryGrowsPastOnePage(t *testing.T) {
	a := NewAllocator()
	first := a.AllocFrame([]byte("first"))

	big := a.AllocRaw(3 * pageSize)
	view, ok := a.View(big.Addr, big.Len)
	require.True(t, ok)
	view[len(view)-1] = 0xAA

	got, ok := a.Payload(first.Addr)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), got, "existing buffers survive growth")
}

func TestViewBounds(t *testing.T) {
	a := NewAllocator()

	empty, ok := a.View(0, 0)
	require.True(t, ok)
	assert.Empty(t, empty)

	_, ok = a.View(0, 1)
	assert.False(t, ok)

	_, ok = a.View(0xFFFFFF00, 0x100)
	assert.False(t, ok)
}

func TestLimitExceededPanics(t *testing.T) {
	a := NewAllocator(WithLimit(64))
	a.AllocRaw(60)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		memErr, ok := r.(*errors.MemoryError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, 8, memErr.Requested)
		assert.Equal(t, 60, memErr.Current)
		assert.Equal(t, 64, memErr.Limit)
	}()
	a.AllocFrame([]byte{1, 2, 3, 4})
}

func TestFreeAll(t *testing.T) {
	a := NewAllocator()
	a.AllocRaw(10)
	a.AllocFrame([]byte("x"))

	a.FreeAll()
	assert.Zero(t, a.Live())
	assert.Zero(t, a.Total())
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "raw", ShapeRaw.String())
	assert.Equal(t, "frame", ShapeFrame.String())
	assert.Equal(t, "Shape(9)", Shape(9).String())
	assert.Equal(t, "host", OwnerHost.String())
}
