package abi

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the little-endian payload length that prefixes
// every produced frame.
const HeaderSize = 4

// PtrHighBits is the shift that places a pointer in the high half of a packed
// pointer/length pair.
const PtrHighBits = 32

// PutHeader writes the payload length n into the first HeaderSize bytes of buf.
func PutHeader(buf []byte, n uint32) {
	binary.LittleEndian.PutUint32(buf, n)
}

// ReadHeader returns the payload length stored at the start of buf. It
// reports false if buf is shorter than a header.
func ReadHeader(buf []byte) (uint32, bool) {
	if len(buf) < HeaderSize {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf), true
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}
