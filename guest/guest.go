// Package guest implements the guest half of the value transfer protocol.
//
// A produced value is encoded, copied into a frame (a 4-byte little-endian
// payload length followed by the payload) and handed to the host by address.
// The host reads the header and payload, then returns the frame with
// Deallocate(address, payload length). Input travels the other way: the host
// asks for a raw region with Allocate, writes the encoded value into it and
// passes (address, length) to ConsumeAndReply, which frees the input before
// producing its reply.
//
// Decode and conversion failures never escape as Go errors; they are produced
// to the host as FressError values. Only Fault ends the module.
package guest

import (
	"log/slog"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/internal/abi"
	"github.com/reglet-dev/fress-sdk/wireformat"
)

// Boundary moves values across one module's linear memory.
type Boundary struct {
	alloc *abi.Allocator
}

// NewBoundary returns a Boundary allocating from alloc.
func NewBoundary(alloc *abi.Allocator) *Boundary {
	return &Boundary{alloc: alloc}
}

// Allocator returns the allocator backing b.
func (b *Boundary) Allocator() *abi.Allocator {
	return b.alloc
}

// Produce encodes v into a new frame owned by the host and returns its
// address. A value that cannot be encoded is replaced by a Msg error.
func (b *Boundary) Produce(v value.Value) uint32 {
	payload, err := wireformat.Marshal(v)
	if err != nil {
		slog.Debug("guest: produce failed, sending error instead", "error", err)
		payload = mustMarshal(errors.Msg(err.Error()).ToValue())
	}
	h := b.alloc.AllocFrame(payload)
	b.alloc.Transfer(h.Addr)
	return h.Addr
}

// ProduceFrom converts a native Go value with value.From and produces it.
func (b *Boundary) ProduceFrom(x any) uint32 {
	return b.Produce(errors.ResultValue(x, nil))
}

// ProduceResult produces result, or err when it is non-nil. Errors that
// implement value.Valuer describe themselves; others become a Msg.
func (b *Boundary) ProduceResult(result any, err error) uint32 {
	return b.Produce(errors.ResultValue(result, err))
}

// Consume decodes the host-written region at (addr, length) and releases it.
// The returned error is a *errors.FressError.
func (b *Boundary) Consume(addr, length uint32) (value.Value, error) {
	b.alloc.Reclaim(addr)
	defer b.alloc.Release(addr, length)

	input, ok := b.alloc.View(addr, length)
	if !ok {
		return value.Value{}, errors.Syntax(errors.Eof, 0)
	}
	return wireformat.Unmarshal(input)
}

// ConsumeAndReply decodes the input region and produces the decoded value
// back, or the FressError describing why decoding failed. The input region is
// freed before the reply is allocated.
func (b *Boundary) ConsumeAndReply(addr, length uint32) uint32 {
	v, err := b.Consume(addr, length)
	if err != nil {
		return b.ProduceResult(nil, err)
	}
	return b.Produce(v)
}

// Allocate reserves a zeroed region of size bytes for the host to write into.
func (b *Boundary) Allocate(size uint32) uint32 {
	h := b.alloc.AllocRaw(size)
	b.alloc.Transfer(h.Addr)
	return h.Addr
}

// Deallocate releases a buffer previously handed to the host. length is the
// payload length the host was given; the real extent of the allocation is
// resolved from addr.
//
// The address must have come from this Boundary and not been released yet.
// Untracked addresses are ignored.
func (b *Boundary) Deallocate(addr, length uint32) {
	b.alloc.Release(addr, length)
}

func mustMarshal(v value.Value) []byte {
	data, err := wireformat.Marshal(v)
	if err != nil {
		panic(Fault{Message: "encode error value: " + err.Error()})
	}
	return data
}

var std = NewBoundary(abi.NewAllocator())

// Default returns the Boundary used by the package-level functions.
func Default() *Boundary { return std }

// Produce encodes v with the default Boundary.
func Produce(v value.Value) uint32 { return std.Produce(v) }

// ProduceFrom converts and produces x with the default Boundary.
func ProduceFrom(x any) uint32 { return std.ProduceFrom(x) }

// ProduceResult produces a (result, error) pair with the default Boundary.
func ProduceResult(result any, err error) uint32 { return std.ProduceResult(result, err) }

// ConsumeAndReply echoes the input region with the default Boundary.
func ConsumeAndReply(addr, length uint32) uint32 { return std.ConsumeAndReply(addr, length) }

// Allocate reserves an input region with the default Boundary.
func Allocate(size uint32) uint32 { return std.Allocate(size) }

// Deallocate releases a buffer of the default Boundary.
func Deallocate(addr, length uint32) { std.Deallocate(addr, length) }
