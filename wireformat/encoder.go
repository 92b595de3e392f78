package wireformat

import (
	"bytes"
	"encoding/binary"
	stdErrors "errors"
	"hash"
	"hash/adler32"
	"io"
	"math"
	"math/bits"
	"strconv"
	"unicode/utf8"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// ErrInvalidUTF8 is wrapped by encoder errors for strings that are not UTF-8.
var ErrInvalidUTF8 = stdErrors.New("invalid utf-8")

// Marshal encodes v into a fresh buffer. The output depends only on v.
func Marshal(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encoder writes Values to a stream. Ext tags are written once per stream and
// referenced through the struct cache afterwards, so a long-lived Encoder
// produces shorter output than repeated Marshal calls.
type Encoder struct {
	w       io.Writer
	buf     []byte
	structs map[structKey]int
	written int64
	sum     hash.Hash32
}

type structKey struct {
	tag    string
	fields int
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:       w,
		structs: make(map[structKey]int),
		sum:     adler32.New(),
	}
}

// Encode writes one Value. Nothing is written if v cannot be encoded.
func (e *Encoder) Encode(v value.Value) error {
	e.buf = e.buf[:0]
	saved := len(e.structs)
	if err := e.writeValue(v); err != nil {
		if len(e.structs) != saved {
			e.dropStructsFrom(saved)
		}
		return err
	}
	return e.flush()
}

// ResetCaches clears the struct cache on both ends of the stream.
func (e *Encoder) ResetCaches() error {
	e.buf = append(e.buf[:0], codeResetCaches)
	clear(e.structs)
	return e.flush()
}

// WriteFooter terminates the stream with the footer magic, the number of bytes
// written so far and their Adler-32 checksum.
func (e *Encoder) WriteFooter() error {
	length := e.written
	sum := e.sum.Sum32()
	e.buf = binary.BigEndian.AppendUint32(e.buf[:0], FooterMagic)
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(length))
	e.buf = binary.BigEndian.AppendUint32(e.buf, sum)
	return e.flush()
}

func (e *Encoder) flush() error {
	n, err := e.w.Write(e.buf)
	e.written += int64(n)
	e.sum.Write(e.buf[:n])
	return err
}

func (e *Encoder) dropStructsFrom(n int) {
	for k, idx := range e.structs {
		if idx >= n {
			delete(e.structs, k)
		}
	}
}

func (e *Encoder) writeValue(v value.Value) error {
	switch v.Kind() {
	case value.KindNull:
		e.buf = append(e.buf, codeNull)
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			e.buf = append(e.buf, codeTrue)
		} else {
			e.buf = append(e.buf, codeFalse)
		}
	case value.KindInt:
		n, _ := v.AsInt()
		e.writeInt(n)
	case value.KindFloat:
		f, _ := v.AsFloat()
		e.writeDouble(f)
	case value.KindString:
		s, _ := v.AsString()
		return e.writeString(s)
	case value.KindBytes:
		b, _ := v.AsBytes()
		e.writeBytes(b)
	case value.KindList:
		return e.writeList(v.Items())
	case value.KindMap:
		entries := v.Entries()
		flat := make([]value.Value, 0, 2*len(entries))
		for _, en := range entries {
			flat = append(flat, en.Key, en.Value)
		}
		e.buf = append(e.buf, codeMap)
		return e.writeList(flat)
	case value.KindExt:
		tag, _ := v.Tag()
		return e.writeStruct(tag, v.Fields())
	default:
		return &errors.WireFormatError{Operation: "encode", Type: v.Kind().String(), Err: stdErrors.New("unknown kind")}
	}
	return nil
}

// writeInt uses the shortest packed form that holds n.
func (e *Encoder) writeInt(n int64) {
	u := uint64(n)
	switch s := bitSwitch(n); {
	case s <= 14:
		e.buf = append(e.buf, codeInt)
		e.buf = binary.BigEndian.AppendUint64(e.buf, u)
	case s <= 22:
		e.buf = append(e.buf, byte(codeIntPacked7Start+(n>>48)))
		e.buf = appendRaw(e.buf, u, 6)
	case s <= 30:
		e.buf = append(e.buf, byte(codeIntPacked6Start+(n>>40)))
		e.buf = appendRaw(e.buf, u, 5)
	case s <= 38:
		e.buf = append(e.buf, byte(codeIntPacked5Start+(n>>32)))
		e.buf = appendRaw(e.buf, u, 4)
	case s <= 44:
		e.buf = append(e.buf, byte(codeIntPacked4Start+(n>>24)))
		e.buf = appendRaw(e.buf, u, 3)
	case s <= 51:
		e.buf = append(e.buf, byte(codeIntPacked3Start+(n>>16)))
		e.buf = appendRaw(e.buf, u, 2)
	case s <= 57:
		e.buf = append(e.buf, byte(codeIntPacked2Start+(n>>8)), byte(u))
	default:
		if n < -1 {
			e.buf = append(e.buf, byte(codeIntPacked2Start+(n>>8)), byte(u))
		} else {
			e.buf = append(e.buf, byte(u))
		}
	}
}

// bitSwitch counts the leading bits that carry no magnitude information.
func bitSwitch(n int64) int {
	if n < 0 {
		n = ^n
	}
	return bits.LeadingZeros64(uint64(n))
}

// appendRaw appends the low width bytes of u, big-endian.
func appendRaw(b []byte, u uint64, width int) []byte {
	for i := width - 1; i >= 0; i-- {
		b = append(b, byte(u>>(8*i)))
	}
	return b
}

func (e *Encoder) writeDouble(f float64) {
	switch bitsOf := math.Float64bits(f); {
	case bitsOf == 0:
		e.buf = append(e.buf, codeDouble0)
	case f == 1.0:
		e.buf = append(e.buf, codeDouble1)
	default:
		e.buf = append(e.buf, codeDouble)
		e.buf = binary.BigEndian.AppendUint64(e.buf, bitsOf)
	}
}

func (e *Encoder) writeCount(packedStart byte, packedEnd int, long byte, n int) {
	if n < packedEnd {
		e.buf = append(e.buf, packedStart+byte(n))
		return
	}
	e.buf = append(e.buf, long)
	e.writeInt(int64(n))
}

func (e *Encoder) writeString(s string) error {
	if !utf8.ValidString(s) {
		return &errors.WireFormatError{Operation: "encode", Type: "string " + strconv.Quote(truncate(s)), Err: ErrInvalidUTF8}
	}
	e.writeCount(codeStringPackedLengthStart, stringPackedLengthEnd, codeString, len(s))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *Encoder) writeBytes(b []byte) {
	e.writeCount(codeBytesPackedLengthStart, bytesPackedLengthEnd, codeBytes, len(b))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) writeList(items []value.Value) error {
	e.writeCount(codeListPackedLengthStart, listPackedLengthEnd, codeList, len(items))
	for _, it := range items {
		if err := e.writeValue(it); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeStruct(tag string, fields []value.Value) error {
	key := structKey{tag: tag, fields: len(fields)}
	if idx, ok := e.structs[key]; ok {
		if idx < structCacheSize {
			e.buf = append(e.buf, codeStructCachePackedStart+byte(idx))
		} else {
			e.buf = append(e.buf, codeStruct)
			e.writeInt(int64(idx))
		}
	} else {
		e.buf = append(e.buf, codeStructType)
		if err := e.writeString(tag); err != nil {
			return err
		}
		e.writeInt(int64(len(fields)))
		e.structs[key] = len(e.structs)
	}
	for _, f := range fields {
		if err := e.writeValue(f); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string) string {
	const limit = 32
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
