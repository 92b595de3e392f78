package wireformat

import (
	"encoding/binary"
	"hash/adler32"
	"math"
	"unicode/utf8"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// DefaultMaxDepth bounds collection nesting accepted by a Decoder.
const DefaultMaxDepth = 512

// Unmarshal decodes exactly one Value from data. A stream footer may follow
// the value; any other trailing byte is an error. The returned error is always
// a *errors.FressError. data is only read and is not retained.
func Unmarshal(data []byte) (value.Value, error) {
	d := NewDecoder(data)
	v, err := d.Decode()
	if err != nil {
		return value.Value{}, err
	}
	if ferr := d.finish(); ferr != nil {
		return value.Value{}, ferr
	}
	return v, nil
}

// Decoder reads Values from a byte slice view.
type Decoder struct {
	data     []byte
	pos      int
	depth    int
	maxDepth int
	structs  []structKey
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxDepth = n
	}
}

// NewDecoder returns a Decoder over data.
func NewDecoder(data []byte, opts ...DecoderOption) *Decoder {
	d := &Decoder{data: data, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.pos }

// More reports whether another object may follow.
func (d *Decoder) More() bool {
	return d.pos < len(d.data) && d.data[d.pos] != codeFooter
}

// Decode reads the next Value. The error, if any, is a *errors.FressError.
func (d *Decoder) Decode() (value.Value, error) {
	v, ferr := d.readValue()
	if ferr != nil {
		return value.Value{}, ferr
	}
	return v, nil
}

// finish accepts end of input or a valid footer at the current offset.
func (d *Decoder) finish() *errors.FressError {
	if d.pos == len(d.data) {
		return nil
	}
	if d.data[d.pos] != codeFooter {
		return errors.Syntax(errors.TrailingCharacters, int64(d.pos))
	}
	start := d.pos
	if len(d.data)-start < 12 {
		return errors.Syntax(errors.Eof, int64(len(d.data)))
	}
	magic := binary.BigEndian.Uint32(d.data[start:])
	length := binary.BigEndian.Uint32(d.data[start+4:])
	sum := binary.BigEndian.Uint32(d.data[start+8:])
	if magic != FooterMagic || int(length) != start || sum != adler32.Checksum(d.data[:start]) {
		return errors.Syntax(errors.InvalidFooter, int64(start))
	}
	d.pos = start + 12
	if d.pos != len(d.data) {
		return errors.Syntax(errors.TrailingCharacters, int64(d.pos))
	}
	return nil
}

func (d *Decoder) eof() *errors.FressError {
	return errors.Syntax(errors.Eof, int64(len(d.data)))
}

func (d *Decoder) readByte() (byte, *errors.FressError) {
	if d.pos >= len(d.data) {
		return 0, d.eof()
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readRaw(width int) (uint64, *errors.FressError) {
	if len(d.data)-d.pos < width {
		return 0, d.eof()
	}
	var u uint64
	for _, b := range d.data[d.pos : d.pos+width] {
		u = u<<8 | uint64(b)
	}
	d.pos += width
	return u, nil
}

func (d *Decoder) take(n int) ([]byte, *errors.FressError) {
	if n > len(d.data)-d.pos {
		return nil, d.eof()
	}
	out := make([]byte, n)
	copy(out, d.data[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

func (d *Decoder) enter(start int) *errors.FressError {
	d.depth++
	if d.depth > d.maxDepth {
		return errors.Syntax(errors.RecursionLimitExceeded, int64(start))
	}
	return nil
}

func (d *Decoder) leave() { d.depth-- }

// packedInt decodes the integer forms. ok is false when code is not an
// integer code.
func (d *Decoder) packedInt(code byte) (n int64, ok bool, ferr *errors.FressError) {
	c := int64(code)
	switch {
	case code <= 0x3F:
		return c, true, nil
	case code == codeIntPacked1Start:
		return -1, true, nil
	case code <= 0x5F:
		return d.packedTail(c-codeIntPacked2Start, 1)
	case code <= 0x6F:
		return d.packedTail(c-codeIntPacked3Start, 2)
	case code <= 0x73:
		return d.packedTail(c-codeIntPacked4Start, 3)
	case code <= 0x77:
		return d.packedTail(c-codeIntPacked5Start, 4)
	case code <= 0x7B:
		return d.packedTail(c-codeIntPacked6Start, 5)
	case code <= 0x7F:
		return d.packedTail(c-codeIntPacked7Start, 6)
	case code == codeInt:
		u, ferr := d.readRaw(8)
		return int64(u), true, ferr
	}
	return 0, false, nil
}

func (d *Decoder) packedTail(high int64, width int) (int64, bool, *errors.FressError) {
	u, ferr := d.readRaw(width)
	if ferr != nil {
		return 0, true, ferr
	}
	return high<<(8*width) | int64(u), true, nil
}

// readInt reads an object that must be an integer.
func (d *Decoder) readInt() (int64, *errors.FressError) {
	code, ferr := d.readByte()
	if ferr != nil {
		return 0, ferr
	}
	n, ok, ferr := d.packedInt(code)
	if ferr != nil {
		return 0, ferr
	}
	if !ok {
		return 0, errors.UnmatchedCode(codeInt, int64(code))
	}
	return n, nil
}

// readCount reads a non-negative length; each counted unit needs at least
// minUnit bytes of remaining input.
func (d *Decoder) readCount(minUnit int) (int, *errors.FressError) {
	start := d.pos
	n, ferr := d.readInt()
	if ferr != nil {
		return 0, ferr
	}
	if n < 0 {
		return 0, errors.Syntax(errors.NegativeLength, int64(start))
	}
	if n > int64((len(d.data)-d.pos)/minUnit) {
		return 0, d.eof()
	}
	return int(n), nil
}

func (d *Decoder) readValue() (value.Value, *errors.FressError) {
	start := d.pos
	code, ferr := d.readByte()
	if ferr != nil {
		return value.Value{}, ferr
	}
	for code == codeResetCaches {
		d.structs = d.structs[:0]
		start = d.pos
		if code, ferr = d.readByte(); ferr != nil {
			return value.Value{}, ferr
		}
	}

	if n, ok, ferr := d.packedInt(code); ok || ferr != nil {
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Int(n), nil
	}

	switch {
	case code >= codePriorityCachePackedStart && code < codePriorityCachePackedEnd,
		code == codeGetPriorityCache, code == codePutPriorityCache, code == codePrecache:
		return value.Value{}, errors.Syntax(errors.UnsupportedCacheType, int64(start))

	case code >= codeStructCachePackedStart && code < codeStructCachePackedEnd:
		return d.readCachedStruct(int64(code-codeStructCachePackedStart), start)

	case code >= codeBytesPackedLengthStart && code < codeBytesPackedLengthStart+bytesPackedLengthEnd,
		code == codeBytes, code == codeBytesChunk:
		b, ferr := d.readBytesBody(code)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Bytes(b), nil

	case code >= codeStringPackedLengthStart && code < codeStringPackedLengthStart+stringPackedLengthEnd,
		code == codeString, code == codeStringChunk:
		s, ferr := d.readStringBody(code, start)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.String(s), nil

	case code >= codeListPackedLengthStart && code < codeListPackedLengthStart+listPackedLengthEnd,
		code == codeList, code == codeBeginClosedList, code == codeBeginOpenList:
		items, ferr := d.readListBody(code, start)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.List(items...), nil
	}

	switch code {
	case codeNull:
		return value.Null(), nil
	case codeTrue:
		return value.Bool(true), nil
	case codeFalse:
		return value.Bool(false), nil
	case codeDouble0:
		return value.Float(0), nil
	case codeDouble1:
		return value.Float(1), nil
	case codeDouble:
		u, ferr := d.readRaw(8)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Float(math.Float64frombits(u)), nil
	case codeFloat:
		u, ferr := d.readRaw(4)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Float(float64(math.Float32frombits(uint32(u)))), nil
	case codeMap:
		return d.readMap(start)
	case codeSet:
		items, ferr := d.readNestedList(start)
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Ext(TagSet, value.List(items...)), nil
	case codeLongArray, codeIntArray:
		return d.readArray(start, value.KindInt, codeInt)
	case codeDoubleArray, codeFloatArray:
		return d.readArray(start, value.KindFloat, codeDouble)
	case codeBooleanArray:
		return d.readArray(start, value.KindBool, codeTrue)
	case codeObjectArray:
		return d.readArray(start, value.KindNull, codeAny)
	case codeInst:
		ms, ferr := d.readInt()
		if ferr != nil {
			return value.Value{}, ferr
		}
		return value.Ext(value.TagInst, value.Int(ms)), nil
	case codeUUID:
		return d.readTyped(value.KindBytes, codeBytes, TagUUID, start)
	case codeURI:
		return d.readTyped(value.KindString, codeString, TagURI, start)
	case codeKey, codeSym:
		return d.readNamed(code, start)
	case codeStructType:
		return d.readStructType(start)
	case codeStruct:
		idx, ferr := d.readInt()
		if ferr != nil {
			return value.Value{}, ferr
		}
		return d.readCachedStruct(idx, start)
	case codeMeta:
		if ferr := d.enter(start); ferr != nil {
			return value.Value{}, ferr
		}
		defer d.leave()
		if _, ferr := d.readValue(); ferr != nil {
			return value.Value{}, ferr
		}
		return d.readValue()
	}

	return value.Value{}, errors.UnmatchedCode(codeAny, int64(code))
}

func (d *Decoder) readChunked(code byte, packedStart byte, packedEnd int, long, chunk byte) ([]byte, *errors.FressError) {
	var out []byte
	for {
		var n int
		switch {
		case code >= packedStart && int(code) < int(packedStart)+packedEnd:
			n = int(code - packedStart)
		case code == long || code == chunk:
			c, ferr := d.readCount(1)
			if ferr != nil {
				return nil, ferr
			}
			n = c
		default:
			return nil, errors.UnmatchedCode(int64(long), int64(code))
		}
		part, ferr := d.take(n)
		if ferr != nil {
			return nil, ferr
		}
		if out == nil {
			out = part
		} else {
			out = append(out, part...)
		}
		if code != chunk {
			return out, nil
		}
		if code, ferr = d.readByte(); ferr != nil {
			return nil, ferr
		}
	}
}

func (d *Decoder) readBytesBody(code byte) ([]byte, *errors.FressError) {
	return d.readChunked(code, codeBytesPackedLengthStart, bytesPackedLengthEnd, codeBytes, codeBytesChunk)
}

func (d *Decoder) readStringBody(code byte, start int) (string, *errors.FressError) {
	b, ferr := d.readChunked(code, codeStringPackedLengthStart, stringPackedLengthEnd, codeString, codeStringChunk)
	if ferr != nil {
		return "", ferr
	}
	if !utf8.Valid(b) {
		return "", errors.Syntax(errors.InvalidUTF8, int64(start))
	}
	return string(b), nil
}

func (d *Decoder) readListBody(code byte, start int) ([]value.Value, *errors.FressError) {
	if ferr := d.enter(start); ferr != nil {
		return nil, ferr
	}
	defer d.leave()

	switch code {
	case codeBeginClosedList, codeBeginOpenList:
		var items []value.Value
		for {
			if d.pos >= len(d.data) {
				if code == codeBeginOpenList {
					return items, nil
				}
				return nil, d.eof()
			}
			if d.data[d.pos] == codeEndCollection {
				d.pos++
				return items, nil
			}
			it, ferr := d.readValue()
			if ferr != nil {
				return nil, ferr
			}
			items = append(items, it)
		}
	}

	var n int
	if code == codeList {
		c, ferr := d.readCount(1)
		if ferr != nil {
			return nil, ferr
		}
		n = c
	} else {
		n = int(code - codeListPackedLengthStart)
	}
	items := make([]value.Value, n)
	for i := range items {
		it, ferr := d.readValue()
		if ferr != nil {
			return nil, ferr
		}
		items[i] = it
	}
	return items, nil
}

// readNestedList reads an object that must be a list, as used by MAP and SET.
func (d *Decoder) readNestedList(start int) ([]value.Value, *errors.FressError) {
	code, ferr := d.readByte()
	if ferr != nil {
		return nil, ferr
	}
	isList := (code >= codeListPackedLengthStart && code < codeListPackedLengthStart+listPackedLengthEnd) ||
		code == codeList || code == codeBeginClosedList || code == codeBeginOpenList
	if !isList {
		return nil, errors.UnmatchedCode(codeList, int64(code))
	}
	return d.readListBody(code, start)
}

func (d *Decoder) readMap(start int) (value.Value, *errors.FressError) {
	flat, ferr := d.readNestedList(start)
	if ferr != nil {
		return value.Value{}, ferr
	}
	if len(flat)%2 != 0 {
		return value.Value{}, errors.Syntax(errors.OddMapEntries, int64(start))
	}
	b := value.NewMapBuilder(len(flat) / 2)
	for i := 0; i < len(flat); i += 2 {
		if b.Has(flat[i]) {
			return value.Value{}, errors.Syntax(errors.DuplicateMapKey, int64(start))
		}
		b.Set(flat[i], flat[i+1])
	}
	return b.Build(), nil
}

// readArray reads a typed array: a count followed by that many elements of
// the given kind. KindNull accepts elements of any kind.
func (d *Decoder) readArray(start int, kind value.Kind, expected byte) (value.Value, *errors.FressError) {
	n, ferr := d.readCount(1)
	if ferr != nil {
		return value.Value{}, ferr
	}
	if ferr := d.enter(start); ferr != nil {
		return value.Value{}, ferr
	}
	defer d.leave()

	items := make([]value.Value, n)
	for i := range items {
		at := d.pos
		it, ferr := d.readValue()
		if ferr != nil {
			return value.Value{}, ferr
		}
		if kind != value.KindNull && it.Kind() != kind {
			return value.Value{}, errors.UnmatchedCode(int64(expected), int64(d.data[at]))
		}
		items[i] = it
	}
	return value.List(items...), nil
}

// readTyped reads one nested object of the given kind and wraps it in an Ext.
func (d *Decoder) readTyped(kind value.Kind, expected byte, tag string, start int) (value.Value, *errors.FressError) {
	if ferr := d.enter(start); ferr != nil {
		return value.Value{}, ferr
	}
	defer d.leave()

	at := d.pos
	v, ferr := d.readValue()
	if ferr != nil {
		return value.Value{}, ferr
	}
	if v.Kind() != kind {
		return value.Value{}, errors.UnmatchedCode(int64(expected), int64(d.data[at]))
	}
	return value.Ext(tag, v), nil
}

func (d *Decoder) readNamed(code byte, start int) (value.Value, *errors.FressError) {
	if ferr := d.enter(start); ferr != nil {
		return value.Value{}, ferr
	}
	defer d.leave()

	tag := TagKey
	if code == codeSym {
		tag = TagSym
	}
	parts := make([]value.Value, 2)
	for i := range parts {
		at := d.pos
		v, ferr := d.readValue()
		if ferr != nil {
			return value.Value{}, ferr
		}
		if v.Kind() != value.KindString && v.Kind() != value.KindNull {
			return value.Value{}, errors.UnmatchedCode(codeString, int64(d.data[at]))
		}
		parts[i] = v
	}
	return value.Ext(tag, parts...), nil
}

func (d *Decoder) readStructType(start int) (value.Value, *errors.FressError) {
	at := d.pos
	code, ferr := d.readByte()
	if ferr != nil {
		return value.Value{}, ferr
	}
	isString := (code >= codeStringPackedLengthStart && code < codeStringPackedLengthStart+stringPackedLengthEnd) ||
		code == codeString || code == codeStringChunk
	if !isString {
		return value.Value{}, errors.UnmatchedCode(codeString, int64(code))
	}
	tag, ferr := d.readStringBody(code, at)
	if ferr != nil {
		return value.Value{}, ferr
	}
	n, ferr := d.readCount(1)
	if ferr != nil {
		return value.Value{}, ferr
	}
	d.structs = append(d.structs, structKey{tag: tag, fields: n})
	return d.readFields(tag, n, start)
}

func (d *Decoder) readCachedStruct(idx int64, start int) (value.Value, *errors.FressError) {
	if idx < 0 || idx >= int64(len(d.structs)) {
		return value.Value{}, errors.Syntax(errors.UnknownStructType, int64(start))
	}
	st := d.structs[idx]
	return d.readFields(st.tag, st.fields, start)
}

func (d *Decoder) readFields(tag string, n int, start int) (value.Value, *errors.FressError) {
	if ferr := d.enter(start); ferr != nil {
		return value.Value{}, ferr
	}
	defer d.leave()

	fields := make([]value.Value, n)
	for i := range fields {
		f, ferr := d.readValue()
		if ferr != nil {
			return value.Value{}, ferr
		}
		fields[i] = f
	}
	return value.Ext(tag, fields...), nil
}
