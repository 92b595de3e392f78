// Package value provides the tagged-union Value exchanged between guest code,
// the wire format codec and the host.
//
// A Value is immutable once built. Lists, maps and extension records are
// constructed from already-built children, so every Value is a finite tree.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindExt
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindList:   "list",
	KindMap:    "map",
	KindExt:    "ext",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a self-describing datum. The zero Value is Null.
type Value struct {
	kind  Kind
	flag  bool
	num   int64
	float float64
	str   string  // String payload, Ext tag
	raw   []byte  // Bytes payload
	items []Value // List items, Ext fields
	m     *mapData
}

// Valuer is implemented by any type that can describe itself as a Value.
// Conversion only maps shapes; it never validates business rules.
type Valuer interface {
	ToValue() Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Int returns an integer Value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, float: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bytes returns a byte-array Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(nonNil(b))}
}

// List returns an ordered sequence Value. The items slice is copied.
func List(items ...Value) Value {
	return Value{kind: KindList, items: append([]Value{}, items...)}
}

// Strings is shorthand for a List of String values.
func Strings(ss ...string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = String(s)
	}
	return Value{kind: KindList, items: items}
}

// Ext returns an extension Value: a type tag followed by ordered fields.
// Extension values carry structured records such as wire errors.
func Ext(tag string, fields ...Value) Value {
	return Value{kind: KindExt, str: tag, items: append([]Value{}, fields...)}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInt }

// AsFloat returns the floating-point payload.
func (v Value) AsFloat() (float64, bool) { return v.float, v.kind == KindFloat }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBytes returns a copy of the byte-array payload.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

// Len returns the number of items of a List, entries of a Map, fields of an
// Ext, or bytes of a String/Bytes value. Other kinds report 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList, KindExt:
		return len(v.items)
	case KindMap:
		return v.m.len()
	case KindString:
		return len(v.str)
	case KindBytes:
		return len(v.raw)
	default:
		return 0
	}
}

// Items returns a copy of the List items, or nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Index returns the i-th List item or Ext field.
func (v Value) Index(i int) (Value, bool) {
	if (v.kind != KindList && v.kind != KindExt) || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Tag returns the type tag of an Ext value.
func (v Value) Tag() (string, bool) {
	if v.kind != KindExt {
		return "", false
	}
	return v.str, true
}

// Fields returns a copy of the fields of an Ext value.
func (v Value) Fields() []Value {
	if v.kind != KindExt {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Entries returns the Map entries in insertion order, or nil for other kinds.
func (v Value) Entries() []Entry {
	if v.kind != KindMap {
		return nil
	}
	return append([]Entry{}, v.m.entries...)
}

// Get looks up key in a Map value.
func (v Value) Get(key Value) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	return v.m.get(key)
}

// GetString is Get with a string key.
func (v Value) GetString(key string) (Value, bool) {
	return v.Get(String(key))
}

// Equal reports structural equality. Lists compare in order; maps compare as
// entry sets. Floats compare by bit pattern so NaN payloads survive round trips.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.flag == o.flag
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return math.Float64bits(v.float) == math.Float64bits(o.float)
	case KindString:
		return v.str == o.str
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindList:
		return equalItems(v.items, o.items)
	case KindExt:
		return v.str == o.str && equalItems(v.items, o.items)
	case KindMap:
		if v.m.len() != o.m.len() {
			return false
		}
		for _, e := range v.m.entries {
			other, ok := o.m.get(e.Key)
			if !ok || !e.Value.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

func equalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String renders v for diagnostics. It is not a serialization format.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.flag))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.num, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.float, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.str))
	case KindBytes:
		fmt.Fprintf(sb, "#bytes[%x]", v.raw)
	case KindList:
		sb.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			it.write(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.m.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.write(sb)
			sb.WriteByte(' ')
			e.Value.write(sb)
		}
		sb.WriteByte('}')
	case KindExt:
		sb.WriteString("#" + v.str + "[")
		for i, it := range v.items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			it.write(sb)
		}
		sb.WriteByte(']')
	}
}

// ToValue lets a Value be passed wherever a Valuer is accepted.
func (v Value) ToValue() Value { return v }

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
