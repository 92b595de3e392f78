package value

import (
	"encoding/binary"
	"math"
	"slices"
	"strings"
)

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

type mapData struct {
	entries []Entry
	index   map[string]int
}

func (m *mapData) len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *mapData) get(k Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.index[canonicalKey(k)]
	if !ok {
		return Value{}, false
	}
	return m.entries[i].Value, true
}

// MapBuilder accumulates entries for a Map value in insertion order.
// Setting an existing key replaces its value in place.
type MapBuilder struct {
	data mapData
}

// NewMapBuilder returns a builder sized for n entries.
func NewMapBuilder(n int) *MapBuilder {
	return &MapBuilder{data: mapData{
		entries: make([]Entry, 0, n),
		index:   make(map[string]int, n),
	}}
}

// Has reports whether key has already been set.
func (b *MapBuilder) Has(key Value) bool {
	_, ok := b.data.index[canonicalKey(key)]
	return ok
}

// Set adds or replaces the entry for key.
func (b *MapBuilder) Set(key, val Value) *MapBuilder {
	ck := canonicalKey(key)
	if i, ok := b.data.index[ck]; ok {
		b.data.entries[i].Value = val
		return b
	}
	b.data.index[ck] = len(b.data.entries)
	b.data.entries = append(b.data.entries, Entry{Key: key, Value: val})
	return b
}

// SetString is Set with a string key.
func (b *MapBuilder) SetString(key string, val Value) *MapBuilder {
	return b.Set(String(key), val)
}

// Len returns the number of distinct keys set so far.
func (b *MapBuilder) Len() int { return len(b.data.entries) }

// Build returns the Map value. The builder may keep being used afterwards
// without affecting the returned value.
func (b *MapBuilder) Build() Value {
	d := &mapData{
		entries: append([]Entry{}, b.data.entries...),
		index:   make(map[string]int, len(b.data.index)),
	}
	for k, i := range b.data.index {
		d.index[k] = i
	}
	return Value{kind: KindMap, m: d}
}

// Map builds a Map value from entries. Later duplicates replace earlier ones.
func Map(entries ...Entry) Value {
	b := NewMapBuilder(len(entries))
	for _, e := range entries {
		b.Set(e.Key, e.Value)
	}
	return b.Build()
}

// E is shorthand for an Entry keyed by a string.
func E(key string, val Value) Entry {
	return Entry{Key: String(key), Value: val}
}

// canonicalKey produces a string that is identical for structurally equal
// values. Map entries contribute in sorted order so insertion order does not
// affect identity.
func canonicalKey(v Value) string {
	var sb strings.Builder
	writeKey(&sb, v)
	return sb.String()
}

func writeKey(sb *strings.Builder, v Value) {
	var n [8]byte
	sb.WriteByte(byte(v.kind))
	switch v.kind {
	case KindBool:
		if v.flag {
			sb.WriteByte(1)
		} else {
			sb.WriteByte(0)
		}
	case KindInt:
		binary.BigEndian.PutUint64(n[:], uint64(v.num))
		sb.Write(n[:])
	case KindFloat:
		binary.BigEndian.PutUint64(n[:], math.Float64bits(v.float))
		sb.Write(n[:])
	case KindString:
		writeLenPrefixed(sb, v.str)
	case KindBytes:
		writeLenPrefixed(sb, string(v.raw))
	case KindList, KindExt:
		if v.kind == KindExt {
			writeLenPrefixed(sb, v.str)
		}
		binary.BigEndian.PutUint64(n[:], uint64(len(v.items)))
		sb.Write(n[:])
		for _, it := range v.items {
			writeKey(sb, it)
		}
	case KindMap:
		keys := make([]string, 0, v.m.len())
		if v.m != nil {
			for _, e := range v.m.entries {
				keys = append(keys, canonicalKey(e.Key)+canonicalKey(e.Value))
			}
		}
		slices.Sort(keys)
		binary.BigEndian.PutUint64(n[:], uint64(len(keys)))
		sb.Write(n[:])
		for _, k := range keys {
			writeLenPrefixed(sb, k)
		}
	}
}

func writeLenPrefixed(sb *strings.Builder, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	sb.Write(n[:])
	sb.WriteString(s)
}
