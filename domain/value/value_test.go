package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.True(t, v.Equal(Null()))
}

func TestAccessorsRejectOtherKinds(t *testing.T) {
	v := Int(7)

	n, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = v.AsString()
	assert.False(t, ok)
	_, ok = v.AsBool()
	assert.False(t, ok)
	_, ok = v.Tag()
	assert.False(t, ok)
	assert.Nil(t, v.Items())
	assert.Nil(t, v.Entries())
}

func TestListPreservesOrder(t *testing.T) {
	a := List(Int(1), Int(2), Int(3))
	b := List(Int(3), Int(2), Int(1))

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(List(Int(1), Int(2), Int(3))))
	assert.Equal(t, 3, a.Len())

	second, ok := a.Index(1)
	require.True(t, ok)
	assert.True(t, second.Equal(Int(2)))

	_, ok = a.Index(3)
	assert.False(t, ok)
}

func TestListCopiesItems(t *testing.T) {
	items := []Value{String("a"), String("b")}
	v := List(items...)
	items[0] = String("mutated")

	first, _ := v.Index(0)
	assert.True(t, first.Equal(String("a")))
}

func TestMapInsertionOrderAndReplace(t *testing.T) {
	b := NewMapBuilder(3)
	b.SetString("z", Int(1))
	b.SetString("a", Int(2))
	b.SetString("z", Int(3))
	m := b.Build()

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Key.Equal(String("z")))
	assert.True(t, entries[0].Value.Equal(Int(3)))
	assert.True(t, entries[1].Key.Equal(String("a")))
}

func TestMapEqualityIgnoresOrder(t *testing.T) {
	a := Map(E("x", Int(1)), E("y", Int(2)))
	b := Map(E("y", Int(2)), E("x", Int(1)))
	c := Map(E("x", Int(1)), E("y", Int(3)))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Map(E("x", Int(1)))))
}

func TestMapStructuredKeys(t *testing.T) {
	key := List(Int(1), String("two"))
	m := Map(Entry{Key: key, Value: Bool(true)})

	got, ok := m.Get(List(Int(1), String("two")))
	require.True(t, ok)
	assert.True(t, got.Equal(Bool(true)))

	_, ok = m.Get(List(String("two"), Int(1)))
	assert.False(t, ok)
}

func TestMapKeysDistinguishKinds(t *testing.T) {
	m := Map(
		Entry{Key: Int(1), Value: String("int")},
		Entry{Key: String("1"), Value: String("string")},
		Entry{Key: Float(1), Value: String("float")},
	)
	assert.Equal(t, 3, m.Len())
}

func TestBuilderIsolatedFromBuiltValue(t *testing.T) {
	b := NewMapBuilder(1)
	b.SetString("k", Int(1))
	first := b.Build()
	b.SetString("k", Int(2))

	got, _ := first.GetString("k")
	assert.True(t, got.Equal(Int(1)))
}

func TestFloatEqualityByBits(t *testing.T) {
	nan := Float(math.NaN())
	assert.True(t, nan.Equal(Float(math.NaN())))
	assert.False(t, Float(0).Equal(Float(math.Copysign(0, -1))))
}

func TestExtEquality(t *testing.T) {
	a := Ext("point", Int(1), Int(2))
	assert.True(t, a.Equal(Ext("point", Int(1), Int(2))))
	assert.False(t, a.Equal(Ext("vector", Int(1), Int(2))))
	assert.False(t, a.Equal(List(Int(1), Int(2))))

	tag, ok := a.Tag()
	require.True(t, ok)
	assert.Equal(t, "point", tag)
	assert.Len(t, a.Fields(), 2)
}

func TestBytesAreCopied(t *testing.T) {
	raw := []byte{1, 2, 3}
	v := Bytes(raw)
	raw[0] = 9

	got, ok := v.AsBytes()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestStringRendering(t *testing.T) {
	v := List(Strings("hello", "wasm"), Map(E("n", Int(1))), Ext("t", Null()))
	assert.Equal(t, `[["hello" "wasm"] {"n" 1} #t[nil]]`, v.String())
}

func TestToNative(t *testing.T) {
	v := Map(
		E("list", List(Int(1), Bool(true))),
		E("ext", Ext("tag", String("x"))),
	)
	got := ToNative(v)

	assert.Equal(t, map[string]any{
		"list": []any{int64(1), true},
		"ext":  map[string]any{"#tag": "tag", "fields": []any{"x"}},
	}, got)

	pairs := ToNative(Map(Entry{Key: Int(1), Value: Null()}))
	assert.Equal(t, []any{[]any{int64(1), nil}}, pairs)
}
