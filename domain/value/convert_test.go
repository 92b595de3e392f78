package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

func (p point) ToValue() Value { return Ext("point", Int(int64(p.X)), Int(int64(p.Y))) }

type record struct {
	Name    string            `json:"name"`
	Count   int               `fress:"count"`
	Skipped string            `json:"-"`
	Note    string            `json:"note,omitempty"`
	Tags    []string          `json:"tags"`
	Attrs   map[string]int    `json:"attrs"`
	Where   *point            `json:"where"`
	hidden  int
	Extra   map[string]string `json:"extra"`
}

func TestFromPrimitives(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"int8", int8(-3), Int(-3)},
		{"uint16", uint16(9), Int(9)},
		{"float32", float32(1.5), Float(1.5)},
		{"string", "ünïcödé", String("ünïcödé")},
		{"bytes", []byte{0xde, 0xad}, Bytes([]byte{0xde, 0xad})},
		{"byte array", [2]byte{1, 2}, Bytes([]byte{1, 2})},
		{"nil slice", []string(nil), Null()},
		{"nil map", map[string]int(nil), Null()},
		{"nil pointer", (*point)(nil), Null()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestFromNestedSequences(t *testing.T) {
	data := [][]string{{"hello", "from", "wasm!"}, {"isn't", "this", "exciting?!"}}
	got, err := From(data)
	require.NoError(t, err)

	want := List(
		Strings("hello", "from", "wasm!"),
		Strings("isn't", "this", "exciting?!"),
	)
	assert.True(t, want.Equal(got))
}

func TestFromValuerTakesPrecedence(t *testing.T) {
	got, err := From(point{X: 1, Y: 2})
	require.NoError(t, err)
	assert.True(t, Ext("point", Int(1), Int(2)).Equal(got))

	got, err = From([]Valuer{point{X: 3}, Int(4)})
	require.NoError(t, err)
	assert.True(t, List(Ext("point", Int(3), Int(0)), Int(4)).Equal(got))
}

func TestFromStruct(t *testing.T) {
	r := record{
		Name:    "probe",
		Count:   2,
		Skipped: "ignored",
		Tags:    []string{"a"},
		Attrs:   map[string]int{"b": 2, "a": 1},
		Where:   &point{X: 5, Y: 6},
	}
	got, err := From(r)
	require.NoError(t, err)

	want := Map(
		E("name", String("probe")),
		E("count", Int(2)),
		E("tags", Strings("a")),
		E("attrs", Map(E("a", Int(1)), E("b", Int(2)))),
		E("where", Ext("point", Int(5), Int(6))),
		E("extra", Null()),
	)
	assert.True(t, want.Equal(got), "got %s", got)

	_, ok := got.GetString("Skipped")
	assert.False(t, ok)
	_, ok = got.GetString("note")
	assert.False(t, ok)
}

func TestFromMapIsDeterministic(t *testing.T) {
	in := map[string]int{"d": 4, "a": 1, "c": 3, "b": 2}
	first, err := From(in)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := From(in)
		require.NoError(t, err)
		assert.Equal(t, first.Entries(), again.Entries())
	}
}

func TestFromTime(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123).UTC()
	got, err := From(ts)
	require.NoError(t, err)
	assert.True(t, Ext(TagInst, Int(1_700_000_000_123)).Equal(got))
}

func TestFromRejectsUnsupported(t *testing.T) {
	_, err := From(make(chan int))
	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "$", ute.Path)

	_, err = From(map[string]any{"f": func() {}})
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "$[f]", ute.Path)

	_, err = From(uint64(math.MaxUint64))
	assert.Error(t, err)
}

func TestFromRejectsCycles(t *testing.T) {
	type node struct {
		Next *node
	}
	n := &node{}
	n.Next = n

	_, err := From(n)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)

	m := map[string]any{}
	m["self"] = m
	_, err = From(m)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "$[self]", ce.Path)

	xs := make([]any, 2)
	xs[1] = xs
	_, err = From(xs)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "$[1]", ce.Path)

	type holder struct {
		Items []any
	}
	h := &holder{Items: []any{nil}}
	h.Items[0] = h
	_, err = From(h)
	require.ErrorAs(t, err, &ce)
}

func TestFromAllowsSharedNonCyclicPointers(t *testing.T) {
	shared := &point{X: 1, Y: 1}
	got, err := From([]*point{shared, shared})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	type inner struct {
		N int
		P *int
	}
	x := &inner{N: 7}
	x.P = &x.N
	got, err = From(x)
	require.NoError(t, err)
	assert.True(t, got.Equal(Map(E("N", Int(7)), E("P", Int(7)))), got.String())

	sharedMap := map[string]int{"a": 1}
	got, err = From([]map[string]int{sharedMap, sharedMap})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	whole := []any{1, 2, 3}
	got, err = From([]any{whole, whole[:2]})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestMustFromPanics(t *testing.T) {
	assert.Panics(t, func() { MustFrom(make(chan int)) })
	assert.NotPanics(t, func() { MustFrom("ok") })
}
