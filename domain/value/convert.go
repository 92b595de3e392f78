package value

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
)

// TagInst is the Ext tag used for instants (milliseconds since the Unix epoch).
const TagInst = "inst"

var (
	valuerType = reflect.TypeFor[Valuer]()
	timeType   = reflect.TypeFor[time.Time]()
)

// UnsupportedTypeError is returned by From when a native value has no Value shape.
type UnsupportedTypeError struct {
	Type reflect.Type
	Path string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("value: unsupported type %s at %s", e.Type, e.Path)
	}
	return fmt.Sprintf("value: unsupported type %s", e.Type)
}

// CycleError is returned by From when a pointer, map or slice refers back to
// itself.
type CycleError struct {
	Path string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("value: cyclic reference at %s", e.Path)
}

// From converts a native Go value into a Value by shape.
//
// Valuer implementations take precedence. Nil pointers, interfaces, slices and
// maps become Null. Structs become maps keyed by field name (a `fress` tag, or
// failing that a `json` tag, renames or skips a field). Go maps are emitted in
// canonical key order so the result does not depend on map iteration order.
func From(x any) (Value, error) {
	c := converter{seen: make(map[visit]struct{})}
	return c.convert(reflect.ValueOf(x), "$")
}

// MustFrom is From for inputs known to be well formed; it panics otherwise.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}

// visit identifies a reference on the current conversion path. The type is
// part of the key because a struct and its first field share an address; the
// length tells a slice apart from its prefixes.
type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type converter struct {
	seen map[visit]struct{}
}

// push marks k as being converted; it fails if k is already on the path.
func (c *converter) push(k visit, path string) error {
	if _, ok := c.seen[k]; ok {
		return &CycleError{Path: path}
	}
	c.seen[k] = struct{}{}
	return nil
}

func (c *converter) convert(rv reflect.Value, path string) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}

	if rv.Type().Implements(valuerType) {
		if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return Null(), nil
		}
		return rv.Interface().(Valuer).ToValue(), nil
	}
	if rv.Type() == timeType {
		t := rv.Interface().(time.Time)
		return Ext(TagInst, Int(t.UnixMilli())), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("value: %d at %s overflows int64", u, path)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(rv.Bytes()), nil
		}
		if rv.Len() > 0 {
			k := visit{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}
			if err := c.push(k, path); err != nil {
				return Value{}, err
			}
			defer delete(c.seen, k)
		}
		return c.sequence(rv, path)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return Bytes(b), nil
		}
		return c.sequence(rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return Null(), nil
		}
		k := visit{ptr: rv.Pointer(), typ: rv.Type()}
		if err := c.push(k, path); err != nil {
			return Value{}, err
		}
		defer delete(c.seen, k)
		return c.mapping(rv, path)
	case reflect.Struct:
		return c.record(rv, path)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		k := visit{ptr: rv.Pointer(), typ: rv.Type()}
		if err := c.push(k, path); err != nil {
			return Value{}, err
		}
		defer delete(c.seen, k)
		return c.convert(rv.Elem(), path)
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return c.convert(rv.Elem(), path)
	}
	return Value{}, &UnsupportedTypeError{Type: rv.Type(), Path: path}
}

func (c *converter) sequence(rv reflect.Value, path string) (Value, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		it, err := c.convert(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return Value{}, err
		}
		items[i] = it
	}
	return Value{kind: KindList, items: items}, nil
}

func (c *converter) mapping(rv reflect.Value, path string) (Value, error) {
	type pair struct {
		ck    string
		entry Entry
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := c.convert(iter.Key(), path+".<key>")
		if err != nil {
			return Value{}, err
		}
		v, err := c.convert(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key()))
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, pair{ck: canonicalKey(k), entry: Entry{Key: k, Value: v}})
	}
	slices.SortFunc(pairs, func(a, b pair) int { return strings.Compare(a.ck, b.ck) })

	b := NewMapBuilder(len(pairs))
	for _, p := range pairs {
		b.Set(p.entry.Key, p.entry.Value)
	}
	return b.Build(), nil
}

func (c *converter) record(rv reflect.Value, path string) (Value, error) {
	t := rv.Type()
	b := NewMapBuilder(t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := fieldName(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		v, err := c.convert(fv, path+"."+name)
		if err != nil {
			return Value{}, err
		}
		b.SetString(name, v)
	}
	return b.Build(), nil
}

func fieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := f.Tag.Lookup("fress")
	if !ok {
		tag, ok = f.Tag.Lookup("json")
	}
	if !ok {
		return f.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, slices.Contains(strings.Split(opts, ","), "omitempty"), false
}
