package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/reglet-dev/fress-sdk/domain/value"
)

// renderValue returns a JSON-encodable form of v. Floats JSON cannot hold
// (NaN, infinities) are rendered as their names.
func renderValue(v value.Value) any {
	switch v.Kind() {
	case value.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f
	case value.KindList:
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = renderValue(it)
		}
		return out
	case value.KindExt:
		tag, _ := v.Tag()
		fields := v.Fields()
		out := make([]any, len(fields))
		for i, f := range fields {
			out[i] = renderValue(f)
		}
		return map[string]any{"#tag": tag, "fields": out}
	case value.KindMap:
		entries := v.Entries()
		byName := make(map[string]any, len(entries))
		for _, e := range entries {
			k, ok := e.Key.AsString()
			if !ok {
				pairs := make([]any, len(entries))
				for i, p := range entries {
					pairs[i] = []any{renderValue(p.Key), renderValue(p.Value)}
				}
				return pairs
			}
			byName[k] = renderValue(e.Value)
		}
		return byName
	default:
		return value.ToNative(v)
	}
}

// parseJSONValue converts JSON text into a Value. Integral numbers become
// Int, the rest Float.
func parseJSONValue(text string) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var x any
	if err := dec.Decode(&x); err != nil {
		return value.Value{}, fmt.Errorf("invalid JSON input: %w", err)
	}
	if dec.More() {
		return value.Value{}, fmt.Errorf("invalid JSON input: trailing data")
	}
	return value.From(numbers(x))
}

func numbers(x any) any {
	switch t := x.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = numbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = numbers(t[k])
		}
		return t
	default:
		return x
	}
}
