package value

// ToNative returns a plain Go representation of v, suitable for encoding/json
// or fmt. Maps whose keys are all strings become map[string]any; other maps
// become a list of [key, value] pairs. Ext values become
// {"#tag": tag, "fields": [...]}.
func ToNative(v Value) any {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindInt:
		return v.num
	case KindFloat:
		return v.float
	case KindString:
		return v.str
	case KindBytes:
		return append([]byte{}, v.raw...)
	case KindList:
		return nativeItems(v.items)
	case KindExt:
		return map[string]any{"#tag": v.str, "fields": nativeItems(v.items)}
	case KindMap:
		if v.m == nil {
			return map[string]any{}
		}
		byName := make(map[string]any, len(v.m.entries))
		for _, e := range v.m.entries {
			k, ok := e.Key.AsString()
			if !ok {
				return nativePairs(v.m.entries)
			}
			byName[k] = ToNative(e.Value)
		}
		return byName
	}
	return nil
}

func nativeItems(items []Value) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = ToNative(it)
	}
	return out
}

func nativePairs(entries []Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = []any{ToNative(e.Key), ToNative(e.Value)}
	}
	return out
}
