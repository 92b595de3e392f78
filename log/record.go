package log

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"time"

	"github.com/reglet-dev/fress-sdk/domain/value"
)

// ErrMalformedRecord is returned by ParseRecord for values that are not log
// records.
var ErrMalformedRecord = stdErrors.New("malformed log record")

// Record is a log record as it crosses the boundary. On the wire it is a map
// with "level", "message" and, when present, "time" (an inst Ext holding Unix
// milliseconds), "source" and "attrs" (a map; groups nest as maps).
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Source  string
	Attrs   value.Value
}

func newRecord(r slog.Record, attrs []slog.Attr, addSource bool) Record {
	rec := Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrsToValue(attrs),
	}
	if addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			rec.Source = f.File + ":" + strconv.Itoa(f.Line)
		}
	}
	return rec
}

// ToValue implements value.Valuer.
func (r Record) ToValue() value.Value {
	b := value.NewMapBuilder(5).
		SetString("level", value.String(r.Level.String())).
		SetString("message", value.String(r.Message))
	if !r.Time.IsZero() {
		b.SetString("time", value.Ext(value.TagInst, value.Int(r.Time.UnixMilli())))
	}
	if r.Source != "" {
		b.SetString("source", value.String(r.Source))
	}
	if r.Attrs.Kind() == value.KindMap && r.Attrs.Len() > 0 {
		b.SetString("attrs", r.Attrs)
	}
	return b.Build()
}

// ParseRecord reads a Record back from its wire Value.
func ParseRecord(v value.Value) (Record, error) {
	if v.Kind() != value.KindMap {
		return Record{}, fmt.Errorf("%w: got %s", ErrMalformedRecord, v.Kind())
	}

	var rec Record
	level, err := stringField(v, "level", true)
	if err != nil {
		return Record{}, err
	}
	if err := rec.Level.UnmarshalText([]byte(level)); err != nil {
		return Record{}, fmt.Errorf("%w: level %q", ErrMalformedRecord, level)
	}
	if rec.Message, err = stringField(v, "message", true); err != nil {
		return Record{}, err
	}
	if rec.Source, err = stringField(v, "source", false); err != nil {
		return Record{}, err
	}

	if t, ok := v.GetString("time"); ok {
		tag, _ := t.Tag()
		fields := t.Fields()
		if tag != value.TagInst || len(fields) != 1 {
			return Record{}, fmt.Errorf("%w: time is %s", ErrMalformedRecord, t)
		}
		ms, ok := fields[0].AsInt()
		if !ok {
			return Record{}, fmt.Errorf("%w: time is %s", ErrMalformedRecord, t)
		}
		rec.Time = time.UnixMilli(ms)
	}

	if attrs, ok := v.GetString("attrs"); ok {
		if attrs.Kind() != value.KindMap {
			return Record{}, fmt.Errorf("%w: attrs is %s", ErrMalformedRecord, attrs.Kind())
		}
		rec.Attrs = attrs
	}
	return rec, nil
}

func stringField(v value.Value, key string, required bool) (string, error) {
	f, ok := v.GetString(key)
	if !ok {
		if required {
			return "", fmt.Errorf("%w: missing %s", ErrMalformedRecord, key)
		}
		return "", nil
	}
	s, ok := f.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s is %s", ErrMalformedRecord, key, f.Kind())
	}
	return s, nil
}

// attrValue converts a resolved slog.Value.
func attrValue(v slog.Value) value.Value {
	switch v.Kind() {
	case slog.KindString:
		return value.String(v.String())
	case slog.KindInt64:
		return value.Int(v.Int64())
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return value.Int(int64(u))
		}
		return value.String(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return value.Float(v.Float64())
	case slog.KindBool:
		return value.Bool(v.Bool())
	case slog.KindDuration:
		return value.String(v.Duration().String())
	case slog.KindTime:
		return value.Ext(value.TagInst, value.Int(v.Time().UnixMilli()))
	case slog.KindGroup:
		return attrsToValue(v.Group())
	}

	switch x := v.Any().(type) {
	case nil:
		return value.Null()
	case value.Valuer:
		return x.ToValue()
	case error:
		return value.String(x.Error())
	default:
		if conv, err := value.From(x); err == nil {
			return conv
		}
		return value.String(fmt.Sprintf("%v", x))
	}
}

// fields collects attrs in first-seen order, merging groups that share a key.
type fields struct {
	order []string
	vals  map[string]fieldValue
}

type fieldValue struct {
	leaf  value.Value
	group *fields
}

func attrsToValue(attrs []slog.Attr) value.Value {
	f := &fields{vals: make(map[string]fieldValue)}
	f.add(attrs)
	return f.build()
}

func (f *fields) add(attrs []slog.Attr) {
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			continue
		}
		if a.Value.Kind() == slog.KindGroup {
			members := a.Value.Group()
			if len(members) == 0 {
				continue
			}
			if a.Key == "" {
				f.add(members)
				continue
			}
			f.group(a.Key).add(members)
			continue
		}
		f.put(a.Key, fieldValue{leaf: attrValue(a.Value)})
	}
}

func (f *fields) group(key string) *fields {
	if fv, ok := f.vals[key]; ok && fv.group != nil {
		return fv.group
	}
	g := &fields{vals: make(map[string]fieldValue)}
	f.put(key, fieldValue{group: g})
	return g
}

func (f *fields) put(key string, fv fieldValue) {
	if _, ok := f.vals[key]; !ok {
		f.order = append(f.order, key)
	}
	f.vals[key] = fv
}

func (f *fields) build() value.Value {
	b := value.NewMapBuilder(len(f.order))
	for _, k := range f.order {
		fv := f.vals[k]
		if fv.group != nil {
			b.SetString(k, fv.group.build())
		} else {
			b.SetString(k, fv.leaf)
		}
	}
	return b.Build()
}
