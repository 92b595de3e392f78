package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/fress-sdk/domain/entities"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

func TestMsg(t *testing.T) {
	err := Msg("some message")

	assert.Equal(t, ShapeMsg, err.Shape())
	assert.Equal(t, "some message", err.Text())
	assert.Equal(t, "fress: some message", err.Error())
	assert.True(t, value.Ext(TagMsg, value.String("some message")).Equal(err.ToValue()))
}

func TestUnmatchedCode(t *testing.T) {
	err := UnmatchedCode(42, 43)

	expected, found := err.Codes()
	assert.Equal(t, int64(42), expected)
	assert.Equal(t, int64(43), found)
	assert.Equal(t, "fress: unmatched code: expected 0x2a, found 0x2b", err.Error())
	assert.True(t, value.Ext(TagUnmatchedCode, value.Int(42), value.Int(43)).Equal(err.ToValue()))
}

func TestSyntax(t *testing.T) {
	err := Syntax(UnsupportedCacheType, 99)

	assert.Equal(t, UnsupportedCacheType, err.Code())
	assert.Equal(t, int64(99), err.Position())
	assert.Equal(t, "fress: syntax error UnsupportedCacheType at 99", err.Error())
	assert.True(t, value.Ext(TagSyntax, value.String("UnsupportedCacheType"), value.Int(99)).Equal(err.ToValue()))
}

func TestShapesHaveDistinctTags(t *testing.T) {
	tags := map[string]bool{}
	for _, err := range []*FressError{Msg("x"), UnmatchedCode(1, 2), Syntax(Eof, 0)} {
		tag, ok := err.ToValue().Tag()
		require.True(t, ok)
		tags[tag] = true
	}
	assert.Len(t, tags, 3)
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("decode reply: %w", Syntax(Eof, 12))

	assert.True(t, errors.Is(wrapped, Syntax(Eof, 0)))
	assert.False(t, errors.Is(wrapped, Syntax(InvalidUTF8, 12)))
	assert.False(t, errors.Is(wrapped, Msg("fress: syntax error Eof at 12")))
	assert.True(t, errors.Is(UnmatchedCode(1, 2), UnmatchedCode(1, 2)))
	assert.False(t, errors.Is(UnmatchedCode(1, 2), UnmatchedCode(2, 1)))

	var fe *FressError
	require.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, int64(12), fe.Position())
}

func TestFromValueRoundTrip(t *testing.T) {
	for _, err := range []*FressError{Msg("boom"), UnmatchedCode(42, 43), Syntax(DuplicateMapKey, 7)} {
		got, ok := FromValue(err.ToValue())
		require.True(t, ok, err.Error())
		assert.Equal(t, err, got)
	}
}

func TestFromValueRejectsOtherValues(t *testing.T) {
	tests := []value.Value{
		value.String("fress/msg"),
		value.Ext("other", value.String("x")),
		value.Ext(TagMsg),
		value.Ext(TagMsg, value.Int(1)),
		value.Ext(TagUnmatchedCode, value.Int(1)),
		value.Ext(TagSyntax, value.String("NotACode"), value.Int(1)),
		value.Ext(TagSyntax, value.String("Eof"), value.String("1")),
	}
	for _, v := range tests {
		_, ok := FromValue(v)
		assert.False(t, ok, v.String())
	}
}

func TestParseErrorCode(t *testing.T) {
	code, ok := ParseErrorCode("UnsupportedCacheType")
	require.True(t, ok)
	assert.Equal(t, UnsupportedCacheType, code)

	_, ok = ParseErrorCode("Unknown")
	assert.False(t, ok)
	_, ok = ParseErrorCode("nope")
	assert.False(t, ok)

	assert.Equal(t, "ErrorCode(200)", ErrorCode(200).String())
}

func TestFressErrorToErrorDetail(t *testing.T) {
	d := ToErrorDetail(Syntax(UnsupportedCacheType, 99))
	require.NotNil(t, d)
	assert.Equal(t, entities.ErrorTypeWire, d.Type)
	assert.Equal(t, "UnsupportedCacheType", d.Code)
	require.NotNil(t, d.Position)
	assert.Equal(t, int64(99), *d.Position)
	assert.Equal(t, "wire: fress: syntax error UnsupportedCacheType at 99 [UnsupportedCacheType] @99", d.Error())

	d = ToErrorDetail(UnmatchedCode(42, 43))
	assert.Equal(t, "unmatched_code", d.Code)
	assert.Equal(t, map[string]any{"expected": int64(42), "found": int64(43)}, d.Details)
}

func TestToErrorDetailGeneric(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	d := ToErrorDetail(fmt.Errorf("plain"))
	assert.Equal(t, entities.ErrorTypeInternal, d.Type)
	assert.Equal(t, "plain", d.Error())

	existing := entities.NewErrorDetail(entities.ErrorTypeFault, "aborted")
	assert.Same(t, existing, ToErrorDetail(fmt.Errorf("wrap: %w", existing)))
}

func TestMemoryError(t *testing.T) {
	err := &MemoryError{Requested: 10, Current: 95, Limit: 100}
	assert.Equal(t, "memory allocation failed: requested 10 bytes, current 95 bytes, limit 100 bytes", err.Error())
	assert.Equal(t, "memory_limit", ToErrorDetail(err).Code)
}

func TestWireFormatError(t *testing.T) {
	base := fmt.Errorf("invalid utf-8")
	err := &WireFormatError{Operation: "encode", Type: "string", Err: base}

	assert.Equal(t, "wire format encode failed for string: invalid utf-8", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "wire_format", ToErrorDetail(err).Code)
}

func TestConversionError(t *testing.T) {
	base := fmt.Errorf("unsupported type chan int")
	err := &ConversionError{Err: base}
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, entities.ErrorTypeConversion, ToErrorDetail(err).Type)
}

type customError struct{ field string }

func (e *customError) Error() string { return "A custom Error" }

func (e *customError) ToValue() value.Value {
	return value.Map(value.E("type", value.String("test_lib_error")), value.E("field_0", value.String(e.field)))
}

func TestResultValue(t *testing.T) {
	ok := ResultValue([]string{"a"}, nil)
	assert.True(t, value.Strings("a").Equal(ok))

	custom := ResultValue(nil, &customError{field: "some message"})
	typ, found := custom.GetString("type")
	require.True(t, found)
	assert.True(t, value.String("test_lib_error").Equal(typ))

	plain := ResultValue(nil, fmt.Errorf("plain failure"))
	fe, isErr := FromValue(plain)
	require.True(t, isErr)
	assert.Equal(t, "plain failure", fe.Text())

	bad := ResultValue(make(chan int), nil)
	fe, isErr = FromValue(bad)
	require.True(t, isErr)
	assert.Contains(t, fe.Text(), "unsupported type")
}
