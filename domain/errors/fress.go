package errors

import (
	"fmt"
	"strconv"

	"github.com/reglet-dev/fress-sdk/domain/entities"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// Ext tags under which each FressError shape travels on the wire.
const (
	TagMsg           = "fress/msg"
	TagUnmatchedCode = "fress/unmatched-code"
	TagSyntax        = "fress/syntax"
)

// ErrorCode enumerates the structural violations a decoder can report.
type ErrorCode uint8

const (
	ErrorCodeUnknown ErrorCode = iota
	Eof
	UnsupportedCacheType
	UnknownStructType
	InvalidUTF8
	NegativeLength
	OddMapEntries
	DuplicateMapKey
	TrailingCharacters
	RecursionLimitExceeded
	InvalidFooter
)

var errorCodeNames = [...]string{
	ErrorCodeUnknown:       "Unknown",
	Eof:                    "Eof",
	UnsupportedCacheType:   "UnsupportedCacheType",
	UnknownStructType:      "UnknownStructType",
	InvalidUTF8:            "InvalidUTF8",
	NegativeLength:         "NegativeLength",
	OddMapEntries:          "OddMapEntries",
	DuplicateMapKey:        "DuplicateMapKey",
	TrailingCharacters:     "TrailingCharacters",
	RecursionLimitExceeded: "RecursionLimitExceeded",
	InvalidFooter:          "InvalidFooter",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
}

// ParseErrorCode maps a code name back to its ErrorCode.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for i, n := range errorCodeNames {
		if n == name && i != int(ErrorCodeUnknown) {
			return ErrorCode(i), true
		}
	}
	return ErrorCodeUnknown, false
}

// Shape identifies which FressError variant a value holds.
type Shape uint8

const (
	ShapeMsg Shape = iota + 1
	ShapeUnmatchedCode
	ShapeSyntax
)

func (s Shape) String() string {
	switch s {
	case ShapeMsg:
		return "msg"
	case ShapeUnmatchedCode:
		return "unmatched_code"
	case ShapeSyntax:
		return "syntax"
	default:
		return "unknown"
	}
}

// FressError is a structured error that crosses the boundary as an ordinary
// Value. It is immutable once constructed.
type FressError struct {
	text     string
	expected int64
	found    int64
	position int64
	code     ErrorCode
	shape    Shape
}

// Msg returns a free-form diagnostic error.
func Msg(text string) *FressError {
	return &FressError{shape: ShapeMsg, text: text}
}

// Msgf is Msg with fmt formatting.
func Msgf(format string, args ...any) *FressError {
	return Msg(fmt.Sprintf(format, args...))
}

// UnmatchedCode reports a wire code that does not match the one required.
func UnmatchedCode(expected, found int64) *FressError {
	return &FressError{shape: ShapeUnmatchedCode, expected: expected, found: found}
}

// Syntax reports a structural violation detected at position.
func Syntax(code ErrorCode, position int64) *FressError {
	return &FressError{shape: ShapeSyntax, code: code, position: position}
}

// Shape returns the variant of e.
func (e *FressError) Shape() Shape { return e.shape }

// Text returns the message of a Msg error.
func (e *FressError) Text() string { return e.text }

// Codes returns the expected and found codes of an UnmatchedCode error.
func (e *FressError) Codes() (expected, found int64) { return e.expected, e.found }

// Code returns the ErrorCode of a Syntax error.
func (e *FressError) Code() ErrorCode { return e.code }

// Position returns the input offset of a Syntax error.
func (e *FressError) Position() int64 { return e.position }

func (e *FressError) Error() string {
	switch e.shape {
	case ShapeMsg:
		return "fress: " + e.text
	case ShapeUnmatchedCode:
		return fmt.Sprintf("fress: unmatched code: expected 0x%02x, found 0x%02x", e.expected, e.found)
	case ShapeSyntax:
		return fmt.Sprintf("fress: syntax error %s at %d", e.code, e.position)
	default:
		return "fress: invalid error"
	}
}

// Is matches errors of the same shape: Msg by text, UnmatchedCode by both
// codes, Syntax by ErrorCode regardless of position.
func (e *FressError) Is(target error) bool {
	t, ok := target.(*FressError)
	if !ok || t.shape != e.shape {
		return false
	}
	switch e.shape {
	case ShapeMsg:
		return e.text == t.text
	case ShapeUnmatchedCode:
		return e.expected == t.expected && e.found == t.found
	case ShapeSyntax:
		return e.code == t.code
	}
	return false
}

// ToValue implements value.Valuer.
func (e *FressError) ToValue() value.Value {
	switch e.shape {
	case ShapeUnmatchedCode:
		return value.Ext(TagUnmatchedCode, value.Int(e.expected), value.Int(e.found))
	case ShapeSyntax:
		return value.Ext(TagSyntax, value.String(e.code.String()), value.Int(e.position))
	default:
		return value.Ext(TagMsg, value.String(e.text))
	}
}

// ToErrorDetail implements DetailedError.
func (e *FressError) ToErrorDetail() *entities.ErrorDetail {
	d := entities.NewErrorDetail(entities.ErrorTypeWire, e.Error())
	switch e.shape {
	case ShapeMsg:
		d.WithCode(e.shape.String())
	case ShapeUnmatchedCode:
		d.WithCode(e.shape.String()).WithDetails(map[string]any{
			"expected": e.expected,
			"found":    e.found,
		})
	case ShapeSyntax:
		d.WithCode(e.code.String()).WithPosition(e.position)
	}
	return d
}

// FromValue recognizes a Value produced by FressError.ToValue. It reports false
// for every other value, including Ext values with a matching tag but a
// malformed field list.
func FromValue(v value.Value) (*FressError, bool) {
	tag, ok := v.Tag()
	if !ok {
		return nil, false
	}
	fields := v.Fields()
	switch tag {
	case TagMsg:
		if len(fields) != 1 {
			return nil, false
		}
		text, ok := fields[0].AsString()
		if !ok {
			return nil, false
		}
		return Msg(text), true
	case TagUnmatchedCode:
		if len(fields) != 2 {
			return nil, false
		}
		expected, ok1 := fields[0].AsInt()
		found, ok2 := fields[1].AsInt()
		if !ok1 || !ok2 {
			return nil, false
		}
		return UnmatchedCode(expected, found), true
	case TagSyntax:
		if len(fields) != 2 {
			return nil, false
		}
		name, ok1 := fields[0].AsString()
		pos, ok2 := fields[1].AsInt()
		if !ok1 || !ok2 {
			return nil, false
		}
		code, ok := ParseErrorCode(name)
		if !ok {
			return nil, false
		}
		return Syntax(code, pos), true
	}
	return nil, false
}

// ResultValue folds a native (result, error) pair into the single Value that
// crosses the boundary. Errors that describe themselves as Values are used
// as-is; any other error, or a result that cannot be converted, becomes Msg.
func ResultValue(result any, err error) value.Value {
	if err != nil {
		if vr, ok := err.(value.Valuer); ok {
			return vr.ToValue()
		}
		return Msg(err.Error()).ToValue()
	}
	v, convErr := value.From(result)
	if convErr != nil {
		return Msg(convErr.Error()).ToValue()
	}
	return v
}
