package guest

import (
	"strings"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// Export names of the fixture module built from cmd/fixture.
const (
	ExportProduceGreeting    = "produce_greeting"
	ExportProduceWideText    = "produce_wide_text"
	ExportConsumeAndReply    = "consume_and_reply"
	ExportProduceErrorBatch  = "produce_error_batch"
	ExportProduceCustomError = "produce_custom_error"
	ExportInduceFault        = "induce_fault"
	ExportAllocate           = "allocate"
	ExportDeallocate         = "deallocate"
)

const wideRun = "😉 😎 🤔 😐 🙄"

// Greeting is a list of two three-word lists.
func Greeting() value.Value {
	return value.MustFrom([][]string{
		{"hello", "from", "wasm!"},
		{"isn't", "this", "exciting?!"},
	})
}

// WideText is a one-element list holding a string made of four-byte code
// points.
func WideText() value.Value {
	return value.Strings(strings.Repeat(wideRun, 6))
}

// ErrorBatch holds one error of each shape.
func ErrorBatch() value.Value {
	return value.List(
		errors.Msg("some message").ToValue(),
		errors.UnmatchedCode(42, 43).ToValue(),
		errors.Syntax(errors.UnsupportedCacheType, 99).ToValue(),
	)
}

// CustomError is a library-defined error that describes itself as a map.
type CustomError struct {
	Field0 string
}

func (e *CustomError) Error() string { return "A custom Error" }

// ToValue implements value.Valuer.
func (e *CustomError) ToValue() value.Value {
	return value.Map(
		value.E("type", value.String("test_lib_error")),
		value.E("field_0", value.String(e.Field0)),
	)
}

// FailWithCustomError is an operation whose result is always a CustomError.
func FailWithCustomError() (any, error) {
	return nil, &CustomError{Field0: "some message"}
}

// The fixture operations, bound to a Boundary.

// ProduceGreeting produces Greeting.
func (b *Boundary) ProduceGreeting() uint32 { return b.Produce(Greeting()) }

// ProduceWideText produces WideText.
func (b *Boundary) ProduceWideText() uint32 { return b.Produce(WideText()) }

// ProduceErrorBatch produces ErrorBatch.
func (b *Boundary) ProduceErrorBatch() uint32 { return b.Produce(ErrorBatch()) }

// ProduceCustomError produces the outcome of FailWithCustomError.
func (b *Boundary) ProduceCustomError() uint32 { return b.ProduceResult(FailWithCustomError()) }
