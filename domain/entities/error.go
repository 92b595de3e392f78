package entities

import "fmt"

// Error types reported in ErrorDetail.Type.
const (
	ErrorTypeWire       = "wire"       // a decoded or produced wire error value
	ErrorTypeConversion = "conversion" // a native value could not be described as a Value
	ErrorTypeFault      = "fault"      // the guest aborted
	ErrorTypeInternal   = "internal"
)

// ErrorDetail provides structured error information in a form that renders the
// same way on both sides of the boundary.
type ErrorDetail struct {
	// Wrapped contains a wrapped error for error chains.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details contains additional error context, such as offending codes.
	Details map[string]any `json:"details,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Position is the input offset at which a decoder detected the error.
	Position *int64 `json:"position,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Position != nil {
		msg = fmt.Sprintf("%s @%d", msg, *e.Position)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns e.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithPosition attaches an input offset and returns e.
func (e *ErrorDetail) WithPosition(pos int64) *ErrorDetail {
	e.Position = &pos
	return e
}
