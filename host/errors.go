package host

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/fress-sdk/domain/entities"
)

// ErrInstanceAborted is returned by every call on an instance after a guest
// fault. AbortError matches it with errors.Is.
var ErrInstanceAborted = stdErrors.New("instance aborted")

// ErrInstanceClosed is returned by calls on a closed instance.
var ErrInstanceClosed = stdErrors.New("instance closed")

// AbortError reports a call that ended in a trap or a guest exit. The
// instance that returned it is unusable.
type AbortError struct {
	Err      error
	Export   string
	Stderr   string
	ExitCode uint32
	Exited   bool
}

func (e *AbortError) Error() string {
	if e.Exited {
		return fmt.Sprintf("guest aborted in %s (exit code %d): %v", e.Export, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("guest aborted in %s: %v", e.Export, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInstanceAborted.
func (e *AbortError) Is(target error) bool {
	return target == ErrInstanceAborted
}

// ToErrorDetail implements errors.DetailedError.
func (e *AbortError) ToErrorDetail() *entities.ErrorDetail {
	d := entities.NewErrorDetail(entities.ErrorTypeFault, e.Error()).WithCode("abort")
	d = d.WithDetails(map[string]any{"export": e.Export})
	if e.Exited {
		d.Details["exit_code"] = e.ExitCode
	}
	if e.Stderr != "" {
		d.Details["stderr"] = e.Stderr
	}
	return d
}

// FrameError reports a produced buffer the host could not take: a null
// address, an unreadable or oversized frame, or a payload that does not
// decode.
type FrameError struct {
	Err    error
	Export string
	Reason string
	Addr   uint32
	Length uint32
}

func (e *FrameError) Error() string {
	msg := fmt.Sprintf("bad frame from %s at 0x%x: %s", e.Export, e.Addr, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements errors.DetailedError.
func (e *FrameError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeWire, e.Error()).
		WithCode("frame").
		WithDetails(map[string]any{"export": e.Export, "addr": e.Addr, "length": e.Length})
}
