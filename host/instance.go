package host

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/guest"
	"github.com/reglet-dev/fress-sdk/internal/abi"
	"github.com/reglet-dev/fress-sdk/wireformat"
)

// Module is an instantiated guest as the host sees it: callable exports and a
// linear memory. *wazero.Module from infrastructure/wazero implements it.
type Module interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Read(addr, n uint32) ([]byte, bool)
	Write(addr uint32, data []byte) bool
	Close(ctx context.Context) error
}

// InstanceOption configures an Instance.
type InstanceOption func(*instanceConfig)

type instanceConfig struct {
	maxPayload uint32
	logger     *zap.Logger
	stderr     fmt.Stringer
}

// WithPayloadLimit sets the largest frame payload the instance accepts.
func WithPayloadLimit(n uint32) InstanceOption {
	return func(c *instanceConfig) {
		c.maxPayload = n
	}
}

// WithInstanceLogger sets the logger that reports aborts.
func WithInstanceLogger(l *zap.Logger) InstanceOption {
	return func(c *instanceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStderrCapture names the source of the guest's captured stderr, which
// is attached to AbortError.
func WithStderrCapture(s fmt.Stringer) InstanceOption {
	return func(c *instanceConfig) {
		c.stderr = s
	}
}

// Instance drives the transfer protocol against one guest. Calls are
// serialized; a guest module is not reentrant.
type Instance struct {
	mu      sync.Mutex
	name    string
	mod     Module
	cfg     instanceConfig
	aborted *AbortError
	closed  bool
}

// NewInstance wraps mod. The instance owns mod and closes it.
func NewInstance(name string, mod Module, opts ...InstanceOption) *Instance {
	cfg := instanceConfig{
		maxPayload: DefaultMaxPayload,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Instance{name: name, mod: mod, cfg: cfg}
}

// Name returns the instance name.
func (i *Instance) Name() string {
	return i.name
}

// Aborted returns the abort that ended the instance, or nil.
func (i *Instance) Aborted() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.aborted == nil {
		return nil
	}
	return i.aborted
}

// Produce calls an export that takes no arguments and returns a frame
// address, then takes the frame and decodes it.
//
// A guest-side failure that was encoded as a value is returned as a value;
// inspect it with errors.FromValue. The returned error is reserved for
// protocol and runtime failures.
func (i *Instance) Produce(ctx context.Context, export string) (value.Value, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	res, err := i.call(ctx, export)
	if err != nil {
		return value.Value{}, err
	}
	addr, err := resultAddr(export, res)
	if err != nil {
		return value.Value{}, err
	}
	return i.takeFrame(ctx, export, addr)
}

// Exchange encodes v, passes it to export as (address, length) and takes the
// frame the export returns.
func (i *Instance) Exchange(ctx context.Context, export string, v value.Value) (value.Value, error) {
	payload, err := wireformat.Marshal(v)
	if err != nil {
		return value.Value{}, fmt.Errorf("encode input for %s: %w", export, err)
	}
	return i.ExchangeRaw(ctx, export, payload)
}

// ExchangeRaw is Exchange with a pre-encoded payload. The payload is not
// checked, which lets callers send malformed input on purpose.
func (i *Instance) ExchangeRaw(ctx context.Context, export string, payload []byte) (value.Value, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if uint64(len(payload)) > math.MaxUint32 {
		return value.Value{}, &FrameError{Export: export, Reason: "input too large"}
	}
	n := uint32(len(payload)) //nolint:gosec // G115: checked above

	addr, err := i.allocate(ctx, n)
	if err != nil {
		return value.Value{}, err
	}
	if n > 0 && !i.mod.Write(addr, payload) {
		ferr := &FrameError{Export: guest.ExportAllocate, Addr: addr, Length: n, Reason: "input region out of bounds"}
		return value.Value{}, i.release(ctx, addr, n, ferr)
	}

	res, err := i.call(ctx, export, uint64(addr), uint64(n))
	if err != nil {
		if i.aborted != nil {
			return value.Value{}, err
		}
		// The export never ran, so the input region is still ours.
		return value.Value{}, i.release(ctx, addr, n, err)
	}
	reply, err := resultAddr(export, res)
	if err != nil {
		return value.Value{}, err
	}
	return i.takeFrame(ctx, export, reply)
}

// Echo sends v through consume_and_reply.
func (i *Instance) Echo(ctx context.Context, v value.Value) (value.Value, error) {
	return i.Exchange(ctx, guest.ExportConsumeAndReply, v)
}

// Call invokes an export with raw parameters.
func (i *Instance) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.call(ctx, export, params...)
}

// Close closes the underlying module. Closing an aborted instance is a no-op
// since the abort already closed it.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	if i.aborted != nil {
		return nil
	}
	if err := i.mod.Close(ctx); err != nil {
		return fmt.Errorf("failed to close %s: %w", i.name, err)
	}
	return nil
}

func (i *Instance) call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	if i.aborted != nil {
		return nil, fmt.Errorf("%s: call %s: %w", i.name, export, ErrInstanceAborted)
	}
	if i.closed {
		return nil, fmt.Errorf("%s: call %s: %w", i.name, export, ErrInstanceClosed)
	}

	res, err := i.mod.Call(ctx, export, params...)
	if err == nil {
		return res, nil
	}
	if stdErrors.Is(err, errors.ErrExportNotFound) {
		return nil, fmt.Errorf("%s: %w", i.name, err)
	}
	return nil, i.abort(ctx, export, err)
}

// abort records a trap or exit, closes the module and returns the error every
// later call will be measured against.
func (i *Instance) abort(ctx context.Context, export string, cause error) *AbortError {
	ae := &AbortError{Export: export, Err: cause}

	var exit *sys.ExitError
	if stdErrors.As(cause, &exit) {
		ae.Exited = true
		ae.ExitCode = exit.ExitCode()
	}
	if i.cfg.stderr != nil {
		ae.Stderr = i.cfg.stderr.String()
	}

	i.aborted = ae
	if err := i.mod.Close(ctx); err != nil {
		i.cfg.logger.Debug("host: close after abort failed", zap.String("instance", i.name), zap.Error(err))
	}

	i.cfg.logger.Error("host: guest aborted",
		zap.String("instance", i.name),
		zap.String("export", export),
		zap.Bool("exited", ae.Exited),
		zap.Uint32("exit_code", ae.ExitCode),
		zap.String("stderr", ae.Stderr),
		zap.Error(cause))
	return ae
}

func (i *Instance) allocate(ctx context.Context, size uint32) (uint32, error) {
	res, err := i.call(ctx, guest.ExportAllocate, uint64(size))
	if err != nil {
		return 0, err
	}
	addr, err := resultAddr(guest.ExportAllocate, res)
	if err != nil {
		return 0, err
	}
	if addr == 0 && size > 0 {
		return 0, &FrameError{Export: guest.ExportAllocate, Length: size, Reason: "null address"}
	}
	return addr, nil
}

func (i *Instance) deallocate(ctx context.Context, addr, length uint32) error {
	_, err := i.call(ctx, guest.ExportDeallocate, uint64(addr), uint64(length))
	return err
}

// release returns an input region the guest never took ownership of and
// reports cause, joined with any deallocation failure.
func (i *Instance) release(ctx context.Context, addr, length uint32, cause error) error {
	if err := i.deallocate(ctx, addr, length); err != nil {
		return stdErrors.Join(cause, err)
	}
	return cause
}

// takeFrame reads the frame at addr, copies its payload out, returns the
// frame to the guest and decodes the copy.
func (i *Instance) takeFrame(ctx context.Context, export string, addr uint32) (value.Value, error) {
	if addr == 0 {
		return value.Value{}, &FrameError{Export: export, Reason: "null address"}
	}
	if addr > math.MaxUint32-abi.HeaderSize {
		return value.Value{}, &FrameError{Export: export, Addr: addr, Reason: "header out of bounds"}
	}

	header, ok := i.mod.Read(addr, abi.HeaderSize)
	if !ok {
		return value.Value{}, &FrameError{Export: export, Addr: addr, Reason: "header out of bounds"}
	}
	n, _ := abi.ReadHeader(header)

	if n > i.cfg.maxPayload {
		if err := i.deallocate(ctx, addr, n); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, &FrameError{
			Export: export,
			Addr:   addr,
			Length: n,
			Reason: fmt.Sprintf("payload exceeds limit of %d bytes", i.cfg.maxPayload),
		}
	}

	payload, ok := i.mod.Read(addr+abi.HeaderSize, n)
	if !ok {
		if err := i.deallocate(ctx, addr, n); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, &FrameError{Export: export, Addr: addr, Length: n, Reason: "payload out of bounds"}
	}
	data := bytes.Clone(payload)

	if err := i.deallocate(ctx, addr, n); err != nil {
		return value.Value{}, err
	}

	v, err := wireformat.Unmarshal(data)
	if err != nil {
		return value.Value{}, &FrameError{Export: export, Addr: addr, Length: n, Reason: "undecodable payload", Err: err}
	}
	return v, nil
}

func resultAddr(export string, res []uint64) (uint32, error) {
	if len(res) != 1 {
		return 0, &FrameError{Export: export, Reason: fmt.Sprintf("expected 1 result, got %d", len(res))}
	}
	return uint32(res[0]), nil //nolint:gosec // G115: i32 result
}
