package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/wireformat"
)

const (
	// DefaultModuleName is the import module guests link against.
	DefaultModuleName = "fress_host"

	// DefaultMaxRequestSize bounds a single log record read from guest memory.
	DefaultMaxRequestSize = 1 << 20

	// LogMessageFunc is the name of the logging import.
	LogMessageFunc = "log_message"
)

// LogSink receives guest log records, decoded from the wire format.
type LogSink func(ctx context.Context, mod api.Module, record value.Value)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "fress_host").
	ModuleName string

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32

	// Logger reports requests that could not be read or decoded.
	Logger *zap.Logger

	// CustomHandlers allows adding additional wazero-specific handlers.
	CustomHandlers []CustomHandler
}

// CustomHandler represents an additional host function.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "fress_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithLogger sets the logger for adapter failures.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     DefaultModuleName,
		MaxRequestSize: DefaultMaxRequestSize,
		Logger:         zap.NewNop(),
	}
}

// RegisterWithRuntime creates the host module guests import and exports
// log_message from it. log_message takes one packed i64 (pointer in the high
// 32 bits, length in the low 32 bits) addressing a wire-encoded record; the
// guest keeps ownership of that buffer.
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, sink LogSink, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handleLogMessage(ctx, mod, stack[0], sink, cfg)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export(LogMessageFunc)

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %q: %w", cfg.ModuleName, err)
	}
	return nil
}

// handleLogMessage reads and decodes one record. Failures are logged and the
// record dropped; logging never traps the guest.
func handleLogMessage(ctx context.Context, mod api.Module, packed uint64, sink LogSink, cfg AdapterConfig) {
	ptr, length := unpackPtrLen(packed)
	instance := GetInstanceName(ctx, mod)

	if length > cfg.MaxRequestSize {
		cfg.Logger.Warn("wazero: guest log record too large",
			zap.String("instance", instance),
			zap.Uint32("size", length),
			zap.Uint32("max", cfg.MaxRequestSize))
		return
	}

	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		cfg.Logger.Warn("wazero: failed to read guest log record",
			zap.String("instance", instance),
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", length))
		return
	}

	record, err := wireformat.Unmarshal(data)
	if err != nil {
		cfg.Logger.Warn("wazero: failed to decode guest log record",
			zap.String("instance", instance),
			zap.Error(err))
		return
	}

	if sink != nil {
		sink(ctx, mod, record)
	}
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
