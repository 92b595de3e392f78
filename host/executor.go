package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reglet-dev/fress-sdk/domain/value"
	wazeroadapter "github.com/reglet-dev/fress-sdk/infrastructure/wazero"
	guestlog "github.com/reglet-dev/fress-sdk/log"
)

// Executor owns a wazero runtime shared by the guests it loads.
type Executor struct {
	runtime wazero.Runtime
	cfg     Config
	logger  *zap.Logger
	seq     atomic.Uint64
}

// NewExecutor creates a runtime with WASI and the host import module.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	ec := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&ec)
	}
	if err := ec.cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{cfg: ec.cfg, logger: ec.logger}

	rtCfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(ec.cfg.MemoryLimitPages)
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	err := wazeroadapter.RegisterWithRuntime(ctx, rt, e.forwardGuestLog,
		wazeroadapter.WithModuleName(ec.cfg.HostModuleName),
		wazeroadapter.WithMaxRequestSize(ec.cfg.MaxLogRecord),
		wazeroadapter.WithLogger(ec.logger),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	e.runtime = rt
	e.logger.Debug("host: executor ready",
		zap.String("host_module", ec.cfg.HostModuleName),
		zap.Uint32("memory_limit_pages", ec.cfg.MemoryLimitPages))
	return e, nil
}

// Config returns the configuration the executor was built with.
func (e *Executor) Config() Config {
	return e.cfg
}

// Load compiles and instantiates a guest module.
func (e *Executor) Load(ctx context.Context, wasm []byte) (*Instance, error) {
	name := fmt.Sprintf("guest-%d", e.seq.Add(1))
	stderr := newBoundedBuffer(defaultStderrLimit)

	mod, err := wazeroadapter.Instantiate(ctx, e.runtime, wasm, name, wazeroadapter.WithStderr(stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}

	e.logger.Debug("host: guest loaded", zap.String("instance", name), zap.Int("size", len(wasm)))
	return NewInstance(name, mod,
		WithPayloadLimit(e.cfg.MaxPayload),
		WithInstanceLogger(e.logger),
		WithStderrCapture(stderr),
	), nil
}

// LoadFile reads and loads a guest module from path.
func (e *Executor) LoadFile(ctx context.Context, path string) (*Instance, error) {
	wasm, err := os.ReadFile(path) //nolint:gosec // G304: the module path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return e.Load(ctx, wasm)
}

// Close releases the runtime and every module instantiated in it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// forwardGuestLog re-emits a guest log record on the host logger.
func (e *Executor) forwardGuestLog(ctx context.Context, mod api.Module, record value.Value) {
	instance := wazeroadapter.GetInstanceName(ctx, mod)

	rec, err := guestlog.ParseRecord(record)
	if err != nil {
		e.logger.Warn("host: malformed guest log record",
			zap.String("instance", instance),
			zap.Stringer("record", record),
			zap.Error(err))
		return
	}

	fields := []zap.Field{zap.String("instance", instance)}
	if !rec.Time.IsZero() {
		fields = append(fields, zap.Time("guest_time", rec.Time))
	}
	if rec.Source != "" {
		fields = append(fields, zap.String("source", rec.Source))
	}
	if rec.Attrs.Len() > 0 {
		fields = append(fields, zap.Stringer("attrs", rec.Attrs))
	}
	e.logger.Log(zapLevel(rec.Level), rec.Message, fields...)
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
