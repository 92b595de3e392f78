package wazero

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/fress-sdk/domain/errors"
)

// Module exposes an instantiated wazero module through the operations the
// host needs: calling exports and reading or writing linear memory.
type Module struct {
	mod api.Module
}

// NewModule wraps an instantiated module.
func NewModule(mod api.Module) *Module {
	return &Module{mod: mod}
}

type moduleSettings struct {
	stdout io.Writer
	stderr io.Writer
}

// ModuleOption configures Instantiate.
type ModuleOption func(*moduleSettings)

// WithStdout routes the guest's stdout to w (default: discarded).
func WithStdout(w io.Writer) ModuleOption {
	return func(s *moduleSettings) {
		s.stdout = w
	}
}

// WithStderr routes the guest's stderr to w (default: discarded). A Go guest
// prints its panic message there before exiting.
func WithStderr(w io.Writer) ModuleOption {
	return func(s *moduleSettings) {
		s.stderr = w
	}
}

// Instantiate compiles and instantiates wasm under name, then runs the
// reactor's _initialize export if it has one.
func Instantiate(ctx context.Context, runtime wazero.Runtime, wasm []byte, name string, opts ...ModuleOption) (*Module, error) {
	settings := moduleSettings{stdout: io.Discard, stderr: io.Discard}
	for _, opt := range opts {
		opt(&settings)
	}

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions().
		WithStdout(settings.stdout).
		WithStderr(settings.stderr)

	mod, err := runtime.InstantiateModule(WithInstanceName(ctx, name), compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(WithInstanceName(ctx, name)); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return NewModule(mod), nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.mod.Name()
}

// Call invokes an export. A missing export yields errors.ErrExportNotFound;
// any other error means the call trapped or the module exited.
func (m *Module) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	f := m.mod.ExportedFunction(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %q", errors.ErrExportNotFound, name)
	}
	return f.Call(WithInstanceName(ctx, m.mod.Name()), params...)
}

// Read returns n bytes of guest memory at addr. The slice aliases guest
// memory.
func (m *Module) Read(addr, n uint32) ([]byte, bool) {
	mem := m.mod.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(addr, n)
}

// Write copies data into guest memory at addr.
func (m *Module) Write(addr uint32, data []byte) bool {
	mem := m.mod.Memory()
	if mem == nil {
		return false
	}
	return mem.Write(addr, data)
}

// Close closes the module.
func (m *Module) Close(ctx context.Context) error {
	return m.mod.Close(ctx)
}
