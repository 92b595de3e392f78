package wazero

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/testing/fresstest"
	"github.com/reglet-dev/fress-sdk/wireformat"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	if cfg.ModuleName != "fress_host" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "fress_host")
	}
	if cfg.MaxRequestSize != DefaultMaxRequestSize {
		t.Errorf("MaxRequestSize = %d, want %d", cfg.MaxRequestSize, DefaultMaxRequestSize)
	}
	if cfg.Logger == nil {
		t.Error("Logger = nil, want a no-op logger")
	}
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	logger := zap.NewExample()
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithLogger(logger)(&cfg)
	WithCustomHandler(CustomHandler{Name: "extra"})(&cfg)

	if cfg.ModuleName != "custom_module" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "custom_module")
	}
	if cfg.MaxRequestSize != 2048 {
		t.Errorf("MaxRequestSize = %d, want %d", cfg.MaxRequestSize, 2048)
	}
	if cfg.Logger != logger {
		t.Error("Logger was not applied")
	}
	if len(cfg.CustomHandlers) != 1 || cfg.CustomHandlers[0].Name != "extra" {
		t.Errorf("CustomHandlers = %+v", cfg.CustomHandlers)
	}
}

func TestUnpackPtrLen(t *testing.T) {
	tests := []struct {
		packed uint64
		ptr    uint32
		length uint32
	}{
		{0, 0, 0},
		{1<<32 | 1, 1, 1},
		{0xFFFFFFFFFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		{0x123456789ABCDEF0, 0x12345678, 0x9ABCDEF0},
		{5, 0, 5},
	}

	for _, tt := range tests {
		gotPtr, gotLen := unpackPtrLen(tt.packed)
		if gotPtr != tt.ptr {
			t.Errorf("unpackPtrLen(%x): ptr = %x, want %x", tt.packed, gotPtr, tt.ptr)
		}
		if gotLen != tt.length {
			t.Errorf("unpackPtrLen(%x): len = %x, want %x", tt.packed, gotLen, tt.length)
		}
	}
}

func TestRegisterWithRuntime(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	noop := api.GoModuleFunc(func(context.Context, api.Module, []uint64) {})
	err := RegisterWithRuntime(ctx, rt, nil, WithCustomHandler(CustomHandler{
		Name:       "extra",
		Handler:    noop,
		ParamTypes: []api.ValueType{api.ValueTypeI32},
	}))
	if err != nil {
		t.Fatalf("RegisterWithRuntime() error = %v", err)
	}

	defs := rt.Module(DefaultModuleName).ExportedFunctionDefinitions()
	for _, name := range []string{LogMessageFunc, "extra"} {
		if _, ok := defs[name]; !ok {
			t.Errorf("host module does not export %q", name)
		}
	}

	if err := RegisterWithRuntime(ctx, rt, nil); err == nil {
		t.Error("registering the same module name twice should fail")
	}
}

// loadTiny instantiates the tiny test module in a fresh runtime.
func loadTiny(ctx context.Context, t *testing.T) *Module {
	t.Helper()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	mod, err := Instantiate(ctx, rt, fresstest.TinyWasm, "tiny")
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	return mod
}

func TestHandleLogMessage(t *testing.T) {
	ctx := context.Background()
	mod := loadTiny(ctx, t)

	record := value.Map(value.E("level", value.String("INFO")), value.E("message", value.String("hi")))
	data, err := wireformat.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if !mod.Write(16, data) {
		t.Fatal("Write() failed")
	}

	var got value.Value
	var gotInstance string
	sink := func(ctx context.Context, m api.Module, v value.Value) {
		got = v
		gotInstance = GetInstanceName(ctx, m)
	}
	handleLogMessage(ctx, mod.mod, 16<<32|uint64(len(data)), sink, defaultAdapterConfig())

	if !got.Equal(record) {
		t.Errorf("sink got %s, want %s", got, record)
	}
	if gotInstance != "tiny" {
		t.Errorf("instance = %q, want %q", gotInstance, "tiny")
	}
}

func TestHandleLogMessageDropsBadRecords(t *testing.T) {
	ctx := context.Background()
	mod := loadTiny(ctx, t)
	mod.Write(16, []byte{0xCC, 0x00})

	tests := []struct {
		name   string
		packed uint64
		max    uint32
		msg    string
	}{
		{"too large", 16<<32 | 2, 1, "wazero: guest log record too large"},
		{"out of bounds", 0x20000<<32 | 2, DefaultMaxRequestSize, "wazero: failed to read guest log record"},
		{"undecodable", 16<<32 | 2, DefaultMaxRequestSize, "wazero: failed to decode guest log record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			cfg := defaultAdapterConfig()
			cfg.MaxRequestSize = tt.max
			cfg.Logger = zap.New(core)

			called := false
			handleLogMessage(ctx, mod.mod, tt.packed, func(context.Context, api.Module, value.Value) { called = true }, cfg)

			if called {
				t.Error("sink was called for a bad record")
			}
			if logs.Len() != 1 || logs.All()[0].Message != tt.msg {
				t.Errorf("logs = %+v, want one %q", logs.All(), tt.msg)
			}
		})
	}
}

func TestModule(t *testing.T) {
	ctx := context.Background()
	mod := loadTiny(ctx, t)

	if mod.Name() != "tiny" {
		t.Errorf("Name() = %q", mod.Name())
	}

	res, err := mod.Call(ctx, fresstest.TinyAnswer)
	if err != nil || len(res) != 1 || res[0] != 42 {
		t.Errorf("Call(answer) = %v, %v", res, err)
	}

	_, err = mod.Call(ctx, "missing")
	if !stdErrors.Is(err, errors.ErrExportNotFound) {
		t.Errorf("Call(missing) error = %v, want ErrExportNotFound", err)
	}

	if !mod.Write(100, []byte{1, 2, 3}) {
		t.Fatal("Write() failed")
	}
	got, ok := mod.Read(100, 3)
	if !ok || string(got) != "\x01\x02\x03" {
		t.Errorf("Read() = %v, %v", got, ok)
	}
	if _, ok := mod.Read(1<<16, 1); ok {
		t.Error("Read() past the end of memory succeeded")
	}

	if err := mod.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestInstantiateRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Instantiate(ctx, rt, []byte{0x00, 0x61}, "bad"); err == nil {
		t.Error("Instantiate() accepted an invalid module")
	}
}

func TestInstanceNameContext(t *testing.T) {
	ctx := WithInstanceName(context.Background(), "guest-3")
	if name, ok := InstanceNameFromContext(ctx); !ok || name != "guest-3" {
		t.Errorf("InstanceNameFromContext() = %q, %v", name, ok)
	}
	if _, ok := InstanceNameFromContext(context.Background()); ok {
		t.Error("empty context carries an instance name")
	}
	if got := GetInstanceName(context.Background(), nil); got != "" {
		t.Errorf("GetInstanceName(nil) = %q", got)
	}
}
