// Package wazero adapts the wazero runtime to the SDK's host side.
//
// It handles:
//
//   - Registering the host module guests import (default name "fress_host")
//   - Reading packed i64 pointer+length arguments from guest memory
//   - Decoding guest log records and handing them to a LogSink
//   - Exposing an instantiated module through Call, Read, Write and Close
//
// # Basic Usage
//
//	runtime := wazero.NewRuntime(ctx)
//	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)
//
//	err := adapter.RegisterWithRuntime(ctx, runtime, sink,
//	    adapter.WithModuleName("fress_host"),
//	)
//
//	mod, err := adapter.Instantiate(ctx, runtime, wasmBytes, "fixture")
//	results, err := mod.Call(ctx, "produce_greeting")
//
// # Custom Handlers
//
// Additional imports can be registered next to log_message with
// WithCustomHandler:
//
//	adapter.RegisterWithRuntime(ctx, runtime, sink,
//	    adapter.WithCustomHandler(adapter.CustomHandler{
//	        Name:        "now_ms",
//	        Handler:     nowHandler,
//	        ResultTypes: []api.ValueType{api.ValueTypeI64},
//	    }),
//	)
package wazero
