//go:build wasip1

// Command fixture is a guest module that exercises every path of the value
// transfer protocol. Build it with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o fixture.wasm ./cmd/fixture
package main

import (
	"log/slog"

	"github.com/reglet-dev/fress-sdk/guest"
	_ "github.com/reglet-dev/fress-sdk/log" // routes slog to the host
)

//go:wasmexport produce_greeting
func produceGreeting() uint32 {
	slog.Debug("producing greeting")
	return guest.Default().ProduceGreeting()
}

//go:wasmexport produce_wide_text
func produceWideText() uint32 {
	return guest.Default().ProduceWideText()
}

//go:wasmexport consume_and_reply
func consumeAndReply(addr, length uint32) uint32 {
	return guest.ConsumeAndReply(addr, length)
}

//go:wasmexport produce_error_batch
func produceErrorBatch() uint32 {
	return guest.Default().ProduceErrorBatch()
}

//go:wasmexport produce_custom_error
func produceCustomError() uint32 {
	return guest.Default().ProduceCustomError()
}

//go:wasmexport induce_fault
func induceFault() {
	slog.Warn("inducing fault")
	guest.InduceFault()
}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return guest.Allocate(size)
}

//go:wasmexport deallocate
func deallocate(addr, length uint32) {
	guest.Deallocate(addr, length)
}

func main() {}
