//go:build wasip1

package log

import (
	"fmt"
	"log/slog"

	"github.com/reglet-dev/fress-sdk/domain/value"
	"github.com/reglet-dev/fress-sdk/internal/abi"
	"github.com/reglet-dev/fress-sdk/wireformat"
)

// Define the host function signature for logging messages.
//
//go:wasmimport fress_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// buffers holds log records while the host reads them. Records are released
// as soon as the import returns.
var buffers = abi.NewAllocator()

// deliver encodes the record and sends it to the host.
func (h *WasmLogHandler) deliver(record value.Value) error {
	data, err := wireformat.Marshal(record)
	if err != nil {
		// Fallback to println if encoding fails.
		fmt.Printf("sdk: failed to encode log record for host: %v\n", err)
		return nil
	}

	buf := buffers.AllocRaw(uint32(len(data)))
	defer buffers.Release(buf.Addr, buf.Len)
	view, _ := buffers.View(buf.Addr, buf.Len)
	copy(view, data)

	host_log_message(abi.PackPtrLen(buf.Addr, buf.Len))
	return nil
}

// init configures the default slog handler to use our WasmLogHandler.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
