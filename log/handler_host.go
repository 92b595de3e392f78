//go:build !wasip1

package log

import (
	"fmt"

	"github.com/reglet-dev/fress-sdk/domain/value"
)

// deliver prints the record for non-WASM builds (e.g., native tests).
func (h *WasmLogHandler) deliver(record value.Value) error {
	_, err := fmt.Fprintf(h.opts.out, "[GUEST-STUB] %s\n", record)
	return err
}
