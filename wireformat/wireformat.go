// Package wireformat implements the binary encoding exchanged between the WASM
// guest and its host. It is a Fressian-style tagged format: every object starts
// with a one-byte code, small integers and short lengths are packed into the
// code itself, and Ext tags travel once per stream through the struct cache.
//
// The encoding defines the ABI contract. Output for a given Value is
// deterministic and must remain stable.
package wireformat

import (
	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// MarshalNative converts a native Go value with value.From and encodes it.
func MarshalNative(v any) ([]byte, error) {
	val, err := value.From(v)
	if err != nil {
		return nil, &errors.ConversionError{Err: err}
	}
	return Marshal(val)
}

