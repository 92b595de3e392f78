//go:build !wasip1

package fresstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// RequireFressValue asserts v is an encoded FressError and returns it.
func RequireFressValue(t *testing.T, v value.Value) *errors.FressError {
	t.Helper()
	fe, ok := errors.FromValue(v)
	require.True(t, ok, "expected a FressError value, got %s", v)
	return fe
}

// AssertNoLeaks asserts the guest holds no live allocations.
func AssertNoLeaks(t *testing.T, m *Module) bool {
	t.Helper()
	alloc := m.Boundary().Allocator()
	return assert.Zero(t, alloc.Live(), "live allocations") &&
		assert.Zero(t, alloc.Total(), "live bytes")
}

// AssertCalled asserts the module's exports were called in exactly this order.
func AssertCalled(t *testing.T, m *Module, names ...string) bool {
	t.Helper()
	return assert.Equal(t, names, m.Calls())
}
