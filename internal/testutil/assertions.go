// Package testutil provides common test utilities and assertions for SDK tests
package testutil

import (
	stdErrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/fress-sdk/domain/errors"
	"github.com/reglet-dev/fress-sdk/domain/value"
)

// ValueComparer makes cmp treat Values by structural equality.
var ValueComparer = cmp.Comparer(func(a, b value.Value) bool { return a.Equal(b) })

// DiffValues returns a human-readable diff between two Values, empty when equal.
func DiffValues(want, got value.Value) string {
	if want.Equal(got) {
		return ""
	}
	return cmp.Diff(value.ToNative(want), value.ToNative(got)) + "\nwant: " + want.String() + "\ngot:  " + got.String()
}

// AssertValueEqual asserts that two Values are structurally equal.
func AssertValueEqual(t *testing.T, want, got value.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if diff := DiffValues(want, got); diff != "" {
		return assert.Fail(t, "values differ (-want +got):\n"+diff, msgAndArgs...)
	}
	return true
}

// RequireValueEqual is AssertValueEqual that stops the test on mismatch.
func RequireValueEqual(t *testing.T, want, got value.Value, msgAndArgs ...interface{}) {
	t.Helper()
	if !AssertValueEqual(t, want, got, msgAndArgs...) {
		t.FailNow()
	}
}

// RequireFressError asserts err carries a FressError and returns it.
func RequireFressError(t *testing.T, err error) *errors.FressError {
	t.Helper()
	var fe *errors.FressError
	require.True(t, stdErrors.As(err, &fe), "expected *errors.FressError, got %T: %v", err, err)
	return fe
}

// RequireSyntax asserts err is a Syntax FressError with the given code and position.
func RequireSyntax(t *testing.T, err error, code errors.ErrorCode, position int64) {
	t.Helper()
	fe := RequireFressError(t, err)
	require.Equal(t, errors.ShapeSyntax, fe.Shape(), fe.Error())
	assert.Equal(t, code, fe.Code(), fe.Error())
	assert.Equal(t, position, fe.Position(), fe.Error())
}

// RequireUnmatched asserts err is an UnmatchedCode FressError with the given codes.
func RequireUnmatched(t *testing.T, err error, expected, found int64) {
	t.Helper()
	fe := RequireFressError(t, err)
	require.Equal(t, errors.ShapeUnmatchedCode, fe.Shape(), fe.Error())
	e, f := fe.Codes()
	assert.Equal(t, expected, e, "expected code")
	assert.Equal(t, found, f, "found code")
}
