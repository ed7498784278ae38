package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWithPath(t *testing.T) {
	underlying := errors.New("boom")
	err := New(Parse, "extractSymbols", underlying).WithPath("proj", "a.ts")

	require.Equal(t, Parse, err.Kind)
	assert.Contains(t, err.Error(), "a.ts")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, underlying)
}

func TestIsKind(t *testing.T) {
	err := New(StoreBusy, "write", errors.New("locked"))
	assert.True(t, IsKind(err, StoreBusy))
	assert.False(t, IsKind(err, Closed))
	assert.False(t, IsKind(errors.New("plain"), StoreBusy))
}

func TestKindRecoverable(t *testing.T) {
	assert.True(t, Parse.Recoverable())
	assert.True(t, IO.Recoverable())
	assert.False(t, Closed.Recoverable())
	assert.False(t, StoreIntegrity.Recoverable())
}

func TestMultiErrorFiltersNil(t *testing.T) {
	me := NewMultiError([]error{nil, errors.New("a"), nil, errors.New("b")})
	require.NotNil(t, me)
	assert.Len(t, me.Errors, 2)
	assert.Contains(t, me.Error(), "2 errors")
}

func TestNewMultiErrorAllNilReturnsNil(t *testing.T) {
	assert.Nil(t, NewMultiError([]error{nil, nil}))
}
