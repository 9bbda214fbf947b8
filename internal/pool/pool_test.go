package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocateDeallocateConserves(t *testing.T) {
	a := NewArena[int](4)
	require.Equal(t, 4, a.Available())

	h1, err := a.Allocate(10)
	require.NoError(t, err)
	require.Equal(t, 1, a.Used())
	require.Equal(t, 3, a.Available())
	require.Equal(t, 10, *a.Get(h1))

	a.Deallocate(h1)
	require.Equal(t, 0, a.Used())
	require.Equal(t, 4, a.Available())
}

func TestArenaExhausted(t *testing.T) {
	a := NewArena[int](2)
	_, err := a.Allocate(1)
	require.NoError(t, err)
	_, err = a.Allocate(2)
	require.NoError(t, err)
	_, err = a.Allocate(3)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPooledObjectReleaseIsIdempotent(t *testing.T) {
	a := NewArena[int](1)
	obj, err := Acquire(a, 42)
	require.NoError(t, err)
	require.Equal(t, 42, *obj.Value())
	require.Equal(t, 1, a.Used())

	obj.Release()
	obj.Release()
	require.Equal(t, 0, a.Used())
}
