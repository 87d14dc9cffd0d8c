package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyInteger(t *testing.T) {
	c := Classify(42, 3)
	require.Equal(t, KindInt, c.Kind)
	require.Equal(t, 42, c.Index)

	c = Classify(0, 3)
	require.Equal(t, KindInt, c.Kind)
}

func TestClassifyPoolRef(t *testing.T) {
	for i := 0; i < 5; i++ {
		slot := PoolRefSlot(i)
		c := Classify(slot, 5)
		require.Equal(t, KindPoolRef, c.Kind)
		require.Equal(t, i, c.Index)
	}
}

func TestClassifyHeapRef(t *testing.T) {
	poolSize := 3
	for i := 0; i < 5; i++ {
		slot := HeapRefSlot(i, poolSize)
		c := Classify(slot, poolSize)
		require.Equal(t, KindHeapRef, c.Kind)
		require.Equal(t, i, c.Index)
	}
}

func TestIsTruthy(t *testing.T) {
	require.False(t, IsTruthy(0))
	require.True(t, IsTruthy(1))
	require.True(t, IsTruthy(-1))
	require.True(t, IsTruthy(PoolRefSlot(0)))
}
