package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolGetOutOfRange(t *testing.T) {
	p := NewPool([]string{"a", "b"})
	require.Equal(t, 2, p.Size())

	s, err := p.Get(1, 0)
	require.NoError(t, err)
	require.Equal(t, "b", s)

	_, err = p.Get(2, 0)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, BadReference, fault.Kind)
}

func TestPoolInternGrowsByOneAndNeverDedups(t *testing.T) {
	p := NewPool(nil)
	i1 := p.Intern("hello")
	require.Equal(t, 0, i1)
	require.Equal(t, 1, p.Size())

	i2 := p.Intern("hello")
	require.Equal(t, 1, i2, "Intern must append unconditionally, never reuse an existing index")
	require.Equal(t, 2, p.Size())
}
