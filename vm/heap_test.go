package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapAllocAndGet(t *testing.T) {
	h := NewHeap()
	idx := h.AllocArray(3)
	require.Equal(t, 0, idx)
	require.Equal(t, 1, h.Len())

	obj, err := h.Get(idx, 0)
	require.NoError(t, err)
	arr, ok := obj.(*Array)
	require.True(t, ok)
	require.Len(t, arr.Elements, 3)
}

func TestHeapGetMissingIsBadReference(t *testing.T) {
	h := NewHeap()
	_, err := h.Get(0, 0)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, BadReference, fault.Kind)
}

func TestHeapCollectFreesUnreachable(t *testing.T) {
	h := NewHeap()
	reachable := h.AllocArray(1)
	unreachable := h.AllocArray(1)

	stack := []Slot{HeapRefSlot(reachable, 0)}
	h.Collect(stack, nil, 0)

	_, err := h.Get(reachable, 0)
	require.NoError(t, err)

	_, err = h.Get(unreachable, 0)
	require.Error(t, err)
	require.Contains(t, h.FreeListSnapshot(), unreachable)
}

func TestHeapCollectTransitiveMarkThroughArrayElements(t *testing.T) {
	h := NewHeap()
	inner := h.AllocArray(1)
	outer := h.AllocArray(1)

	outerObj, err := h.Get(outer, 0)
	require.NoError(t, err)
	outerObj.(*Array).Elements[0] = HeapRefSlot(inner, 0)

	stack := []Slot{HeapRefSlot(outer, 0)}
	h.Collect(stack, nil, 0)

	_, err = h.Get(inner, 0)
	require.NoError(t, err, "an object reachable only through another heap object's slots must survive collection")
}

func TestVMWithGCEveryAllocDisabledDefersCollection(t *testing.T) {
	code, _, err := Assemble(strings.Split(strings.TrimSpace(`
		PUSH 1
		NEW_ARRAY
		POP
		PUSH 1
		NEW_ARRAY
		HALT
	`), "\n"))
	require.NoError(t, err)

	m := NewVM(code, nil, WithGCEveryAlloc(false))
	require.NoError(t, m.Run())
	require.Equal(t, 2, m.heap.Len())
	_, err = m.heap.Get(0, 0)
	require.NoError(t, err, "with collection disabled the first unreachable array must still occupy a live slot")
}

func TestHeapFreeListReusedLIFO(t *testing.T) {
	h := NewHeap()
	a := h.AllocArray(1)
	b := h.AllocArray(1)
	c := h.AllocArray(1)

	// Nothing rooted: all three die in one collection.
	h.Collect(nil, nil, 0)
	require.Equal(t, []int{a, b, c}, h.FreeListSnapshot())

	// Free-list reuse pops LIFO, so the next three allocations come back
	// in reverse order of when they were freed.
	first := h.AllocArray(1)
	second := h.AllocArray(1)
	third := h.AllocArray(1)
	require.Equal(t, c, first)
	require.Equal(t, b, second)
	require.Equal(t, a, third)
}
