package vm

// ObjectKind discriminates the two live HeapObject shapes. The String
// object form is reserved by spec.md S3 but unused by the current
// opcode set (strings live in the pool), so no Kind is defined for it.
type ObjectKind int

const (
	KindArray ObjectKind = iota
	KindInstance
)

// HeapObject is satisfied by every object the heap table can own. It
// mirrors the shape of the teacher's HardwareDevice interface in
// vm/devices.go: one small interface, several concrete behaviors
// switched on by the object itself rather than by an external tag field.
type HeapObject interface {
	Kind() ObjectKind
	marked() bool
	setMarked(bool)
	// slots returns the object's own element/field slots, for the
	// collector's transitive mark walk.
	slots() []Slot
}

// Array is a fixed-size vector of slots, size fixed at allocation.
type Array struct {
	Elements []Slot
	mark     bool
}

func (a *Array) Kind() ObjectKind { return KindArray }
func (a *Array) marked() bool     { return a.mark }
func (a *Array) setMarked(m bool) { a.mark = m }
func (a *Array) slots() []Slot    { return a.Elements }

// Instance is an opaque class tag plus a fixed-size vector of field
// slots, field count fixed at allocation.
type Instance struct {
	ClassID uint32
	Fields  []Slot
	mark    bool
}

func (in *Instance) Kind() ObjectKind { return KindInstance }
func (in *Instance) marked() bool     { return in.mark }
func (in *Instance) setMarked(m bool) { in.mark = m }
func (in *Instance) slots() []Slot    { return in.Fields }

// Heap is the slot-indexed object table of spec.md S3/S4.3: a slice of
// holes-or-objects, plus a LIFO free-list of released indices.
type Heap struct {
	objects  []HeapObject
	freeList []int
}

// NewHeap returns an empty heap table.
func NewHeap() *Heap {
	return &Heap{}
}

// Len reports the table size (dense-but-not-monotonic indices live in
// [0, Len)).
func (h *Heap) Len() int {
	return len(h.objects)
}

func (h *Heap) register(obj HeapObject) int {
	if n := len(h.freeList); n > 0 {
		idx := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[idx] = obj
		return idx
	}

	h.objects = append(h.objects, obj)
	return len(h.objects) - 1
}

// AllocArray creates a zero-filled Array of n slots, reusing a free-list
// slot if available.
func (h *Heap) AllocArray(n int) int {
	return h.register(&Array{Elements: make([]Slot, n)})
}

// AllocInstance creates an Instance of n fields tagged classID, reusing a
// free-list slot if available.
func (h *Heap) AllocInstance(classID uint32, n int) int {
	return h.register(&Instance{ClassID: classID, Fields: make([]Slot, n)})
}

// Get returns the live object at heapIndex, failing with BadReference if
// the slot is empty or out of range.
func (h *Heap) Get(heapIndex int, ip int) (HeapObject, error) {
	if heapIndex < 0 || heapIndex >= len(h.objects) || h.objects[heapIndex] == nil {
		return nil, newFaultf(BadReference, ip, "heap index %d is not a live object", heapIndex)
	}
	return h.objects[heapIndex], nil
}

func (h *Heap) mark(heapIndex int, poolSize int) {
	if heapIndex < 0 || heapIndex >= len(h.objects) || h.objects[heapIndex] == nil {
		return
	}

	obj := h.objects[heapIndex]
	if obj.marked() {
		return
	}
	obj.setMarked(true)

	for _, v := range obj.slots() {
		c := Classify(v, poolSize)
		if c.Kind == KindHeapRef {
			h.mark(c.Index, poolSize)
		}
	}
}

func (h *Heap) markRoots(view []Slot, poolSize int) {
	for _, v := range view {
		c := Classify(v, poolSize)
		if c.Kind == KindHeapRef {
			h.mark(c.Index, poolSize)
		}
	}
}

// Collect performs one full stop-the-world mark-and-sweep, per the
// four-phase algorithm in spec.md S4.3: clear, mark roots, mark
// transitive (folded into mark()'s recursion), sweep.
func (h *Heap) Collect(stackView, globalsView []Slot, poolSize int) {
	for _, obj := range h.objects {
		if obj != nil {
			obj.setMarked(false)
		}
	}

	h.markRoots(stackView, poolSize)
	h.markRoots(globalsView, poolSize)

	for i, obj := range h.objects {
		if obj == nil {
			continue
		}
		if !obj.marked() {
			h.objects[i] = nil
			h.freeList = append(h.freeList, i)
		}
	}
}

// FreeListSnapshot exposes the current free-list for tests that verify
// LIFO reuse order; it is not used by the interpreter itself.
func (h *Heap) FreeListSnapshot() []int {
	out := make([]int, len(h.freeList))
	copy(out, h.freeList)
	return out
}
