package vm

// Kind discriminates what a Slot's bit pattern means once the prevailing
// constant pool size is known.
type Kind int

const (
	KindInt Kind = iota
	KindPoolRef
	KindHeapRef
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindPoolRef:
		return "pool-ref"
	case KindHeapRef:
		return "heap-ref"
	default:
		return "?unknown-kind?"
	}
}

// Slot is a value on the operand stack, in globals, or inside a heap
// object's elements/fields. Its meaning depends on the constant pool size
// prevailing at the time it is classified.
type Slot = int32

// Classified is the decoded form of a Slot: a Kind plus the index that
// kind implies (for KindInt, the integer value itself).
type Classified struct {
	Kind  Kind
	Index int
}

// Classify implements the slot tagging rule from spec.md S3/S4.1:
//
//	slot >= 0                                  -> Integer
//	-1 >= slot > -(1+poolSize)                  -> PoolRef(-slot-1)
//	slot <= -(1+poolSize)                       -> HeapRef(-slot-1-poolSize)
func Classify(slot Slot, poolSize int) Classified {
	if slot >= 0 {
		return Classified{Kind: KindInt, Index: int(slot)}
	}

	negIndex := int(-slot) - 1
	if negIndex < poolSize {
		return Classified{Kind: KindPoolRef, Index: negIndex}
	}

	return Classified{Kind: KindHeapRef, Index: negIndex - poolSize}
}

// PoolRefSlot packs a constant pool index into its slot encoding.
func PoolRefSlot(poolIndex int) Slot {
	return Slot(-(poolIndex + 1))
}

// HeapRefSlot packs a heap table index into its slot encoding, given the
// constant pool size prevailing at the moment of encoding.
func HeapRefSlot(heapIndex, poolSize int) Slot {
	return Slot(-(heapIndex + 1 + poolSize))
}

// IsTruthy implements the JUMP_IF_FALSE condition: a slot is falsy only
// when it is the integer zero. Negative slots (references) are always
// truthy, since a valid reference can never be the bit pattern for 0.
func IsTruthy(slot Slot) bool {
	return slot != 0
}
