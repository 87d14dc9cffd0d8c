package vm

// OperandStack is the growable sequence of slots described in spec.md
// S4.4. Unlike the teacher's byte-addressed stack (vm/vm.go's
// peekStack/popStack family over a fixed [65536]byte array), AVM slots
// are already word-sized, so the stack is simply a growable []Slot
// indexed at its logical end - no byte packing is needed.
type OperandStack struct {
	data []Slot
}

// NewOperandStack returns an empty stack pre-sized to capacity slots,
// mirroring the vm_stack.reserve(1024) pre-allocation in the original
// C++ source's avm.cpp.
func NewOperandStack(capacity int) *OperandStack {
	return &OperandStack{data: make([]Slot, 0, capacity)}
}

func (s *OperandStack) Len() int { return len(s.data) }

func (s *OperandStack) Push(v Slot) {
	s.data = append(s.data, v)
}

// Pop removes and returns the top slot, failing with StackUnderflow if
// the stack is empty.
func (s *OperandStack) Pop(ip int) (Slot, error) {
	n := len(s.data)
	if n == 0 {
		return 0, newFault(StackUnderflow, ip)
	}
	v := s.data[n-1]
	s.data = s.data[:n-1]
	return v, nil
}

// Top returns the top slot without removing it.
func (s *OperandStack) Top(ip int) (Slot, error) {
	n := len(s.data)
	if n == 0 {
		return 0, newFault(StackUnderflow, ip)
	}
	return s.data[n-1], nil
}

// Pop2 pops two slots, returning (second-from-top, top) i.e. (a, b) for
// an expression a <op> b, matching the declaration order the compiler
// pushed them in.
func (s *OperandStack) Pop2(ip int) (a, b Slot, err error) {
	if len(s.data) < 2 {
		return 0, 0, newFault(StackUnderflow, ip)
	}
	b, err = s.Pop(ip)
	if err != nil {
		return 0, 0, err
	}
	a, err = s.Pop(ip)
	return a, b, err
}

// Truncate retracts the stack to exactly n slots, used by RETURN to
// discard a callee's frame.
func (s *OperandStack) Truncate(n int) {
	s.data = s.data[:n]
}

// View exposes the live slots for the collector's root walk. The slice
// aliases internal storage and must not be mutated by the caller.
func (s *OperandStack) View() []Slot {
	return s.data
}

// Globals is the growable sequence of global slots from spec.md S4.4.
type Globals struct {
	data []Slot
}

func NewGlobals() *Globals {
	return &Globals{}
}

// Store grows the sequence to i+1 slots (zero-filling) if necessary,
// then writes v at index i. i is rejected with BadGlobal if negative -
// the index is u32-semantic per spec.md S6's opcode table, but arrives
// here as a decoded int32 immediate that a malformed program can set
// negative.
func (g *Globals) Store(i int, v Slot, ip int) error {
	if i < 0 {
		return newFaultf(BadGlobal, ip, "global index %d is negative", i)
	}
	if i >= len(g.data) {
		grown := make([]Slot, i+1)
		copy(grown, g.data)
		g.data = grown
	}
	g.data[i] = v
	return nil
}

// Load reads index i, failing with BadGlobal if out of range - an
// unwritten index is always out of range, since Store is the only way
// to grow the sequence (the Open Question in spec.md S9 is resolved as
// "error", matching the source's throwing behavior).
func (g *Globals) Load(i int, ip int) (Slot, error) {
	if i < 0 || i >= len(g.data) {
		return 0, newFaultf(BadGlobal, ip, "global index %d out of range (size %d)", i, len(g.data))
	}
	return g.data[i], nil
}

// View exposes the live slots for the collector's root walk.
func (g *Globals) View() []Slot {
	return g.data
}

// Frames tracks the call-frame discipline of spec.md S4.4: a frame
// pointer into the operand stack, plus parallel return-address and
// saved-fp stacks.
type Frames struct {
	fp          int
	returnStack []int
	fpStack     []int
}

func NewFrames() *Frames {
	return &Frames{}
}

// FP is the current frame pointer: stack[fp+k] addresses local k.
func (f *Frames) FP() int { return f.fp }

// Depth reports how many active call frames exist.
func (f *Frames) Depth() int { return len(f.returnStack) }

// Enter pushes the current fp and a return address, then sets the new
// fp, implementing the CALL side of spec.md S4.4's call convention.
func (f *Frames) Enter(newFP, returnIP int) {
	f.fpStack = append(f.fpStack, f.fp)
	f.returnStack = append(f.returnStack, returnIP)
	f.fp = newFP
}

// Leave pops the saved fp and return address, restoring the caller's
// frame. ok is false when return_stack is empty (RETURN at top level
// halts execution, per spec.md S4.4).
func (f *Frames) Leave() (returnIP int, ok bool) {
	n := len(f.returnStack)
	if n == 0 {
		return 0, false
	}

	returnIP = f.returnStack[n-1]
	f.returnStack = f.returnStack[:n-1]

	f.fp = f.fpStack[len(f.fpStack)-1]
	f.fpStack = f.fpStack[:len(f.fpStack)-1]

	return returnIP, true
}
