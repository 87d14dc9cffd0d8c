package vm

import (
	"encoding/binary"
	"fmt"
)

// fetchByte reads one opcode byte at ip, failing with BadOpcode if ip is
// past the end of the code stream (treated as a malformed program, not a
// normal HALT - a well-formed program always ends in an explicit HALT).
func (v *VM) fetchByte(ip int) (byte, error) {
	if ip < 0 || ip >= len(v.code) {
		return 0, newFaultf(BadOpcode, ip, "instruction pointer past end of code (len=%d)", len(v.code))
	}
	return v.code[ip], nil
}

// fetchImm32 reads a 4-byte little-endian immediate at ip via an
// unaligned byte copy (binary.LittleEndian), never by type-punning,
// matching spec.md S4.5 and the original C++ source's std::memcpy reads.
func (v *VM) fetchImm32(ip int) (int32, error) {
	if ip < 0 || ip+4 > len(v.code) {
		return 0, newFaultf(TruncatedFile, ip, "truncated immediate at ip=%d", ip)
	}
	return int32(binary.LittleEndian.Uint32(v.code[ip : ip+4])), nil
}

// step executes exactly one instruction, advancing v.ip. It returns
// Halted (an error value, but not a *Fault) when HALT is reached and ends
// the run, and a *Fault for any other failure.
func (v *VM) step() error {
	opIP := v.ip
	opByte, err := v.fetchByte(opIP)
	if err != nil {
		return err
	}

	if !IsKnown(opByte) {
		return newFaultf(BadOpcode, opIP, "unrecognized opcode byte 0x%02x", opByte)
	}
	op := Opcode(opByte)
	cursor := opIP + 1

	imms := make([]int32, op.ImmediateCount())
	for i := range imms {
		imm, err := v.fetchImm32(cursor)
		if err != nil {
			return err
		}
		imms[i] = imm
		cursor += 4
	}

	v.ip = cursor

	switch op {
	case Halt:
		return Halted{}

	case Jump:
		v.ip = cursor + int(imms[0])

	case JumpIfFalse:
		cond, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if !IsTruthy(cond) {
			v.ip = cursor + int(imms[0])
		}

	case Push:
		v.stack.Push(Slot(imms[0]))

	case StoreGlobal:
		val, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if err := v.globals.Store(int(imms[0]), val, opIP); err != nil {
			return err
		}

	case LoadGlobal:
		val, err := v.globals.Load(int(imms[0]), opIP)
		if err != nil {
			return err
		}
		v.stack.Push(val)

	case StoreLocal:
		val, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if err := v.storeLocal(int(imms[0]), val, opIP); err != nil {
			return err
		}

	case LoadLocal:
		val, err := v.loadLocal(int(imms[0]), opIP)
		if err != nil {
			return err
		}
		v.stack.Push(val)

	case LoadConst:
		if _, err := v.pool.Get(int(imms[0]), opIP); err != nil {
			return err
		}
		v.stack.Push(PoolRefSlot(int(imms[0])))

	case Add:
		if err := v.execAdd(opIP); err != nil {
			return err
		}

	case Sub:
		if err := v.execIntBinary(opIP, func(a, b int32) int32 { return a - b }); err != nil {
			return err
		}

	case Mul:
		if err := v.execIntBinary(opIP, func(a, b int32) int32 { return a * b }); err != nil {
			return err
		}

	case Div:
		a, b, err := v.stack.Pop2(opIP)
		if err != nil {
			return err
		}
		if err := v.requireInt(a, opIP); err != nil {
			return err
		}
		if err := v.requireInt(b, opIP); err != nil {
			return err
		}
		if b == 0 {
			return newFault(DivideByZero, opIP)
		}
		v.stack.Push(a / b)

	case Less:
		a, b, err := v.stack.Pop2(opIP)
		if err != nil {
			return err
		}
		if err := v.requireInt(a, opIP); err != nil {
			return err
		}
		if err := v.requireInt(b, opIP); err != nil {
			return err
		}
		if a < b {
			v.stack.Push(1)
		} else {
			v.stack.Push(0)
		}

	case Call:
		target, argCount := int(imms[0]), int(imms[1])
		if v.stack.Len() < argCount {
			return newFault(StackUnderflow, opIP)
		}
		v.frames.Enter(v.stack.Len()-argCount, v.ip)
		v.ip = target

	case Return:
		result, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		v.stack.Truncate(v.frames.FP())
		v.stack.Push(result)

		returnIP, ok := v.frames.Leave()
		if !ok {
			return Halted{}
		}
		v.ip = returnIP

	case NewArray:
		n, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if n < 0 {
			return newFaultf(OutOfBounds, opIP, "negative array size %d", n)
		}
		idx := v.heap.AllocArray(int(n))
		v.stack.Push(HeapRefSlot(idx, v.pool.Size()))
		v.collect()

	case NewInstance:
		n, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if n < 0 {
			return newFaultf(OutOfBounds, opIP, "negative field count %d", n)
		}
		idx := v.heap.AllocInstance(uint32(imms[0]), int(n))
		v.stack.Push(HeapRefSlot(idx, v.pool.Size()))
		v.collect()

	case StoreArray:
		val, idx, ref, err := v.popTriple(opIP)
		if err != nil {
			return err
		}
		arr, err := v.requireArray(ref, opIP)
		if err != nil {
			return err
		}
		if idx < 0 || int(idx) >= len(arr.Elements) {
			return newFaultf(OutOfBounds, opIP, "array index %d out of range (len %d)", idx, len(arr.Elements))
		}
		arr.Elements[idx] = val

	case LoadArray:
		idx, ref, err := v.stack.Pop2(opIP)
		if err != nil {
			return err
		}
		arr, err := v.requireArray(ref, opIP)
		if err != nil {
			return err
		}
		if idx < 0 || int(idx) >= len(arr.Elements) {
			return newFaultf(OutOfBounds, opIP, "array index %d out of range (len %d)", idx, len(arr.Elements))
		}
		v.stack.Push(arr.Elements[idx])

	case StoreField:
		val, ref, err := v.stack.Pop2(opIP)
		if err != nil {
			return err
		}
		inst, err := v.requireInstance(ref, opIP)
		if err != nil {
			return err
		}
		field := int(imms[0])
		if field < 0 || field >= len(inst.Fields) {
			return newFaultf(OutOfBounds, opIP, "field index %d out of range (len %d)", field, len(inst.Fields))
		}
		inst.Fields[field] = val

	case LoadField:
		ref, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		inst, err := v.requireInstance(ref, opIP)
		if err != nil {
			return err
		}
		field := int(imms[0])
		if field < 0 || field >= len(inst.Fields) {
			return newFaultf(OutOfBounds, opIP, "field index %d out of range (len %d)", field, len(inst.Fields))
		}
		v.stack.Push(inst.Fields[field])

	case Pop:
		if _, err := v.stack.Pop(opIP); err != nil {
			return err
		}

	case Print:
		val, err := v.stack.Pop(opIP)
		if err != nil {
			return err
		}
		if err := v.execPrint(val, opIP); err != nil {
			return err
		}

	default:
		return newFaultf(BadOpcode, opIP, "opcode %s has no dispatch case", op)
	}

	return nil
}

func (v *VM) storeLocal(k int, val Slot, ip int) error {
	idx := v.frames.FP() + k
	if idx < 0 || idx >= v.stack.Len() {
		return newFaultf(BadLocal, ip, "local %d resolves to stack index %d out of range", k, idx)
	}
	v.stack.data[idx] = val
	return nil
}

func (v *VM) loadLocal(k int, ip int) (Slot, error) {
	idx := v.frames.FP() + k
	if idx < 0 || idx >= v.stack.Len() {
		return 0, newFaultf(BadLocal, ip, "local %d resolves to stack index %d out of range", k, idx)
	}
	return v.stack.data[idx], nil
}

// execAdd implements ADD's polymorphism from spec.md S4.5: integer
// addition wraps mod 2^32, pool-ref operands concatenate and intern (and
// trigger collect), anything else is a TypeMismatch.
func (v *VM) execAdd(ip int) error {
	a, b, err := v.stack.Pop2(ip)
	if err != nil {
		return err
	}

	ca := Classify(a, v.pool.Size())
	cb := Classify(b, v.pool.Size())

	switch {
	case ca.Kind == KindInt && cb.Kind == KindInt:
		v.stack.Push(a + b)
		return nil

	case ca.Kind == KindPoolRef && cb.Kind == KindPoolRef:
		sa, err := v.pool.Get(ca.Index, ip)
		if err != nil {
			return err
		}
		sb, err := v.pool.Get(cb.Index, ip)
		if err != nil {
			return err
		}
		newIdx := v.pool.Intern(sa + sb)
		v.stack.Push(PoolRefSlot(newIdx))
		v.collect()
		return nil

	default:
		return newFaultf(TypeMismatch, ip, "ADD requires two integers or two strings, got %s and %s", ca.Kind, cb.Kind)
	}
}

func (v *VM) execIntBinary(ip int, op func(a, b int32) int32) error {
	a, b, err := v.stack.Pop2(ip)
	if err != nil {
		return err
	}
	if err := v.requireInt(a, ip); err != nil {
		return err
	}
	if err := v.requireInt(b, ip); err != nil {
		return err
	}
	v.stack.Push(op(a, b))
	return nil
}

func (v *VM) requireInt(s Slot, ip int) error {
	if Classify(s, v.pool.Size()).Kind != KindInt {
		return newFaultf(TypeMismatch, ip, "expected integer operand")
	}
	return nil
}

func (v *VM) popTriple(ip int) (val, idx, ref Slot, err error) {
	if v.stack.Len() < 3 {
		return 0, 0, 0, newFault(StackUnderflow, ip)
	}
	ref, err = v.stack.Pop(ip)
	if err != nil {
		return
	}
	idx, err = v.stack.Pop(ip)
	if err != nil {
		return
	}
	val, err = v.stack.Pop(ip)
	return
}

func (v *VM) requireArray(ref Slot, ip int) (*Array, error) {
	c := Classify(ref, v.pool.Size())
	if c.Kind != KindHeapRef {
		return nil, newFaultf(TypeMismatch, ip, "expected array reference")
	}
	obj, err := v.heap.Get(c.Index, ip)
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(*Array)
	if !ok {
		return nil, newFaultf(TypeMismatch, ip, "heap object at %d is not an array", c.Index)
	}
	return arr, nil
}

func (v *VM) requireInstance(ref Slot, ip int) (*Instance, error) {
	c := Classify(ref, v.pool.Size())
	if c.Kind != KindHeapRef {
		return nil, newFaultf(TypeMismatch, ip, "expected instance reference")
	}
	obj, err := v.heap.Get(c.Index, ip)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, newFaultf(TypeMismatch, ip, "heap object at %d is not an instance", c.Index)
	}
	return inst, nil
}

// execPrint implements the PRINT formatting rule from spec.md S4.5.
func (v *VM) execPrint(val Slot, ip int) error {
	c := Classify(val, v.pool.Size())
	switch c.Kind {
	case KindInt:
		fmt.Fprintln(v.stdout, int32(val))
	case KindPoolRef:
		s, err := v.pool.Get(c.Index, ip)
		if err != nil {
			return err
		}
		fmt.Fprintln(v.stdout, s)
	case KindHeapRef:
		fmt.Fprintf(v.stdout, "<heap:%d>\n", c.Index)
	}
	return nil
}

// collect triggers the collector with the prevailing roots and pool
// size, per the "allocate-and-maybe-collect" rule of spec.md S4.3: every
// successful string ADD and every allocation opcode collects, unless the
// VM was built with WithGCEveryAlloc(false), in which case nothing does.
func (v *VM) collect() {
	if !v.gcEveryAlloc {
		return
	}
	v.heap.Collect(v.stack.View(), v.globals.View(), v.pool.Size())
}
