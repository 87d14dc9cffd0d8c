package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Assembler/disassembler for AVM's own textual mnemonics. The compiler
// proper is out of scope per spec.md S1; this exists only so the VM can
// be driven and tested end-to-end without it, retargeting the teacher's
// line-oriented assembly dialect (vm/parse.go, vm/compile.go) from
// GVM's register opcodes onto AVM's stack-machine opcodes and
// two-immediate CALL.

var asmComment = regexp.MustCompile(`//.*`)

type asmInstr struct {
	op      Opcode
	args    []string // raw operand tokens, resolved in pass two
	byteOff int
	lineNo  int
}

// Assemble compiles AVM textual assembly into an AMBR code stream and an
// accompanying constant pool. Syntax:
//
//	// comment
//	label:
//	MNEMONIC [arg0] [arg1]
//
// A quoted string literal is only valid as LOAD_CONST's sole argument;
// it is interned into the returned pool in first-appearance order and
// replaced with its index. Any other argument is a decimal/hex integer
// or a label name resolving to a byte offset.
func Assemble(lines []string) (code []byte, constants []string, err error) {
	labels := map[string]int{}
	var instrs []asmInstr
	var pool []string
	poolIndex := map[string]int{}

	offset := 0
	for lineNo, raw := range lines {
		line := strings.TrimSpace(asmComment.ReplaceAllString(raw, ""))
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			label := strings.TrimSuffix(line, ":")
			if strings.ContainsAny(label, " \t") {
				return nil, nil, fmt.Errorf("line %d: invalid label %q", lineNo+1, label)
			}
			if _, dup := labels[label]; dup {
				return nil, nil, fmt.Errorf("line %d: duplicate label %q", lineNo+1, label)
			}
			labels[label] = offset
			continue
		}

		fields := strings.Fields(line)
		mnemonic := fields[0]
		op, ok := LookupOpcode(mnemonic)
		if !ok {
			return nil, nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}

		var args []string
		if rest := strings.TrimSpace(strings.TrimPrefix(line, mnemonic)); rest != "" {
			args = splitAsmArgs(rest)
		}

		if op == LoadConst && len(args) == 1 && strings.HasPrefix(args[0], "\"") {
			literal, err := strconv.Unquote(args[0])
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad string literal: %w", lineNo+1, err)
			}
			idx, seen := poolIndex[literal]
			if !seen {
				idx = len(pool)
				pool = append(pool, literal)
				poolIndex[literal] = idx
			}
			args = []string{strconv.Itoa(idx)}
		}

		want := op.ImmediateCount()
		if len(args) != want {
			return nil, nil, fmt.Errorf("line %d: %s wants %d operand(s), got %d", lineNo+1, op, want, len(args))
		}

		instrs = append(instrs, asmInstr{op: op, args: args, byteOff: offset, lineNo: lineNo + 1})
		offset += 1 + 4*want
	}

	buf := make([]byte, 0, offset)
	for _, in := range instrs {
		buf = append(buf, byte(in.op))
		immEnd := in.byteOff + 1 + 4*len(in.args)

		for _, arg := range in.args {
			var value int64
			if resolved, isLabel := labels[arg]; isLabel {
				value = int64(resolved)
				if in.op == Jump || in.op == JumpIfFalse {
					// Relative offsets are measured from the byte
					// immediately after this immediate, per spec.md S4.5.
					value = int64(resolved - immEnd)
				}
			} else {
				n, err := strconv.ParseInt(arg, 0, 64)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: operand %q is neither a known label nor an integer", in.lineNo, arg)
				}
				value = n
			}

			if (in.op == Push) && value < 0 {
				return nil, nil, fmt.Errorf("line %d: PUSH cannot take a negative literal (spec.md S3: negative integers are not representable as raw slots)", in.lineNo)
			}

			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(int32(value)))
			buf = append(buf, b[:]...)
		}
	}

	return buf, pool, nil
}

func splitAsmArgs(rest string) []string {
	if strings.HasPrefix(rest, "\"") {
		if end := strings.LastIndex(rest, "\""); end > 0 {
			return []string{rest[:end+1]}
		}
	}
	return strings.Fields(rest)
}

// printDisasm writes the full disassembly of the VM's code and constant
// pool, used by RunDebug's "program" command.
func (v *VM) printDisasm(out io.Writer) {
	io.WriteString(out, Disassemble(v.code, v.pool.entries))
}

// Disassemble renders one line per instruction: byte offset, mnemonic,
// and decoded immediate(s), followed by the constant pool contents.
// Grounded on the teacher's printProgram/formatInstructionStr in
// vm/vm.go.
func Disassemble(code []byte, constants []string) string {
	var sb strings.Builder

	for ip := 0; ip < len(code); {
		b := code[ip]
		if !IsKnown(b) {
			fmt.Fprintf(&sb, "%6d: ?? 0x%02x\n", ip, b)
			ip++
			continue
		}

		op := Opcode(b)
		n := op.ImmediateCount()
		if ip+1+4*n > len(code) {
			fmt.Fprintf(&sb, "%6d: %s <truncated>\n", ip, op)
			break
		}

		imms := make([]int32, n)
		for i := 0; i < n; i++ {
			imms[i] = int32(binary.LittleEndian.Uint32(code[ip+1+4*i:]))
		}

		switch n {
		case 0:
			fmt.Fprintf(&sb, "%6d: %s\n", ip, op)
		case 1:
			fmt.Fprintf(&sb, "%6d: %s %d\n", ip, op, imms[0])
		case 2:
			fmt.Fprintf(&sb, "%6d: %s %d %d\n", ip, op, imms[0], imms[1])
		}

		ip += 1 + 4*n
	}

	if len(constants) > 0 {
		sb.WriteString("\nconstants:\n")
		for i, c := range constants {
			fmt.Fprintf(&sb, "%6d: %q\n", i, c)
		}
	}

	return sb.String()
}
