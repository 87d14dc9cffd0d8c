package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
)

const defaultStackCapacity = 1024

// VM holds all interpreter-owned state for one run: the code stream, the
// operand stack, globals, call frames, the constant pool, and the heap.
// Each component is its own small type held by pointer directly on the
// struct, with no further manager layer in between, loosely following
// the teacher's VM struct composition in vm/vm.go.
type VM struct {
	code []byte
	ip   int

	stack   *OperandStack
	globals *Globals
	frames  *Frames
	pool    *Pool
	heap    *Heap

	stdout       io.Writer
	gcEveryAlloc bool
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStdout overrides the PRINT destination (defaults to os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(v *VM) { v.stdout = w }
}

// WithStackCapacity overrides the operand stack's initial capacity.
func WithStackCapacity(n int) Option {
	return func(v *VM) { v.stack = NewOperandStack(n) }
}

// WithGCEveryAlloc controls whether every allocation opcode and string
// ADD triggers a collection, per spec.md S4.3 (the default, and the
// only behavior a conforming implementation may ship). Passing false is
// a debugging escape hatch that turns the collector off for the whole
// run (no opcode collects), useful for isolating whether a fault stems
// from the collector or from the instruction under test.
func WithGCEveryAlloc(b bool) Option {
	return func(v *VM) { v.gcEveryAlloc = b }
}

// NewVM builds a VM ready to execute code, starting at instruction
// pointer 0 (entry-point offsets in the AMBR container are reserved and
// ignored, per spec.md S6).
func NewVM(code []byte, constants []string, opts ...Option) *VM {
	v := &VM{
		code:         code,
		stack:        NewOperandStack(defaultStackCapacity),
		globals:      NewGlobals(),
		frames:       NewFrames(),
		pool:         NewPool(constants),
		heap:         NewHeap(),
		stdout:       os.Stdout,
		gcEveryAlloc: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IP reports the current instruction pointer, for debug tooling.
func (v *VM) IP() int { return v.ip }

// Code exposes the raw code stream, for disassembly tooling.
func (v *VM) Code() []byte { return v.code }

// StackDepth reports the live operand stack depth.
func (v *VM) StackDepth() int { return v.stack.Len() }

// Run executes until HALT, an empty-return_stack RETURN, or a fault.
// It disables the host garbage collector for the duration of the run,
// the way the teacher's RunProgram in vm/run.go does, since AVM's own
// collector is the only one that should run during the fetch-decode-
// execute loop.
func (v *VM) Run() error {
	gcPercent := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	for {
		err := v.step()
		if err == nil {
			continue
		}

		var halted Halted
		if errors.As(err, &halted) {
			return nil
		}
		return err
	}
}

// RunDebug runs the single-step REPL: "next"/"n" executes one
// instruction, "run"/"r" free-runs until a breakpoint or fault, "break
// <ip>"/"b <ip>" toggles a breakpoint at a byte offset. Grounded on the
// teacher's RunProgramDebugMode/ExecProgramDebugMode in vm/run.go and
// vm/exec.go.
func (v *VM) RunDebug(in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <ip>: toggle breakpoint at byte offset\n\n")
	v.printState(out)

	reader := bufio.NewReader(in)
	waitForInput := true
	breakpoints := make(map[int]struct{})
	lastBreak := -1

	for {
		line := ""
		if waitForInput {
			fmt.Fprint(out, "\n-> ")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			if _, ok := breakpoints[v.ip]; ok && lastBreak != v.ip {
				fmt.Fprintln(out, "breakpoint")
				v.printState(out)
				waitForInput = true
				lastBreak = v.ip
				continue
			}
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			lastBreak = -1
			err := v.step()
			if waitForInput {
				v.printState(out)
			}

			if err != nil {
				var halted Halted
				if errors.As(err, &halted) {
					return nil
				}
				return err
			}

		case line == "program":
			v.printDisasm(out)

		case line == "r" || line == "run":
			waitForInput = false

		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "unknown breakpoint offset:", err)
				continue
			}
			if _, ok := breakpoints[n]; ok {
				delete(breakpoints, n)
			} else {
				breakpoints[n] = struct{}{}
			}
		}
	}
}

func (v *VM) printState(out io.Writer) {
	fmt.Fprintf(out, "  ip> %d\n", v.ip)
	fmt.Fprintf(out, "  stack> %v\n", v.stack.View())
	fmt.Fprintf(out, "  globals> %v\n", v.globals.View())
	fmt.Fprintf(out, "  fp> %d (depth %d)\n", v.frames.FP(), v.frames.Depth())
}
