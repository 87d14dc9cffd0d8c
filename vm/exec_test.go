package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runAsm(t *testing.T, source string) (string, error) {
	t.Helper()
	code, pool, err := Assemble(strings.Split(strings.TrimSpace(source), "\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	m := NewVM(code, pool, WithStdout(&out))
	runErr := m.Run()
	return out.String(), runErr
}

func TestArithmeticScenario(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 5
		PUSH 3
		SUB
		PRINT
		HALT
	`)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestConditionalJumpSkipsPadding(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 0
		JUMP_IF_FALSE skip
		PUSH 42
		PRINT
	skip:
		HALT
	`)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestGlobalsScenario(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 7
		STORE_GLOBAL 0
		LOAD_GLOBAL 0
		PRINT
		HALT
	`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenationScenario(t *testing.T) {
	code, pool, err := Assemble(strings.Split(strings.TrimSpace(`
		LOAD_CONST 0
		LOAD_CONST 1
		ADD
		PRINT
		HALT
	`), "\n"))
	require.NoError(t, err)
	pool = []string{"foo", "bar"}

	var out bytes.Buffer
	m := NewVM(code, pool, WithStdout(&out))
	require.NoError(t, m.Run())
	require.Equal(t, "foobar\n", out.String())
	require.Equal(t, 3, m.pool.Size(), "concatenation must intern exactly one new pool entry")
}

func TestDivisionByZeroFaults(t *testing.T) {
	_, err := runAsm(t, `
		PUSH 1
		PUSH 0
		DIV
		HALT
	`)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, DivideByZero, fault.Kind)
}

func TestCallReturnSingleArgSquare(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 4
		CALL square 1
		PRINT
		HALT
	square:
		LOAD_LOCAL 0
		LOAD_LOCAL 0
		MUL
		RETURN
	`)
	require.NoError(t, err)
	require.Equal(t, "16\n", out)
}

func TestCallReturnTwoArgs(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 3
		PUSH 4
		CALL add 2
		PRINT
		HALT
	add:
		LOAD_LOCAL 0
		LOAD_LOCAL 1
		ADD
		RETURN
	`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestArrayStoreLoadRoundTrip(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 3
		NEW_ARRAY
		STORE_GLOBAL 0

		PUSH 99
		PUSH 1
		LOAD_GLOBAL 0
		STORE_ARRAY

		PUSH 1
		LOAD_GLOBAL 0
		LOAD_ARRAY
		PRINT
		HALT
	`)
	require.NoError(t, err)
	require.Equal(t, "99\n", out)
}

func TestArrayOutOfBoundsDoesNotMutate(t *testing.T) {
	code, pool, err := Assemble(strings.Split(strings.TrimSpace(`
		PUSH 2
		NEW_ARRAY
		STORE_GLOBAL 0

		PUSH 7
		PUSH 5
		LOAD_GLOBAL 0
		STORE_ARRAY
		HALT
	`), "\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	m := NewVM(code, pool, WithStdout(&out))
	err = m.Run()
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, OutOfBounds, fault.Kind)

	obj, err := m.heap.Get(0, 0)
	require.NoError(t, err)
	require.Equal(t, []Slot{0, 0}, obj.(*Array).Elements, "a rejected out-of-range store must leave the array untouched")
}

func TestInstanceFieldRoundTrip(t *testing.T) {
	out, err := runAsm(t, `
		PUSH 2
		NEW_INSTANCE 7
		STORE_GLOBAL 0

		PUSH 123
		LOAD_GLOBAL 0
		STORE_FIELD 0

		LOAD_GLOBAL 0
		LOAD_FIELD 0
		PRINT
		HALT
	`)
	require.NoError(t, err)
	require.Equal(t, "123\n", out)
}

func TestStackUnderflowOnPopFromEmptyStack(t *testing.T) {
	_, err := runAsm(t, `
		POP
		HALT
	`)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, StackUnderflow, fault.Kind)
}

func TestStoreGlobalNegativeIndexFaultsInsteadOfPanicking(t *testing.T) {
	_, err := runAsm(t, `
		PUSH 1
		STORE_GLOBAL -1
		HALT
	`)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, BadGlobal, fault.Kind)
}

func TestAddTypeMismatchBetweenIntAndString(t *testing.T) {
	code, _, err := Assemble(strings.Split(strings.TrimSpace(`
		PUSH 1
		LOAD_CONST 0
		ADD
		HALT
	`), "\n"))
	require.NoError(t, err)

	m := NewVM(code, []string{"x"})
	err = m.Run()
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, TypeMismatch, fault.Kind)
}
