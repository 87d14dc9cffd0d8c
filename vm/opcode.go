package vm

// Opcode is a single AVM bytecode byte. Grounded on the teacher's
// Bytecode type in vm/bytecode.go: a named byte constant with a string
// table and small predicate methods, built once at init() from a single
// name<->value map so the two directions can never drift apart.
type Opcode byte

const (
	Halt Opcode = 0x00
	Jump Opcode = 0x01
	JumpIfFalse Opcode = 0x02

	Push        Opcode = 0x10
	StoreGlobal Opcode = 0x11
	LoadGlobal  Opcode = 0x12
	StoreLocal  Opcode = 0x13
	LoadLocal   Opcode = 0x14
	LoadConst   Opcode = 0x15

	Add  Opcode = 0x20
	Sub  Opcode = 0x21
	Mul  Opcode = 0x22
	Div  Opcode = 0x23
	Less Opcode = 0x24

	Call   Opcode = 0x30
	Return Opcode = 0x31

	// NewArray/NewInstance/StoreArray/LoadArray/StoreField/LoadField are
	// promoted out of "reserved" status per SPEC_FULL.md S4.5: this is
	// the one opcode table a conforming implementation commits to.
	NewArray    Opcode = 0x40
	NewInstance Opcode = 0x41
	StoreArray  Opcode = 0x42
	LoadArray   Opcode = 0x43
	StoreField  Opcode = 0x44
	LoadField   Opcode = 0x45

	Pop   Opcode = 0x80
	Print Opcode = 0x81
)

var opcodeNames = map[Opcode]string{
	Halt:        "HALT",
	Jump:        "JUMP",
	JumpIfFalse: "JUMP_IF_FALSE",
	Push:        "PUSH",
	StoreGlobal: "STORE_GLOBAL",
	LoadGlobal:  "LOAD_GLOBAL",
	StoreLocal:  "STORE_LOCAL",
	LoadLocal:   "LOAD_LOCAL",
	LoadConst:   "LOAD_CONST",
	Add:         "ADD",
	Sub:         "SUB",
	Mul:         "MUL",
	Div:         "DIV",
	Less:        "LESS",
	Call:        "CALL",
	Return:      "RETURN",
	NewArray:    "NEW_ARRAY",
	NewInstance: "NEW_INSTANCE",
	StoreArray:  "STORE_ARRAY",
	LoadArray:   "LOAD_ARRAY",
	StoreField:  "STORE_FIELD",
	LoadField:   "LOAD_FIELD",
	Pop:         "POP",
	Print:       "PRINT",
}

var nameToOpcode map[string]Opcode

func init() {
	nameToOpcode = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		nameToOpcode[name] = op
	}
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "?unknown-opcode?"
}

// LookupOpcode resolves a mnemonic to its Opcode, used by the assembler.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := nameToOpcode[name]
	return op, ok
}

// ImmediateCount returns how many 4-byte little-endian immediates follow
// this opcode byte in the instruction stream.
func (op Opcode) ImmediateCount() int {
	switch op {
	case Jump, JumpIfFalse, Push, StoreGlobal, LoadGlobal, StoreLocal, LoadLocal, LoadConst,
		NewInstance, StoreField, LoadField:
		return 1
	case Call:
		return 2
	default:
		return 0
	}
}

// IsKnown reports whether b decodes to a defined opcode.
func IsKnown(b byte) bool {
	_, ok := opcodeNames[Opcode(b)]
	return ok
}
