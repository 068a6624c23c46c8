package vm

import "fmt"

// OpIndex is the signed immediate carried by an instruction. It addresses
// constant-pool entries, local slots, upvalue slots, package members and
// small integer literals.
type OpIndex = int32

// Opcode identifies a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode uint8

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop <imm> values off the stack

	// ========================================================================
	// Pushing values (0x10-0x1F)
	// ========================================================================

	OpPushConst Opcode = 0x10 // Push constant from pool: imm = pool index, t0 = value type
	OpPushNil   Opcode = 0x11 // Push nil
	OpPushTrue  Opcode = 0x12 // Push true
	OpPushFalse Opcode = 0x13 // Push false
	OpPushImm   Opcode = 0x14 // Push small integer literal: imm = value, t0 = value type
	OpLiteral   Opcode = 0x15 // Build composite literal: imm = pool index of template

	// ========================================================================
	// Loads and stores (0x20-0x3F)
	// ========================================================================

	OpLoadLocal        Opcode = 0x20 // Push local slot: imm = slot
	OpStoreLocal       Opcode = 0x21 // Store to local slot: imm24 = slot
	OpLoadUpvalue      Opcode = 0x22 // Push captured upvalue: imm = capture index
	OpStoreUpvalue     Opcode = 0x23 // Store to captured upvalue: imm24 = capture index
	OpLoadIndex        Opcode = 0x24 // Container and index on stack; t2 low bit = comma-ok
	OpLoadIndexImm     Opcode = 0x25 // Container on stack, imm = index; t2 low bit = comma-ok
	OpStoreIndex       Opcode = 0x26 // Store through computed index
	OpStoreIndexImm    Opcode = 0x27 // Store through immediate index (imm24), stack offset in t2
	OpLoadStructField  Opcode = 0x28 // Push field: imm = field index
	OpStoreStructField Opcode = 0x29 // Store to field: imm24 = field index, stack offset in t2
	OpLoadPkgField     Opcode = 0x2A // Push package member; followed by a raw key word
	OpStorePkgField    Opcode = 0x2B // Store to package member; followed by a raw key word
	OpStoreDeref       Opcode = 0x2C // Store through pointer at stack offset imm24

	// ========================================================================
	// Operators (0x40-0x5F) - foldable into compound-assignment stores
	// ========================================================================

	OpAdd    Opcode = 0x40
	OpSub    Opcode = 0x41
	OpMul    Opcode = 0x42
	OpQuo    Opcode = 0x43
	OpRem    Opcode = 0x44
	OpAnd    Opcode = 0x45
	OpOr     Opcode = 0x46
	OpXor    Opcode = 0x47
	OpAndNot Opcode = 0x48
	OpShl    Opcode = 0x49
	OpShr    Opcode = 0x4A
	OpNot    Opcode = 0x4B
	OpNeg    Opcode = 0x4C

	// ========================================================================
	// Control flow and calls (0x60-0x6F)
	// ========================================================================

	OpJump      Opcode = 0x60 // Relative jump: imm = offset
	OpJumpIfNot Opcode = 0x61 // Pop condition, jump if false: imm = offset
	OpPreCall   Opcode = 0x62 // Prepare the callee frame
	OpCall      Opcode = 0x63 // Invoke; t0 = call style flag, t1 = pack flag
	OpReturn    Opcode = 0x64 // Return; t0 = function flag
	OpCast      Opcode = 0x65 // Convert: t0 = target type, t1 = source type; imm824 = rhs, meta index
	OpImport    Opcode = 0x66 // Push "package already initialized": imm = import slot

	// ========================================================================
	// Built-in identifiers (0x70-0x7F)
	// ========================================================================

	OpLen    Opcode = 0x70
	OpCap    Opcode = 0x71
	OpNew    Opcode = 0x72
	OpMake   Opcode = 0x73
	OpAppend Opcode = 0x74
)

var opcodeNames = map[Opcode]string{
	OpNop:              "NOP",
	OpPop:              "POP",
	OpPushConst:        "PUSH_CONST",
	OpPushNil:          "PUSH_NIL",
	OpPushTrue:         "PUSH_TRUE",
	OpPushFalse:        "PUSH_FALSE",
	OpPushImm:          "PUSH_IMM",
	OpLiteral:          "LITERAL",
	OpLoadLocal:        "LOAD_LOCAL",
	OpStoreLocal:       "STORE_LOCAL",
	OpLoadUpvalue:      "LOAD_UPVALUE",
	OpStoreUpvalue:     "STORE_UPVALUE",
	OpLoadIndex:        "LOAD_INDEX",
	OpLoadIndexImm:     "LOAD_INDEX_IMM",
	OpStoreIndex:       "STORE_INDEX",
	OpStoreIndexImm:    "STORE_INDEX_IMM",
	OpLoadStructField:  "LOAD_STRUCT_FIELD",
	OpStoreStructField: "STORE_STRUCT_FIELD",
	OpLoadPkgField:     "LOAD_PKG_FIELD",
	OpStorePkgField:    "STORE_PKG_FIELD",
	OpStoreDeref:       "STORE_DEREF",
	OpAdd:              "ADD",
	OpSub:              "SUB",
	OpMul:              "MUL",
	OpQuo:              "QUO",
	OpRem:              "REM",
	OpAnd:              "AND",
	OpOr:               "OR",
	OpXor:              "XOR",
	OpAndNot:           "AND_NOT",
	OpShl:              "SHL",
	OpShr:              "SHR",
	OpNot:              "NOT",
	OpNeg:              "NEG",
	OpJump:             "JUMP",
	OpJumpIfNot:        "JUMP_IF_NOT",
	OpPreCall:          "PRE_CALL",
	OpCall:             "CALL",
	OpReturn:           "RETURN",
	OpCast:             "CAST",
	OpImport:           "IMPORT",
	OpLen:              "LEN",
	OpCap:              "CAP",
	OpNew:              "NEW",
	OpMake:             "MAKE",
	OpAppend:           "APPEND",
}

// String returns a human-readable name for the opcode.
func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(0x%02X)", uint8(op))
}

// ValueType tags an instruction operand with the runtime kind it operates
// on. The same 8-bit space carries the small enum flags (call style, return
// flag, comma-ok) so a fourth tag slot is never needed.
type ValueType uint8

const (
	TypeVoid ValueType = iota // absent operand tag; also the "default" flag value

	TypeBool
	TypeInt
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeUintPtr
	TypeFloat32
	TypeFloat64
	TypeComplex64
	TypeComplex128

	TypeStr
	TypeArray
	TypeStruct
	TypeSlice
	TypeMap
	TypeInterface
	TypeChannel
	TypePointer
	TypeClosure
	TypeFunction
	TypeNamed
	TypeMetadata
	TypeNil
	TypePackage

	// FlagA and FlagB reuse tag slots as small enums: call style
	// (default/async/deferred) and return flag
	// (default/package-constructor/has-deferred-calls).
	TypeFlagA
	TypeFlagB
	TypeFlagC
)

var valueTypeNames = [...]string{
	TypeVoid:       "void",
	TypeBool:       "bool",
	TypeInt:        "int",
	TypeInt8:       "int8",
	TypeInt16:      "int16",
	TypeInt32:      "int32",
	TypeInt64:      "int64",
	TypeUint:       "uint",
	TypeUint8:      "uint8",
	TypeUint16:     "uint16",
	TypeUint32:     "uint32",
	TypeUint64:     "uint64",
	TypeUintPtr:    "uintptr",
	TypeFloat32:    "float32",
	TypeFloat64:    "float64",
	TypeComplex64:  "complex64",
	TypeComplex128: "complex128",
	TypeStr:        "string",
	TypeArray:      "array",
	TypeStruct:     "struct",
	TypeSlice:      "slice",
	TypeMap:        "map",
	TypeInterface:  "interface",
	TypeChannel:    "channel",
	TypePointer:    "pointer",
	TypeClosure:    "closure",
	TypeFunction:   "function",
	TypeNamed:      "named",
	TypeMetadata:   "metadata",
	TypeNil:        "nil",
	TypePackage:    "package",
	TypeFlagA:      "flagA",
	TypeFlagB:      "flagB",
	TypeFlagC:      "flagC",
}

// String returns a human-readable name for the value type tag.
func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Instruction is one bit-packed 64-bit code word.
//
// Layout (most significant bits first):
//
//	bits 56-63  opcode
//	bits 48-55  t0 operand type tag (TypeVoid if absent)
//	bits 40-47  t1 operand type tag
//	bits 32-39  t2 operand type tag
//	bits  0-31  signed 32-bit immediate
//
// The immediate can alternatively be split 8/24 (SetImm824) when an
// instruction needs both a small stack offset and an index. Operands that
// cannot fit in 32 bits (arena keys) escape to a following raw word built
// with InstructionFromUint64.
type Instruction uint64

const (
	instOpShift = 56
	instT0Shift = 48
	instT1Shift = 40
	instT2Shift = 32
	instImmMask = 0x00000000FFFFFFFF
)

// NewInstruction packs an opcode, up to three operand type tags and an
// immediate into one code word. Pass TypeVoid for absent tags.
func NewInstruction(op Opcode, t0, t1, t2 ValueType, imm OpIndex) Instruction {
	w := uint64(op)<<instOpShift |
		uint64(t0)<<instT0Shift |
		uint64(t1)<<instT1Shift |
		uint64(t2)<<instT2Shift |
		uint64(uint32(imm))
	return Instruction(w)
}

// InstructionFromUint64 reinterprets a raw 64-bit word as an instruction.
// Used for wide operands (arena keys) that follow their instruction.
func InstructionFromUint64(u uint64) Instruction {
	return Instruction(u)
}

// Uint64 returns the raw code word.
func (i Instruction) Uint64() uint64 {
	return uint64(i)
}

// Op returns the opcode.
func (i Instruction) Op() Opcode {
	return Opcode(uint64(i) >> instOpShift)
}

// T0 returns the first operand type tag.
func (i Instruction) T0() ValueType {
	return ValueType(uint64(i) >> instT0Shift)
}

// T1 returns the second operand type tag.
func (i Instruction) T1() ValueType {
	return ValueType(uint64(i) >> instT1Shift)
}

// T2 returns the third operand type tag.
func (i Instruction) T2() ValueType {
	return ValueType(uint64(i) >> instT2Shift)
}

// Imm returns the signed 32-bit immediate.
func (i Instruction) Imm() OpIndex {
	return OpIndex(uint32(uint64(i) & instImmMask))
}

// SetImm sets the signed 32-bit immediate.
func (i *Instruction) SetImm(imm OpIndex) {
	*i = Instruction(uint64(*i)&^uint64(instImmMask) | uint64(uint32(imm)))
}

// SetImm824 packs a signed 8-bit and a signed 24-bit immediate into the
// 32-bit immediate field. The 8-bit half typically carries a stack offset
// or a folded operator index; the 24-bit half carries a slot index.
// Panics if either value is out of range.
func (i *Instruction) SetImm824(imm8, imm24 OpIndex) {
	if imm8 < -(1<<7) || imm8 >= (1<<7) {
		panic("Instruction.SetImm824: imm8 out of range")
	}
	if imm24 < -(1<<23) || imm24 >= (1<<23) {
		panic("Instruction.SetImm824: imm24 out of range")
	}
	packed := uint32(uint8(int8(imm8)))<<24 | uint32(imm24)&0x00FFFFFF
	i.SetImm(OpIndex(packed))
}

// Imm824 unpacks the 8/24 split immediate.
func (i Instruction) Imm824() (imm8, imm24 OpIndex) {
	u := uint32(uint64(i) & instImmMask)
	imm8 = OpIndex(int8(u >> 24))
	imm24 = OpIndex(int32(u<<8) >> 8)
	return
}

// SetT2WithIndex stores a small index or flag (e.g. comma-ok) in the t2 tag
// slot instead of spending a fourth tag.
func (i *Instruction) SetT2WithIndex(index int8) {
	w := uint64(*i) &^ (uint64(0xFF) << instT2Shift)
	*i = Instruction(w | uint64(uint8(index))<<instT2Shift)
}

// T2AsIndex reads the t2 slot back as a small signed index.
func (i Instruction) T2AsIndex() int8 {
	return int8(uint64(i) >> instT2Shift)
}

// OpcodeToIndex converts an operator opcode into an immediate, for folding
// an operator into a compound-assignment store.
func OpcodeToIndex(op Opcode) OpIndex {
	return OpIndex(op)
}

// IndexToOpcode is the inverse of OpcodeToIndex.
func IndexToOpcode(i OpIndex) Opcode {
	return Opcode(i)
}
