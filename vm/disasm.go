package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler: human-readable listings for compiled functions
// ---------------------------------------------------------------------------

// opcodeHasRawWord says which instructions are followed by a raw 64-bit
// operand word. The disassembler and any other code walker must skip it.
func opcodeHasRawWord(op Opcode) bool {
	switch op {
	case OpLoadPkgField, OpStorePkgField:
		return true
	}
	return false
}

// Disassemble returns a listing of the function's constants, captures and
// code.
func (f *FuncVal) Disassemble() string {
	return f.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (f *FuncVal) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Oriole Bytecode v%d\n", ImageVersion))
	sb.WriteString(fmt.Sprintf("; Params: %d", f.ParamCount()))
	if f.IsVariadic() {
		sb.WriteString(" [VARIADIC]")
	}
	switch f.Flag {
	case FuncFlagPkgCtor:
		sb.WriteString(" [PKG_CTOR]")
	case FuncFlagHasDefer:
		sb.WriteString(" [HAS_DEFER]")
	}
	sb.WriteString("\n")
	if f.LocalCount() > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", f.LocalCount()))
	}
	sb.WriteString("\n")

	if len(f.Consts) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range f.Consts {
			display := c.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			display = strings.ReplaceAll(display, "\t", "\\t")
			sb.WriteString(fmt.Sprintf(";   [%3d] %s %s\n", i, c.Type(), display))
		}
		sb.WriteString("\n")
	}

	if len(f.UpPtrs) > 0 {
		sb.WriteString("; Captures:\n")
		for i, d := range f.UpPtrs {
			src := "local"
			if d.IsUpValue {
				src = "upvalue"
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s slot=%d of func %d\n", i, src, d.Index, d.Func))
		}
		sb.WriteString("\n")
	}

	for pc := 0; pc < len(f.Code); {
		text, width := f.disassembleAt(OpIndex(pc))
		sb.WriteString(fmt.Sprintf("%04X  %s\n", pc, text))
		pc += width
	}

	return sb.String()
}

// disassembleAt renders the instruction at pc and returns how many code
// words it spans.
func (f *FuncVal) disassembleAt(pc OpIndex) (string, int) {
	inst := f.Code[pc]
	op := inst.Op()

	if opcodeHasRawWord(op) {
		key := KeyFromUint64[PkgKey](f.Code[pc+1].Uint64())
		return fmt.Sprintf("%s %d pkg=%d", op, inst.Imm(), key), 2
	}

	switch op {
	case OpPop:
		return fmt.Sprintf("POP %d", inst.Imm()), 1

	case OpPushConst:
		idx := inst.Imm()
		note := ""
		if int(idx) < len(f.Consts) {
			note = " ; " + f.Consts[idx].String()
		}
		return fmt.Sprintf("PUSH_CONST %d%s", idx, note), 1

	case OpPushImm:
		return fmt.Sprintf("PUSH_IMM %d (%s)", inst.Imm(), inst.T0()), 1

	case OpLoadLocal, OpLoadUpvalue, OpLoadIndexImm, OpLoadStructField, OpLiteral:
		return fmt.Sprintf("%s %d", op, inst.Imm()), 1

	case OpStoreLocal, OpStoreUpvalue, OpStoreIndexImm, OpStoreStructField, OpStoreDeref:
		imm8, imm24 := inst.Imm824()
		if imm8 > 0 {
			// A folded compound-assignment operator rides in the high byte;
			// a negative high byte is the rhs stack offset instead.
			return fmt.Sprintf("%s %d [%s=]", op, imm24, IndexToOpcode(imm8)), 1
		}
		if imm8 < 0 {
			return fmt.Sprintf("%s %d rhs=%d", op, imm24, imm8), 1
		}
		return fmt.Sprintf("%s %d", op, imm24), 1

	case OpJump, OpJumpIfNot:
		delta := inst.Imm()
		target := int(pc) + 1 + int(delta)
		return fmt.Sprintf("%s %+d (-> %04X)", op, delta, target), 1

	case OpCall:
		return fmt.Sprintf("CALL style=%s pack=%s", inst.T0(), inst.T1()), 1

	case OpReturn:
		if inst.T0() != TypeVoid {
			return fmt.Sprintf("RETURN [%s]", inst.T0()), 1
		}
		return "RETURN", 1

	case OpCast:
		imm8, imm24 := inst.Imm824()
		return fmt.Sprintf("CAST %s <- %s rhs=%d meta=%d", inst.T0(), inst.T1(), imm8, imm24), 1

	case OpImport:
		return fmt.Sprintf("IMPORT %d", inst.Imm()), 1
	}

	// Default rendering: opcode plus whichever operands are present.
	var sb strings.Builder
	sb.WriteString(op.String())
	if inst.T0() != TypeVoid {
		sb.WriteString(" " + inst.T0().String())
	}
	if inst.T1() != TypeVoid {
		sb.WriteString("," + inst.T1().String())
	}
	if imm := inst.Imm(); imm != 0 {
		sb.WriteString(fmt.Sprintf(" %d", imm))
	}
	return sb.String(), 1
}
