package vm

import "fmt"

// EntKind says what kind of slot an identifier resolved to.
type EntKind uint8

const (
	// EntConst is a constant-pool slot.
	EntConst EntKind = iota
	// EntLocalVar is a frame-local slot.
	EntLocalVar
	// EntUpValue is a capture slot.
	EntUpValue
	// EntPackageMember is a package member, unresolved until the whole
	// program is linked.
	EntPackageMember
	// EntBuiltInVal is a built-in that compiles to a dedicated opcode.
	EntBuiltInVal
	// EntBuiltInType is a built-in type.
	EntBuiltInType
	// EntBlank is the blank identifier; loads are fatal, stores vanish.
	EntBlank
)

// EntIndex is the resolution of one identifier. Kind selects which payload
// fields mean anything.
type EntIndex struct {
	Kind  EntKind
	Index OpIndex // EntConst, EntLocalVar, EntUpValue
	Pkg   PkgKey  // EntPackageMember
	Ident string  // EntPackageMember
	Op    Opcode  // EntBuiltInVal
	Meta  Meta    // EntBuiltInType
}

// SlotIndex returns the slot payload. Fatal for kinds that have none.
func (e EntIndex) SlotIndex() OpIndex {
	switch e.Kind {
	case EntConst, EntLocalVar, EntUpValue:
		return e.Index
	default:
		panic(fmt.Sprintf("EntIndex.SlotIndex: kind %d has no slot", e.Kind))
	}
}

// FuncFlag distinguishes ordinary functions from the two special forms the
// return instruction must know about.
type FuncFlag uint8

const (
	// FuncFlagDefault is an ordinary function.
	FuncFlagDefault FuncFlag = iota
	// FuncFlagPkgCtor is a package constructor; its return initializes
	// package variables from the stack.
	FuncFlagPkgCtor
	// FuncFlagHasDefer marks a function containing deferred calls, whose
	// return must drain them first.
	FuncFlagHasDefer
)

// ReturnType maps the flag to the tag the return instruction carries in
// its first type slot.
func (f FuncFlag) ReturnType() ValueType {
	switch f {
	case FuncFlagPkgCtor:
		return TypeFlagA
	case FuncFlagHasDefer:
		return TypeFlagB
	default:
		return TypeVoid
	}
}

// FuncVal is one compiled function: its code, constant pool, capture
// descriptors, frame layout and the symbol tables the emitter resolves
// identifiers through.
type FuncVal struct {
	Pkg  PkgKey
	Meta Meta
	Code []Instruction
	// pos holds one source position per instruction, -1 when unknown.
	pos []int32

	Consts     []Value
	UpPtrs     []ValueDesc
	RetZeros   []Value
	LocalZeros []Value
	Flag       FuncFlag

	paramCount int
	variadic   bool

	entities   map[string]EntIndex
	uvEntities map[string]EntIndex
	localAlloc OpIndex
}

// NewFuncVal creates an empty function for the given signature. The
// receiver, if any, counts as the first parameter. ctor marks a package
// constructor.
func NewFuncVal(pkg PkgKey, meta Meta, objs *Objects, ctor bool) *FuncVal {
	t := objs.Metas.Get(meta.Underlying(objs.Metas).Key)
	sig := t.AsSignature()
	paramCount := len(sig.Params)
	if sig.Recv != nil {
		paramCount++
	}
	retZeros := make([]Value, len(sig.Results))
	for i, r := range sig.Results {
		retZeros[i] = r.ZeroValue(objs.Metas, nil)
	}
	flag := FuncFlagDefault
	if ctor {
		flag = FuncFlagPkgCtor
	}
	return &FuncVal{
		Pkg:        pkg,
		Meta:       meta,
		RetZeros:   retZeros,
		Flag:       flag,
		paramCount: paramCount,
		variadic:   sig.Variadic != nil,
		entities:   make(map[string]EntIndex),
		uvEntities: make(map[string]EntIndex),
	}
}

// ParamCount returns the number of parameters, receiver included.
func (f *FuncVal) ParamCount() int {
	return f.paramCount
}

// IsVariadic reports whether the last parameter is variadic.
func (f *FuncVal) IsVariadic() bool {
	return f.variadic
}

// RetCount returns the number of results.
func (f *FuncVal) RetCount() int {
	return len(f.RetZeros)
}

// LocalCount returns the number of frame-local slots allocated so far.
func (f *FuncVal) LocalCount() int {
	return int(f.localAlloc)
}

// NextCodeIndex returns the index the next emitted instruction will have.
// Jump emission records this before the operand is known.
func (f *FuncVal) NextCodeIndex() OpIndex {
	return OpIndex(len(f.Code))
}

// Emit appends one instruction with its source position.
func (f *FuncVal) Emit(inst Instruction, pos int32) {
	f.Code = append(f.Code, inst)
	f.pos = append(f.pos, pos)
}

// EmitRaw appends a raw 64-bit word; it extends the preceding instruction
// and is never decoded as one.
func (f *FuncVal) EmitRaw(word uint64, pos int32) {
	f.Code = append(f.Code, InstructionFromUint64(word))
	f.pos = append(f.pos, pos)
}

// InstructionAt returns the instruction at index i.
func (f *FuncVal) InstructionAt(i OpIndex) Instruction {
	return f.Code[i]
}

// SetInstruction replaces the instruction at index i; jump patching goes
// through here.
func (f *FuncVal) SetInstruction(i OpIndex, inst Instruction) {
	f.Code[i] = inst
}

// Pos returns the source position of instruction i, -1 if unknown.
func (f *FuncVal) Pos(i OpIndex) int32 {
	return f.pos[i]
}

// EntityIndex returns the resolution recorded for an identifier in this
// function, if any.
func (f *FuncVal) EntityIndex(ident string) (EntIndex, bool) {
	e, ok := f.entities[ident]
	return e, ok
}

// AddLocal allocates a frame-local slot. A non-empty ident records the
// resolution for later lookups; anonymous temporaries pass "". Binding the
// same identifier twice is a resolver bug and fatal.
func (f *FuncVal) AddLocal(ident string) EntIndex {
	e := EntIndex{Kind: EntLocalVar, Index: f.localAlloc}
	f.localAlloc++
	if ident != "" {
		if _, ok := f.entities[ident]; ok {
			panic(fmt.Sprintf("FuncVal.AddLocal: duplicate binding for %q", ident))
		}
		f.entities[ident] = e
	}
	return e
}

// AddLocalZero records the zero value a local slot is seeded with on frame
// entry.
func (f *FuncVal) AddLocalZero(zero Value) {
	f.LocalZeros = append(f.LocalZeros, zero)
}

// AddConst interns a constant, deduplicating by identity, and returns its
// pool slot. A non-empty ident records the resolution; binding the same
// identifier twice is a resolver bug and fatal.
func (f *FuncVal) AddConst(ident string, v Value) EntIndex {
	e := EntIndex{Kind: EntConst, Index: OpIndex(len(f.Consts))}
	for i, c := range f.Consts {
		if c.Identical(v) {
			e.Index = OpIndex(i)
			break
		}
	}
	if int(e.Index) == len(f.Consts) {
		f.Consts = append(f.Consts, v)
	}
	if ident != "" {
		if _, ok := f.entities[ident]; ok {
			panic(fmt.Sprintf("FuncVal.AddConst: duplicate binding for %q", ident))
		}
		f.entities[ident] = e
	}
	return e
}

// TryAddUpValue returns the capture slot for an identifier, allocating one
// on first sight. Every closure instantiation of this function shares the
// same slot layout.
func (f *FuncVal) TryAddUpValue(ident string, desc ValueDesc) EntIndex {
	if e, ok := f.uvEntities[ident]; ok {
		return e
	}
	e := EntIndex{Kind: EntUpValue, Index: OpIndex(len(f.UpPtrs))}
	f.UpPtrs = append(f.UpPtrs, desc)
	f.uvEntities[ident] = e
	return e
}
