// Package codegen emits Oriole bytecode into compiled functions. It sits
// between a front end that has already resolved identifiers to EntIndex
// slots and the vm package's instruction encoding, and owns the encoding
// tricks the code words rely on: small-integer push shortcuts, folded
// compound-assignment operators, the 8/24 immediate split, and raw key
// words for cross-package references.
package codegen

import (
	"fmt"

	"github.com/oriole-lang/oriole/vm"
)

// CallStyle says how a call site invokes its callee.
type CallStyle uint8

const (
	// CallDefault is a plain synchronous call.
	CallDefault CallStyle = iota
	// CallAsync launches the callee concurrently.
	CallAsync
	// CallDefer schedules the callee for frame exit.
	CallDefer
)

func (s CallStyle) flag() vm.ValueType {
	switch s {
	case CallAsync:
		return vm.TypeFlagA
	case CallDefer:
		return vm.TypeFlagB
	default:
		return vm.TypeVoid
	}
}

// IndexSelType distinguishes the two selector-like stores.
type IndexSelType uint8

const (
	// SelIndexing is an index expression (slice, array, map).
	SelIndexing IndexSelType = iota
	// SelStructField is a struct field selector.
	SelStructField
)

// IndexSelInfo describes an index or selector left-hand side: where the
// container sits on the stack, the immediate index if the subscript is a
// constant, and the operand type tags the store instruction needs.
type IndexSelInfo struct {
	Index    int8       // stack offset of the container
	ImmIndex vm.OpIndex // constant subscript, valid when HasImm
	HasImm   bool
	T1       vm.ValueType // container type tag
	T2       vm.ValueType // subscript type tag, TypeVoid for immediate forms
	Typ      IndexSelType
}

// NewIndexSelInfo bundles the fields; pass TypeVoid for an absent T2.
func NewIndexSelInfo(index int8, immIndex vm.OpIndex, hasImm bool, t1, t2 vm.ValueType, typ IndexSelType) IndexSelInfo {
	return IndexSelInfo{Index: index, ImmIndex: immIndex, HasImm: hasImm, T1: t1, T2: t2, Typ: typ}
}

// WithIndex returns a copy with the container stack offset replaced.
func (info IndexSelInfo) WithIndex(i vm.OpIndex) IndexSelInfo {
	if i < -128 || i > 127 {
		panic("IndexSelInfo.WithIndex: offset out of range")
	}
	v := info
	v.Index = int8(i)
	return v
}

// StackSpace returns how many stack slots the left-hand side occupies
// while the assignment is in flight.
func (info IndexSelInfo) StackSpace() vm.OpIndex {
	if info.T2 != vm.TypeVoid {
		return 2
	}
	return 1
}

// LHSKind selects the LeftHandSide variant.
type LHSKind uint8

const (
	// LHSPrimitive assigns to a resolved slot (local, upvalue, package
	// member, or the blank identifier).
	LHSPrimitive LHSKind = iota
	// LHSIndexSel assigns through an index or selector expression.
	LHSIndexSel
	// LHSDeref assigns through a pointer already on the stack.
	LHSDeref
)

// LeftHandSide is the target of one assignment.
type LeftHandSide struct {
	Kind  LHSKind
	Ent   vm.EntIndex  // LHSPrimitive
	Sel   IndexSelInfo // LHSIndexSel
	Deref vm.OpIndex   // LHSDeref: stack offset of the pointer
}

// LHSEnt builds a primitive left-hand side.
func LHSEnt(e vm.EntIndex) LeftHandSide {
	return LeftHandSide{Kind: LHSPrimitive, Ent: e}
}

// LHSSel builds an index/selector left-hand side.
func LHSSel(info IndexSelInfo) LeftHandSide {
	return LeftHandSide{Kind: LHSIndexSel, Sel: info}
}

// LHSPtr builds a pointer-dereference left-hand side.
func LHSPtr(stackOffset vm.OpIndex) LeftHandSide {
	return LeftHandSide{Kind: LHSDeref, Deref: stackOffset}
}

// RightHandSide says what feeds an assignment, for callers sequencing
// multi-value forms.
type RightHandSide uint8

const (
	// RHSNothing declares without initializing.
	RHSNothing RightHandSide = iota
	// RHSValues assigns from evaluated expressions.
	RHSValues
	// RHSRange assigns from a range clause.
	RHSRange
	// RHSSelectRecv assigns from a select receive.
	RHSSelectRecv
)

// PatchInfo carries the deferred-patch registry and the function being
// emitted, for instructions that address package members.
type PatchInfo struct {
	Pairs *PkgVarPairs
	Func  vm.FuncKey
}

// StoreOp is a compound-assignment operator folded into a store. ShiftT
// carries the right operand's type for shifts, which have no operand slot
// left for it.
type StoreOp struct {
	Op     vm.Opcode
	ShiftT vm.ValueType // TypeVoid unless Op is a shift
}

// Emitter appends instructions to one compiled function.
type Emitter struct {
	f *vm.FuncVal
}

// NewEmitter creates an emitter over f.
func NewEmitter(f *vm.FuncVal) *Emitter {
	return &Emitter{f: f}
}

// Func returns the function being emitted.
func (e *Emitter) Func() *vm.FuncVal {
	return e.f
}

// AddConst interns a constant in the function's pool.
func (e *Emitter) AddConst(ident string, v vm.Value) vm.EntIndex {
	return e.f.AddConst(ident, v)
}

// AddParams allocates parameter slots in declaration order. Unnamed
// parameters pass "" and still consume a slot.
func (e *Emitter) AddParams(names []string) int {
	for _, n := range names {
		e.f.AddLocal(n)
	}
	return len(names)
}

// EmitLoad pushes the value a resolved identifier refers to. Small integer
// and boolean constants compile to immediate pushes instead of pool loads;
// package members emit a raw key word and register a patch for the member
// slot.
func (e *Emitter) EmitLoad(index vm.EntIndex, patch *PatchInfo, typ vm.ValueType, pos int32) {
	switch index.Kind {
	case vm.EntConst:
		c := e.f.Consts[index.Index]
		switch {
		case c.Type() == vm.TypeBool && c.Bool():
			e.f.Emit(vm.NewInstruction(vm.OpPushTrue, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, 0), pos)
		case c.Type() == vm.TypeBool:
			e.f.Emit(vm.NewInstruction(vm.OpPushFalse, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, 0), pos)
		case c.Type() == vm.TypeInt && fitsOpIndex(c.Int()):
			e.EmitPushImm(typ, vm.OpIndex(c.Int()), pos)
		default:
			e.f.Emit(vm.NewInstruction(vm.OpPushConst, typ, vm.TypeVoid, vm.TypeVoid, index.Index), pos)
		}
	case vm.EntLocalVar:
		e.f.Emit(vm.NewInstruction(vm.OpLoadLocal, typ, vm.TypeVoid, vm.TypeVoid, index.Index), pos)
	case vm.EntUpValue:
		e.f.Emit(vm.NewInstruction(vm.OpLoadUpvalue, typ, vm.TypeVoid, vm.TypeVoid, index.Index), pos)
	case vm.EntPackageMember:
		e.f.Emit(vm.NewInstruction(vm.OpLoadPkgField, typ, vm.TypeVoid, vm.TypeVoid, 0), pos)
		e.f.EmitRaw(vm.KeyToUint64(index.Pkg), pos)
		if patch == nil {
			panic("Emitter.EmitLoad: package member load without patch info")
		}
		patch.Pairs.AddPair(index.Pkg, index.Ident, patch.Func, e.f.NextCodeIndex()-2, false)
	case vm.EntBuiltInVal:
		e.f.Emit(vm.NewInstruction(index.Op, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, 0), pos)
	case vm.EntBuiltInType:
		i := e.f.AddConst("", vm.NewMetaValue(index.Meta))
		e.EmitLoad(i, nil, vm.TypeMetadata, pos)
	default:
		panic(fmt.Sprintf("Emitter.EmitLoad: cannot load entity kind %d", index.Kind))
	}
}

// EmitStore assigns the value at stack offset rhsIndex to lhs. A non-nil
// op folds a compound-assignment operator into the store's high immediate
// byte; rhsIndex must be -1 in that case. Stores to the blank identifier
// emit nothing.
func (e *Emitter) EmitStore(lhs LeftHandSide, rhsIndex vm.OpIndex, op *StoreOp, patch *PatchInfo, typ vm.ValueType, pos int32) {
	if lhs.Kind == LHSPrimitive && lhs.Ent.Kind == vm.EntBlank {
		return
	}

	var (
		code     vm.Opcode
		imm24    vm.OpIndex
		t1, t2   vm.ValueType
		selIndex int8
		hasSel   bool
		pkgPatch bool
		pkg      vm.PkgKey
		ident    string
	)
	switch lhs.Kind {
	case LHSPrimitive:
		switch lhs.Ent.Kind {
		case vm.EntLocalVar:
			code, imm24 = vm.OpStoreLocal, lhs.Ent.Index
		case vm.EntUpValue:
			code, imm24 = vm.OpStoreUpvalue, lhs.Ent.Index
		case vm.EntPackageMember:
			code, imm24 = vm.OpStorePkgField, 0
			t1 = vm.TypePackage
			pkgPatch = true
			pkg, ident = lhs.Ent.Pkg, lhs.Ent.Ident
		default:
			panic(fmt.Sprintf("Emitter.EmitStore: cannot store to entity kind %d", lhs.Ent.Kind))
		}
	case LHSIndexSel:
		info := lhs.Sel
		switch info.Typ {
		case SelIndexing:
			if info.HasImm {
				code, imm24 = vm.OpStoreIndexImm, info.ImmIndex
				t1 = info.T1
				selIndex, hasSel = info.Index, true
			} else {
				code, imm24 = vm.OpStoreIndex, vm.OpIndex(info.Index)
				t1, t2 = info.T1, info.T2
			}
		case SelStructField:
			if !info.HasImm {
				panic("Emitter.EmitStore: struct field store needs an immediate index")
			}
			code, imm24 = vm.OpStoreStructField, info.ImmIndex
			t1 = info.T1
			selIndex, hasSel = info.Index, true
		}
	case LHSDeref:
		code, imm24 = vm.OpStoreDeref, lhs.Deref
	}

	inst := vm.NewInstruction(code, typ, t1, t2, 0)
	if hasSel {
		inst.SetT2WithIndex(selIndex)
	}

	if rhsIndex != -1 && op != nil {
		panic("Emitter.EmitStore: folded operator excludes an rhs offset")
	}
	imm8 := rhsIndex
	if op != nil {
		if op.ShiftT != vm.TypeVoid {
			// No operand slot is left for the shift rhs type; emit a
			// zero-producing cast whose tags smuggle it to the store.
			e.EmitCast(vm.TypeUint32, op.ShiftT, vm.TypeVoid, -1, 0, pos)
		}
		imm8 = vm.OpcodeToIndex(op.Op)
	}
	inst.SetImm824(imm8, imm24)
	e.f.Emit(inst, pos)

	if pkgPatch {
		e.f.EmitRaw(vm.KeyToUint64(pkg), pos)
		if patch == nil {
			panic("Emitter.EmitStore: package member store without patch info")
		}
		patch.Pairs.AddPair(pkg, ident, patch.Func, e.f.NextCodeIndex()-2, true)
	}
}

// EmitCast emits a conversion. rhs rides in the high immediate byte and
// mIndex, a metadata pool slot for interface and named targets, in the low
// 24 bits.
func (e *Emitter) EmitCast(t0, t1, t2 vm.ValueType, rhs, mIndex vm.OpIndex, pos int32) {
	inst := vm.NewInstruction(vm.OpCast, t0, t1, t2, 0)
	inst.SetImm824(rhs, mIndex)
	e.f.Emit(inst, pos)
}

// EmitImport emits the import-and-initialize sequence: IMPORT pushes
// whether the package already ran its constructor, and a conditional jump
// skips the constructor call when it did. The constructor is the package's
// member zero.
func (e *Emitter) EmitImport(index vm.OpIndex, pkg vm.PkgKey, pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpImport, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, index), pos)
	ctorCall := []vm.Instruction{
		vm.NewInstruction(vm.OpLoadPkgField, vm.TypeInt, vm.TypeVoid, vm.TypeVoid, 0),
		vm.InstructionFromUint64(vm.KeyToUint64(pkg)),
		vm.NewInstruction(vm.OpPreCall, vm.TypeClosure, vm.TypeVoid, vm.TypeVoid, 0),
		vm.NewInstruction(vm.OpCall, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, 0),
	}
	e.f.Emit(vm.NewInstruction(vm.OpJumpIfNot, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, vm.OpIndex(len(ctorCall))), pos)
	for _, inst := range ctorCall {
		e.f.Emit(inst, pos)
	}
}

// EmitPop drops count values.
func (e *Emitter) EmitPop(count vm.OpIndex, pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpPop, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, count), pos)
}

// EmitLoadStructField pushes field imm of the struct on top of the stack.
func (e *Emitter) EmitLoadStructField(imm vm.OpIndex, typ vm.ValueType, pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpLoadStructField, typ, vm.TypeVoid, vm.TypeVoid, imm), pos)
}

// EmitLoadIndex pushes container[index] with both on the stack. commaOk
// selects the two-result form.
func (e *Emitter) EmitLoadIndex(typ, indexType vm.ValueType, commaOk bool, pos int32) {
	inst := vm.NewInstruction(vm.OpLoadIndex, typ, indexType, vm.TypeVoid, 0)
	inst.SetT2WithIndex(boolIndex(commaOk))
	e.f.Emit(inst, pos)
}

// EmitLoadIndexImm pushes container[imm] for a constant subscript.
func (e *Emitter) EmitLoadIndexImm(imm vm.OpIndex, typ vm.ValueType, commaOk bool, pos int32) {
	inst := vm.NewInstruction(vm.OpLoadIndexImm, typ, vm.TypeVoid, vm.TypeVoid, imm)
	inst.SetT2WithIndex(boolIndex(commaOk))
	e.f.Emit(inst, pos)
}

// EmitReturn emits the function's return, tagged with its flag so package
// constructors and defer-draining returns take their special paths.
// pkgIndex, used by constructors, passes -1 when absent.
func (e *Emitter) EmitReturn(pkgIndex vm.OpIndex, pos int32) {
	imm := pkgIndex
	if imm < 0 {
		imm = 0
	}
	e.f.Emit(vm.NewInstruction(vm.OpReturn, e.f.Flag.ReturnType(), vm.TypeVoid, vm.TypeVoid, imm), pos)
}

// EmitPreCall emits frame preparation for the closure on top of the stack.
func (e *Emitter) EmitPreCall(pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpPreCall, vm.TypeVoid, vm.TypeVoid, vm.TypeVoid, 0), pos)
}

// EmitCall emits the invocation. pack marks variadic argument packing.
func (e *Emitter) EmitCall(style CallStyle, pack bool, pos int32) {
	packFlag := vm.TypeVoid
	if pack {
		packFlag = vm.TypeFlagA
	}
	e.f.Emit(vm.NewInstruction(vm.OpCall, style.flag(), packFlag, vm.TypeVoid, 0), pos)
}

// EmitLiteral builds a composite literal from the pool template at index.
func (e *Emitter) EmitLiteral(typ vm.ValueType, index vm.OpIndex, pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpLiteral, typ, vm.TypeVoid, vm.TypeVoid, index), pos)
}

// EmitPushImm pushes a small integer literal without a pool slot.
func (e *Emitter) EmitPushImm(typ vm.ValueType, imm vm.OpIndex, pos int32) {
	e.f.Emit(vm.NewInstruction(vm.OpPushImm, typ, vm.TypeVoid, vm.TypeVoid, imm), pos)
}

func fitsOpIndex(i int) bool {
	return i >= -(1<<31) && i < (1<<31)
}

func boolIndex(b bool) int8 {
	if b {
		return 1
	}
	return 0
}
