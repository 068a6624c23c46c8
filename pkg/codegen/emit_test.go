package codegen

import (
	"testing"

	"github.com/oriole-lang/oriole/vm"
)

// testEnv is one function under emission plus the arena it lives in.
type testEnv struct {
	objs  *vm.Objects
	pk    vm.PkgKey
	fk    vm.FuncKey
	e     *Emitter
	pairs *PkgVarPairs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	objs := vm.NewObjects()
	pk := objs.Pkgs.Add(vm.NewPkgVal("main"))
	sig := vm.NewSignatureMeta(nil, nil, nil, nil, objs.Metas)
	fn := vm.NewFuncVal(pk, sig, objs, false)
	fk := objs.Funcs.Add(fn)
	return &testEnv{
		objs:  objs,
		pk:    pk,
		fk:    fk,
		e:     NewEmitter(fn),
		pairs: NewPkgVarPairs(),
	}
}

func (env *testEnv) patch() *PatchInfo {
	return &PatchInfo{Pairs: env.pairs, Func: env.fk}
}

func (env *testEnv) code() []vm.Instruction {
	return env.e.Func().Code
}

// ---------------------------------------------------------------------------
// Loads
// ---------------------------------------------------------------------------

func TestEmitLoadConstFastPaths(t *testing.T) {
	tests := []struct {
		name   string
		v      vm.Value
		typ    vm.ValueType
		wantOp vm.Opcode
	}{
		{"true", vm.NewBool(true), vm.TypeBool, vm.OpPushTrue},
		{"false", vm.NewBool(false), vm.TypeBool, vm.OpPushFalse},
		{"small int", vm.NewInt(1000), vm.TypeInt, vm.OpPushImm},
		{"negative int", vm.NewInt(-3), vm.TypeInt, vm.OpPushImm},
		{"wide int", vm.NewInt(1 << 40), vm.TypeInt, vm.OpPushConst},
		{"string", vm.NewString("s"), vm.TypeStr, vm.OpPushConst},
		{"int64", vm.NewInt64(5), vm.TypeInt64, vm.OpPushConst},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			idx := env.e.AddConst("", tc.v)
			env.e.EmitLoad(idx, nil, tc.typ, 0)

			code := env.code()
			if len(code) != 1 {
				t.Fatalf("emitted %d words, want 1", len(code))
			}
			if got := code[0].Op(); got != tc.wantOp {
				t.Fatalf("opcode = %v, want %v", got, tc.wantOp)
			}
			switch tc.wantOp {
			case vm.OpPushImm:
				if got := code[0].Imm(); got != vm.OpIndex(tc.v.Int()) {
					t.Errorf("immediate = %d, want %d", got, tc.v.Int())
				}
			case vm.OpPushConst:
				if got := code[0].Imm(); got != idx.Index {
					t.Errorf("pool index = %d, want %d", got, idx.Index)
				}
				if got := code[0].T0(); got != tc.typ {
					t.Errorf("t0 = %v, want %v", got, tc.typ)
				}
			}
		})
	}
}

func TestEmitLoadLocalAndUpvalue(t *testing.T) {
	env := newTestEnv(t)
	local := env.e.Func().AddLocal("x")
	capture := env.e.Func().TryAddUpValue("y", vm.ValueDesc{Typ: vm.TypeInt})

	env.e.EmitLoad(local, nil, vm.TypeInt, 0)
	env.e.EmitLoad(capture, nil, vm.TypeInt, 0)

	code := env.code()
	if code[0].Op() != vm.OpLoadLocal || code[0].Imm() != local.Index {
		t.Errorf("local load = %v imm %d", code[0].Op(), code[0].Imm())
	}
	if code[1].Op() != vm.OpLoadUpvalue || code[1].Imm() != capture.Index {
		t.Errorf("upvalue load = %v imm %d", code[1].Op(), code[1].Imm())
	}
}

func TestEmitLoadBuiltIn(t *testing.T) {
	env := newTestEnv(t)
	env.e.EmitLoad(vm.EntIndex{Kind: vm.EntBuiltInVal, Op: vm.OpLen}, nil, vm.TypeVoid, 0)
	if got := env.code()[0].Op(); got != vm.OpLen {
		t.Errorf("built-in load = %v, want %v", got, vm.OpLen)
	}
}

func TestEmitLoadPackageMember(t *testing.T) {
	env := newTestEnv(t)
	ent := vm.EntIndex{Kind: vm.EntPackageMember, Pkg: env.pk, Ident: "answer"}
	env.e.EmitLoad(ent, env.patch(), vm.TypeInt, 0)

	code := env.code()
	if len(code) != 2 {
		t.Fatalf("emitted %d words, want instruction plus raw key", len(code))
	}
	if code[0].Op() != vm.OpLoadPkgField {
		t.Errorf("opcode = %v, want %v", code[0].Op(), vm.OpLoadPkgField)
	}
	if got := vm.KeyFromUint64[vm.PkgKey](code[1].Uint64()); got != env.pk {
		t.Errorf("raw key word = %d, want %d", got, env.pk)
	}
	if env.pairs.Len() != 1 {
		t.Errorf("registered %d patches, want 1", env.pairs.Len())
	}

	// Resolve rewrites the zero placeholder with the member slot.
	p := env.objs.Pkgs.Get(env.pk)
	p.AddMember("pad", vm.NewInt(0))
	member := p.AddMember("answer", vm.NewInt(42))
	if err := env.pairs.Resolve(env.objs); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	patched := env.objs.Funcs.Get(env.fk).InstructionAt(0)
	if got := patched.Imm(); got != member {
		t.Errorf("patched member slot = %d, want %d", got, member)
	}
	if env.pairs.Len() != 0 {
		t.Error("Resolve left patches behind")
	}
}

func TestEmitLoadPackageMemberWithoutPatchPanics(t *testing.T) {
	env := newTestEnv(t)
	defer func() {
		if recover() == nil {
			t.Error("package member load without patch info did not panic")
		}
	}()
	env.e.EmitLoad(vm.EntIndex{Kind: vm.EntPackageMember, Pkg: env.pk, Ident: "x"}, nil, vm.TypeInt, 0)
}

// ---------------------------------------------------------------------------
// Stores
// ---------------------------------------------------------------------------

func TestEmitStoreBlankIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.e.EmitStore(LHSEnt(vm.EntIndex{Kind: vm.EntBlank}), -1, nil, nil, vm.TypeInt, 0)
	if got := len(env.code()); got != 0 {
		t.Errorf("blank store emitted %d words, want 0", got)
	}
}

func TestEmitStoreLocal(t *testing.T) {
	env := newTestEnv(t)
	local := env.e.Func().AddLocal("x")
	env.e.EmitStore(LHSEnt(local), -2, nil, nil, vm.TypeInt, 0)

	inst := env.code()[0]
	if inst.Op() != vm.OpStoreLocal {
		t.Fatalf("opcode = %v, want %v", inst.Op(), vm.OpStoreLocal)
	}
	imm8, imm24 := inst.Imm824()
	if imm8 != -2 || imm24 != local.Index {
		t.Errorf("imm824 = (%d, %d), want (-2, %d)", imm8, imm24, local.Index)
	}
}

func TestEmitStoreFoldedOperator(t *testing.T) {
	env := newTestEnv(t)
	local := env.e.Func().AddLocal("x")
	env.e.EmitStore(LHSEnt(local), -1, &StoreOp{Op: vm.OpAdd}, nil, vm.TypeInt, 0)

	inst := env.code()[0]
	imm8, imm24 := inst.Imm824()
	if vm.IndexToOpcode(imm8) != vm.OpAdd {
		t.Errorf("folded operator = %v, want %v", vm.IndexToOpcode(imm8), vm.OpAdd)
	}
	if imm24 != local.Index {
		t.Errorf("slot = %d, want %d", imm24, local.Index)
	}
}

func TestEmitStoreFoldedOperatorExcludesRhsOffset(t *testing.T) {
	env := newTestEnv(t)
	local := env.e.Func().AddLocal("x")
	defer func() {
		if recover() == nil {
			t.Error("folded operator with rhs offset did not panic")
		}
	}()
	env.e.EmitStore(LHSEnt(local), -3, &StoreOp{Op: vm.OpAdd}, nil, vm.TypeInt, 0)
}

func TestEmitStoreShiftSmugglesRhsType(t *testing.T) {
	env := newTestEnv(t)
	local := env.e.Func().AddLocal("x")
	env.e.EmitStore(LHSEnt(local), -1, &StoreOp{Op: vm.OpShl, ShiftT: vm.TypeUint64}, nil, vm.TypeInt, 0)

	code := env.code()
	if len(code) != 2 {
		t.Fatalf("emitted %d words, want cast plus store", len(code))
	}
	cast := code[0]
	if cast.Op() != vm.OpCast || cast.T0() != vm.TypeUint32 || cast.T1() != vm.TypeUint64 {
		t.Errorf("cast = %v %v->%v", cast.Op(), cast.T1(), cast.T0())
	}
	imm8, _ := code[1].Imm824()
	if vm.IndexToOpcode(imm8) != vm.OpShl {
		t.Errorf("folded operator = %v, want %v", vm.IndexToOpcode(imm8), vm.OpShl)
	}
}

func TestEmitStorePackageMember(t *testing.T) {
	env := newTestEnv(t)
	ent := vm.EntIndex{Kind: vm.EntPackageMember, Pkg: env.pk, Ident: "counter"}
	env.e.EmitStore(LHSEnt(ent), -4, nil, env.patch(), vm.TypeInt, 0)

	code := env.code()
	if len(code) != 2 {
		t.Fatalf("emitted %d words, want instruction plus raw key", len(code))
	}
	if code[0].Op() != vm.OpStorePkgField || code[0].T1() != vm.TypePackage {
		t.Errorf("store = %v t1 %v", code[0].Op(), code[0].T1())
	}
	if got := vm.KeyFromUint64[vm.PkgKey](code[1].Uint64()); got != env.pk {
		t.Errorf("raw key word = %d, want %d", got, env.pk)
	}

	// The store patch fills the member slot and keeps the rhs offset byte.
	p := env.objs.Pkgs.Get(env.pk)
	p.AddMember("pad", vm.NewInt(0))
	member := p.AddMember("counter", vm.NewInt(0))
	if err := env.pairs.Resolve(env.objs); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	imm8, imm24 := env.objs.Funcs.Get(env.fk).InstructionAt(0).Imm824()
	if imm8 != -4 || imm24 != member {
		t.Errorf("patched imm824 = (%d, %d), want (-4, %d)", imm8, imm24, member)
	}
}

func TestResolveUnknownMember(t *testing.T) {
	env := newTestEnv(t)
	ent := vm.EntIndex{Kind: vm.EntPackageMember, Pkg: env.pk, Ident: "ghost"}
	env.e.EmitLoad(ent, env.patch(), vm.TypeInt, 0)

	if err := env.pairs.Resolve(env.objs); err == nil {
		t.Error("Resolve succeeded for an unknown member")
	}
}

func TestEmitStoreIndexForms(t *testing.T) {
	env := newTestEnv(t)

	// Computed subscript: container offset in the low immediate bits, both
	// operand types tagged.
	sel := NewIndexSelInfo(-3, 0, false, vm.TypeSlice, vm.TypeInt, SelIndexing)
	env.e.EmitStore(LHSSel(sel), -1, nil, nil, vm.TypeInt, 0)

	// Constant subscript: index in the 24-bit immediate, container offset in
	// the t2 slot.
	immSel := NewIndexSelInfo(-2, 5, true, vm.TypeMap, vm.TypeVoid, SelIndexing)
	env.e.EmitStore(LHSSel(immSel), -1, nil, nil, vm.TypeInt, 0)

	// Struct field: always an immediate index.
	fieldSel := NewIndexSelInfo(-2, 1, true, vm.TypeStruct, vm.TypeVoid, SelStructField)
	env.e.EmitStore(LHSSel(fieldSel), -1, nil, nil, vm.TypeStr, 0)

	code := env.code()
	if code[0].Op() != vm.OpStoreIndex || code[0].T1() != vm.TypeSlice || code[0].T2() != vm.TypeInt {
		t.Errorf("computed store = %v %v/%v", code[0].Op(), code[0].T1(), code[0].T2())
	}
	if _, imm24 := code[0].Imm824(); imm24 != -3 {
		t.Errorf("computed store container offset = %d, want -3", imm24)
	}

	if code[1].Op() != vm.OpStoreIndexImm {
		t.Errorf("immediate store = %v", code[1].Op())
	}
	if _, imm24 := code[1].Imm824(); imm24 != 5 {
		t.Errorf("immediate subscript = %d, want 5", imm24)
	}
	if got := code[1].T2AsIndex(); got != -2 {
		t.Errorf("immediate store container offset = %d, want -2", got)
	}

	if code[2].Op() != vm.OpStoreStructField {
		t.Errorf("field store = %v", code[2].Op())
	}
	if _, imm24 := code[2].Imm824(); imm24 != 1 {
		t.Errorf("field index = %d, want 1", imm24)
	}
}

func TestEmitStoreStructFieldNeedsImmediate(t *testing.T) {
	env := newTestEnv(t)
	sel := NewIndexSelInfo(-2, 0, false, vm.TypeStruct, vm.TypeInt, SelStructField)
	defer func() {
		if recover() == nil {
			t.Error("struct field store without immediate did not panic")
		}
	}()
	env.e.EmitStore(LHSSel(sel), -1, nil, nil, vm.TypeInt, 0)
}

func TestEmitStoreDeref(t *testing.T) {
	env := newTestEnv(t)
	env.e.EmitStore(LHSPtr(-2), -1, nil, nil, vm.TypeInt, 0)

	inst := env.code()[0]
	if inst.Op() != vm.OpStoreDeref {
		t.Fatalf("opcode = %v, want %v", inst.Op(), vm.OpStoreDeref)
	}
	if _, imm24 := inst.Imm824(); imm24 != -2 {
		t.Errorf("pointer offset = %d, want -2", imm24)
	}
}

// ---------------------------------------------------------------------------
// Imports, calls, misc
// ---------------------------------------------------------------------------

func TestEmitImportSequence(t *testing.T) {
	env := newTestEnv(t)
	env.e.EmitImport(2, env.pk, 0)

	code := env.code()
	wantOps := []vm.Opcode{vm.OpImport, vm.OpJumpIfNot, vm.OpLoadPkgField}
	if len(code) != 6 {
		t.Fatalf("emitted %d words, want 6", len(code))
	}
	for i, op := range wantOps {
		if code[i].Op() != op {
			t.Errorf("word %d = %v, want %v", i, code[i].Op(), op)
		}
	}
	if got := code[0].Imm(); got != 2 {
		t.Errorf("import slot = %d, want 2", got)
	}
	// The jump skips the whole constructor call when already initialized.
	if got := code[1].Imm(); got != 4 {
		t.Errorf("skip offset = %d, want 4", got)
	}
	if got := vm.KeyFromUint64[vm.PkgKey](code[3].Uint64()); got != env.pk {
		t.Errorf("raw key word = %d, want %d", got, env.pk)
	}
	if code[4].Op() != vm.OpPreCall || code[5].Op() != vm.OpCall {
		t.Errorf("call tail = %v, %v", code[4].Op(), code[5].Op())
	}
}

func TestEmitCallStyles(t *testing.T) {
	tests := []struct {
		style CallStyle
		pack  bool
		t0    vm.ValueType
		t1    vm.ValueType
	}{
		{CallDefault, false, vm.TypeVoid, vm.TypeVoid},
		{CallAsync, false, vm.TypeFlagA, vm.TypeVoid},
		{CallDefer, true, vm.TypeFlagB, vm.TypeFlagA},
	}
	for _, tc := range tests {
		env := newTestEnv(t)
		env.e.EmitCall(tc.style, tc.pack, 0)
		inst := env.code()[0]
		if inst.Op() != vm.OpCall || inst.T0() != tc.t0 || inst.T1() != tc.t1 {
			t.Errorf("style %d: %v t0=%v t1=%v, want t0=%v t1=%v",
				tc.style, inst.Op(), inst.T0(), inst.T1(), tc.t0, tc.t1)
		}
	}
}

func TestEmitReturnCarriesFlag(t *testing.T) {
	objs := vm.NewObjects()
	pk := objs.Pkgs.Add(vm.NewPkgVal("main"))
	sig := vm.NewSignatureMeta(nil, nil, nil, nil, objs.Metas)
	ctor := vm.NewFuncVal(pk, sig, objs, true)
	e := NewEmitter(ctor)
	e.EmitReturn(3, 0)

	inst := ctor.Code[0]
	if inst.Op() != vm.OpReturn || inst.T0() != vm.TypeFlagA {
		t.Errorf("constructor return = %v t0=%v", inst.Op(), inst.T0())
	}
	if got := inst.Imm(); got != 3 {
		t.Errorf("package index = %d, want 3", got)
	}
}

func TestIndexSelInfoHelpers(t *testing.T) {
	sel := NewIndexSelInfo(0, 0, false, vm.TypeSlice, vm.TypeInt, SelIndexing)
	if got := sel.StackSpace(); got != 2 {
		t.Errorf("StackSpace with subscript = %d, want 2", got)
	}
	imm := NewIndexSelInfo(0, 4, true, vm.TypeSlice, vm.TypeVoid, SelIndexing)
	if got := imm.StackSpace(); got != 1 {
		t.Errorf("StackSpace immediate = %d, want 1", got)
	}
	moved := sel.WithIndex(-5)
	if moved.Index != -5 {
		t.Errorf("WithIndex = %d, want -5", moved.Index)
	}
	defer func() {
		if recover() == nil {
			t.Error("WithIndex out of range did not panic")
		}
	}()
	sel.WithIndex(200)
}

func TestEmitLoadIndexCommaOk(t *testing.T) {
	env := newTestEnv(t)
	env.e.EmitLoadIndex(vm.TypeMap, vm.TypeStr, true, 0)
	env.e.EmitLoadIndexImm(7, vm.TypeSlice, false, 0)

	code := env.code()
	if code[0].Op() != vm.OpLoadIndex || code[0].T2AsIndex() != 1 {
		t.Errorf("comma-ok load = %v flag %d", code[0].Op(), code[0].T2AsIndex())
	}
	if code[1].Op() != vm.OpLoadIndexImm || code[1].Imm() != 7 || code[1].T2AsIndex() != 0 {
		t.Errorf("immediate load = %v imm %d flag %d", code[1].Op(), code[1].Imm(), code[1].T2AsIndex())
	}
}
