package vm

import "testing"

func newTestFunc(t *testing.T, objs *Objects) *FuncVal {
	t.Helper()
	sig := NewSignatureMeta(nil,
		[]Meta{objs.Prim.Int, objs.Prim.Str},
		[]Meta{objs.Prim.Bool},
		nil, objs.Metas)
	return NewFuncVal(PkgKey(0), sig, objs, false)
}

func TestNewFuncValDerivesLayout(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	if got := fn.ParamCount(); got != 2 {
		t.Errorf("ParamCount = %d, want 2", got)
	}
	if fn.IsVariadic() {
		t.Error("plain signature reports variadic")
	}
	if got := fn.RetCount(); got != 1 {
		t.Errorf("RetCount = %d, want 1", got)
	}
	if fn.RetZeros[0].Bool() != false {
		t.Error("result zero is not false")
	}
	if got := fn.Flag.ReturnType(); got != TypeVoid {
		t.Errorf("ReturnType = %v, want %v", got, TypeVoid)
	}
}

func TestNewFuncValReceiverAndVariadic(t *testing.T) {
	objs := newTestObjects()
	recv := objs.Prim.Int
	variadic := &VariadicMeta{
		Slice: NewSliceMeta(objs.Prim.Str, objs.Metas),
		Elem:  objs.Prim.Str,
	}
	sig := NewSignatureMeta(&recv, []Meta{objs.Prim.Int}, nil, variadic, objs.Metas)
	fn := NewFuncVal(PkgKey(0), sig, objs, false)

	if got := fn.ParamCount(); got != 2 {
		t.Errorf("ParamCount with receiver = %d, want 2", got)
	}
	if !fn.IsVariadic() {
		t.Error("variadic signature not reported")
	}
}

func TestFuncFlagReturnTypes(t *testing.T) {
	tests := []struct {
		flag FuncFlag
		want ValueType
	}{
		{FuncFlagDefault, TypeVoid},
		{FuncFlagPkgCtor, TypeFlagA},
		{FuncFlagHasDefer, TypeFlagB},
	}
	for _, tc := range tests {
		if got := tc.flag.ReturnType(); got != tc.want {
			t.Errorf("flag %d ReturnType = %v, want %v", tc.flag, got, tc.want)
		}
	}
}

func TestAddConstDeduplicates(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	a := fn.AddConst("", NewInt(7))
	b := fn.AddConst("", NewInt(7))
	c := fn.AddConst("", NewInt(8))

	if a.Index != b.Index {
		t.Errorf("identical constants got slots %d and %d", a.Index, b.Index)
	}
	if c.Index == a.Index {
		t.Error("distinct constants share a slot")
	}
	if len(fn.Consts) != 2 {
		t.Errorf("pool size = %d, want 2", len(fn.Consts))
	}

	// A named constant is findable afterwards.
	fn.AddConst("seven", NewInt(7))
	e, ok := fn.EntityIndex("seven")
	if !ok || e.Kind != EntConst || e.Index != a.Index {
		t.Errorf("EntityIndex(seven) = %+v, %v", e, ok)
	}
}

func TestAddConstStringsDedupByContent(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	a := fn.AddConst("", NewString("x"))
	b := fn.AddConst("", NewString("x"))
	if a.Index != b.Index {
		t.Errorf("equal string constants got slots %d and %d", a.Index, b.Index)
	}
}

func TestAddLocalAllocatesSlots(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	a := fn.AddLocal("x")
	tmp := fn.AddLocal("")
	b := fn.AddLocal("y")

	if a.Index != 0 || tmp.Index != 1 || b.Index != 2 {
		t.Errorf("slots = %d, %d, %d, want 0, 1, 2", a.Index, tmp.Index, b.Index)
	}
	if fn.LocalCount() != 3 {
		t.Errorf("LocalCount = %d, want 3", fn.LocalCount())
	}
	if _, ok := fn.EntityIndex(""); ok {
		t.Error("anonymous temporary recorded under the empty name")
	}
	if e, ok := fn.EntityIndex("y"); !ok || e.SlotIndex() != 2 {
		t.Errorf("EntityIndex(y) = %+v, %v", e, ok)
	}
}

func TestDuplicateBindingPanics(t *testing.T) {
	tests := []struct {
		name string
		bind func(f *FuncVal)
	}{
		{"AddLocal", func(f *FuncVal) {
			f.AddLocal("x")
			f.AddLocal("x")
		}},
		{"AddConst", func(f *FuncVal) {
			f.AddConst("seven", NewInt(7))
			f.AddConst("seven", NewInt(7))
		}},
		{"AddConst over local", func(f *FuncVal) {
			f.AddLocal("x")
			f.AddConst("x", NewInt(1))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			objs := newTestObjects()
			fn := newTestFunc(t, objs)
			defer func() {
				if recover() == nil {
					t.Error("duplicate binding did not panic")
				}
			}()
			tc.bind(fn)
		})
	}
}

func TestTryAddUpValueReusesSlot(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	d := ValueDesc{Func: FuncKey(1), Index: 4, Typ: TypeInt}
	a := fn.TryAddUpValue("captured", d)
	b := fn.TryAddUpValue("captured", d)
	c := fn.TryAddUpValue("other", ValueDesc{Func: FuncKey(1), Index: 5, Typ: TypeStr})

	if a.Index != b.Index {
		t.Errorf("same identifier got capture slots %d and %d", a.Index, b.Index)
	}
	if c.Index == a.Index {
		t.Error("distinct identifiers share a capture slot")
	}
	if len(fn.UpPtrs) != 2 {
		t.Errorf("capture count = %d, want 2", len(fn.UpPtrs))
	}
}

func TestEmitAndPatch(t *testing.T) {
	objs := newTestObjects()
	fn := newTestFunc(t, objs)

	jumpAt := fn.NextCodeIndex()
	fn.Emit(NewInstruction(OpJump, TypeVoid, TypeVoid, TypeVoid, 0), 10)
	fn.Emit(NewInstruction(OpNop, TypeVoid, TypeVoid, TypeVoid, 0), -1)

	// Patch the jump once the target is known.
	inst := fn.InstructionAt(jumpAt)
	inst.SetImm(int32(fn.NextCodeIndex()))
	fn.SetInstruction(jumpAt, inst)

	if got := fn.InstructionAt(jumpAt).Imm(); got != 2 {
		t.Errorf("patched operand = %d, want 2", got)
	}
	if fn.Pos(jumpAt) != 10 || fn.Pos(jumpAt+1) != -1 {
		t.Errorf("positions = %d, %d, want 10, -1", fn.Pos(jumpAt), fn.Pos(jumpAt+1))
	}
}

func TestSlotIndexPanicsForPackageMember(t *testing.T) {
	e := EntIndex{Kind: EntPackageMember, Pkg: PkgKey(0), Ident: "x"}
	defer func() {
		if recover() == nil {
			t.Error("SlotIndex on a package member did not panic")
		}
	}()
	e.SlotIndex()
}
