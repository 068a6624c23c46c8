package vm

import "testing"

func intSliceValue(objs *Objects, xs ...int) Value {
	data := make([]Value, len(xs))
	for i, x := range xs {
		data[i] = NewInt(x)
	}
	return NewSliceWithData(data, NewSliceMeta(objs.Prim.Int, objs.Metas), nil)
}

// ---------------------------------------------------------------------------
// Scalar round trips
// ---------------------------------------------------------------------------

func TestScalarAccessors(t *testing.T) {
	if got := NewInt(-42).Int(); got != -42 {
		t.Errorf("Int = %d, want -42", got)
	}
	if got := NewUint64(1 << 63).Uint64(); got != 1<<63 {
		t.Errorf("Uint64 = %d, want %d", got, uint64(1)<<63)
	}
	if got := NewFloat64(2.5).Float64(); got != 2.5 {
		t.Errorf("Float64 = %v, want 2.5", got)
	}
	if got := NewComplex128(3 + 4i).Complex128(); got != 3+4i {
		t.Errorf("Complex128 = %v, want (3+4i)", got)
	}
	if got := NewComplex64(1, -2).Complex64(); got != complex(float32(1), float32(-2)) {
		t.Errorf("Complex64 = %v", got)
	}
	if got := NewString("hello").Str().Str(); got != "hello" {
		t.Errorf("Str = %q, want %q", got, "hello")
	}
}

func TestAccessorTypeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Int on a bool did not panic")
		}
	}()
	NewBool(true).Int()
}

// ---------------------------------------------------------------------------
// Nil forms
// ---------------------------------------------------------------------------

func TestIsNil(t *testing.T) {
	objs := newTestObjects()
	sliceMeta := NewSliceMeta(objs.Prim.Int, objs.Metas)
	mapMeta := NewMapMeta(objs.Prim.Str, objs.Prim.Int, objs.Metas)

	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"untyped nil", NewNilOf(MetaUntyped), true},
		{"typed pointer nil", NewNilOf(objs.Prim.Int.Ptr()), true},
		{"nil slice", NewNilSlice(sliceMeta), true},
		{"empty slice", NewSlice(0, 0, sliceMeta, Value{}, nil), false},
		{"nil map", NewNilMap(mapMeta, NewInt(0)), true},
		{"empty map", NewMap(mapMeta, NewInt(0), nil), false},
		{"int zero", NewInt(0), false},
		{"live pointer", NewPointer(NewPkgMemberPointer(PkgKey(0), 0)), false},
	}
	for _, tc := range tests {
		if got := tc.v.IsNil(); got != tc.want {
			t.Errorf("%s: IsNil = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Copy semantics
// ---------------------------------------------------------------------------

func TestCopySemanticStructIsDeep(t *testing.T) {
	objs := newTestObjects()
	fields := NewFields([]Meta{objs.Prim.Int}, map[string]OpIndex{"n": 0})
	m := NewStructMeta(fields, objs, nil)

	a := m.ZeroValue(objs.Metas, nil)
	b := a.CopySemantic(nil)
	b.Struct().Obj.SetField(0, NewInt(9))

	if got := a.Struct().Obj.Field(0).Int(); got != 0 {
		t.Errorf("original field = %d after writing the copy, want 0", got)
	}
}

func TestCopySemanticArrayIsDeep(t *testing.T) {
	objs := newTestObjects()
	m := NewArrayMeta(objs.Prim.Int, 2, objs.Metas)
	a := m.ZeroValue(objs.Metas, nil)
	b := a.CopySemantic(nil)
	b.Array().Obj.Set(0, NewInt(7))

	if got := a.Array().Obj.Get(0).Int(); got != 0 {
		t.Errorf("original element = %d after writing the copy, want 0", got)
	}
}

func TestCopySemanticSliceSharesStorage(t *testing.T) {
	objs := newTestObjects()
	a := intSliceValue(objs, 1, 2, 3)
	b := a.CopySemantic(nil)

	if a.Slice() == b.Slice() {
		t.Fatal("copy shares the slice header")
	}
	b.Slice().Obj.Set(1, NewInt(99))
	if got := a.Slice().Obj.Get(1).Int(); got != 99 {
		t.Errorf("original element = %d after writing the copy, want 99", got)
	}
}

func TestCopySemanticMapSharesStorage(t *testing.T) {
	objs := newTestObjects()
	m := NewMapMeta(objs.Prim.Str, objs.Prim.Int, objs.Metas)
	a := NewMap(m, NewInt(0), nil)
	a.Map().Obj.Insert(NewString("k"), NewInt(1))

	b := a.CopySemantic(nil)
	if a.Map() == b.Map() {
		t.Fatal("copy shares the map header")
	}
	b.Map().Obj.Insert(NewString("k"), NewInt(2))
	if got := a.Map().Obj.Get(NewString("k")).Int(); got != 2 {
		t.Errorf("original entry = %d after writing the copy, want 2", got)
	}
}

func TestDeepCloneSliceDetaches(t *testing.T) {
	objs := newTestObjects()
	a := intSliceValue(objs, 1, 2, 3)
	b := a.DeepClone(nil)

	b.Slice().Obj.Set(0, NewInt(42))
	if got := a.Slice().Obj.Get(0).Int(); got != 1 {
		t.Errorf("original element = %d after writing the deep clone, want 1", got)
	}
}

func TestCopySemanticNamedWrapsDeep(t *testing.T) {
	objs := newTestObjects()
	fields := NewFields([]Meta{objs.Prim.Int}, map[string]OpIndex{"n": 0})
	stru := NewStructMeta(fields, objs, nil)
	named := NewNamedMeta(stru, objs.Metas)

	a := named.ZeroValue(objs.Metas, nil)
	b := a.CopySemantic(nil)
	b.Named().V.Struct().Obj.SetField(0, NewInt(5))

	if got := a.Named().V.Struct().Obj.Field(0).Int(); got != 0 {
		t.Errorf("original named field = %d after writing the copy, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// Equality, identity and hashing
// ---------------------------------------------------------------------------

func TestEqualScalarsAndStrings(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"ints equal", NewInt(3), NewInt(3), true},
		{"ints differ", NewInt(3), NewInt(4), false},
		{"int vs int64", NewInt(3), NewInt64(3), false},
		{"strings equal", NewString("ab"), NewString("ab"), true},
		{"strings differ", NewString("ab"), NewString("cd"), false},
		{"bools", NewBool(true), NewBool(true), true},
		{"complex", NewComplex128(1 + 2i), NewComplex128(1 + 2i), true},
	}
	for _, tc := range tests {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Errorf("%s: Equal = %v, want %v", tc.name, got, tc.want)
		}
		if tc.want && tc.a.Hash() != tc.b.Hash() {
			t.Errorf("%s: equal values hash differently", tc.name)
		}
	}
}

func TestEqualStructByFields(t *testing.T) {
	objs := newTestObjects()
	fields := NewFields([]Meta{objs.Prim.Int}, map[string]OpIndex{"n": 0})
	m := NewStructMeta(fields, objs, nil)

	a := m.ZeroValue(objs.Metas, nil)
	b := m.ZeroValue(objs.Metas, nil)
	if !a.Equal(b) {
		t.Error("distinct zero structs not Equal")
	}
	if a.Hash() != b.Hash() {
		t.Error("equal structs hash differently")
	}
	b.Struct().Obj.SetField(0, NewInt(1))
	if a.Equal(b) {
		t.Error("structs with different fields Equal")
	}
}

func TestEqualSliceByIdentity(t *testing.T) {
	objs := newTestObjects()
	a := intSliceValue(objs, 1, 2)
	b := intSliceValue(objs, 1, 2)
	if a.Equal(b) {
		t.Error("distinct slices compare Equal")
	}
	if !a.Equal(a) {
		t.Error("slice not Equal to itself")
	}
	// Header clones are distinct identities even though storage is shared.
	c := a.CopySemantic(nil)
	if a.Equal(c) {
		t.Error("header clone compares Equal to its source")
	}
}

func TestIdentical(t *testing.T) {
	objs := newTestObjects()
	a := intSliceValue(objs, 1)
	if !NewInt(5).Identical(NewInt(5)) {
		t.Error("identical ints not Identical")
	}
	if !a.Identical(a) {
		t.Error("value not Identical to itself")
	}
	if a.Identical(a.CopySemantic(nil)) {
		t.Error("header clone Identical to its source")
	}
}

// ---------------------------------------------------------------------------
// Arena handle values
// ---------------------------------------------------------------------------

func TestHandleValues(t *testing.T) {
	f := NewFunctionValue(FuncKey(3))
	if got := f.Function(); got != FuncKey(3) {
		t.Errorf("Function = %d, want 3", got)
	}
	p := NewPackageValue(PkgKey(12))
	if got := p.Package(); got != PkgKey(12) {
		t.Errorf("Package = %d, want 12", got)
	}
	if !f.Equal(NewFunctionValue(FuncKey(3))) {
		t.Error("same function handle not Equal")
	}
}

func TestDeepClonePrimitives(t *testing.T) {
	for _, v := range []Value{NewInt(42), NewBool(true), NewFloat64(1.5), NewString("hi")} {
		if c := v.DeepClone(nil); !c.Equal(v) {
			t.Errorf("DeepClone of %s differs from the original", v.String())
		}
	}
}
