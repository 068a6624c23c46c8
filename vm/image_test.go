package vm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildTestProgram assembles a small program: one struct type, one function
// with constants, and a main package with a variable and the entry function.
func buildTestProgram(t *testing.T) (*Objects, PkgKey, FuncKey) {
	t.Helper()
	objs := NewObjects()

	fields := NewFields(
		[]Meta{objs.Prim.Int, NewSliceMeta(objs.Prim.Str, objs.Metas)},
		map[string]OpIndex{"n": 0, "tags": 1},
	)
	stru := NewStructMeta(fields, objs, nil)

	pkg := NewPkgVal("main")
	pk := objs.Pkgs.Add(pkg)

	sig := NewSignatureMeta(nil, nil, []Meta{objs.Prim.Int}, nil, objs.Metas)
	fn := NewFuncVal(pk, sig, objs, false)
	fn.AddConst("", NewInt(7))
	fn.AddConst("", NewString("hello"))
	fn.AddConst("", stru.ZeroValue(objs.Metas, nil))
	fn.AddLocal("x")
	fn.AddLocalZero(NewInt(0))
	fn.Emit(NewInstruction(OpPushConst, TypeInt, TypeVoid, TypeVoid, 0), 3)
	fn.Emit(NewInstruction(OpLoadPkgField, TypeInt, TypeVoid, TypeVoid, 0), 3)
	fn.EmitRaw(KeyToUint64(pk), 3)
	fn.Emit(NewInstruction(OpReturn, fn.Flag.ReturnType(), TypeVoid, TypeVoid, 0), 4)
	fk := objs.Funcs.Add(fn)

	pkg.AddMember("answer", NewInt(42))
	pkg.AddMember("run", NewFunctionValue(fk))
	pkg.SetInited()

	return objs, pk, fk
}

func TestImageEncodeDecodeRoundTrip(t *testing.T) {
	objs, pk, fk := buildTestProgram(t)

	im, err := BuildImage(objs, pk, fk)
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	data, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if diff := cmp.Diff(im, decoded); diff != "" {
		t.Errorf("decoded image differs (-built +decoded):\n%s", diff)
	}
}

func TestImageEncodeIsDeterministic(t *testing.T) {
	objs, pk, fk := buildTestProgram(t)
	im, err := BuildImage(objs, pk, fk)
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	a, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(a) != string(b) {
		t.Error("two encodings of the same image differ")
	}
}

func TestImageRestore(t *testing.T) {
	objs, pk, fk := buildTestProgram(t)
	im, err := BuildImage(objs, pk, fk)
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	data, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	restored, rpk, rfk, err := decoded.Restore(nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if rpk != pk || rfk != fk {
		t.Errorf("entry point = (%d, %d), want (%d, %d)", rpk, rfk, pk, fk)
	}

	// Code words survive bit for bit, raw key word included.
	orig := objs.Funcs.Get(fk)
	fn := restored.Funcs.Get(rfk)
	if len(fn.Code) != len(orig.Code) {
		t.Fatalf("code length = %d, want %d", len(fn.Code), len(orig.Code))
	}
	for i := range fn.Code {
		if fn.Code[i] != orig.Code[i] {
			t.Errorf("code word %d = %016X, want %016X", i, fn.Code[i].Uint64(), orig.Code[i].Uint64())
		}
	}
	if fn.Pos(0) != 3 {
		t.Errorf("position 0 = %d, want 3", fn.Pos(0))
	}

	// Constants land back in the same slots with the same values.
	if got := fn.Consts[0].Int(); got != 7 {
		t.Errorf("const 0 = %d, want 7", got)
	}
	if got := fn.Consts[1].Str().Str(); got != "hello" {
		t.Errorf("const 1 = %q, want %q", got, "hello")
	}
	if !fn.Consts[2].Equal(orig.Consts[2]) {
		t.Errorf("struct const = %v, want %v", fn.Consts[2], orig.Consts[2])
	}
	if fn.LocalCount() != 1 || fn.RetCount() != 1 {
		t.Errorf("frame layout = %d locals, %d results", fn.LocalCount(), fn.RetCount())
	}

	// Package members and name resolution survive.
	p := restored.Pkgs.Get(rpk)
	idx, ok := p.MemberIndex("answer")
	if !ok {
		t.Fatal("member answer lost")
	}
	if got := p.Member(idx).Int(); got != 42 {
		t.Errorf("member answer = %d, want 42", got)
	}

	// Derived state is rebuilt: struct zero templates and signature caches.
	z := fn.Consts[2].Struct().Obj.Meta.ZeroValue(restored.Metas, nil)
	if !z.Equal(fn.Consts[2]) {
		t.Error("rebuilt struct zero template differs from the stored zero")
	}
	sig := restored.Metas.Get(fn.Meta.Key).AsSignature()
	if len(sig.ParamTypes) != 0 || len(sig.Results) != 1 {
		t.Errorf("restored signature = %d param types, %d results", len(sig.ParamTypes), len(sig.Results))
	}
}

func TestDecodeImageRejectsBadInput(t *testing.T) {
	objs, pk, fk := buildTestProgram(t)
	im, _ := BuildImage(objs, pk, fk)
	good, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	t.Run("truncated", func(t *testing.T) {
		if _, err := DecodeImage(good[:imageHeaderSize-1]); err == nil {
			t.Error("short input accepted")
		}
	})
	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[0] = 'X'
		if _, err := DecodeImage(bad); err == nil {
			t.Error("bad magic accepted")
		}
	})
	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[4], bad[5] = 0xFF, 0xFF
		if _, err := DecodeImage(bad); err == nil {
			t.Error("unknown version accepted")
		}
	})
	t.Run("build id mismatch", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[6] ^= 0xFF // corrupt the header build id
		if _, err := DecodeImage(bad); err == nil {
			t.Error("header/payload build id mismatch accepted")
		}
	})
}

func TestBuildImageRejectsCapturedClosures(t *testing.T) {
	objs, pk, fk := buildTestProgram(t)
	closure := NewClosure(fk, []*UpValue{NewClosedUpValue(NewInt(1))}, nil, objs.Prim.DefaultSig, nil)
	objs.Pkgs.Get(pk).AddMember("stateful", closure)

	_, err := BuildImage(objs, pk, fk)
	if err == nil {
		t.Fatal("closure with captured state serialized")
	}
	if !strings.Contains(err.Error(), "captured state") {
		t.Errorf("error = %v", err)
	}
}

func TestImageRoundTripsNilSliceConstant(t *testing.T) {
	objs := NewObjects()
	pkg := NewPkgVal("main")
	pk := objs.Pkgs.Add(pkg)
	sig := NewSignatureMeta(nil, nil, nil, nil, objs.Metas)
	fn := NewFuncVal(pk, sig, objs, false)
	sliceMeta := NewSliceMeta(objs.Prim.Int, objs.Metas)
	fn.AddConst("", NewNilSlice(sliceMeta))
	fk := objs.Funcs.Add(fn)

	im, err := BuildImage(objs, pk, fk)
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	data, err := im.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	restored, _, rfk, err := decoded.Restore(nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Funcs.Get(rfk).Consts[0].IsNil() {
		t.Error("nil slice constant came back non-nil")
	}
}
