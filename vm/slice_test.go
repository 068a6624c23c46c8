package vm

import "testing"

func sliceInts(v Value) []int {
	obj := &v.Slice().Obj
	out := make([]int, obj.Len())
	for i := range out {
		out[i] = obj.Get(i).Int()
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSliceLenCap(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSlice(3, 8, m, NewInt(0), nil)
	obj := &v.Slice().Obj
	if obj.Len() != 3 || obj.Cap() != 8 {
		t.Errorf("len/cap = %d/%d, want 3/8", obj.Len(), obj.Cap())
	}
}

func TestPushBackWithinCapacityAliasesSiblings(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	base := NewSlice(1, 4, m, NewInt(7), nil)
	obj := &base.Slice().Obj

	// A sub-window over the same backing sees writes past its own end once
	// the sibling grows into the shared capacity.
	sib := obj.Slice(0, 1, -1)

	obj.PushBack(NewInt(1))
	obj.PushBack(NewInt(2))
	if got := sliceInts(base); !equalInts(got, []int{7, 1, 2}) {
		t.Errorf("after pushes = %v, want [7 1 2]", got)
	}

	// The sibling window still reports its own bounds, over the same cell.
	if sib.Len() != 1 || sib.Cap() != 4 {
		t.Errorf("sibling len/cap = %d/%d, want 1/4", sib.Len(), sib.Cap())
	}
	sib.Set(0, NewInt(9))
	if got := obj.Get(0).Int(); got != 9 {
		t.Errorf("write through sibling not visible, got %d", got)
	}
}

func TestPushBackAtCapacityDetaches(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	a := NewSliceWithData([]Value{NewInt(1), NewInt(2)}, m, nil)
	b := a.CopySemantic(nil)

	// b is at capacity, so the push migrates it to a fresh backing.
	b.Slice().Obj.PushBack(NewInt(3))
	b.Slice().Obj.Set(0, NewInt(100))

	if got := sliceInts(a); !equalInts(got, []int{1, 2}) {
		t.Errorf("original after detached push = %v, want [1 2]", got)
	}
	if got := sliceInts(b); !equalInts(got, []int{100, 2, 3}) {
		t.Errorf("grown slice = %v, want [100 2 3]", got)
	}
}

func TestGrowDoublesBelowLimit(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSlice(4, 4, m, NewInt(0), nil)
	obj := &v.Slice().Obj
	obj.PushBack(NewInt(1))
	if got := obj.Cap(); got != 8 {
		t.Errorf("capacity after growth = %d, want 8", got)
	}
}

func TestGrowQuarterAboveLimit(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	n := sliceGrowDoubleLimit
	v := NewSlice(n, n, m, NewInt(0), nil)
	obj := &v.Slice().Obj
	obj.PushBack(NewInt(1))
	if got := obj.Cap(); got != n+n/4 {
		t.Errorf("capacity after growth = %d, want %d", got, n+n/4)
	}
}

func TestSubSliceBounds(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSliceWithData([]Value{NewInt(0), NewInt(1), NewInt(2), NewInt(3)}, m, nil)
	obj := &v.Slice().Obj

	sub := obj.Slice(1, 3, -1)
	if sub.Len() != 2 || sub.Get(0).Int() != 1 || sub.Get(1).Int() != 2 {
		t.Errorf("sub window = %v", &sub)
	}
	if sub.Cap() != 3 {
		t.Errorf("sub cap = %d, want 3", sub.Cap())
	}

	// A negative end is the sentinel for "to the end".
	full := obj.Slice(0, -1, -1)
	if full.Len() != 4 {
		t.Errorf("full window length = %d, want 4", full.Len())
	}
	tail := obj.Slice(2, -1, -1)
	if tail.Len() != 2 || tail.Get(0).Int() != 2 {
		t.Errorf("tail window = %v", &tail)
	}

	// An explicit capacity bound limits the sub window.
	capped := obj.Slice(0, 2, 3)
	if capped.Cap() != 3 {
		t.Errorf("capped sub cap = %d, want 3", capped.Cap())
	}
}

func TestSubSliceOutOfRangePanics(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSliceWithData([]Value{NewInt(0), NewInt(1)}, m, nil)
	obj := &v.Slice().Obj

	for _, tc := range []struct {
		name             string
		begin, end, nmax int
	}{
		{"end past cap", 0, 3, -1},
		{"begin past end", 2, 1, -1},
		{"max below end", 0, 2, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			obj.Slice(tc.begin, tc.end, tc.nmax)
		})
	}
}

func TestSliceFromArrayWritesThrough(t *testing.T) {
	objs := newTestObjects()
	am := NewArrayMeta(objs.Prim.Int, 3, objs.Metas)
	arr := NewArrayWithData([]Value{NewInt(1), NewInt(2), NewInt(3)}, am, nil)

	sv := SliceFromArray(arr.Array(), 0, 2, SliceFromArrayMeta(am), nil)
	sv.Slice().Obj.Set(0, NewInt(42))

	if got := arr.Array().Obj.Get(0).Int(); got != 42 {
		t.Errorf("array element after slice write = %d, want 42", got)
	}
	if got := sv.Slice().Obj.Cap(); got != 3 {
		t.Errorf("slice cap = %d, want array length 3", got)
	}
}

func TestAppendOtherWindow(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	a := NewSliceWithData([]Value{NewInt(1)}, m, nil)
	b := NewSliceWithData([]Value{NewInt(2), NewInt(3)}, m, nil)

	a.Slice().Obj.Append(&b.Slice().Obj)
	if got := sliceInts(a); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("after append = %v, want [1 2 3]", got)
	}
}

func TestSliceRange(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSliceWithData([]Value{NewInt(10), NewInt(20), NewInt(30)}, m, nil)

	var visited []int
	v.Slice().Obj.Range(func(i int, e Value) bool {
		visited = append(visited, e.Int())
		return i < 1 // stop after index 1
	})
	if !equalInts(visited, []int{10, 20}) {
		t.Errorf("range visited %v, want [10 20]", visited)
	}
}

func TestSliceRef(t *testing.T) {
	objs := newTestObjects()
	m := NewSliceMeta(objs.Prim.Int, objs.Metas)
	v := NewSliceWithData([]Value{NewInt(1), NewInt(2), NewInt(3)}, m, nil)
	sub := v.Slice().Obj.Slice(1, -1, -1)

	r := sub.Ref()
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if got := r.Get(0).Int(); got != 2 {
		t.Errorf("Get(0) = %d, want 2", got)
	}
	if got := r.Get(1).Int(); got != 3 {
		t.Errorf("Get(1) = %d, want 3", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("Get out of range did not panic")
		}
	}()
	r.Get(2)
}

func TestNormalizeBounds(t *testing.T) {
	tests := []struct {
		begin, end, length int
		wantB, wantE       int
	}{
		{0, 4, 4, 0, 4},
		{0, -1, 4, 0, 4},
		{2, -1, 4, 2, 4},
		{-1, -1, 4, 4, 4},
		{-2, -1, 4, 3, 4},
		{1, 3, 4, 1, 3},
	}
	for _, tc := range tests {
		b, e := normalizeBounds(tc.begin, tc.end, tc.length)
		if b != tc.wantB || e != tc.wantE {
			t.Errorf("normalizeBounds(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tc.begin, tc.end, tc.length, b, e, tc.wantB, tc.wantE)
		}
	}
}
