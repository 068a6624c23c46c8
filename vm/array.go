package vm

import "strings"

// ArrayObj is a fixed-length sequence of values. Assignment copies the
// whole array, so the runtime only shares an ArrayRc while a pointer or
// slice-of-array refers to it.
type ArrayObj struct {
	Meta  Meta
	Elems []Value
}

// ArrayRc is the shared, reference-counted cell for an array allocation.
type ArrayRc struct {
	Obj ArrayObj
	RC  RCount
}

// NewArrayWithSize creates an array value of the given length with every
// element a fresh copy of val.
func NewArrayWithSize(size int, val Value, meta Meta, gcv *GcObjs) Value {
	elems := make([]Value, size)
	for i := range elems {
		elems[i] = val.CopySemantic(gcv)
	}
	return NewArrayWithData(elems, meta, gcv)
}

// NewArrayWithData creates an array value over the given elements. The
// slice is taken over, not copied.
func NewArrayWithData(data []Value, meta Meta, gcv *GcObjs) Value {
	rc := &ArrayRc{Obj: ArrayObj{Meta: meta, Elems: data}}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeArray, obj: rc}
}

// Len returns the array length.
func (o *ArrayObj) Len() int {
	return len(o.Elems)
}

// Get returns the element at index i.
func (o *ArrayObj) Get(i int) Value {
	if i < 0 || i >= len(o.Elems) {
		panic("ArrayObj.Get: index out of range")
	}
	return o.Elems[i]
}

// Set stores v at index i.
func (o *ArrayObj) Set(i int, v Value) {
	if i < 0 || i >= len(o.Elems) {
		panic("ArrayObj.Set: index out of range")
	}
	o.Elems[i] = v
}

// Equal compares two arrays elementwise.
func (o *ArrayObj) Equal(other *ArrayObj) bool {
	if len(o.Elems) != len(other.Elems) {
		return false
	}
	for i, e := range o.Elems {
		if !e.Equal(other.Elems[i]) {
			return false
		}
	}
	return true
}

func (o *ArrayObj) hash(h uint64) uint64 {
	for _, e := range o.Elems {
		h = fnvMix(h, e.Hash())
	}
	return h
}

// copyElems copies every element with assignment semantics.
func (o *ArrayObj) copyElems(gcv *GcObjs) []Value {
	out := make([]Value, len(o.Elems))
	for i, e := range o.Elems {
		out[i] = e.CopySemantic(gcv)
	}
	return out
}

// deepElems copies every element into independent allocations.
func (o *ArrayObj) deepElems(gcv *GcObjs) []Value {
	out := make([]Value, len(o.Elems))
	for i, e := range o.Elems {
		out[i] = e.DeepClone(gcv)
	}
	return out
}

func (o *ArrayObj) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range o.Elems {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

// rc and children implement the collector's cell protocol.
func (a *ArrayRc) rc() *RCount { return &a.RC }

func (a *ArrayRc) children(visit func(Value)) {
	for _, e := range a.Obj.Elems {
		visit(e)
	}
}

func (a *ArrayRc) breakCycle() {
	a.Obj.Elems = nil
}
