package vm

import "strings"

const (
	// Backing buffers double until they reach this many elements, then
	// grow by a quarter at a time.
	sliceGrowDoubleLimit = 1024
)

// vecCell is a slice's shared backing buffer. Multiple slice headers can
// window into the same cell; replacing the cell on growth detaches the
// grower from its siblings, which is exactly the source language's append
// behavior.
type vecCell struct {
	data []Value
}

// SliceObj is a window (begin, end, capacity bound) over a shared backing
// buffer. All indices are absolute positions in the backing.
type SliceObj struct {
	Meta    Meta
	vec     *vecCell
	begin   int
	end     int
	softCap int // window capacity limit, absolute like begin/end
}

// SliceRc is the shared, reference-counted cell for a slice header.
type SliceRc struct {
	Obj SliceObj
	RC  RCount
}

// NewSlice creates a non-nil slice value with the given length and
// capacity, every element a fresh copy of dflt. A zero-length NewSlice is
// the "empty but allocated" form, distinct from NewNilSlice.
func NewSlice(length, capacity int, meta Meta, dflt Value, gcv *GcObjs) Value {
	if capacity < length {
		capacity = length
	}
	data := make([]Value, length, capacity)
	for i := range data {
		data[i] = dflt.CopySemantic(gcv)
	}
	return newSliceRcValue(SliceObj{
		Meta:    meta,
		vec:     &vecCell{data: data},
		begin:   0,
		end:     length,
		softCap: capacity,
	}, gcv)
}

// NewSliceWithData creates a slice value over the given elements. The
// backing slice is taken over, not copied.
func NewSliceWithData(data []Value, meta Meta, gcv *GcObjs) Value {
	return newSliceRcValue(SliceObj{
		Meta:    meta,
		vec:     &vecCell{data: data},
		begin:   0,
		end:     len(data),
		softCap: len(data),
	}, gcv)
}

// NewNilSlice creates the nil slice of the given type. It has no backing
// allocation; length and capacity are zero.
func NewNilSlice(meta Meta) Value {
	return Value{t: TypeSlice, obj: (*SliceRc)(nil), meta: meta}
}

// SliceFromArray creates a slice windowing directly into an array's
// storage, so writes through the slice are visible in the array.
func SliceFromArray(arr *ArrayRc, begin, end int, meta Meta, gcv *GcObjs) Value {
	b, e := normalizeBounds(begin, end, len(arr.Obj.Elems))
	if b > e || e > len(arr.Obj.Elems) {
		panic("SliceFromArray: bounds out of range")
	}
	return newSliceRcValue(SliceObj{
		Meta:    meta,
		vec:     &vecCell{data: arr.Obj.Elems},
		begin:   b,
		end:     e,
		softCap: len(arr.Obj.Elems),
	}, gcv)
}

func newSliceRcValue(obj SliceObj, gcv *GcObjs) Value {
	rc := &SliceRc{Obj: obj}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeSlice, obj: rc}
}

// Len returns the number of elements in the window.
func (o *SliceObj) Len() int {
	return o.end - o.begin
}

// Cap returns the window's capacity.
func (o *SliceObj) Cap() int {
	return o.softCap - o.begin
}

// Get returns the element at window index i.
func (o *SliceObj) Get(i int) Value {
	if i < 0 || i >= o.Len() {
		panic("SliceObj.Get: index out of range")
	}
	return o.vec.data[o.begin+i]
}

// Set stores v at window index i.
func (o *SliceObj) Set(i int, v Value) {
	if i < 0 || i >= o.Len() {
		panic("SliceObj.Set: index out of range")
	}
	o.vec.data[o.begin+i] = v
}

// PushBack appends v, growing the backing if the window is at capacity.
// Within capacity the write lands in the shared backing, aliasing any
// sibling windows over the same cell; at capacity the window migrates to a
// fresh backing and detaches from them.
func (o *SliceObj) PushBack(v Value) {
	if o.end == o.softCap {
		o.grow(o.Len() + 1)
	}
	if o.end == len(o.vec.data) {
		o.vec.data = append(o.vec.data, v)
	} else {
		o.vec.data[o.end] = v
	}
	o.end++
}

// Append appends every element of other's window.
func (o *SliceObj) Append(other *SliceObj) {
	n := other.Len()
	for i := 0; i < n; i++ {
		o.PushBack(other.Get(i))
	}
}

// grow re-derives the backing from the visible window: the new buffer holds
// exactly the window's elements at offset zero, with capacity doubled below
// the growth limit and multiplied by 1.25 above it (always at least need).
func (o *SliceObj) grow(need int) {
	cap_ := o.Cap()
	if cap_ < sliceGrowDoubleLimit {
		cap_ *= 2
	} else {
		cap_ += cap_ / 4
	}
	if cap_ < need {
		cap_ = need
	}
	length := o.Len()
	data := make([]Value, length, cap_)
	copy(data, o.vec.data[o.begin:o.end])
	o.vec = &vecCell{data: data}
	o.begin = 0
	o.end = length
	o.softCap = cap_
}

// Slice returns a sub-window [begin:end:max) of o. Bounds use the sentinel
// encoding (see normalizeBounds); max < 0 keeps o's capacity bound.
func (o *SliceObj) Slice(begin, end, max int) SliceObj {
	b, e := normalizeBounds(begin, end, o.Len())
	if b > e || e > o.Cap() {
		panic("SliceObj.Slice: bounds out of range")
	}
	softCap := o.softCap
	if max >= 0 {
		if max < e || o.begin+max > o.softCap {
			panic("SliceObj.Slice: capacity bound out of range")
		}
		softCap = o.begin + max
	}
	return SliceObj{
		Meta:    o.Meta,
		vec:     o.vec,
		begin:   o.begin + b,
		end:     o.begin + e,
		softCap: softCap,
	}
}

// headerClone copies the window header; the backing stays shared.
func (o *SliceObj) headerClone() SliceObj {
	return *o
}

// DeepClone copies the visible window into an independent backing.
func (o *SliceObj) DeepClone(gcv *GcObjs) SliceObj {
	length := o.Len()
	data := make([]Value, length)
	for i := 0; i < length; i++ {
		data[i] = o.Get(i).DeepClone(gcv)
	}
	return SliceObj{
		Meta:    o.Meta,
		vec:     &vecCell{data: data},
		begin:   0,
		end:     length,
		softCap: length,
	}
}

// SliceRef is a borrowed read view over a slice window, resolved against
// the backing once so indexed reads skip the window offset math. It does
// not follow growth of the slice it came from.
type SliceRef struct {
	data []Value
}

// Ref borrows a read view over the current window.
func (o *SliceObj) Ref() SliceRef {
	if o.vec == nil {
		return SliceRef{}
	}
	return SliceRef{data: o.vec.data[o.begin:o.end]}
}

// Len returns the number of elements in the view.
func (r SliceRef) Len() int {
	return len(r.data)
}

// Get returns the element at index i.
func (r SliceRef) Get(i int) Value {
	if i < 0 || i >= len(r.data) {
		panic("SliceRef.Get: index out of range")
	}
	return r.data[i]
}

// Range calls fn for each (index, element) in the window; fn returning
// false stops the walk.
func (o *SliceObj) Range(fn func(i int, v Value) bool) {
	for i := 0; i < o.Len(); i++ {
		if !fn(i, o.Get(i)) {
			return
		}
	}
}

func (o *SliceObj) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < o.Len(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(o.Get(i).String())
	}
	b.WriteByte(']')
	return b.String()
}

func (s *SliceRc) rc() *RCount { return &s.RC }

func (s *SliceRc) children(visit func(Value)) {
	s.Obj.Range(func(_ int, v Value) bool {
		visit(v)
		return true
	})
}

func (s *SliceRc) breakCycle() {
	s.Obj.vec = &vecCell{}
	s.Obj.begin = 0
	s.Obj.end = 0
	s.Obj.softCap = 0
}
