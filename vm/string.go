package vm

// StringObj backs a string value. Go strings are already immutable with
// shared backing on re-slice, so the object is a thin wrapper; it exists so
// string values flow through the same obj slot as other composites.
type StringObj struct {
	s string
}

// NewStringObj wraps s.
func NewStringObj(s string) *StringObj {
	return &StringObj{s: s}
}

// Str returns the underlying Go string.
func (o *StringObj) Str() string {
	return o.s
}

// Len returns the byte length.
func (o *StringObj) Len() int {
	return len(o.s)
}

// ByteAt returns the byte at index i.
func (o *StringObj) ByteAt(i int) uint8 {
	if i < 0 || i >= len(o.s) {
		panic("StringObj.ByteAt: index out of range")
	}
	return o.s[i]
}

// Slice returns the window [begin:end) as a new string object. Negative
// bounds follow the runtime's sentinel convention: -1 means "to the end",
// counting further back from there.
func (o *StringObj) Slice(begin, end int) *StringObj {
	b, e := normalizeBounds(begin, end, len(o.s))
	if b > e || e > len(o.s) {
		panic("StringObj.Slice: bounds out of range")
	}
	return &StringObj{s: o.s[b:e]}
}

// Concat returns the concatenation of o and other.
func (o *StringObj) Concat(other *StringObj) *StringObj {
	return &StringObj{s: o.s + other.s}
}

// normalizeBounds maps the sentinel encoding of slice bounds onto [0, length].
// A non-negative bound passes through; a negative bound b maps to
// (length+1+b) mod (length+1), so -1 selects length itself.
func normalizeBounds(begin, end, length int) (int, int) {
	n := length + 1
	if begin < 0 {
		begin = ((begin % n) + n) % n
	}
	if end < 0 {
		end = ((end % n) + n) % n
	}
	return begin, end
}
