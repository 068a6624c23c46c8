package vm

import "weak"

// ValueDesc locates a captured variable while it still lives on a stack:
// which function and local slot it belongs to, and once the frame is live,
// which stack and frame base to read through.
type ValueDesc struct {
	Func      FuncKey
	Index     OpIndex
	Typ       ValueType
	IsUpValue bool // the slot is itself an upvalue of the enclosing frame

	// Filled in when the closure is instantiated against a live frame.
	// Weak so a captured-but-abandoned frame's stack can be collected.
	stack     weak.Pointer[Stack]
	stackBase int
}

// AbsIndex returns the descriptor's absolute stack slot.
func (d *ValueDesc) AbsIndex() int {
	return d.stackBase + int(d.Index)
}

// UpValue is one captured variable. It starts open, reading and writing
// through the owning frame's stack slot, and is closed exactly once when
// that frame returns, after which it owns the value itself. The transition
// is one-way.
type UpValue struct {
	closed bool
	desc   ValueDesc
	val    Value
}

// NewOpenUpValue creates an upvalue still backed by a stack slot.
func NewOpenUpValue(desc ValueDesc) *UpValue {
	return &UpValue{desc: desc}
}

// NewClosedUpValue creates an upvalue that owns v outright.
func NewClosedUpValue(v Value) *UpValue {
	return &UpValue{closed: true, val: v}
}

// IsOpen reports whether the upvalue still reads through a stack slot.
func (u *UpValue) IsOpen() bool {
	return !u.closed
}

// Desc returns the open upvalue's descriptor.
func (u *UpValue) Desc() ValueDesc {
	if u.closed {
		panic("UpValue.Desc: upvalue is closed")
	}
	return u.desc
}

// Bind attaches the open upvalue to a live frame.
func (u *UpValue) Bind(stack *Stack, stackBase int) {
	if u.closed {
		panic("UpValue.Bind: upvalue is closed")
	}
	u.desc.stack = weak.Make(stack)
	u.desc.stackBase = stackBase
}

// Close detaches the upvalue from its stack slot, making v its value from
// now on. Closing twice is fatal.
func (u *UpValue) Close(v Value) {
	if u.closed {
		panic("UpValue.Close: already closed")
	}
	u.closed = true
	u.val = v
	u.desc = ValueDesc{}
}

// Value reads the captured variable, through the stack slot while open.
func (u *UpValue) Value() Value {
	if u.closed {
		return u.val
	}
	stack := u.desc.stack.Value()
	if stack == nil {
		panic("UpValue.Value: open upvalue with dead stack")
	}
	return stack.Get(u.desc.AbsIndex())
}

// SetValue writes the captured variable, through the stack slot while open.
func (u *UpValue) SetValue(v Value) {
	if u.closed {
		u.val = v
		return
	}
	stack := u.desc.stack.Value()
	if stack == nil {
		panic("UpValue.SetValue: open upvalue with dead stack")
	}
	stack.Set(u.desc.AbsIndex(), v)
}
