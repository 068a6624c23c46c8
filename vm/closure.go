package vm

// ClosureObj pairs a compiled function with the upvalue cells it captured
// at instantiation, or wraps a host function behind the same value kind.
// Capture cells are shared between every closure that closes over the same
// variable, which is what makes mutation through one visible in the others.
type ClosureObj struct {
	Func     FuncKey
	UpValues []*UpValue
	Recv     *Value // bound receiver for method values, nil otherwise
	Meta     Meta   // signature

	// Host-side closure; when set, Func is NilFuncKey.
	Ffi     Ffi
	FfiName string
}

// ClosureRc is the shared, reference-counted cell for a closure.
type ClosureRc struct {
	Obj ClosureObj
	RC  RCount
}

// NewClosure creates a closure over a compiled function.
func NewClosure(fn FuncKey, upValues []*UpValue, recv *Value, meta Meta, gcv *GcObjs) Value {
	rc := &ClosureRc{Obj: ClosureObj{Func: fn, UpValues: upValues, Recv: recv, Meta: meta}}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeClosure, obj: rc}
}

// NewFfiClosure creates a closure dispatching to a host function.
func NewFfiClosure(ffi Ffi, name string, meta Meta, gcv *GcObjs) Value {
	rc := &ClosureRc{Obj: ClosureObj{Func: NilFuncKey, Ffi: ffi, FfiName: name, Meta: meta}}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeClosure, obj: rc}
}

// IsFfi reports whether the closure dispatches to a host function.
func (o *ClosureObj) IsFfi() bool {
	return o.Ffi != nil
}

func (c *ClosureRc) rc() *RCount { return &c.RC }

// children visits the values a closure keeps alive: its bound receiver and
// every closed capture. Open captures still belong to a live frame and are
// rooted through the stack instead.
func (c *ClosureRc) children(visit func(Value)) {
	if c.Obj.Recv != nil {
		visit(*c.Obj.Recv)
	}
	for _, uv := range c.Obj.UpValues {
		if uv != nil && !uv.IsOpen() {
			visit(uv.Value())
		}
	}
}

func (c *ClosureRc) breakCycle() {
	c.Obj.UpValues = nil
	c.Obj.Recv = nil
}
