package vm

import "context"

// Ffi is a foreign object that satisfies Oriole interfaces from the host
// side. Method dispatch on it goes through Call instead of the bytecode
// method table.
type Ffi interface {
	Name() string
	Call(ctx context.Context, method string, args []Value) ([]Value, error)
}

// BindingKind says how one interface method resolves on the boxed value.
type BindingKind uint8

const (
	// BindStruct dispatches to a compiled function, optionally through a
	// chain of embedded fields to reach the receiver.
	BindStruct BindingKind = iota
	// BindIface forwards to a method of an interface-typed embedded
	// field's own binding table.
	BindIface
)

// Binding resolves one interface method against the boxed concrete type.
type Binding struct {
	Kind    BindingKind
	Func    FuncKey // BindStruct: the method's compiled function
	PtrRecv bool    // BindStruct: receiver is a pointer
	Iface   int     // BindIface: index into the embedded interface's table
	Indices []int   // field path from the boxed value to the receiver, nil if direct
}

// InterfaceObj boxes a value together with the binding table that maps the
// interface's methods onto the value's concrete type. A foreign object
// carries an Ffi instead of a boxed value.
type InterfaceObj struct {
	V        Value
	Meta     Meta // concrete type of the boxed value
	Bindings []Binding
	ffi      Ffi
}

// NewInterfaceObj boxes v with its concrete type and method bindings.
func NewInterfaceObj(v Value, meta Meta, bindings []Binding) *InterfaceObj {
	return &InterfaceObj{V: v, Meta: meta, Bindings: bindings}
}

// NewFfiInterfaceObj boxes a foreign object.
func NewFfiInterfaceObj(ffi Ffi) *InterfaceObj {
	return &InterfaceObj{ffi: ffi}
}

// Underlying returns the boxed value. Fatal for foreign objects.
func (o *InterfaceObj) Underlying() Value {
	if o.ffi != nil {
		panic("InterfaceObj.Underlying: foreign object")
	}
	return o.V
}

// UnderlyingFfi returns the foreign object, or nil if o boxes a value.
func (o *InterfaceObj) UnderlyingFfi() Ffi {
	return o.ffi
}

// Equal compares two interface boxes: same dynamic type and equal boxed
// values; foreign objects compare by identity.
func (o *InterfaceObj) Equal(other *InterfaceObj) bool {
	if o.ffi != nil || other.ffi != nil {
		return o.ffi == other.ffi
	}
	return o.Meta == other.Meta && o.V.Equal(other.V)
}

func (o *InterfaceObj) hash(h uint64) uint64 {
	if o.ffi != nil {
		return fnvMix(h, identityBits(o.ffi))
	}
	return fnvMix(o.V.Hash(), h)
}

// DeepClone copies the boxed value into an independent allocation; the
// binding table is immutable and stays shared.
func (o *InterfaceObj) DeepClone(gcv *GcObjs) *InterfaceObj {
	if o.ffi != nil {
		return o
	}
	return &InterfaceObj{V: o.V.DeepClone(gcv), Meta: o.Meta, Bindings: o.Bindings}
}

func (o *InterfaceObj) String() string {
	if o.ffi != nil {
		return "<ffi " + o.ffi.Name() + ">"
	}
	return o.V.String()
}
