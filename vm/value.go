package vm

import (
	"fmt"
	"math"
	"unsafe"
)

// Value is the tagged union of all Oriole runtime values. Primitives are
// stored inline; composites hold a pointer to a shared, reference-counted
// object. Copy semantics are per kind: primitives, structs and arrays copy
// deep, everything else copies shallow (shared allocation). That split is
// what makes slice/map/pointer aliasing match the source language.
type Value struct {
	t     ValueType
	bits  uint64 // scalar payload (bool/int/uint/float bits, real part of complex)
	bits2 uint64 // imaginary part of complex values
	obj   any    // composite payload
	meta  Meta   // descriptor for nil-of-type and type-as-value
}

// Type returns the value's kind tag.
func (v Value) Type() ValueType {
	return v.t
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewBool creates a bool value.
func NewBool(b bool) Value {
	var u uint64
	if b {
		u = 1
	}
	return Value{t: TypeBool, bits: u}
}

// NewInt creates an int value.
func NewInt(i int) Value { return Value{t: TypeInt, bits: uint64(int64(i))} }

// NewInt8 creates an int8 value.
func NewInt8(i int8) Value { return Value{t: TypeInt8, bits: uint64(int64(i))} }

// NewInt16 creates an int16 value.
func NewInt16(i int16) Value { return Value{t: TypeInt16, bits: uint64(int64(i))} }

// NewInt32 creates an int32 value.
func NewInt32(i int32) Value { return Value{t: TypeInt32, bits: uint64(int64(i))} }

// NewInt64 creates an int64 value.
func NewInt64(i int64) Value { return Value{t: TypeInt64, bits: uint64(i)} }

// NewUint creates a uint value.
func NewUint(u uint) Value { return Value{t: TypeUint, bits: uint64(u)} }

// NewUint8 creates a uint8 value.
func NewUint8(u uint8) Value { return Value{t: TypeUint8, bits: uint64(u)} }

// NewUint16 creates a uint16 value.
func NewUint16(u uint16) Value { return Value{t: TypeUint16, bits: uint64(u)} }

// NewUint32 creates a uint32 value.
func NewUint32(u uint32) Value { return Value{t: TypeUint32, bits: uint64(u)} }

// NewUint64 creates a uint64 value.
func NewUint64(u uint64) Value { return Value{t: TypeUint64, bits: u} }

// NewUintPtr creates a uintptr value.
func NewUintPtr(u uintptr) Value { return Value{t: TypeUintPtr, bits: uint64(u)} }

// NewFloat32 creates a float32 value.
func NewFloat32(f float32) Value {
	return Value{t: TypeFloat32, bits: uint64(math.Float32bits(f))}
}

// NewFloat64 creates a float64 value.
func NewFloat64(f float64) Value {
	return Value{t: TypeFloat64, bits: math.Float64bits(f)}
}

// NewComplex64 creates a complex64 value.
func NewComplex64(re, im float32) Value {
	return Value{
		t:     TypeComplex64,
		bits:  uint64(math.Float32bits(re)),
		bits2: uint64(math.Float32bits(im)),
	}
}

// NewComplex128 creates a complex128 value.
func NewComplex128(c complex128) Value {
	return Value{
		t:     TypeComplex128,
		bits:  math.Float64bits(real(c)),
		bits2: math.Float64bits(imag(c)),
	}
}

// NewString creates a string value over a fresh backing buffer.
func NewString(s string) Value {
	return Value{t: TypeStr, obj: NewStringObj(s)}
}

// newStringVal wraps an existing string object (shared backing).
func newStringVal(s *StringObj) Value {
	return Value{t: TypeStr, obj: s}
}

// NewNilOf creates the nil value of a particular type. Pass MetaUntyped for
// the bare untyped nil.
func NewNilOf(meta Meta) Value {
	return Value{t: TypeNil, meta: meta}
}

// NewMetaValue creates a type-as-value.
func NewMetaValue(m Meta) Value {
	return Value{t: TypeMetadata, meta: m}
}

// NewNamed boxes a value of an underlying type into a named type.
func NewNamed(v Value, meta Meta) Value {
	return Value{t: TypeNamed, obj: &NamedObj{V: v, Meta: meta}}
}

// NewPointer wraps a pointer object.
func NewPointer(p *PointerObj) Value {
	return Value{t: TypePointer, obj: p}
}

// NewChannelValue wraps a channel object.
func NewChannelValue(c *ChannelObj) Value {
	return Value{t: TypeChannel, obj: c}
}

// NewInterfaceValue wraps an interface object.
func NewInterfaceValue(i *InterfaceObj) Value {
	return Value{t: TypeInterface, obj: i}
}

// NamedObj boxes a value of an underlying type together with the named
// type's descriptor. The box follows the underlying value's copy semantics.
type NamedObj struct {
	V    Value
	Meta Meta
}

// ---------------------------------------------------------------------------
// Accessors (fatal on kind mismatch: a mismatch is a codegen bug)
// ---------------------------------------------------------------------------

// Bool returns v as a bool.
func (v Value) Bool() bool {
	if v.t != TypeBool {
		panic("Value.Bool: not a bool")
	}
	return v.bits != 0
}

// Int returns v as an int.
func (v Value) Int() int {
	if v.t != TypeInt {
		panic("Value.Int: not an int")
	}
	return int(int64(v.bits))
}

// Int8 returns v as an int8.
func (v Value) Int8() int8 {
	if v.t != TypeInt8 {
		panic("Value.Int8: not an int8")
	}
	return int8(int64(v.bits))
}

// Int16 returns v as an int16.
func (v Value) Int16() int16 {
	if v.t != TypeInt16 {
		panic("Value.Int16: not an int16")
	}
	return int16(int64(v.bits))
}

// Int32 returns v as an int32.
func (v Value) Int32() int32 {
	if v.t != TypeInt32 {
		panic("Value.Int32: not an int32")
	}
	return int32(int64(v.bits))
}

// Int64 returns v as an int64.
func (v Value) Int64() int64 {
	if v.t != TypeInt64 {
		panic("Value.Int64: not an int64")
	}
	return int64(v.bits)
}

// Uint returns v as a uint.
func (v Value) Uint() uint {
	if v.t != TypeUint {
		panic("Value.Uint: not a uint")
	}
	return uint(v.bits)
}

// Uint8 returns v as a uint8.
func (v Value) Uint8() uint8 {
	if v.t != TypeUint8 {
		panic("Value.Uint8: not a uint8")
	}
	return uint8(v.bits)
}

// Uint16 returns v as a uint16.
func (v Value) Uint16() uint16 {
	if v.t != TypeUint16 {
		panic("Value.Uint16: not a uint16")
	}
	return uint16(v.bits)
}

// Uint32 returns v as a uint32.
func (v Value) Uint32() uint32 {
	if v.t != TypeUint32 {
		panic("Value.Uint32: not a uint32")
	}
	return uint32(v.bits)
}

// Uint64 returns v as a uint64.
func (v Value) Uint64() uint64 {
	if v.t != TypeUint64 {
		panic("Value.Uint64: not a uint64")
	}
	return v.bits
}

// UintPtr returns v as a uintptr.
func (v Value) UintPtr() uintptr {
	if v.t != TypeUintPtr {
		panic("Value.UintPtr: not a uintptr")
	}
	return uintptr(v.bits)
}

// Float32 returns v as a float32.
func (v Value) Float32() float32 {
	if v.t != TypeFloat32 {
		panic("Value.Float32: not a float32")
	}
	return math.Float32frombits(uint32(v.bits))
}

// Float64 returns v as a float64.
func (v Value) Float64() float64 {
	if v.t != TypeFloat64 {
		panic("Value.Float64: not a float64")
	}
	return math.Float64frombits(v.bits)
}

// Complex64 returns v as a complex64.
func (v Value) Complex64() complex64 {
	if v.t != TypeComplex64 {
		panic("Value.Complex64: not a complex64")
	}
	return complex(math.Float32frombits(uint32(v.bits)), math.Float32frombits(uint32(v.bits2)))
}

// Complex128 returns v as a complex128.
func (v Value) Complex128() complex128 {
	if v.t != TypeComplex128 {
		panic("Value.Complex128: not a complex128")
	}
	return complex(math.Float64frombits(v.bits), math.Float64frombits(v.bits2))
}

// Str returns the string object behind v.
func (v Value) Str() *StringObj {
	if v.t != TypeStr {
		panic("Value.Str: not a string")
	}
	return v.obj.(*StringObj)
}

// Struct returns the shared struct cell behind v.
func (v Value) Struct() *StructRc {
	if v.t != TypeStruct {
		panic("Value.Struct: not a struct")
	}
	return v.obj.(*StructRc)
}

// Array returns the shared array cell behind v.
func (v Value) Array() *ArrayRc {
	if v.t != TypeArray {
		panic("Value.Array: not an array")
	}
	return v.obj.(*ArrayRc)
}

// Slice returns the shared slice cell behind v.
func (v Value) Slice() *SliceRc {
	if v.t != TypeSlice {
		panic("Value.Slice: not a slice")
	}
	return v.obj.(*SliceRc)
}

// Map returns the shared map cell behind v.
func (v Value) Map() *MapRc {
	if v.t != TypeMap {
		panic("Value.Map: not a map")
	}
	return v.obj.(*MapRc)
}

// Iface returns the interface object behind v.
func (v Value) Iface() *InterfaceObj {
	if v.t != TypeInterface {
		panic("Value.Iface: not an interface")
	}
	return v.obj.(*InterfaceObj)
}

// Chan returns the channel object behind v.
func (v Value) Chan() *ChannelObj {
	if v.t != TypeChannel {
		panic("Value.Chan: not a channel")
	}
	return v.obj.(*ChannelObj)
}

// Pointer returns the pointer object behind v.
func (v Value) Pointer() *PointerObj {
	if v.t != TypePointer {
		panic("Value.Pointer: not a pointer")
	}
	return v.obj.(*PointerObj)
}

// Closure returns the shared closure cell behind v.
func (v Value) Closure() *ClosureRc {
	if v.t != TypeClosure {
		panic("Value.Closure: not a closure")
	}
	return v.obj.(*ClosureRc)
}

// Named returns the named box behind v.
func (v Value) Named() *NamedObj {
	if v.t != TypeNamed {
		panic("Value.Named: not a named value")
	}
	return v.obj.(*NamedObj)
}

// Function returns the function key behind v.
func (v Value) Function() FuncKey {
	if v.t != TypeFunction {
		panic("Value.Function: not a function")
	}
	return FuncKey(int32(v.bits))
}

// Package returns the package key behind v.
func (v Value) Package() PkgKey {
	if v.t != TypePackage {
		panic("Value.Package: not a package")
	}
	return PkgKey(int32(v.bits))
}

// NewFunctionValue wraps a function key.
func NewFunctionValue(k FuncKey) Value {
	return Value{t: TypeFunction, bits: uint64(uint32(k))}
}

// NewPackageValue wraps a package key.
func NewPackageValue(k PkgKey) Value {
	return Value{t: TypePackage, bits: uint64(uint32(k))}
}

// Meta returns the descriptor of a nil-of-type or type-as-value.
func (v Value) Meta() Meta {
	if v.t != TypeNil && v.t != TypeMetadata {
		panic("Value.Meta: value carries no descriptor")
	}
	return v.meta
}

// IsNil reports whether v is a nil value. Nil slices and maps carry their
// kind tag with no allocation behind it, so they count too.
func (v Value) IsNil() bool {
	switch v.t {
	case TypeNil:
		return true
	case TypeSlice:
		return v.Slice() == nil
	case TypeMap:
		rc := v.Map()
		return rc == nil || rc.Obj.IsNil()
	case TypePointer:
		return v.Pointer() == nil
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Copy semantics
// ---------------------------------------------------------------------------

// CopySemantic copies v the way an assignment in the source language would:
// deep for structs and arrays (fresh allocation, fields copied recursively
// with their own semantics), header-copy for slices and maps (independent
// window/identity, shared storage), shared for everything else.
func (v Value) CopySemantic(gcv *GcObjs) Value {
	switch v.t {
	case TypeStruct:
		rc := v.Struct()
		fields := make([]Value, len(rc.Obj.Fields))
		for i, f := range rc.Obj.Fields {
			fields[i] = f.CopySemantic(gcv)
		}
		return NewStruct(StructObj{Meta: rc.Obj.Meta, Fields: fields}, gcv)
	case TypeArray:
		rc := v.Array()
		return NewArrayWithData(rc.Obj.copyElems(gcv), rc.Obj.Meta, gcv)
	case TypeSlice:
		rc := v.Slice()
		if rc == nil {
			return v
		}
		return newSliceRcValue(rc.Obj.headerClone(), gcv)
	case TypeMap:
		rc := v.Map()
		if rc == nil {
			return v
		}
		return newMapRcValue(rc.Obj.headerClone(), gcv)
	case TypeNamed:
		n := v.Named()
		return NewNamed(n.V.CopySemantic(gcv), n.Meta)
	default:
		return v
	}
}

// DeepClone copies v into a fully independent allocation: mutating the
// clone never affects the original. Primitives and strings are immutable
// and returned as-is; channels and closures cannot be duplicated and stay
// shared.
func (v Value) DeepClone(gcv *GcObjs) Value {
	switch v.t {
	case TypeStruct:
		return NewStruct(v.Struct().Obj.DeepClone(gcv), gcv)
	case TypeArray:
		rc := v.Array()
		return NewArrayWithData(rc.Obj.deepElems(gcv), rc.Obj.Meta, gcv)
	case TypeSlice:
		rc := v.Slice()
		if rc == nil {
			return v
		}
		return newSliceRcValue(rc.Obj.DeepClone(gcv), gcv)
	case TypeMap:
		rc := v.Map()
		if rc == nil {
			return v
		}
		return newMapRcValue(rc.Obj.DeepClone(gcv), gcv)
	case TypeNamed:
		n := v.Named()
		return NewNamed(n.V.DeepClone(gcv), n.Meta)
	case TypeInterface:
		return NewInterfaceValue(v.Iface().DeepClone(gcv))
	case TypePointer:
		return NewPointer(v.Pointer().DeepClone(gcv))
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// Equality, identity, hashing
// ---------------------------------------------------------------------------

// Equal implements the language's == for comparable kinds. Structs and
// arrays compare elementwise, interfaces by boxed value, pointers by the
// place they address.
func (v Value) Equal(other Value) bool {
	if v.t != other.t {
		return false
	}
	switch v.t {
	case TypeBool, TypeInt, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint, TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeUintPtr,
		TypeFloat32, TypeFloat64, TypeComplex64, TypeComplex128,
		TypeFunction, TypePackage:
		return v.bits == other.bits && v.bits2 == other.bits2
	case TypeStr:
		return v.Str().Str() == other.Str().Str()
	case TypeNil:
		return true
	case TypeMetadata:
		return v.meta == other.meta
	case TypeStruct:
		return v.Struct().Obj.Equal(&other.Struct().Obj)
	case TypeArray:
		return v.Array().Obj.Equal(&other.Array().Obj)
	case TypeInterface:
		return v.Iface().Equal(other.Iface())
	case TypePointer:
		return v.Pointer().Equal(other.Pointer())
	case TypeNamed:
		return v.Named().V.Equal(other.Named().V)
	case TypeSlice, TypeMap, TypeChannel, TypeClosure:
		// Only comparable against nil in the source language; identity
		// comparison covers that and keeps Equal total.
		return v.obj == other.obj
	default:
		return false
	}
}

// Identical reports value identity: equal payload for scalars and strings,
// the same shared allocation for composites. Used for constant-pool
// deduplication.
func (v Value) Identical(other Value) bool {
	if v.t != other.t {
		return false
	}
	switch v.t {
	case TypeStruct, TypeArray, TypeSlice, TypeMap, TypeInterface,
		TypeChannel, TypePointer, TypeClosure, TypeNamed:
		return v.obj == other.obj
	default:
		return v.Equal(other)
	}
}

const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func fnvMix(h, x uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= x & 0xFF
		h *= fnvPrime
		x >>= 8
	}
	return h
}

func fnvMixString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// Hash returns a hash consistent with Equal, for use as a map key.
func (v Value) Hash() uint64 {
	h := fnvMix(fnvOffset, uint64(v.t))
	switch v.t {
	case TypeStr:
		return fnvMixString(h, v.Str().Str())
	case TypeNil:
		return h
	case TypeMetadata:
		h = fnvMix(h, uint64(uint32(v.meta.Key)))
		return fnvMix(h, uint64(v.meta.Depth)<<8|uint64(v.meta.Cat))
	case TypeStruct:
		return v.Struct().Obj.hash(h)
	case TypeArray:
		return v.Array().Obj.hash(h)
	case TypeInterface:
		return v.Iface().hash(h)
	case TypePointer:
		return v.Pointer().hash(h)
	case TypeNamed:
		return fnvMix(v.Named().V.Hash(), uint64(v.t))
	case TypeChannel, TypeClosure:
		return fnvMix(h, identityBits(v.obj))
	default:
		return fnvMix(fnvMix(h, v.bits), v.bits2)
	}
}

// identityBits hashes a shared allocation by address.
func identityBits(obj any) uint64 {
	type iface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return uint64(uintptr((*iface)(unsafe.Pointer(&obj)).data))
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// String renders v the way the language's print verbs do.
func (v Value) String() string {
	switch v.t {
	case TypeBool:
		return fmt.Sprintf("%t", v.Bool())
	case TypeInt:
		return fmt.Sprintf("%d", v.Int())
	case TypeInt8:
		return fmt.Sprintf("%d", v.Int8())
	case TypeInt16:
		return fmt.Sprintf("%d", v.Int16())
	case TypeInt32:
		return fmt.Sprintf("%d", v.Int32())
	case TypeInt64:
		return fmt.Sprintf("%d", v.Int64())
	case TypeUint:
		return fmt.Sprintf("%d", v.Uint())
	case TypeUint8:
		return fmt.Sprintf("%d", v.Uint8())
	case TypeUint16:
		return fmt.Sprintf("%d", v.Uint16())
	case TypeUint32:
		return fmt.Sprintf("%d", v.Uint32())
	case TypeUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case TypeUintPtr:
		return fmt.Sprintf("%#x", v.UintPtr())
	case TypeFloat32:
		return fmt.Sprintf("%v", v.Float32())
	case TypeFloat64:
		return fmt.Sprintf("%v", v.Float64())
	case TypeComplex64:
		return fmt.Sprintf("%v", v.Complex64())
	case TypeComplex128:
		return fmt.Sprintf("%v", v.Complex128())
	case TypeStr:
		return v.Str().Str()
	case TypeStruct:
		return v.Struct().Obj.String()
	case TypeArray:
		return v.Array().Obj.String()
	case TypeSlice:
		if rc := v.Slice(); rc != nil {
			return rc.Obj.String()
		}
		return "[]"
	case TypeMap:
		if rc := v.Map(); rc != nil {
			return rc.Obj.String()
		}
		return "map[]"
	case TypeInterface:
		return v.Iface().String()
	case TypeChannel:
		return "<channel>"
	case TypePointer:
		return v.Pointer().String()
	case TypeClosure:
		return "<closure>"
	case TypeFunction:
		return fmt.Sprintf("<func %d>", v.Function())
	case TypePackage:
		return fmt.Sprintf("<package %d>", v.Package())
	case TypeNamed:
		return v.Named().V.String()
	case TypeNil:
		return "<nil>"
	case TypeMetadata:
		return fmt.Sprintf("<type %d>", v.meta.Key)
	default:
		return fmt.Sprintf("<value kind %d>", v.t)
	}
}
