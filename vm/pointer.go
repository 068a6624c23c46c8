package vm

import "fmt"

// UserData is a host-owned object a pointer can address. The runtime never
// dereferences it; equality is identity. Hosts whose objects hold runtime
// values report CanMakeCycle true so the collector can see them; everyone
// else returns false and leaves the hooks empty.
type UserData interface {
	TypeName() string
	// AsAny exposes the host object for downcasting.
	AsAny() any
	// CanMakeCycle reports whether the object holds runtime values and so
	// can participate in reference cycles.
	CanMakeCycle() bool
	// RefSubOne is called when the runtime drops a strong reference to the
	// object.
	RefSubOne()
	// BreakCycle tells the host to drop the object's edges into runtime
	// values; called when the collector finds the object unreachable.
	BreakCycle()
}

// userRc adapts a cycle-capable host object to the collector's cell
// protocol. The host graph is opaque, so the cell has no children to
// visit; breaking it hands the work to the host.
type userRc struct {
	u  UserData
	RC RCount
}

func (u *userRc) rc() *RCount { return &u.RC }

func (u *userRc) children(func(Value)) {}

func (u *userRc) breakCycle() {
	u.u.BreakCycle()
}

// PointerKind says what a pointer addresses.
type PointerKind uint8

const (
	// PtrReleased marks a pointer whose pointee is gone. Dereferencing it
	// here is fatal; the dispatch loop turns the condition into a runtime
	// error.
	PtrReleased PointerKind = iota
	// PtrUpValue addresses a captured local variable.
	PtrUpValue
	// PtrStruct owns a whole struct allocation. Taking the address of a
	// composite local promotes it to one of the owning kinds; mutation
	// through any alias lands in the shared cell.
	PtrStruct
	// PtrArray owns a whole array allocation.
	PtrArray
	// PtrSlice owns a slice header.
	PtrSlice
	// PtrMap owns a map header.
	PtrMap
	// PtrSliceMember addresses one element of a slice.
	PtrSliceMember
	// PtrStructField addresses one field of a struct.
	PtrStructField
	// PtrPkgMember addresses one package-level variable.
	PtrPkgMember
	// PtrUserData addresses an opaque host object.
	PtrUserData
)

// PointerObj addresses a place, not a value: a whole composite allocation,
// a captured local, a slice element, a struct field, a package variable,
// or an opaque host object. Two pointers are equal when they address the
// same place.
type PointerObj struct {
	Kind   PointerKind
	Up     *UpValue  // PtrUpValue
	Slice  *SliceRc  // PtrSlice, PtrSliceMember
	Struct *StructRc // PtrStruct, PtrStructField
	Array  *ArrayRc  // PtrArray
	Map    *MapRc    // PtrMap
	Pkg    PkgKey    // PtrPkgMember
	Index  OpIndex   // element/field/member index
	User   UserData  // PtrUserData

	// Collector cell for a cycle-capable host object; nil otherwise.
	userCell *userRc
}

// NewReleasedPointer creates the dangling pointer marker.
func NewReleasedPointer() *PointerObj {
	return &PointerObj{Kind: PtrReleased}
}

// NewUpValPointer creates a pointer to a captured local variable.
func NewUpValPointer(uv *UpValue) *PointerObj {
	return &PointerObj{Kind: PtrUpValue, Up: uv}
}

// NewLocalPointer promotes a composite local, optionally inside a named
// box, into its owning-handle pointer form. Plain locals take their
// address through an upvalue instead; calling this on a non-composite is
// fatal, and so is a nil slice, which has no cell to own.
func NewLocalPointer(v Value) *PointerObj {
	if v.Type() == TypeNamed {
		v = v.Named().V
	}
	switch v.Type() {
	case TypeStruct:
		return &PointerObj{Kind: PtrStruct, Struct: v.Struct()}
	case TypeArray:
		return &PointerObj{Kind: PtrArray, Array: v.Array()}
	case TypeSlice:
		rc := v.Slice()
		if rc == nil {
			panic("NewLocalPointer: nil slice")
		}
		return &PointerObj{Kind: PtrSlice, Slice: rc}
	case TypeMap:
		return &PointerObj{Kind: PtrMap, Map: v.Map()}
	default:
		panic("NewLocalPointer: not an addressable composite")
	}
}

// NewSliceMemberPointer creates a pointer to slice element i.
func NewSliceMemberPointer(rc *SliceRc, i OpIndex) *PointerObj {
	return &PointerObj{Kind: PtrSliceMember, Slice: rc, Index: i}
}

// NewStructFieldPointer creates a pointer to struct field i.
func NewStructFieldPointer(rc *StructRc, i OpIndex) *PointerObj {
	return &PointerObj{Kind: PtrStructField, Struct: rc, Index: i}
}

// NewPkgMemberPointer creates a pointer to package member i.
func NewPkgMemberPointer(pkg PkgKey, i OpIndex) *PointerObj {
	return &PointerObj{Kind: PtrPkgMember, Pkg: pkg, Index: i}
}

// NewUserDataPointer creates a pointer to a host object. Cycle-capable
// objects get a collector cell so the cycle pass can reach them.
func NewUserDataPointer(u UserData, gcv *GcObjs) *PointerObj {
	p := &PointerObj{Kind: PtrUserData, User: u}
	if u.CanMakeCycle() {
		p.userCell = &userRc{u: u}
		if gcv != nil {
			gcTrack(gcv, p.userCell)
		}
	}
	return p
}

// Deref reads the value behind the pointer. Dereferencing a released
// pointer or a host object is fatal; a nil pointer value never reaches
// here, the caller checks Value.IsNil first.
func (p *PointerObj) Deref(pkgs *PkgStore) Value {
	switch p.Kind {
	case PtrUpValue:
		return p.Up.Value()
	case PtrStruct:
		return Value{t: TypeStruct, obj: p.Struct}
	case PtrArray:
		return Value{t: TypeArray, obj: p.Array}
	case PtrSlice:
		return Value{t: TypeSlice, obj: p.Slice}
	case PtrMap:
		return Value{t: TypeMap, obj: p.Map}
	case PtrSliceMember:
		return p.Slice.Obj.Get(int(p.Index))
	case PtrStructField:
		return p.Struct.Obj.Field(int(p.Index))
	case PtrPkgMember:
		return pkgs.Get(p.Pkg).Member(p.Index)
	case PtrUserData:
		panic("PointerObj.Deref: opaque host object")
	default:
		panic("PointerObj.Deref: dereference of a released pointer")
	}
}

// Assign writes v to the place behind the pointer. The caller has already
// applied assignment semantics to v; owning kinds replace the cell
// contents so every alias observes the store.
func (p *PointerObj) Assign(v Value, pkgs *PkgStore) {
	switch p.Kind {
	case PtrUpValue:
		p.Up.SetValue(v)
	case PtrStruct:
		p.Struct.Obj = v.Struct().Obj
	case PtrArray:
		p.Array.Obj = v.Array().Obj
	case PtrSlice:
		if rc := v.Slice(); rc != nil {
			p.Slice.Obj = rc.Obj
		} else {
			p.Slice.Obj = SliceObj{Meta: p.Slice.Obj.Meta, vec: &vecCell{}}
		}
	case PtrMap:
		p.Map.Obj = v.Map().Obj
	case PtrSliceMember:
		p.Slice.Obj.Set(int(p.Index), v)
	case PtrStructField:
		p.Struct.Obj.SetField(int(p.Index), v)
	case PtrPkgMember:
		pkgs.Get(p.Pkg).SetMember(p.Index, v)
	case PtrUserData:
		panic("PointerObj.Assign: opaque host object")
	default:
		panic("PointerObj.Assign: dereference of a released pointer")
	}
}

// Equal reports whether p and other address the same place: shared-cell
// identity for owning kinds, (owner, offset) for element and field kinds.
func (p *PointerObj) Equal(other *PointerObj) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Kind != other.Kind {
		return false
	}
	switch p.Kind {
	case PtrReleased:
		return true
	case PtrUpValue:
		return p.Up == other.Up
	case PtrStruct:
		return p.Struct == other.Struct
	case PtrArray:
		return p.Array == other.Array
	case PtrSlice:
		return p.Slice == other.Slice
	case PtrMap:
		return p.Map == other.Map
	case PtrSliceMember:
		return p.Slice == other.Slice && p.Index == other.Index
	case PtrStructField:
		return p.Struct == other.Struct && p.Index == other.Index
	case PtrPkgMember:
		return p.Pkg == other.Pkg && p.Index == other.Index
	default:
		return p.User == other.User
	}
}

func (p *PointerObj) hash(h uint64) uint64 {
	if p == nil {
		return h
	}
	h = fnvMix(h, uint64(p.Kind))
	switch p.Kind {
	case PtrUpValue:
		return fnvMix(h, identityBits(p.Up))
	case PtrStruct:
		return fnvMix(h, identityBits(p.Struct))
	case PtrArray:
		return fnvMix(h, identityBits(p.Array))
	case PtrSlice:
		return fnvMix(h, identityBits(p.Slice))
	case PtrMap:
		return fnvMix(h, identityBits(p.Map))
	case PtrSliceMember:
		return fnvMix(fnvMix(h, identityBits(p.Slice)), uint64(uint32(p.Index)))
	case PtrStructField:
		return fnvMix(fnvMix(h, identityBits(p.Struct)), uint64(uint32(p.Index)))
	case PtrPkgMember:
		return fnvMix(fnvMix(h, uint64(uint32(p.Pkg))), uint64(uint32(p.Index)))
	case PtrUserData:
		return fnvMix(h, identityBits(p.User))
	default:
		return h
	}
}

// DeepClone duplicates the pointed-to allocation for struct, array, slice
// and map pointers; captured locals, package members and host objects stay
// shared.
func (p *PointerObj) DeepClone(gcv *GcObjs) *PointerObj {
	if p == nil {
		return nil
	}
	switch p.Kind {
	case PtrStruct, PtrStructField:
		rc := &StructRc{Obj: p.Struct.Obj.DeepClone(gcv)}
		if gcv != nil {
			gcTrack(gcv, rc)
		}
		return &PointerObj{Kind: p.Kind, Struct: rc, Index: p.Index}
	case PtrArray:
		rc := &ArrayRc{Obj: ArrayObj{Meta: p.Array.Obj.Meta, Elems: p.Array.Obj.deepElems(gcv)}}
		if gcv != nil {
			gcTrack(gcv, rc)
		}
		return &PointerObj{Kind: PtrArray, Array: rc}
	case PtrSlice, PtrSliceMember:
		rc := &SliceRc{Obj: p.Slice.Obj.DeepClone(gcv)}
		if gcv != nil {
			gcTrack(gcv, rc)
		}
		return &PointerObj{Kind: p.Kind, Slice: rc, Index: p.Index}
	case PtrMap:
		rc := &MapRc{Obj: p.Map.Obj.DeepClone(gcv)}
		if gcv != nil {
			gcTrack(gcv, rc)
		}
		return &PointerObj{Kind: PtrMap, Map: rc}
	default:
		return p
	}
}

func (p *PointerObj) String() string {
	if p == nil {
		return "<nil>"
	}
	switch p.Kind {
	case PtrReleased:
		return "<released pointer>"
	case PtrUpValue:
		return "<pointer to local>"
	case PtrStruct:
		return "<pointer to struct>"
	case PtrArray:
		return "<pointer to array>"
	case PtrSlice:
		return "<pointer to slice>"
	case PtrMap:
		return "<pointer to map>"
	case PtrSliceMember:
		return fmt.Sprintf("<pointer to slice[%d]>", p.Index)
	case PtrStructField:
		return fmt.Sprintf("<pointer to field %d>", p.Index)
	case PtrPkgMember:
		return fmt.Sprintf("<pointer to package %d member %d>", p.Pkg, p.Index)
	default:
		return "<pointer to " + p.User.TypeName() + ">"
	}
}
