package vm

import "fmt"

// ---------------------------------------------------------------------------
// Metadata: type descriptors and type definitions
// ---------------------------------------------------------------------------

// MetaCategory distinguishes an ordinary instance, an array instance, or a
// type used as a first-class value.
type MetaCategory uint8

const (
	CatInstance MetaCategory = iota
	CatArrayInstance
	CatTypeValue
	CatArrayTypeValue
)

// String returns a human-readable name for the category.
func (c MetaCategory) String() string {
	switch c {
	case CatInstance:
		return "instance"
	case CatArrayInstance:
		return "array"
	case CatTypeValue:
		return "type"
	case CatArrayTypeValue:
		return "arraytype"
	default:
		return fmt.Sprintf("MetaCategory(%d)", uint8(c))
	}
}

// MaxIndirection is the deepest pointer indirection a descriptor can carry.
const MaxIndirection = 7

// Meta is a type descriptor: an arena handle plus pointer-indirection depth
// and a category tag. It is a small value type; the structural definition
// lives in the MetaStore.
type Meta struct {
	Key   MetaKey
	Depth uint8
	Cat   MetaCategory
}

// MetaUntyped is the descriptor of untyped values (nil before it acquires
// a type, dedicated pointer kinds that carry no named wrapper).
var MetaUntyped = Meta{Key: NilMetaKey}

// IsUntyped reports whether the descriptor has no definition.
func (m Meta) IsUntyped() bool {
	return m.Key == NilMetaKey
}

// Ptr returns the descriptor with one more level of indirection.
// Raising past MaxIndirection is a fatal programming error.
func (m Meta) Ptr() Meta {
	if m.IsUntyped() {
		panic("Meta.Ptr: untyped descriptor")
	}
	if m.Depth >= MaxIndirection {
		panic("Meta.Ptr: indirection depth out of range")
	}
	m.Depth++
	return m
}

// Unptr returns the descriptor with one less level of indirection.
// Lowering at depth zero is a fatal programming error.
func (m Meta) Unptr() Meta {
	if m.IsUntyped() {
		panic("Meta.Unptr: untyped descriptor")
	}
	if m.Depth == 0 {
		panic("Meta.Unptr: indirection depth out of range")
	}
	m.Depth--
	return m
}

// TypeCategory converts the descriptor into its type-as-value form.
func (m Meta) TypeCategory() Meta {
	if m.IsUntyped() {
		panic("Meta.TypeCategory: untyped descriptor")
	}
	switch m.Cat {
	case CatInstance:
		m.Cat = CatTypeValue
	case CatArrayInstance:
		m.Cat = CatArrayTypeValue
	}
	return m
}

// Underlying resolves exactly one level of named indirection. Descriptors
// that are not named (or carry indirection) resolve to themselves.
func (m Meta) Underlying(metas *MetaStore) Meta {
	if m.IsUntyped() || m.Depth > 0 {
		return m
	}
	if t := metas.Get(m.Key); t.Kind == KindNamed {
		return t.Under
	}
	return m
}

// recvKey returns the handle usable as a method receiver: the descriptor
// itself or one level of indirection above it.
func (m Meta) recvKey() MetaKey {
	if m.IsUntyped() || m.Depth > 1 {
		panic("Meta.recvKey: not a valid receiver descriptor")
	}
	return m.Key
}

// ValueTypeOf maps the descriptor to the ValueType tag its instances carry
// in instruction operands.
func (m Meta) ValueTypeOf(metas *MetaStore) ValueType {
	if m.IsUntyped() {
		panic("Meta.ValueTypeOf: untyped descriptor")
	}
	if m.Depth > 0 {
		return TypePointer
	}
	switch m.Cat {
	case CatTypeValue, CatArrayTypeValue:
		return TypeMetadata
	case CatArrayInstance:
		return TypeArray
	}
	switch metas.Get(m.Key).Kind {
	case KindBool:
		return TypeBool
	case KindInt:
		return TypeInt
	case KindInt8:
		return TypeInt8
	case KindInt16:
		return TypeInt16
	case KindInt32:
		return TypeInt32
	case KindInt64:
		return TypeInt64
	case KindUint:
		return TypeUint
	case KindUint8:
		return TypeUint8
	case KindUint16:
		return TypeUint16
	case KindUint32:
		return TypeUint32
	case KindUint64:
		return TypeUint64
	case KindFloat32:
		return TypeFloat32
	case KindFloat64:
		return TypeFloat64
	case KindComplex64:
		return TypeComplex64
	case KindComplex128:
		return TypeComplex128
	case KindStr:
		return TypeStr
	case KindStruct:
		return TypeStruct
	case KindSignature:
		return TypeClosure
	case KindArrayOrSlice:
		return TypeSlice
	case KindMap:
		return TypeMap
	case KindInterface:
		return TypeInterface
	case KindChannel:
		return TypeChannel
	case KindNamed:
		return TypeNamed
	default:
		panic("Meta.ValueTypeOf: unknown definition kind")
	}
}

// SemanticEq answers structural/identity compatibility: same indirection
// depth and category, and either the same handle or recursively matching
// definitions. Named types compare by handle first, so structural recursion
// only triggers across distinct named types.
func (m Meta) SemanticEq(other Meta, metas *MetaStore) bool {
	if m.IsUntyped() || other.IsUntyped() {
		return m.IsUntyped() && other.IsUntyped()
	}
	if m.Depth != other.Depth || m.Cat != other.Cat {
		return false
	}
	if m.Key == other.Key {
		return true
	}
	return metas.Get(m.Key).SemanticEq(metas.Get(other.Key), m.Cat, metas)
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewMeta interns a definition and returns a plain instance descriptor.
func NewMeta(t MetaType, metas *MetaStore) Meta {
	return Meta{Key: metas.Add(t), Cat: CatInstance}
}

// NewArrayMeta interns an array definition with a fixed size.
func NewArrayMeta(elem Meta, size int, metas *MetaStore) Meta {
	k := metas.Add(MetaType{Kind: KindArrayOrSlice, Elem: elem, Len: size})
	return Meta{Key: k, Cat: CatArrayInstance}
}

// NewSliceMeta interns a slice definition (size zero).
func NewSliceMeta(elem Meta, metas *MetaStore) Meta {
	return NewMeta(MetaType{Kind: KindArrayOrSlice, Elem: elem}, metas)
}

// SliceFromArrayMeta reinterprets an array descriptor as the slice
// descriptor produced by slicing that array.
func SliceFromArrayMeta(array Meta) Meta {
	if array.Cat != CatArrayInstance || array.Depth != 0 {
		panic("SliceFromArrayMeta: not an array descriptor")
	}
	return Meta{Key: array.Key, Cat: CatInstance}
}

// NewMapMeta interns a map definition.
func NewMapMeta(key, elem Meta, metas *MetaStore) Meta {
	return NewMeta(MetaType{Kind: KindMap, Key: key, Elem: elem}, metas)
}

// NewInterfaceMeta interns an interface definition.
func NewInterfaceMeta(fields *Fields, metas *MetaStore) Meta {
	return NewMeta(MetaType{Kind: KindInterface, Fields: fields}, metas)
}

// NewChannelMeta interns a channel definition.
func NewChannelMeta(dir ChanDir, elem Meta, metas *MetaStore) Meta {
	return NewMeta(MetaType{Kind: KindChannel, Dir: dir, Elem: elem}, metas)
}

// NewStructMeta interns a struct definition together with its cached
// zero-instance template.
func NewStructMeta(fields *Fields, objs *Objects, gcv *GcObjs) Meta {
	zeros := make([]Value, len(fields.List))
	for i, fm := range fields.List {
		zeros[i] = fm.ZeroValue(objs.Metas, gcv)
	}
	// The template's own descriptor is patched in after interning, since
	// the handle does not exist until then.
	stru := NewStruct(StructObj{Meta: MetaUntyped, Fields: zeros}, gcv)
	k := objs.Metas.Add(MetaType{Kind: KindStruct, Fields: fields, Zero: stru})
	m := Meta{Key: k, Cat: CatInstance}
	stru.Struct().Obj.Meta = m
	return m
}

// NewSignatureMeta interns a function signature definition.
func NewSignatureMeta(recv *Meta, params, results []Meta, variadic *VariadicMeta, metas *MetaStore) Meta {
	ptypes := make([]ValueType, len(params))
	for i, p := range params {
		ptypes[i] = p.ValueTypeOf(metas)
	}
	sig := &SigMeta{
		Recv:       recv,
		Params:     params,
		Results:    results,
		Variadic:   variadic,
		ParamTypes: ptypes,
	}
	return NewMeta(MetaType{Kind: KindSignature, Sig: sig}, metas)
}

// NewNamedMeta interns a named type over an underlying type. The underlying
// type is never itself named.
func NewNamedMeta(underlying Meta, metas *MetaStore) Meta {
	if !underlying.IsUntyped() && underlying.Depth == 0 &&
		metas.Get(underlying.Key).Kind == KindNamed {
		panic("NewNamedMeta: underlying type is named")
	}
	return NewMeta(MetaType{Kind: KindNamed, Methods: NewMethods(), Under: underlying}, metas)
}

// ---------------------------------------------------------------------------
// Zero and default values
// ---------------------------------------------------------------------------

// ZeroValue materializes a fresh zero value of the described type. A zero
// slice or map is nil; see DefaultValue for the empty-but-non-nil forms.
func (m Meta) ZeroValue(metas *MetaStore, gcv *GcObjs) Value {
	if m.IsUntyped() || m.Depth > 0 {
		return NewNilOf(m)
	}
	t := metas.Get(m.Key)
	switch t.Kind {
	case KindArrayOrSlice:
		switch m.Cat {
		case CatArrayInstance:
			return NewArrayWithSize(t.Len, t.Elem.DefaultValue(metas, gcv), m, gcv)
		case CatInstance:
			return NewNilSlice(m)
		default:
			panic("Meta.ZeroValue: bad array category")
		}
	case KindMap:
		return NewNilMap(m, t.Elem.DefaultValue(metas, gcv))
	default:
		return m.scalarOrBoxedValue(t, metas, gcv)
	}
}

// DefaultValue materializes a fresh "make"-style value: like ZeroValue
// except slices and maps come back empty but non-nil.
func (m Meta) DefaultValue(metas *MetaStore, gcv *GcObjs) Value {
	if m.IsUntyped() || m.Depth > 0 {
		return NewNilOf(m)
	}
	t := metas.Get(m.Key)
	switch t.Kind {
	case KindArrayOrSlice:
		switch m.Cat {
		case CatArrayInstance:
			return NewArrayWithSize(t.Len, t.Elem.DefaultValue(metas, gcv), m, gcv)
		case CatInstance:
			return NewSlice(0, 0, m, Value{}, gcv)
		default:
			panic("Meta.DefaultValue: bad array category")
		}
	case KindMap:
		return NewMap(m, t.Elem.DefaultValue(metas, gcv), gcv)
	default:
		return m.scalarOrBoxedValue(t, metas, gcv)
	}
}

// scalarOrBoxedValue covers the kinds whose zero and default forms agree.
func (m Meta) scalarOrBoxedValue(t *MetaType, metas *MetaStore, gcv *GcObjs) Value {
	switch t.Kind {
	case KindBool:
		return NewBool(false)
	case KindInt:
		return NewInt(0)
	case KindInt8:
		return NewInt8(0)
	case KindInt16:
		return NewInt16(0)
	case KindInt32:
		return NewInt32(0)
	case KindInt64:
		return NewInt64(0)
	case KindUint:
		return NewUint(0)
	case KindUint8:
		return NewUint8(0)
	case KindUint16:
		return NewUint16(0)
	case KindUint32:
		return NewUint32(0)
	case KindUint64:
		return NewUint64(0)
	case KindFloat32:
		return NewFloat32(0)
	case KindFloat64:
		return NewFloat64(0)
	case KindComplex64:
		return NewComplex64(0, 0)
	case KindComplex128:
		return NewComplex128(0)
	case KindStr:
		return t.Str
	case KindStruct:
		return t.Zero.CopySemantic(gcv)
	case KindSignature, KindInterface, KindChannel:
		return NewNilOf(m)
	case KindNamed:
		return NewNamed(t.Under.DefaultValue(metas, gcv), m)
	default:
		panic("Meta.scalarOrBoxedValue: unknown definition kind")
	}
}

// ---------------------------------------------------------------------------
// Method tables and field lookup
// ---------------------------------------------------------------------------

// FieldIndex resolves a struct field name to its slot, looking through one
// level of named indirection on the receiver descriptor.
func (m Meta) FieldIndex(name string, metas *MetaStore) OpIndex {
	key := m.recvKey()
	under := Meta{Key: key, Cat: CatInstance}.Underlying(metas)
	t := metas.Get(under.Key)
	if t.Kind != KindStruct {
		panic("Meta.FieldIndex: receiver is not a struct")
	}
	i, ok := t.Fields.Mapping[name]
	if !ok {
		panic("Meta.FieldIndex: no field " + name)
	}
	return i
}

// AddMethod adds a named type's method slot. The code is attached later by
// SetMethodCode, once the body has been compiled.
func (m Meta) AddMethod(name string, pointerRecv bool, metas *MetaStore) {
	t := metas.Get(m.recvKey())
	if t.Kind != KindNamed {
		panic("Meta.AddMethod: receiver is not a named type")
	}
	t.Methods.Members = append(t.Methods.Members, &MethodDesc{
		PointerRecv: pointerRecv,
		Func:        NilFuncKey,
	})
	t.Methods.Mapping[name] = OpIndex(len(t.Methods.Members) - 1)
}

// SetMethodCode binds a compiled function to a previously added method.
func (m Meta) SetMethodCode(name string, fk FuncKey, metas *MetaStore) {
	t := metas.Get(m.recvKey())
	if t.Kind != KindNamed {
		panic("Meta.SetMethodCode: receiver is not a named type")
	}
	index, ok := t.Methods.Mapping[name]
	if !ok {
		panic("Meta.SetMethodCode: no method " + name)
	}
	t.Methods.Members[index].Func = fk
}

// GetMethod returns the method descriptor at the given slot.
func (m Meta) GetMethod(index OpIndex, metas *MetaStore) *MethodDesc {
	t := metas.Get(m.recvKey())
	if t.Kind != KindNamed {
		panic("Meta.GetMethod: receiver is not a named type")
	}
	return t.Methods.Members[index]
}

// ---------------------------------------------------------------------------
// Fields (struct and interface member lists)
// ---------------------------------------------------------------------------

// Fields is an ordered member list with a name→slot mapping, shared by
// struct and interface definitions.
type Fields struct {
	List    []Meta
	Mapping map[string]OpIndex
}

// NewFields creates a field list.
func NewFields(list []Meta, mapping map[string]OpIndex) *Fields {
	if mapping == nil {
		mapping = make(map[string]OpIndex)
	}
	return &Fields{List: list, Mapping: mapping}
}

// SemanticEq compares two field lists structurally, in order.
func (f *Fields) SemanticEq(other *Fields, metas *MetaStore) bool {
	if len(f.List) != len(other.List) {
		return false
	}
	for i, m := range f.List {
		if !m.SemanticEq(other.List[i], metas) {
			return false
		}
	}
	return true
}

// IfaceNamedMapping builds the ordered slot→method correspondence between
// an interface's method set and a concrete named type's method table.
// Slots the named type does not provide get an empty descriptor.
func (f *Fields) IfaceNamedMapping(named *Methods) []*MethodDesc {
	result := make([]*MethodDesc, len(f.List))
	for i := range result {
		result[i] = &MethodDesc{Func: NilFuncKey}
	}
	for name, i := range f.Mapping {
		if ni, ok := named.Mapping[name]; ok {
			result[i] = named.Members[ni]
		}
	}
	return result
}

// IfaceMethod pairs an interface method slot with its name and signature.
type IfaceMethod struct {
	Name string
	Meta Meta
}

// IfaceMethodsInfo returns the interface's method set in slot order.
func (f *Fields) IfaceMethodsInfo() []IfaceMethod {
	ret := make([]IfaceMethod, len(f.List))
	for i, m := range f.List {
		ret[i].Meta = m
	}
	for name, i := range f.Mapping {
		ret[i].Name = name
	}
	return ret
}

// ---------------------------------------------------------------------------
// Methods (a named type's method table)
// ---------------------------------------------------------------------------

// MethodDesc describes one method slot of a named type. Func stays
// NilFuncKey until SetMethodCode attaches the compiled body.
type MethodDesc struct {
	PointerRecv bool
	Func        FuncKey
}

// Methods is a named type's method table.
type Methods struct {
	Members []*MethodDesc
	Mapping map[string]OpIndex
}

// NewMethods creates an empty method table.
func NewMethods() *Methods {
	return &Methods{Mapping: make(map[string]OpIndex)}
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

// VariadicMeta carries the slice descriptor and element descriptor of a
// variadic tail parameter.
type VariadicMeta struct {
	Slice Meta
	Elem  Meta
}

// SigMeta is a function signature definition. ParamTypes caches the operand
// type tags of the parameters for FFI calls.
type SigMeta struct {
	Recv       *Meta
	Params     []Meta
	Results    []Meta
	Variadic   *VariadicMeta
	ParamTypes []ValueType
}

// PointerRecv reports whether the receiver, if any, is taken by pointer.
func (s *SigMeta) PointerRecv() bool {
	return s.Recv != nil && s.Recv.Depth > 0
}

// SemanticEq compares two signatures structurally.
func (s *SigMeta) SemanticEq(other *SigMeta, metas *MetaStore) bool {
	switch {
	case s.Recv == nil && other.Recv == nil:
	case s.Recv != nil && other.Recv != nil && s.Recv.SemanticEq(*other.Recv, metas):
	default:
		return false
	}
	if len(s.Params) != len(other.Params) || len(s.Results) != len(other.Results) {
		return false
	}
	for i, p := range s.Params {
		if !p.SemanticEq(other.Params[i], metas) {
			return false
		}
	}
	for i, r := range s.Results {
		if !r.SemanticEq(other.Results[i], metas) {
			return false
		}
	}
	switch {
	case s.Variadic == nil && other.Variadic == nil:
		return true
	case s.Variadic != nil && other.Variadic != nil:
		return s.Variadic.Slice.SemanticEq(other.Variadic.Slice, metas)
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// MetaType: the closed definition variant set
// ---------------------------------------------------------------------------

// MetaKind discriminates the definition variants.
type MetaKind uint8

const (
	KindBool MetaKind = iota
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindComplex64
	KindComplex128
	KindStr
	KindArrayOrSlice
	KindStruct
	KindSignature
	KindMap
	KindInterface
	KindChannel
	KindNamed
)

// MetaType is a type definition. Kind selects the variant; only the fields
// of the active variant are meaningful.
type MetaType struct {
	Kind MetaKind

	Str     Value    // KindStr: cached zero ("" ) string value
	Elem    Meta     // KindArrayOrSlice / KindChannel element, KindMap value
	Key     Meta     // KindMap key
	Len     int      // KindArrayOrSlice: fixed size, 0 means slice
	Fields  *Fields  // KindStruct, KindInterface
	Zero    Value    // KindStruct: cached zero-instance template
	Sig     *SigMeta // KindSignature
	Dir     ChanDir  // KindChannel
	Methods *Methods // KindNamed
	Under   Meta     // KindNamed underlying type
}

// AsSignature returns the signature variant. Panics on any other kind.
func (t *MetaType) AsSignature() *SigMeta {
	if t.Kind != KindSignature {
		panic("MetaType.AsSignature: not a signature")
	}
	return t.Sig
}

// AsInterface returns the interface field set. Panics on any other kind.
func (t *MetaType) AsInterface() *Fields {
	if t.Kind != KindInterface {
		panic("MetaType.AsInterface: not an interface")
	}
	return t.Fields
}

// AsStruct returns the struct field set and zero template.
func (t *MetaType) AsStruct() (*Fields, Value) {
	if t.Kind != KindStruct {
		panic("MetaType.AsStruct: not a struct")
	}
	return t.Fields, t.Zero
}

// AsChannel returns the channel direction and element descriptor.
func (t *MetaType) AsChannel() (ChanDir, Meta) {
	if t.Kind != KindChannel {
		panic("MetaType.AsChannel: not a channel")
	}
	return t.Dir, t.Elem
}

// SemanticEq compares two definitions structurally. Array categories also
// compare the fixed size.
func (t *MetaType) SemanticEq(other *MetaType, cat MetaCategory, metas *MetaStore) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindStruct, KindInterface:
		return t.Fields.SemanticEq(other.Fields, metas)
	case KindSignature:
		return t.Sig.SemanticEq(other.Sig, metas)
	case KindArrayOrSlice:
		if cat == CatArrayInstance || cat == CatArrayTypeValue {
			if t.Len != other.Len {
				return false
			}
		}
		return t.Elem.SemanticEq(other.Elem, metas)
	case KindMap:
		return t.Key.SemanticEq(other.Key, metas) && t.Elem.SemanticEq(other.Elem, metas)
	case KindChannel:
		return t.Dir == other.Dir && t.Elem.SemanticEq(other.Elem, metas)
	case KindNamed:
		return t.Under.SemanticEq(other.Under, metas)
	default:
		// Primitive kinds match by kind alone.
		return true
	}
}

// ---------------------------------------------------------------------------
// PrimMeta: prebuilt descriptors for the primitive types
// ---------------------------------------------------------------------------

// PrimMeta holds descriptors for the primitive types, interned once when
// the arena is created.
type PrimMeta struct {
	Bool       Meta
	Int        Meta
	Int8       Meta
	Int16      Meta
	Int32      Meta
	Int64      Meta
	Uint       Meta
	Uint8      Meta
	Uint16     Meta
	Uint32     Meta
	Uint64     Meta
	Float32    Meta
	Float64    Meta
	Complex64  Meta
	Complex128 Meta
	Str        Meta
	UnsafePtr  Meta
	DefaultSig Meta
	EmptyIface Meta
}

func newPrimMeta(metas *MetaStore) PrimMeta {
	return PrimMeta{
		Bool:       NewMeta(MetaType{Kind: KindBool}, metas),
		Int:        NewMeta(MetaType{Kind: KindInt}, metas),
		Int8:       NewMeta(MetaType{Kind: KindInt8}, metas),
		Int16:      NewMeta(MetaType{Kind: KindInt16}, metas),
		Int32:      NewMeta(MetaType{Kind: KindInt32}, metas),
		Int64:      NewMeta(MetaType{Kind: KindInt64}, metas),
		Uint:       NewMeta(MetaType{Kind: KindUint}, metas),
		Uint8:      NewMeta(MetaType{Kind: KindUint8}, metas),
		Uint16:     NewMeta(MetaType{Kind: KindUint16}, metas),
		Uint32:     NewMeta(MetaType{Kind: KindUint32}, metas),
		Uint64:     NewMeta(MetaType{Kind: KindUint64}, metas),
		Float32:    NewMeta(MetaType{Kind: KindFloat32}, metas),
		Float64:    NewMeta(MetaType{Kind: KindFloat64}, metas),
		Complex64:  NewMeta(MetaType{Kind: KindComplex64}, metas),
		Complex128: NewMeta(MetaType{Kind: KindComplex128}, metas),
		Str:        NewMeta(MetaType{Kind: KindStr, Str: NewString("")}, metas),
		UnsafePtr:  NewMeta(MetaType{Kind: KindUint}, metas).Ptr(),
		DefaultSig: NewMeta(MetaType{Kind: KindSignature, Sig: &SigMeta{}}, metas),
		EmptyIface: NewMeta(MetaType{Kind: KindInterface, Fields: NewFields(nil, nil)}, metas),
	}
}

// newPrimMetaFrom rebuilds the primitive descriptor set against a restored
// store, reusing the first matching definition of each kind and interning a
// fresh one only when a program never mentioned that primitive.
func newPrimMetaFrom(metas *MetaStore) PrimMeta {
	find := func(kind MetaKind, pred func(*MetaType) bool) Meta {
		for i := 0; i < metas.Len(); i++ {
			t := metas.Get(MetaKey(i))
			if t.Kind == kind && (pred == nil || pred(t)) {
				return Meta{Key: MetaKey(i), Cat: CatInstance}
			}
		}
		switch kind {
		case KindStr:
			return NewMeta(MetaType{Kind: KindStr, Str: NewString("")}, metas)
		case KindSignature:
			return NewMeta(MetaType{Kind: KindSignature, Sig: &SigMeta{}}, metas)
		case KindInterface:
			return NewMeta(MetaType{Kind: KindInterface, Fields: NewFields(nil, nil)}, metas)
		default:
			return NewMeta(MetaType{Kind: kind}, metas)
		}
	}
	emptySig := func(t *MetaType) bool {
		return t.Sig != nil && t.Sig.Recv == nil && len(t.Sig.Params) == 0 &&
			len(t.Sig.Results) == 0 && t.Sig.Variadic == nil
	}
	emptyIface := func(t *MetaType) bool {
		return t.Fields != nil && len(t.Fields.List) == 0
	}
	return PrimMeta{
		Bool:       find(KindBool, nil),
		Int:        find(KindInt, nil),
		Int8:       find(KindInt8, nil),
		Int16:      find(KindInt16, nil),
		Int32:      find(KindInt32, nil),
		Int64:      find(KindInt64, nil),
		Uint:       find(KindUint, nil),
		Uint8:      find(KindUint8, nil),
		Uint16:     find(KindUint16, nil),
		Uint32:     find(KindUint32, nil),
		Uint64:     find(KindUint64, nil),
		Float32:    find(KindFloat32, nil),
		Float64:    find(KindFloat64, nil),
		Complex64:  find(KindComplex64, nil),
		Complex128: find(KindComplex128, nil),
		Str:        find(KindStr, nil),
		UnsafePtr:  find(KindUint, nil).Ptr(),
		DefaultSig: find(KindSignature, emptySig),
		EmptyIface: find(KindInterface, emptyIface),
	}
}
