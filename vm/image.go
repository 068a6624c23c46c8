package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Image: serialized compiled-program snapshot
// ---------------------------------------------------------------------------

// ImageMagic identifies an Oriole bytecode image.
var ImageMagic = [4]byte{'O', 'R', 'B', 'C'}

// ImageVersion is the current image format version.
const ImageVersion uint16 = 1

const imageHeaderSize = 4 + 2 + 16 // magic + version + build id

var (
	ErrInvalidMagic       = errors.New("invalid magic number: expected ORBC")
	ErrUnsupportedVersion = errors.New("unsupported image version")
	ErrTruncatedImage     = errors.New("image truncated")
)

// Canonical encoding keeps image bytes deterministic, so identical programs
// produce identical images.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborEncMode = em
}

// Image is a compiled program in portable form: every type definition,
// function and package from the arena stores, plus the entry point. BuildID
// is assigned at build time and survives round trips.
type Image struct {
	BuildID   uuid.UUID      `cbor:"build_id"`
	Metas     []wireMetaType `cbor:"metas"`
	Funcs     []wireFunc     `cbor:"funcs"`
	Pkgs      []wirePkg      `cbor:"pkgs"`
	EntryPkg  int32          `cbor:"entry_pkg"`
	EntryFunc int32          `cbor:"entry_func"`
}

// ---------------------------------------------------------------------------
// Wire forms
// ---------------------------------------------------------------------------

type wireMeta struct {
	Key   int32 `cbor:"k"`
	Depth uint8 `cbor:"d"`
	Cat   uint8 `cbor:"c"`
}

func metaToWire(m Meta) wireMeta {
	return wireMeta{Key: int32(m.Key), Depth: m.Depth, Cat: uint8(m.Cat)}
}

func metaFromWire(w wireMeta) Meta {
	return Meta{Key: MetaKey(w.Key), Depth: w.Depth, Cat: MetaCategory(w.Cat)}
}

// wireValue carries the constant-pool value kinds: scalars, strings, typed
// nils, type values, function and package references, and composites built
// of those. Channels, pointers, maps and live closures have no portable
// form and fail the build.
type wireValue struct {
	Kind  uint8       `cbor:"t"`
	Bits  uint64      `cbor:"b,omitempty"`
	Bits2 uint64      `cbor:"b2,omitempty"`
	Str   string      `cbor:"s,omitempty"`
	Meta  wireMeta    `cbor:"m,omitempty"`
	Elems []wireValue `cbor:"e,omitempty"`
}

func valueToWire(v Value) (wireValue, error) {
	switch v.Type() {
	case TypeBool, TypeInt, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint, TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeUintPtr,
		TypeFloat32, TypeFloat64, TypeComplex64, TypeComplex128,
		TypeFunction, TypePackage:
		return wireValue{Kind: uint8(v.t), Bits: v.bits, Bits2: v.bits2}, nil
	case TypeStr:
		return wireValue{Kind: uint8(TypeStr), Str: v.Str().Str()}, nil
	case TypeNil, TypeMetadata:
		return wireValue{Kind: uint8(v.t), Meta: metaToWire(v.meta)}, nil
	case TypeStruct:
		obj := &v.Struct().Obj
		elems, err := valuesToWire(obj.Fields)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: uint8(TypeStruct), Meta: metaToWire(obj.Meta), Elems: elems}, nil
	case TypeArray:
		obj := &v.Array().Obj
		elems, err := valuesToWire(obj.Elems)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: uint8(TypeArray), Meta: metaToWire(obj.Meta), Elems: elems}, nil
	case TypeSlice:
		rc := v.Slice()
		if rc == nil {
			// Bits 1 marks the nil slice; elements of a live slice can be
			// empty too, so absence of elems cannot carry it.
			return wireValue{Kind: uint8(TypeSlice), Bits: 1, Meta: metaToWire(v.meta)}, nil
		}
		obj := &rc.Obj
		elems := make([]wireValue, 0, obj.Len())
		var werr error
		obj.Range(func(_ int, e Value) bool {
			w, err := valueToWire(e)
			if err != nil {
				werr = err
				return false
			}
			elems = append(elems, w)
			return true
		})
		if werr != nil {
			return wireValue{}, werr
		}
		return wireValue{Kind: uint8(TypeSlice), Meta: metaToWire(obj.Meta), Elems: elems}, nil
	case TypeNamed:
		n := v.Named()
		inner, err := valueToWire(n.V)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: uint8(TypeNamed), Meta: metaToWire(n.Meta), Elems: []wireValue{inner}}, nil
	case TypeClosure:
		obj := &v.Closure().Obj
		if obj.IsFfi() || len(obj.UpValues) > 0 || obj.Recv != nil {
			return wireValue{}, fmt.Errorf("cannot serialize closure with captured state")
		}
		return wireValue{Kind: uint8(TypeClosure), Bits: uint64(uint32(obj.Func)), Meta: metaToWire(obj.Meta)}, nil
	default:
		return wireValue{}, fmt.Errorf("cannot serialize %s value", v.Type())
	}
}

func valuesToWire(vals []Value) ([]wireValue, error) {
	out := make([]wireValue, len(vals))
	for i, v := range vals {
		w, err := valueToWire(v)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func valueFromWire(w wireValue, gcv *GcObjs) (Value, error) {
	kind := ValueType(w.Kind)
	switch kind {
	case TypeBool, TypeInt, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint, TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeUintPtr,
		TypeFloat32, TypeFloat64, TypeComplex64, TypeComplex128,
		TypeFunction, TypePackage:
		return Value{t: kind, bits: w.Bits, bits2: w.Bits2}, nil
	case TypeStr:
		return NewString(w.Str), nil
	case TypeNil:
		return NewNilOf(metaFromWire(w.Meta)), nil
	case TypeMetadata:
		return NewMetaValue(metaFromWire(w.Meta)), nil
	case TypeStruct:
		fields, err := valuesFromWire(w.Elems, gcv)
		if err != nil {
			return Value{}, err
		}
		return NewStruct(StructObj{Meta: metaFromWire(w.Meta), Fields: fields}, gcv), nil
	case TypeArray:
		elems, err := valuesFromWire(w.Elems, gcv)
		if err != nil {
			return Value{}, err
		}
		return NewArrayWithData(elems, metaFromWire(w.Meta), gcv), nil
	case TypeSlice:
		if w.Bits == 1 {
			return NewNilSlice(metaFromWire(w.Meta)), nil
		}
		elems, err := valuesFromWire(w.Elems, gcv)
		if err != nil {
			return Value{}, err
		}
		return NewSliceWithData(elems, metaFromWire(w.Meta), gcv), nil
	case TypeNamed:
		if len(w.Elems) != 1 {
			return Value{}, fmt.Errorf("malformed named value")
		}
		inner, err := valueFromWire(w.Elems[0], gcv)
		if err != nil {
			return Value{}, err
		}
		return NewNamed(inner, metaFromWire(w.Meta)), nil
	case TypeClosure:
		return NewClosure(FuncKey(int32(uint32(w.Bits))), nil, nil, metaFromWire(w.Meta), gcv), nil
	default:
		return Value{}, fmt.Errorf("cannot deserialize value kind %d", w.Kind)
	}
}

func valuesFromWire(ws []wireValue, gcv *GcObjs) ([]Value, error) {
	out := make([]Value, len(ws))
	for i, w := range ws {
		v, err := valueFromWire(w, gcv)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type wireFields struct {
	List    []wireMeta       `cbor:"l"`
	Mapping map[string]int32 `cbor:"m"`
}

func fieldsToWire(f *Fields) *wireFields {
	if f == nil {
		return nil
	}
	list := make([]wireMeta, len(f.List))
	for i, m := range f.List {
		list[i] = metaToWire(m)
	}
	mapping := make(map[string]int32, len(f.Mapping))
	for k, v := range f.Mapping {
		mapping[k] = int32(v)
	}
	return &wireFields{List: list, Mapping: mapping}
}

func fieldsFromWire(w *wireFields) *Fields {
	if w == nil {
		return nil
	}
	list := make([]Meta, len(w.List))
	for i, m := range w.List {
		list[i] = metaFromWire(m)
	}
	mapping := make(map[string]OpIndex, len(w.Mapping))
	for k, v := range w.Mapping {
		mapping[k] = OpIndex(v)
	}
	return NewFields(list, mapping)
}

type wireMethod struct {
	Name    string `cbor:"n"`
	PtrRecv bool   `cbor:"p"`
	Func    int32  `cbor:"f"`
}

type wireSig struct {
	Recv     *wireMeta  `cbor:"r,omitempty"`
	Params   []wireMeta `cbor:"p"`
	Results  []wireMeta `cbor:"o"`
	Variadic []wireMeta `cbor:"v,omitempty"` // slice meta, elem meta
}

type wireMetaType struct {
	Kind    MetaKind     `cbor:"k"`
	Elem    wireMeta     `cbor:"e,omitempty"`
	Key     wireMeta     `cbor:"y,omitempty"`
	Len     int          `cbor:"n,omitempty"`
	Fields  *wireFields  `cbor:"f,omitempty"`
	Sig     *wireSig     `cbor:"s,omitempty"`
	Dir     ChanDir      `cbor:"d,omitempty"`
	Methods []wireMethod `cbor:"t,omitempty"`
	Under   wireMeta     `cbor:"u,omitempty"`
}

type wireValueDesc struct {
	Func      int32 `cbor:"f"`
	Index     int32 `cbor:"i"`
	Typ       uint8 `cbor:"t"`
	IsUpValue bool  `cbor:"u"`
}

type wireFunc struct {
	Pkg        int32           `cbor:"p"`
	Meta       wireMeta        `cbor:"m"`
	Code       []uint64        `cbor:"c"`
	Pos        []int32         `cbor:"o"`
	Consts     []wireValue     `cbor:"n"`
	UpPtrs     []wireValueDesc `cbor:"u"`
	LocalZeros []wireValue     `cbor:"l"`
	LocalCount int32           `cbor:"a"`
	Flag       FuncFlag        `cbor:"g"`
}

type wirePkg struct {
	Name    string           `cbor:"n"`
	Members []wireValue      `cbor:"m"`
	Indices map[string]int32 `cbor:"i"`
}

// ---------------------------------------------------------------------------
// Build, encode, decode, restore
// ---------------------------------------------------------------------------

// BuildImage snapshots the arena stores into a portable image with a fresh
// build ID.
func BuildImage(objs *Objects, entryPkg PkgKey, entryFunc FuncKey) (*Image, error) {
	im := &Image{
		BuildID:   uuid.New(),
		EntryPkg:  int32(entryPkg),
		EntryFunc: int32(entryFunc),
	}

	for i := 0; i < objs.Metas.Len(); i++ {
		t := objs.Metas.Get(MetaKey(i))
		wt := wireMetaType{
			Kind:  t.Kind,
			Elem:  metaToWire(t.Elem),
			Key:   metaToWire(t.Key),
			Len:   t.Len,
			Dir:   t.Dir,
			Under: metaToWire(t.Under),
		}
		wt.Fields = fieldsToWire(t.Fields)
		if t.Sig != nil {
			ws := &wireSig{}
			if t.Sig.Recv != nil {
				r := metaToWire(*t.Sig.Recv)
				ws.Recv = &r
			}
			for _, p := range t.Sig.Params {
				ws.Params = append(ws.Params, metaToWire(p))
			}
			for _, r := range t.Sig.Results {
				ws.Results = append(ws.Results, metaToWire(r))
			}
			if t.Sig.Variadic != nil {
				ws.Variadic = []wireMeta{metaToWire(t.Sig.Variadic.Slice), metaToWire(t.Sig.Variadic.Elem)}
			}
			wt.Sig = ws
		}
		if t.Methods != nil {
			wt.Methods = make([]wireMethod, len(t.Methods.Members))
			for name, mi := range t.Methods.Mapping {
				d := t.Methods.Members[mi]
				wt.Methods[mi] = wireMethod{Name: name, PtrRecv: d.PointerRecv, Func: int32(d.Func)}
			}
		}
		im.Metas = append(im.Metas, wt)
	}

	for i := 0; i < objs.Funcs.Len(); i++ {
		f := objs.Funcs.Get(FuncKey(i))
		wf := wireFunc{
			Pkg:        int32(f.Pkg),
			Meta:       metaToWire(f.Meta),
			LocalCount: int32(f.LocalCount()),
			Flag:       f.Flag,
		}
		for _, inst := range f.Code {
			wf.Code = append(wf.Code, uint64(inst))
		}
		wf.Pos = append(wf.Pos, f.pos...)
		consts, err := valuesToWire(f.Consts)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		wf.Consts = consts
		zeros, err := valuesToWire(f.LocalZeros)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		wf.LocalZeros = zeros
		for _, d := range f.UpPtrs {
			wf.UpPtrs = append(wf.UpPtrs, wireValueDesc{
				Func:      int32(d.Func),
				Index:     int32(d.Index),
				Typ:       uint8(d.Typ),
				IsUpValue: d.IsUpValue,
			})
		}
		im.Funcs = append(im.Funcs, wf)
	}

	for i := 0; i < objs.Pkgs.Len(); i++ {
		p := objs.Pkgs.Get(PkgKey(i))
		members, err := valuesToWire(p.members)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", p.name, err)
		}
		indices := make(map[string]int32, len(p.indices))
		for k, v := range p.indices {
			indices[k] = int32(v)
		}
		im.Pkgs = append(im.Pkgs, wirePkg{Name: p.name, Members: members, Indices: indices})
	}

	return im, nil
}

// Encode renders the image as bytes: a fixed binary header followed by a
// canonical CBOR payload.
func (im *Image) Encode() ([]byte, error) {
	payload, err := cborEncMode.Marshal(im)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, imageHeaderSize+len(payload))
	out = append(out, ImageMagic[:]...)
	out = binary.BigEndian.AppendUint16(out, ImageVersion)
	out = append(out, im.BuildID[:]...)
	return append(out, payload...), nil
}

// DecodeImage parses image bytes produced by Encode.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) < imageHeaderSize {
		return nil, ErrTruncatedImage
	}
	if string(data[:4]) != string(ImageMagic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version != ImageVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	var im Image
	if err := cbor.Unmarshal(data[imageHeaderSize:], &im); err != nil {
		return nil, fmt.Errorf("image payload: %w", err)
	}
	var headerID uuid.UUID
	copy(headerID[:], data[6:22])
	if headerID != im.BuildID {
		return nil, fmt.Errorf("header build id %s does not match payload %s", headerID, im.BuildID)
	}
	return &im, nil
}

// Restore rebuilds arena stores from the image. Arena handles are dense
// indices assigned in order, so re-adding in image order reproduces every
// key the code words refer to.
func (im *Image) Restore(gcv *GcObjs) (*Objects, PkgKey, FuncKey, error) {
	metas := NewMetaStore(len(im.Metas))
	for _, wt := range im.Metas {
		t := MetaType{
			Kind:  wt.Kind,
			Elem:  metaFromWire(wt.Elem),
			Key:   metaFromWire(wt.Key),
			Len:   wt.Len,
			Dir:   wt.Dir,
			Under: metaFromWire(wt.Under),
		}
		if wt.Kind == KindStr {
			t.Str = NewString("")
		}
		t.Fields = fieldsFromWire(wt.Fields)
		if wt.Sig != nil {
			sig := &SigMeta{}
			if wt.Sig.Recv != nil {
				r := metaFromWire(*wt.Sig.Recv)
				sig.Recv = &r
			}
			for _, p := range wt.Sig.Params {
				sig.Params = append(sig.Params, metaFromWire(p))
			}
			for _, r := range wt.Sig.Results {
				sig.Results = append(sig.Results, metaFromWire(r))
			}
			if len(wt.Sig.Variadic) == 2 {
				sig.Variadic = &VariadicMeta{
					Slice: metaFromWire(wt.Sig.Variadic[0]),
					Elem:  metaFromWire(wt.Sig.Variadic[1]),
				}
			}
			t.Sig = sig
		}
		if wt.Methods != nil {
			ms := NewMethods()
			for mi, wm := range wt.Methods {
				ms.Members = append(ms.Members, &MethodDesc{PointerRecv: wm.PtrRecv, Func: FuncKey(wm.Func)})
				ms.Mapping[wm.Name] = OpIndex(mi)
			}
			t.Methods = ms
		}
		metas.Add(t)
	}

	// Signature param-type caches and struct zero templates are derived
	// state; rebuild them now that every definition is in place. Value
	// recursion in struct types is impossible (only pointer recursion is),
	// so a depth-first rebuild terminates.
	zeroDone := make([]bool, metas.Len())
	var ensureZero func(k MetaKey)
	ensureZero = func(k MetaKey) {
		if zeroDone[k] {
			return
		}
		zeroDone[k] = true
		t := metas.Get(k)
		switch t.Kind {
		case KindStruct:
			zeros := make([]Value, len(t.Fields.List))
			for i, fm := range t.Fields.List {
				if fm.Depth == 0 {
					ensureZero(fm.Key)
				}
				zeros[i] = fm.ZeroValue(metas, gcv)
			}
			t.Zero = NewStruct(StructObj{
				Meta:   Meta{Key: k, Cat: CatInstance},
				Fields: zeros,
			}, gcv)
		case KindSignature:
			t.Sig.ParamTypes = t.Sig.ParamTypes[:0]
			for _, p := range t.Sig.Params {
				t.Sig.ParamTypes = append(t.Sig.ParamTypes, p.ValueTypeOf(metas))
			}
		case KindArrayOrSlice, KindMap, KindChannel, KindNamed:
			if t.Elem.Depth == 0 && t.Elem.Key != NilMetaKey {
				ensureZero(t.Elem.Key)
			}
		}
	}
	for i := 0; i < metas.Len(); i++ {
		ensureZero(MetaKey(i))
	}

	objs := &Objects{
		Metas: metas,
		Funcs: NewFuncStore(len(im.Funcs)),
		Pkgs:  NewPkgStore(len(im.Pkgs)),
		Prim:  newPrimMetaFrom(metas),
	}

	for i, wf := range im.Funcs {
		f := NewFuncVal(PkgKey(wf.Pkg), metaFromWire(wf.Meta), objs, wf.Flag == FuncFlagPkgCtor)
		f.Flag = wf.Flag
		for _, w := range wf.Code {
			f.Code = append(f.Code, InstructionFromUint64(w))
		}
		f.pos = append(f.pos, wf.Pos...)
		consts, err := valuesFromWire(wf.Consts, gcv)
		if err != nil {
			return nil, NilPkgKey, NilFuncKey, fmt.Errorf("function %d: %w", i, err)
		}
		f.Consts = consts
		zeros, err := valuesFromWire(wf.LocalZeros, gcv)
		if err != nil {
			return nil, NilPkgKey, NilFuncKey, fmt.Errorf("function %d: %w", i, err)
		}
		f.LocalZeros = zeros
		f.localAlloc = OpIndex(wf.LocalCount)
		for _, d := range wf.UpPtrs {
			f.UpPtrs = append(f.UpPtrs, ValueDesc{
				Func:      FuncKey(d.Func),
				Index:     OpIndex(d.Index),
				Typ:       ValueType(d.Typ),
				IsUpValue: d.IsUpValue,
			})
		}
		objs.Funcs.Add(f)
	}

	for _, wp := range im.Pkgs {
		p := NewPkgVal(wp.Name)
		members, err := valuesFromWire(wp.Members, gcv)
		if err != nil {
			return nil, NilPkgKey, NilFuncKey, fmt.Errorf("package %s: %w", wp.Name, err)
		}
		p.members = members
		for k, v := range wp.Indices {
			p.indices[k] = OpIndex(v)
		}
		objs.Pkgs.Add(p)
	}

	return objs, PkgKey(im.EntryPkg), FuncKey(im.EntryFunc), nil
}
