package vm

import "strings"

// StructObj is a sequence of field values plus the struct type descriptor
// (field names and methods resolve through the descriptor, not the value).
type StructObj struct {
	Meta   Meta
	Fields []Value
}

// StructRc is the shared, reference-counted cell for a struct allocation.
// Struct assignment copies deep, so sharing only happens through pointers.
type StructRc struct {
	Obj StructObj
	RC  RCount
}

// NewStruct creates a struct value over the given object.
func NewStruct(obj StructObj, gcv *GcObjs) Value {
	rc := &StructRc{Obj: obj}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeStruct, obj: rc}
}

// Field returns the field at index i.
func (o *StructObj) Field(i int) Value {
	if i < 0 || i >= len(o.Fields) {
		panic("StructObj.Field: index out of range")
	}
	return o.Fields[i]
}

// SetField stores v at field index i.
func (o *StructObj) SetField(i int, v Value) {
	if i < 0 || i >= len(o.Fields) {
		panic("StructObj.SetField: index out of range")
	}
	o.Fields[i] = v
}

// Equal compares two structs fieldwise.
func (o *StructObj) Equal(other *StructObj) bool {
	if len(o.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range o.Fields {
		if !f.Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

func (o *StructObj) hash(h uint64) uint64 {
	for _, f := range o.Fields {
		h = fnvMix(h, f.Hash())
	}
	return h
}

// DeepClone copies the struct with fully independent fields.
func (o *StructObj) DeepClone(gcv *GcObjs) StructObj {
	fields := make([]Value, len(o.Fields))
	for i, f := range o.Fields {
		fields[i] = f.DeepClone(gcv)
	}
	return StructObj{Meta: o.Meta, Fields: fields}
}

func (o *StructObj) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (s *StructRc) rc() *RCount { return &s.RC }

func (s *StructRc) children(visit func(Value)) {
	for _, f := range s.Obj.Fields {
		visit(f)
	}
}

func (s *StructRc) breakCycle() {
	s.Obj.Fields = nil
}
