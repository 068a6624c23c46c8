package vm

import "strings"

// mapEntry is one key/value pair. Entries with colliding key hashes chain
// in the same bucket and are told apart with Value.Equal.
type mapEntry struct {
	key Value
	val Value
}

// mapCell is a map's shared storage. Values are not comparable in Go terms
// (a key can be a struct of runtime values), so buckets hang off the key's
// own hash instead of using the key directly.
type mapCell struct {
	buckets map[uint64][]mapEntry
	count   int
}

// MapObj is a map header: the shared storage plus the element type's
// default value, which lookups of missing keys hand back. A nil map has no
// storage at all; reads work, writes are fatal.
type MapObj struct {
	Meta Meta
	Dflt Value
	data *mapCell
}

// MapRc is the shared, reference-counted cell for a map header.
type MapRc struct {
	Obj MapObj
	RC  RCount
}

// NewMap creates an empty, allocated map value.
func NewMap(meta Meta, dflt Value, gcv *GcObjs) Value {
	return newMapRcValue(MapObj{
		Meta: meta,
		Dflt: dflt,
		data: &mapCell{buckets: make(map[uint64][]mapEntry)},
	}, gcv)
}

// NewNilMap creates the nil map of the given type. Lookups return the
// default value; inserts are fatal.
func NewNilMap(meta Meta, dflt Value) Value {
	rc := &MapRc{Obj: MapObj{Meta: meta, Dflt: dflt}}
	return Value{t: TypeMap, obj: rc}
}

func newMapRcValue(obj MapObj, gcv *GcObjs) Value {
	rc := &MapRc{Obj: obj}
	if gcv != nil {
		gcTrack(gcv, rc)
	}
	return Value{t: TypeMap, obj: rc}
}

// IsNil reports whether the map has no storage.
func (o *MapObj) IsNil() bool {
	return o.data == nil
}

// Len returns the number of entries; zero for a nil map.
func (o *MapObj) Len() int {
	if o.data == nil {
		return 0
	}
	return o.data.count
}

// Get returns the value stored under key, or the element type's default if
// the key is absent. The map itself is never modified; see TouchKey for the
// materializing form.
func (o *MapObj) Get(key Value) Value {
	if v, ok := o.TryGet(key); ok {
		return v
	}
	return o.Dflt
}

// TryGet returns the value stored under key and whether it was present.
func (o *MapObj) TryGet(key Value) (Value, bool) {
	if o.data == nil {
		return o.Dflt, false
	}
	for _, e := range o.data.buckets[key.Hash()] {
		if e.key.Equal(key) {
			return e.val, true
		}
	}
	return o.Dflt, false
}

// TouchKey materializes the default value under key if the key is absent.
// Index-assignments into composite elements need the slot to exist before
// the store lands.
func (o *MapObj) TouchKey(key Value, gcv *GcObjs) {
	if _, ok := o.TryGet(key); !ok {
		o.Insert(key, o.Dflt.CopySemantic(gcv))
	}
}

// Insert stores val under key, replacing any existing entry.
func (o *MapObj) Insert(key, val Value) {
	if o.data == nil {
		panic("MapObj.Insert: assignment to entry in nil map")
	}
	h := key.Hash()
	bucket := o.data.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(key) {
			bucket[i].val = val
			return
		}
	}
	o.data.buckets[h] = append(bucket, mapEntry{key: key, val: val})
	o.data.count++
}

// Delete removes key's entry if present.
func (o *MapObj) Delete(key Value) {
	if o.data == nil {
		return
	}
	h := key.Hash()
	bucket := o.data.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(key) {
			o.data.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			o.data.count--
			if len(o.data.buckets[h]) == 0 {
				delete(o.data.buckets, h)
			}
			return
		}
	}
}

// Range calls fn for each entry; fn returning false stops the walk.
// Iteration order is unspecified.
func (o *MapObj) Range(fn func(key, val Value) bool) {
	if o.data == nil {
		return
	}
	for _, bucket := range o.data.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.val) {
				return
			}
		}
	}
}

// headerClone copies the map header; the storage stays shared.
func (o *MapObj) headerClone() MapObj {
	return *o
}

// DeepClone copies the map into independent storage with deep-cloned keys
// and values. A nil map clones to a nil map.
func (o *MapObj) DeepClone(gcv *GcObjs) MapObj {
	out := MapObj{Meta: o.Meta, Dflt: o.Dflt.DeepClone(gcv)}
	if o.data == nil {
		return out
	}
	out.data = &mapCell{buckets: make(map[uint64][]mapEntry, len(o.data.buckets)), count: o.data.count}
	for h, bucket := range o.data.buckets {
		nb := make([]mapEntry, len(bucket))
		for i, e := range bucket {
			nb[i] = mapEntry{key: e.key.DeepClone(gcv), val: e.val.DeepClone(gcv)}
		}
		out.data.buckets[h] = nb
	}
	return out
}

func (o *MapObj) String() string {
	var b strings.Builder
	b.WriteString("map[")
	first := true
	o.Range(func(key, val Value) bool {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(key.String())
		b.WriteByte(':')
		b.WriteString(val.String())
		return true
	})
	b.WriteByte(']')
	return b.String()
}

func (m *MapRc) rc() *RCount { return &m.RC }

func (m *MapRc) children(visit func(Value)) {
	visit(m.Obj.Dflt)
	m.Obj.Range(func(key, val Value) bool {
		visit(key)
		visit(val)
		return true
	})
}

func (m *MapRc) breakCycle() {
	m.Obj.data = nil
	m.Obj.Dflt = Value{}
}
