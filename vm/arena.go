package vm

// ---------------------------------------------------------------------------
// Arena object store: handle-indexed collections for type definitions,
// compiled functions and packages
// ---------------------------------------------------------------------------

// MetaKey is a handle into the type-definition store.
type MetaKey int32

// FuncKey is a handle into the compiled-function store.
type FuncKey int32

// PkgKey is a handle into the package store.
type PkgKey int32

// Null handles. A null handle never resolves.
const (
	NilMetaKey MetaKey = -1
	NilFuncKey FuncKey = -1
	NilPkgKey  PkgKey  = -1
)

// KeyToUint64 widens an arena handle so it can ride in a raw instruction
// word following its instruction.
func KeyToUint64[K ~int32](key K) uint64 {
	return uint64(uint32(key))
}

// KeyFromUint64 recovers an arena handle from a raw instruction word.
func KeyFromUint64[K ~int32](u uint64) K {
	return K(int32(uint32(u)))
}

// MetaStore is an append-only store of type definitions. Handles are dense
// indices and are never invalidated once issued.
type MetaStore struct {
	defs []MetaType
}

// NewMetaStore creates a store with the given initial capacity.
func NewMetaStore(capacity int) *MetaStore {
	return &MetaStore{defs: make([]MetaType, 0, capacity)}
}

// Add interns a type definition and returns its handle.
func (s *MetaStore) Add(t MetaType) MetaKey {
	s.defs = append(s.defs, t)
	return MetaKey(len(s.defs) - 1)
}

// Get returns the definition for a handle. The pointer stays valid for the
// process lifetime; definitions are mutated only by method-table operations
// during the compile phase.
func (s *MetaStore) Get(k MetaKey) *MetaType {
	return &s.defs[k]
}

// Len returns the number of interned definitions.
func (s *MetaStore) Len() int {
	return len(s.defs)
}

// FuncStore is an append-only store of compiled functions.
type FuncStore struct {
	funcs []*FuncVal
}

// NewFuncStore creates a store with the given initial capacity.
func NewFuncStore(capacity int) *FuncStore {
	return &FuncStore{funcs: make([]*FuncVal, 0, capacity)}
}

// Add appends a function and returns its handle.
func (s *FuncStore) Add(f *FuncVal) FuncKey {
	s.funcs = append(s.funcs, f)
	return FuncKey(len(s.funcs) - 1)
}

// Get returns the function for a handle.
func (s *FuncStore) Get(k FuncKey) *FuncVal {
	return s.funcs[k]
}

// Len returns the number of stored functions.
func (s *FuncStore) Len() int {
	return len(s.funcs)
}

// PkgStore is an append-only store of packages.
type PkgStore struct {
	pkgs []*PkgVal
}

// NewPkgStore creates a store with the given initial capacity.
func NewPkgStore(capacity int) *PkgStore {
	return &PkgStore{pkgs: make([]*PkgVal, 0, capacity)}
}

// Add appends a package and returns its handle.
func (s *PkgStore) Add(p *PkgVal) PkgKey {
	s.pkgs = append(s.pkgs, p)
	return PkgKey(len(s.pkgs) - 1)
}

// Get returns the package for a handle.
func (s *PkgStore) Get(k PkgKey) *PkgVal {
	return s.pkgs[k]
}

// Len returns the number of stored packages.
func (s *PkgStore) Len() int {
	return len(s.pkgs)
}

// Objects bundles the three arena stores plus the prebuilt primitive
// metadata. It is populated entirely during the single-threaded compile
// phase, so execution-time reads need no synchronization.
type Objects struct {
	Metas *MetaStore
	Funcs *FuncStore
	Pkgs  *PkgStore
	Prim  PrimMeta
}

// NewObjects creates the arena stores with default tuning.
func NewObjects() *Objects {
	return NewObjectsWith(DefaultConfig())
}

// NewObjectsWith creates the arena stores with explicit tuning.
func NewObjectsWith(cfg Config) *Objects {
	metas := NewMetaStore(cfg.ArenaCapacity())
	return &Objects{
		Metas: metas,
		Funcs: NewFuncStore(cfg.ArenaCapacity()),
		Pkgs:  NewPkgStore(cfg.ArenaCapacity()),
		Prim:  newPrimMeta(metas),
	}
}
