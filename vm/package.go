package vm

// PkgVal is a package at runtime: a flat member table addressed by index,
// with names resolved to indices at compile time. During initialization a
// var mapping translates declaration-order variable indices onto member
// slots; SetInited discards it, and the transition is one-way.
type PkgVal struct {
	name    string
	members []Value
	indices map[string]OpIndex

	varMapping map[OpIndex]OpIndex // nil once initialized
}

// NewPkgVal creates an empty, uninitialized package.
func NewPkgVal(name string) *PkgVal {
	return &PkgVal{
		name:       name,
		indices:    make(map[string]OpIndex),
		varMapping: make(map[OpIndex]OpIndex),
	}
}

// Name returns the package name.
func (p *PkgVal) Name() string {
	return p.name
}

// AddMember appends a member and returns its slot index.
func (p *PkgVal) AddMember(name string, v Value) OpIndex {
	idx := OpIndex(len(p.members))
	p.members = append(p.members, v)
	p.indices[name] = idx
	return idx
}

// MemberIndex resolves a member name to its slot index.
func (p *PkgVal) MemberIndex(name string) (OpIndex, bool) {
	idx, ok := p.indices[name]
	return idx, ok
}

// Member returns the member at slot i.
func (p *PkgVal) Member(i OpIndex) Value {
	if int(i) < 0 || int(i) >= len(p.members) {
		panic("PkgVal.Member: index out of range")
	}
	return p.members[i]
}

// SetMember stores v at slot i.
func (p *PkgVal) SetMember(i OpIndex, v Value) {
	if int(i) < 0 || int(i) >= len(p.members) {
		panic("PkgVal.SetMember: index out of range")
	}
	p.members[i] = v
}

// MemberCount returns the number of members.
func (p *PkgVal) MemberCount() int {
	return len(p.members)
}

// AddVarMapping records that declaration-order variable varIdx lives in
// member slot member. Fatal after SetInited.
func (p *PkgVal) AddVarMapping(varIdx, member OpIndex) {
	if p.varMapping == nil {
		panic("PkgVal.AddVarMapping: package already initialized")
	}
	p.varMapping[varIdx] = member
}

// VarCount returns the number of mapped package variables.
func (p *PkgVal) VarCount() int {
	return len(p.varMapping)
}

// InitVar stores an initializer result into the member slot mapped for
// declaration-order variable varIdx.
func (p *PkgVal) InitVar(varIdx OpIndex, v Value) {
	if p.varMapping == nil {
		panic("PkgVal.InitVar: package already initialized")
	}
	member, ok := p.varMapping[varIdx]
	if !ok {
		panic("PkgVal.InitVar: unmapped variable index")
	}
	p.SetMember(member, v)
}

// Inited reports whether package initialization has completed.
func (p *PkgVal) Inited() bool {
	return p.varMapping == nil
}

// SetInited marks initialization complete and discards the var mapping.
// There is no way back; a second call is fatal, the import guard keeps the
// constructor from running twice.
func (p *PkgVal) SetInited() {
	if p.varMapping == nil {
		panic("PkgVal.SetInited: package already initialized")
	}
	p.varMapping = nil
}
