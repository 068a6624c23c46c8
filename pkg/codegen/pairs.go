package codegen

import (
	"fmt"

	"github.com/oriole-lang/oriole/vm"
)

// pkgVarPair is one deferred patch: an instruction that addresses a
// package member by name, emitted before that package's member table was
// final.
type pkgVarPair struct {
	pkg     vm.PkgKey
	ident   string
	fn      vm.FuncKey
	codeIdx vm.OpIndex
	isStore bool
}

// PkgVarPairs collects package-member accesses whose member slots are not
// known at emission time. Cross-package references can point at packages
// still being compiled, so the load and store instructions go out with a
// zero index and get their real slot patched in by Resolve once every
// package's member table is complete.
type PkgVarPairs struct {
	pairs []pkgVarPair
}

// NewPkgVarPairs creates an empty patch registry.
func NewPkgVarPairs() *PkgVarPairs {
	return &PkgVarPairs{}
}

// AddPair registers the instruction at codeIdx in fn as addressing member
// ident of pkg. isStore selects the store patch form, which must preserve
// the folded-operator byte already packed into the immediate.
func (p *PkgVarPairs) AddPair(pkg vm.PkgKey, ident string, fn vm.FuncKey, codeIdx vm.OpIndex, isStore bool) {
	p.pairs = append(p.pairs, pkgVarPair{
		pkg:     pkg,
		ident:   ident,
		fn:      fn,
		codeIdx: codeIdx,
		isStore: isStore,
	})
}

// Len returns the number of pending patches.
func (p *PkgVarPairs) Len() int {
	return len(p.pairs)
}

// Resolve patches every registered instruction with the member slot the
// identifier resolved to. Call it once, after all packages have their
// member tables populated.
func (p *PkgVarPairs) Resolve(objs *vm.Objects) error {
	for _, pair := range p.pairs {
		pkg := objs.Pkgs.Get(pair.pkg)
		member, ok := pkg.MemberIndex(pair.ident)
		if !ok {
			return fmt.Errorf("package %s has no member %s", pkg.Name(), pair.ident)
		}
		f := objs.Funcs.Get(pair.fn)
		inst := f.InstructionAt(pair.codeIdx)
		if pair.isStore {
			imm8, _ := inst.Imm824()
			inst.SetImm824(imm8, member)
		} else {
			inst.SetImm(member)
		}
		f.SetInstruction(pair.codeIdx, inst)
	}
	p.pairs = p.pairs[:0]
	return nil
}
