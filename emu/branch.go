// Package emu provides functional 8086 emulation.
package emu

import (
	"github.com/sarchlab/sim86/insts"
)

// BranchUnit implements 8086 conditional jumps and loops.
//
// All branches are relative: IP must already point past the 2-byte branch
// instruction when Jump or Loop is called.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// CheckCondition evaluates a conditional jump against the current flags.
// Operations that are not conditional jumps evaluate to false.
func (b *BranchUnit) CheckCondition(op insts.Op) bool {
	f := b.regFile.Flags
	z := f.Has(FlagZero)
	s := f.Has(FlagSign)
	o := f.Has(FlagOverflow)
	c := f.Has(FlagCarry)
	p := f.Has(FlagParity)

	switch op {
	case insts.OpJO:
		return o
	case insts.OpJNO:
		return !o
	case insts.OpJB:
		return c
	case insts.OpJNB:
		return !c
	case insts.OpJE:
		return z
	case insts.OpJNE:
		return !z
	case insts.OpJBE:
		return c || z
	case insts.OpJA:
		return !c && !z
	case insts.OpJS:
		return s
	case insts.OpJNS:
		return !s
	case insts.OpJP:
		return p
	case insts.OpJNP:
		return !p
	case insts.OpJL:
		return s != o
	case insts.OpJNL:
		return s == o
	case insts.OpJLE:
		return z || s != o
	case insts.OpJG:
		return !z && s == o
	default:
		return false
	}
}

// Jump performs a conditional jump. If the condition holds, disp is added
// to IP. It reports whether the branch was taken.
func (b *BranchUnit) Jump(op insts.Op, disp int8) bool {
	if !b.CheckCondition(op) {
		return false
	}
	b.relative(disp)
	return true
}

// Loop performs LOOP, LOOPZ, LOOPNZ or JCXZ. The loop forms decrement CX
// first; JCXZ only tests it. It reports whether the branch was taken.
func (b *BranchUnit) Loop(op insts.Op, disp int8) bool {
	var taken bool

	switch op {
	case insts.OpJCXZ:
		taken = b.regFile.ReadReg(insts.RegCX) == 0
	case insts.OpLOOP, insts.OpLOOPZ, insts.OpLOOPNZ:
		cx := b.regFile.ReadReg(insts.RegCX) - 1
		b.regFile.WriteReg(insts.RegCX, cx)

		z := b.regFile.Flags.Has(FlagZero)
		switch op {
		case insts.OpLOOP:
			taken = cx != 0
		case insts.OpLOOPZ:
			taken = cx != 0 && z
		default:
			taken = cx != 0 && !z
		}
	}

	if taken {
		b.relative(disp)
	}
	return taken
}

func (b *BranchUnit) relative(disp int8) {
	b.regFile.IP += uint16(int16(disp))
}
