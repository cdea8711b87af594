// Package emu provides functional 8086 emulation.
package emu

import (
	"strings"

	"github.com/sarchlab/sim86/insts"
)

// Flags holds the 8086 flags register. Bit positions match the hardware
// layout.
type Flags uint16

// 8086 flag bits.
const (
	FlagCarry     Flags = 1 << 0
	FlagParity    Flags = 1 << 2
	FlagAuxCarry  Flags = 1 << 4
	FlagZero      Flags = 1 << 6
	FlagSign      Flags = 1 << 7
	FlagTrap      Flags = 1 << 8
	FlagInterrupt Flags = 1 << 9
	FlagDirection Flags = 1 << 10
	FlagOverflow  Flags = 1 << 11
)

var flagLetters = []struct {
	flag   Flags
	letter byte
}{
	{FlagCarry, 'C'},
	{FlagParity, 'P'},
	{FlagAuxCarry, 'A'},
	{FlagZero, 'Z'},
	{FlagSign, 'S'},
	{FlagTrap, 'T'},
	{FlagInterrupt, 'I'},
	{FlagDirection, 'D'},
	{FlagOverflow, 'O'},
}

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Set sets or clears the given bits.
func (f *Flags) Set(f2 Flags, on bool) {
	if on {
		*f |= f2
	} else {
		*f &^= f2
	}
}

// String renders the set flags as single letters in CPAZSTIDO order, or
// "0" when no flag is set.
func (f Flags) String() string {
	var sb strings.Builder
	for _, fl := range flagLetters {
		if f.Has(fl.flag) {
			sb.WriteByte(fl.letter)
		}
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

// regView locates a register selector inside the word-sized cells.
type regView struct {
	cell  uint8
	mask  uint16
	shift uint8
}

// regViews is indexed by insts.Reg. Byte registers are views onto the low
// or high half of AX, CX, DX and BX.
var regViews = [16]regView{
	insts.RegAL: {0, 0x00FF, 0},
	insts.RegCL: {1, 0x00FF, 0},
	insts.RegDL: {2, 0x00FF, 0},
	insts.RegBL: {3, 0x00FF, 0},
	insts.RegAH: {0, 0xFF00, 8},
	insts.RegCH: {1, 0xFF00, 8},
	insts.RegDH: {2, 0xFF00, 8},
	insts.RegBH: {3, 0xFF00, 8},
	insts.RegAX: {0, 0xFFFF, 0},
	insts.RegCX: {1, 0xFFFF, 0},
	insts.RegDX: {2, 0xFFFF, 0},
	insts.RegBX: {3, 0xFFFF, 0},
	insts.RegSP: {4, 0xFFFF, 0},
	insts.RegBP: {5, 0xFFFF, 0},
	insts.RegSI: {6, 0xFFFF, 0},
	insts.RegDI: {7, 0xFFFF, 0},
}

// GeneralRegs lists the word registers in encoding order.
var GeneralRegs = []insts.Reg{
	insts.RegAX, insts.RegCX, insts.RegDX, insts.RegBX,
	insts.RegSP, insts.RegBP, insts.RegSI, insts.RegDI,
}

// RegFile represents the 8086 register file.
// It holds the eight general registers (AX, CX, DX, BX, SP, BP, SI, DI),
// the instruction pointer and the flags register.
type RegFile struct {
	cells [8]uint16

	// IP is the instruction pointer.
	IP uint16

	// Flags holds the condition flags.
	Flags Flags
}

// ReadReg reads a register. Byte registers return the selected half of
// their parent word register.
func (r *RegFile) ReadReg(reg insts.Reg) uint16 {
	v := regViews[reg&0xF]
	return (r.cells[v.cell] & v.mask) >> v.shift
}

// WriteReg writes a register. For byte registers only the selected half
// of the parent changes; bits of value outside the register width are
// discarded.
func (r *RegFile) WriteReg(reg insts.Reg, value uint16) {
	v := regViews[reg&0xF]
	cell := &r.cells[v.cell]
	*cell = (*cell &^ v.mask) | ((value << v.shift) & v.mask)
}

// EffectiveAddress computes the address of a memory operand: the sum of
// its base registers plus the displacement, wrapped to 16 bits.
func (r *RegFile) EffectiveAddress(m insts.MemOperand) uint16 {
	var addr uint16
	for _, base := range m.BaseRegs() {
		addr += r.ReadReg(base)
	}
	return addr + uint16(m.Disp)
}
