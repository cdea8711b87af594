package insts

import (
	"fmt"
	"strings"
)

// Reg is an encoded register selector: the 3-bit REG/R_M field with the
// W bit on top. Selectors 0-7 name the byte registers, 8-15 the word
// registers.
type Reg uint8

// 8086 register selectors.
const (
	RegAL Reg = iota // 0b0_000
	RegCL            // 0b0_001
	RegDL            // 0b0_010
	RegBL            // 0b0_011
	RegAH            // 0b0_100
	RegCH            // 0b0_101
	RegDH            // 0b0_110
	RegBH            // 0b0_111
	RegAX            // 0b1_000
	RegCX            // 0b1_001
	RegDX            // 0b1_010
	RegBX            // 0b1_011
	RegSP            // 0b1_100
	RegBP            // 0b1_101
	RegSI            // 0b1_110
	RegDI            // 0b1_111
)

var regNames = [16]string{
	"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh",
	"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
}

// RegFromFields builds a selector from a 3-bit register field and the W bit.
func RegFromFields(field uint8, wide bool) Reg {
	r := Reg(field & 0b111)
	if wide {
		r |= 0b1000
	}
	return r
}

// Wide reports whether the register is 16 bits wide.
func (r Reg) Wide() bool {
	return r&0b1000 != 0
}

func (r Reg) String() string {
	return regNames[r&0xF]
}

// effectiveAddressBases maps the R/M field of a memory operand to the
// registers summed into the effective address.
var effectiveAddressBases = [8]struct {
	regs [2]Reg
	n    uint8
}{
	{[2]Reg{RegBX, RegSI}, 2},
	{[2]Reg{RegBX, RegDI}, 2},
	{[2]Reg{RegBP, RegSI}, 2},
	{[2]Reg{RegBP, RegDI}, 2},
	{[2]Reg{RegSI}, 1},
	{[2]Reg{RegDI}, 1},
	{[2]Reg{RegBP}, 1},
	{[2]Reg{RegBX}, 1},
}

// Operand is one of RegOperand, MemOperand, ImmOperand or RelOperand.
type Operand interface {
	fmt.Stringer
	isOperand()
}

// RegOperand names a register.
type RegOperand struct {
	Reg Reg
}

// MemOperand describes a memory reference. The first NumBases entries of
// Bases are summed into the address; zero bases means a direct address held
// entirely in Disp.
type MemOperand struct {
	Bases    [2]Reg
	NumBases uint8
	Disp     int16
	DispSize uint8 // number of displacement bytes in the encoding
	Wide     bool
}

// ImmOperand is an immediate value. Signed marks values sign-extended from
// an 8-bit encoding.
type ImmOperand struct {
	Value  uint16
	Signed bool
}

// RelOperand is the signed 8-bit displacement of a relative branch.
type RelOperand struct {
	Disp int8
}

func (RegOperand) isOperand() {}
func (MemOperand) isOperand() {}
func (ImmOperand) isOperand() {}
func (RelOperand) isOperand() {}

func (o RegOperand) String() string {
	return o.Reg.String()
}

// memOperandFor returns the based memory operand selected by an R/M field.
func memOperandFor(rm uint8, wide bool) MemOperand {
	b := effectiveAddressBases[rm&0b111]
	return MemOperand{Bases: b.regs, NumBases: b.n, Wide: wide}
}

// Direct reports whether the operand is an absolute address.
func (o MemOperand) Direct() bool {
	return o.NumBases == 0
}

// BaseRegs returns the registers summed into the effective address.
func (o MemOperand) BaseRegs() []Reg {
	return o.Bases[:o.NumBases]
}

func (o MemOperand) String() string {
	if o.Direct() {
		return fmt.Sprintf("[%d]", uint16(o.Disp))
	}

	bases := o.BaseRegs()
	names := make([]string, len(bases))
	for i, b := range bases {
		names[i] = b.String()
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strings.Join(names, "+"))
	if o.Disp > 0 {
		fmt.Fprintf(&sb, "+%d", o.Disp)
	} else if o.Disp < 0 {
		fmt.Fprintf(&sb, "%d", o.Disp)
	}
	sb.WriteByte(']')
	return sb.String()
}

func (o ImmOperand) String() string {
	if o.Signed {
		return fmt.Sprintf("%d", int16(o.Value))
	}
	return fmt.Sprintf("%d", o.Value)
}

// String renders the displacement NASM-style relative to the start of the
// 2-byte branch instruction.
func (o RelOperand) String() string {
	offset := int(o.Disp) + 2
	switch {
	case offset == 0:
		return "$+0"
	case offset > 0:
		return fmt.Sprintf("$+%d+0", offset)
	default:
		return fmt.Sprintf("$%d+0", offset)
	}
}
