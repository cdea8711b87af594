// Package latency provides 8086 instruction clock estimates.
//
// The base values follow the 8086 family user's manual and can be
// configured via TimingConfig. Estimates cover the execution unit only;
// prefetch queue effects are not modelled.
package latency

import (
	"github.com/sarchlab/sim86/insts"
)

// ExecContext carries the run-time facts an estimate depends on.
type ExecContext struct {
	// Taken reports whether a branch transferred control.
	Taken bool
	// Addr is the effective address of the memory operand, if any.
	Addr uint16
}

// Estimate is the clock cost of one executed instruction.
type Estimate struct {
	Base    uint64 // base clocks of the instruction form
	EA      uint64 // effective address calculation clocks
	Penalty uint64 // word transfer penalty clocks
}

// Total returns the sum of all components.
func (e Estimate) Total() uint64 {
	return e.Base + e.EA + e.Penalty
}

// Table provides instruction clock lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default 8086 timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

// operandKind classifies an operand for table lookup.
type operandKind uint8

const (
	kindNone operandKind = iota
	kindReg
	kindMem
	kindImm
)

func kindOf(op insts.Operand) operandKind {
	switch op.(type) {
	case insts.RegOperand:
		return kindReg
	case insts.MemOperand:
		return kindMem
	case insts.ImmOperand:
		return kindImm
	default:
		return kindNone
	}
}

// MemOperand returns the memory operand of inst, if it has one.
func MemOperand(inst *insts.Instruction) (insts.MemOperand, bool) {
	if m, ok := inst.Dst.(insts.MemOperand); ok {
		return m, true
	}
	if m, ok := inst.Src.(insts.MemOperand); ok {
		return m, true
	}
	return insts.MemOperand{}, false
}

// GetClocks returns the clock estimate for an executed instruction.
func (t *Table) GetClocks(inst *insts.Instruction, ctx ExecContext) Estimate {
	if inst == nil {
		return Estimate{}
	}

	switch {
	case inst.Op == insts.OpMOV:
		return t.movClocks(inst, ctx)
	case inst.Op.IsArith():
		return t.arithClocks(inst, ctx)
	case inst.Op.IsBranch():
		return Estimate{Base: t.branchClocks(inst.Op, ctx.Taken)}
	default:
		return Estimate{}
	}
}

func (t *Table) movClocks(inst *insts.Instruction, ctx ExecContext) Estimate {
	c := t.config

	// 101000dw carries its address in the opcode form; no EA calculation.
	if inst.Opcode&0b11111100 == 0b10100000 {
		return Estimate{Base: c.MovAccMem, Penalty: t.penalty(inst, ctx, 1)}
	}

	dst, src := kindOf(inst.Dst), kindOf(inst.Src)
	switch {
	case dst == kindReg && src == kindReg:
		return Estimate{Base: c.MovRegReg}
	case dst == kindReg && src == kindMem:
		return t.withEA(inst, ctx, c.MovRegMem, 1)
	case dst == kindMem && src == kindReg:
		return t.withEA(inst, ctx, c.MovMemReg, 1)
	case dst == kindReg && src == kindImm:
		return Estimate{Base: c.MovRegImm}
	case dst == kindMem && src == kindImm:
		return t.withEA(inst, ctx, c.MovMemImm, 1)
	default:
		return Estimate{}
	}
}

func (t *Table) arithClocks(inst *insts.Instruction, ctx ExecContext) Estimate {
	c := t.config

	// 00ooo10w: accumulator, immediate.
	if inst.Opcode&0b11000110 == 0b00000100 {
		return Estimate{Base: c.ArithAccImm}
	}

	cmp := inst.Op == insts.OpCMP
	dst, src := kindOf(inst.Dst), kindOf(inst.Src)
	switch {
	case dst == kindReg && src == kindReg:
		return Estimate{Base: c.ArithRegReg}
	case dst == kindReg && src == kindMem:
		return t.withEA(inst, ctx, c.ArithRegMem, 1)
	case dst == kindMem && src == kindReg && cmp:
		return t.withEA(inst, ctx, c.CmpMemReg, 1)
	case dst == kindMem && src == kindReg:
		// Read-modify-write: two bus transfers.
		return t.withEA(inst, ctx, c.ArithMemReg, 2)
	case dst == kindReg && src == kindImm:
		return Estimate{Base: c.ArithRegImm}
	case dst == kindMem && src == kindImm && cmp:
		return t.withEA(inst, ctx, c.CmpMemImm, 1)
	case dst == kindMem && src == kindImm:
		return t.withEA(inst, ctx, c.ArithMemImm, 2)
	default:
		return Estimate{}
	}
}

func (t *Table) branchClocks(op insts.Op, taken bool) uint64 {
	c := t.config

	pick := func(yes, no uint64) uint64 {
		if taken {
			return yes
		}
		return no
	}

	switch op {
	case insts.OpLOOP:
		return pick(c.LoopTaken, c.LoopNotTaken)
	case insts.OpLOOPZ:
		return pick(c.LoopzTaken, c.LoopzNotTaken)
	case insts.OpLOOPNZ:
		return pick(c.LoopnzTaken, c.LoopnzNotTaken)
	case insts.OpJCXZ:
		return pick(c.JcxzTaken, c.JcxzNotTaken)
	default:
		return pick(c.JumpTaken, c.JumpNotTaken)
	}
}

func (t *Table) withEA(inst *insts.Instruction, ctx ExecContext, base uint64, transfers uint64) Estimate {
	m, _ := MemOperand(inst)
	return Estimate{
		Base:    base,
		EA:      EAClocks(m),
		Penalty: t.penalty(inst, ctx, transfers),
	}
}

// penalty returns the extra clocks for word transfers. The 8088 pays for
// every word transfer; the 8086 only for words at odd addresses.
func (t *Table) penalty(inst *insts.Instruction, ctx ExecContext, transfers uint64) uint64 {
	if !inst.Wide {
		return 0
	}

	switch t.config.CPU {
	case CPU8088:
		return transfers * t.config.WordTransferPenalty
	default:
		if ctx.Addr&1 == 1 {
			return transfers * t.config.WordTransferPenalty
		}
		return 0
	}
}

// EAClocks returns the effective address calculation cost of a memory
// operand.
func EAClocks(m insts.MemOperand) uint64 {
	switch m.NumBases {
	case 0:
		return 6
	case 1:
		if m.DispSize == 0 {
			return 5
		}
		return 9
	default:
		clocks := uint64(8)
		b, i := m.Bases[0], m.Bases[1]
		if (b == insts.RegBP && i == insts.RegDI) || (b == insts.RegBX && i == insts.RegSI) {
			clocks = 7
		}
		if m.DispSize != 0 {
			clocks += 4
		}
		return clocks
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	_, ok := MemOperand(inst)
	return ok
}

// IsBranchOp returns true if the instruction is a branch operation.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op.IsBranch()
}
