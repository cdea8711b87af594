// Package emu provides functional 8086 emulation.
package emu

import (
	"fmt"

	"github.com/sarchlab/sim86/insts"
)

// AccessObserver is notified of every data memory access made while
// executing instructions.
type AccessObserver interface {
	ObserveRead(addr uint16, wide bool)
	ObserveWrite(addr uint16, wide bool, value uint16)
}

// ALUResult describes the effect of one ALU operation on its destination.
type ALUResult struct {
	Old     uint16 // destination value before the operation
	New     uint16 // destination value after the operation
	Written bool   // false for CMP
	Addr    uint16 // effective address when the destination is memory
}

// ALU implements the 8086 data movement and arithmetic operations.
type ALU struct {
	regFile  *RegFile
	memory   *Memory
	observer AccessObserver
}

// NewALU creates a new ALU connected to the given register file and memory.
func NewALU(regFile *RegFile, memory *Memory) *ALU {
	return &ALU{regFile: regFile, memory: memory}
}

// SetObserver installs an observer for memory accesses. nil disables it.
func (a *ALU) SetObserver(o AccessObserver) {
	a.observer = o
}

// Read returns the current value of a register, memory or immediate
// operand. Branch displacements have no value and read as zero.
func (a *ALU) Read(op insts.Operand) uint16 {
	switch o := op.(type) {
	case insts.RegOperand:
		return a.regFile.ReadReg(o.Reg)
	case insts.MemOperand:
		addr := a.regFile.EffectiveAddress(o)
		if a.observer != nil {
			a.observer.ObserveRead(addr, o.Wide)
		}
		return a.memory.Read(addr, o.Wide)
	case insts.ImmOperand:
		return o.Value
	default:
		return 0
	}
}

// peek reads a destination without notifying the observer.
func (a *ALU) peek(op insts.Operand) uint16 {
	switch o := op.(type) {
	case insts.RegOperand:
		return a.regFile.ReadReg(o.Reg)
	case insts.MemOperand:
		return a.memory.Read(a.regFile.EffectiveAddress(o), o.Wide)
	default:
		return 0
	}
}

func (a *ALU) write(op insts.Operand, value uint16) error {
	switch o := op.(type) {
	case insts.RegOperand:
		a.regFile.WriteReg(o.Reg, value)
	case insts.MemOperand:
		addr := a.regFile.EffectiveAddress(o)
		a.memory.Write(addr, o.Wide, value)
		if a.observer != nil {
			a.observer.ObserveWrite(addr, o.Wide, value)
		}
	default:
		return fmt.Errorf("operand %v is not writable", op)
	}
	return nil
}

// widthOf returns the value mask and sign bit of a destination operand.
func widthOf(op insts.Operand) (mask, sign uint16) {
	wide := false
	switch o := op.(type) {
	case insts.RegOperand:
		wide = o.Reg.Wide()
	case insts.MemOperand:
		wide = o.Wide
	}
	if wide {
		return 0xFFFF, 0x8000
	}
	return 0x00FF, 0x0080
}

// Execute applies MOV, ADD, SUB or CMP to dst with the given source value.
// Results wrap to the destination width. ADD, SUB and CMP update the zero
// and sign flags; MOV leaves flags untouched; CMP does not write dst.
func (a *ALU) Execute(op insts.Op, dst insts.Operand, src uint16) (ALUResult, error) {
	mask, sign := widthOf(dst)
	res := ALUResult{}
	if m, ok := dst.(insts.MemOperand); ok {
		res.Addr = a.regFile.EffectiveAddress(m)
	}

	if op == insts.OpMOV {
		res.Old = a.peek(dst)
	} else {
		res.Old = a.Read(dst)
	}

	var result uint16
	switch op {
	case insts.OpMOV:
		result = src & mask
	case insts.OpADD:
		result = (res.Old + src) & mask
	case insts.OpSUB, insts.OpCMP:
		result = (res.Old - src) & mask
	default:
		return res, fmt.Errorf("%v is not an ALU operation", op)
	}

	if op != insts.OpMOV {
		a.setResultFlags(result, sign)
	}

	if op == insts.OpCMP {
		res.New = res.Old
		return res, nil
	}

	if err := a.write(dst, result); err != nil {
		return res, err
	}
	res.New = result
	res.Written = true
	return res, nil
}

// setResultFlags sets Z and S from a masked result. Carry, overflow,
// parity and auxiliary carry are not modelled.
func (a *ALU) setResultFlags(result, sign uint16) {
	a.regFile.Flags.Set(FlagZero, result == 0)
	a.regFile.Flags.Set(FlagSign, result&sign != 0)
}
