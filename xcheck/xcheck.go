// Package xcheck verifies the sim86 decoder against golang.org/x/arch's
// independent x86 decoder running in 16-bit mode.
//
// For every instruction sim86 recognizes, the two decoders must agree on
// the encoded length, the operation, register operands and branch
// displacements. Bytes sim86 does not recognize are skipped one at a time,
// exactly as the emulator does, and are not compared.
package xcheck

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"github.com/sarchlab/sim86/insts"
)

// Mismatch describes one disagreement between the decoders.
type Mismatch struct {
	Offset int    // offset of the instruction in the stream
	Ours   string // sim86 rendering
	Theirs string // x86asm rendering
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("offset %d: %s: sim86 %q, x86asm %q", m.Offset, m.Reason, m.Ours, m.Theirs)
}

// Report summarizes a comparison run.
type Report struct {
	Compared   int // instructions compared
	Skipped    int // bytes sim86 did not recognize
	Mismatches []Mismatch
}

// OK reports whether the decoders agreed on every compared instruction.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

var opMap = map[insts.Op]x86asm.Op{
	insts.OpMOV:    x86asm.MOV,
	insts.OpADD:    x86asm.ADD,
	insts.OpSUB:    x86asm.SUB,
	insts.OpCMP:    x86asm.CMP,
	insts.OpJO:     x86asm.JO,
	insts.OpJNO:    x86asm.JNO,
	insts.OpJB:     x86asm.JB,
	insts.OpJNB:    x86asm.JAE,
	insts.OpJE:     x86asm.JE,
	insts.OpJNE:    x86asm.JNE,
	insts.OpJBE:    x86asm.JBE,
	insts.OpJA:     x86asm.JA,
	insts.OpJS:     x86asm.JS,
	insts.OpJNS:    x86asm.JNS,
	insts.OpJP:     x86asm.JP,
	insts.OpJNP:    x86asm.JNP,
	insts.OpJL:     x86asm.JL,
	insts.OpJNL:    x86asm.JGE,
	insts.OpJLE:    x86asm.JLE,
	insts.OpJG:     x86asm.JG,
	insts.OpLOOPNZ: x86asm.LOOPNE,
	insts.OpLOOPZ:  x86asm.LOOPE,
	insts.OpLOOP:   x86asm.LOOP,
	insts.OpJCXZ:   x86asm.JCXZ,
}

var regMap = [16]x86asm.Reg{
	insts.RegAL: x86asm.AL,
	insts.RegCL: x86asm.CL,
	insts.RegDL: x86asm.DL,
	insts.RegBL: x86asm.BL,
	insts.RegAH: x86asm.AH,
	insts.RegCH: x86asm.CH,
	insts.RegDH: x86asm.DH,
	insts.RegBH: x86asm.BH,
	insts.RegAX: x86asm.AX,
	insts.RegCX: x86asm.CX,
	insts.RegDX: x86asm.DX,
	insts.RegBX: x86asm.BX,
	insts.RegSP: x86asm.SP,
	insts.RegBP: x86asm.BP,
	insts.RegSI: x86asm.SI,
	insts.RegDI: x86asm.DI,
}

// Compare decodes code with both decoders and reports every disagreement.
// An error is returned only when sim86 itself fails on a truncated stream.
func Compare(code []byte) (*Report, error) {
	report := &Report{}
	decoder := insts.NewDecoder()
	cursor := insts.NewCursor(code)

	for !cursor.Done() {
		ours, err := decoder.Decode(cursor)
		if err != nil {
			return report, err
		}

		if ours.Op == insts.OpUnknown {
			report.Skipped++
			continue
		}

		report.Compared++
		theirs, err := x86asm.Decode(code[ours.Addr:], 16)
		if err != nil {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Offset: ours.Addr,
				Ours:   ours.String(),
				Reason: fmt.Sprintf("x86asm failed: %v", err),
			})
			continue
		}

		if reason := diff(ours, &theirs); reason != "" {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Offset: ours.Addr,
				Ours:   ours.String(),
				Theirs: x86asm.IntelSyntax(theirs, uint64(ours.Addr), nil),
				Reason: reason,
			})
		}
	}

	return report, nil
}

// diff returns a description of the first difference, or "".
func diff(ours *insts.Instruction, theirs *x86asm.Inst) string {
	if ours.Len != theirs.Len {
		return fmt.Sprintf("length %d != %d", ours.Len, theirs.Len)
	}

	if want := opMap[ours.Op]; want != theirs.Op {
		return fmt.Sprintf("op %v != %v", ours.Op, theirs.Op)
	}

	operands := []insts.Operand{ours.Dst, ours.Src}
	for i, op := range operands {
		if op == nil {
			continue
		}
		arg := theirs.Args[i]

		switch o := op.(type) {
		case insts.RegOperand:
			if reg, ok := arg.(x86asm.Reg); !ok || reg != regMap[o.Reg] {
				return fmt.Sprintf("operand %d: %v != %v", i, o, arg)
			}
		case insts.RelOperand:
			if rel, ok := arg.(x86asm.Rel); !ok || int32(rel) != int32(o.Disp) {
				return fmt.Sprintf("operand %d: displacement %d != %v", i, o.Disp, arg)
			}
		case insts.MemOperand:
			if _, ok := arg.(x86asm.Mem); !ok {
				return fmt.Sprintf("operand %d: memory != %v", i, arg)
			}
		}
	}

	return ""
}
