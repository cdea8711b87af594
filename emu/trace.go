package emu

import (
	"fmt"
	"strings"

	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/timing/latency"
)

// traceLine holds everything needed to render one trace line.
type traceLine struct {
	inst *insts.Instruction
	exec execState

	ipBefore, ipAfter       uint16
	flagsBefore, flagsAfter Flags

	clocks      latency.Estimate
	totalClocks uint64
	showClocks  bool
}

// String renders the line as
//
//	<asm> ; [Clocks: +N = T (B + Eea + Pp) | ]<dst>:0xOLD->0xNEW ip:0xOLD->0xNEW flags:OLD->NEW
//
// Register or memory changes appear only when the value changed, flags only
// when an arithmetic operation changed them. Unknown bytes render as their
// diagnostic alone.
func (t traceLine) String() string {
	if t.inst.Op == insts.OpUnknown {
		return t.inst.String()
	}

	var changes []string
	if t.exec.hasALU && t.exec.alu.Written && t.exec.alu.Old != t.exec.alu.New {
		changes = append(changes, fmt.Sprintf("%s:0x%x->0x%x",
			t.exec.dst, t.exec.alu.Old, t.exec.alu.New))
	}
	changes = append(changes, fmt.Sprintf("ip:0x%x->0x%x", t.ipBefore, t.ipAfter))
	if t.inst.Op.IsArith() && t.flagsBefore != t.flagsAfter {
		changes = append(changes, fmt.Sprintf("flags:%s->%s", t.flagsBefore, t.flagsAfter))
	}

	var sb strings.Builder
	sb.WriteString(t.inst.String())
	sb.WriteString(" ; ")
	if t.showClocks {
		sb.WriteString(formatClocks(t.clocks, t.totalClocks))
		sb.WriteString(" | ")
	}
	sb.WriteString(strings.Join(changes, " "))
	return sb.String()
}

// destName names a changed destination: the register, or the effective
// address for memory.
func destName(op insts.Operand, addr uint16) string {
	if r, ok := op.(insts.RegOperand); ok {
		return r.Reg.String()
	}
	return fmt.Sprintf("[%d]", addr)
}

func formatClocks(c latency.Estimate, total uint64) string {
	s := fmt.Sprintf("Clocks: +%d = %d", c.Total(), total)
	if c.EA == 0 && c.Penalty == 0 {
		return s
	}

	parts := []string{fmt.Sprintf("%d", c.Base)}
	if c.EA != 0 {
		parts = append(parts, fmt.Sprintf("%dea", c.EA))
	}
	if c.Penalty != 0 {
		parts = append(parts, fmt.Sprintf("%dp", c.Penalty))
	}
	return fmt.Sprintf("%s (%s)", s, strings.Join(parts, " + "))
}

func (e *Emulator) writeTrace(t traceLine) {
	_, _ = fmt.Fprintln(e.stdout, t.String())
}
