// Package emu provides functional 8086 emulation.
package emu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/timing/latency"
)

// ErrMaxInstructions is returned when the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true once the instruction stream is exhausted. No
	// instruction was executed by a step that reports Exited.
	Exited bool

	// Inst is the instruction executed by this step.
	Inst *insts.Instruction

	// Taken is true if Inst was a branch that transferred control.
	Taken bool

	// Err is set if a fatal error occurred. The stream cannot be resumed.
	Err error
}

// Emulator decodes and executes 8086 instructions from a byte buffer,
// writing one trace line per instruction.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	cursor  *insts.Cursor

	// Execution units
	alu        *ALU
	branchUnit *BranchUnit

	// I/O
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	// Optional models
	clockTable *latency.Table
	observer   AccessObserver

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	totalClocks      uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets the writer for the trace and the final summary.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets the writer for fatal error reports.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithLogger sets a structured logger for debug output.
func WithLogger(logger *slog.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithClockTable enables clock estimation using the given table.
func WithClockTable(table *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.clockTable = table
	}
}

// WithAccessObserver reports every data memory access to o.
func WithAccessObserver(o AccessObserver) EmulatorOption {
	return func(e *Emulator) {
		e.observer = o
	}
}

// WithMemory runs the emulator on a preloaded memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// NewEmulator creates a new 8086 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		cursor:  insts.NewCursor(nil),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.initUnits()
	return e
}

func (e *Emulator) initUnits() {
	e.alu = NewALU(e.regFile, e.memory)
	e.alu.SetObserver(e.observer)
	e.branchUnit = NewBranchUnit(e.regFile)
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// TotalClocks returns the accumulated clock estimate. It stays zero unless
// a clock table is configured.
func (e *Emulator) TotalClocks() uint64 {
	return e.totalClocks
}

// LoadProgram sets the instruction stream and resets IP to its start.
func (e *Emulator) LoadProgram(program []byte) {
	e.cursor = insts.NewCursor(program)
	e.regFile.IP = 0
}

// Reset clears registers, memory and counters. The loaded program is kept
// and execution restarts at its first byte. Memory is zeroed in place, so a
// memory given with WithMemory stays attached, along with any observer
// backed by it.
func (e *Emulator) Reset() {
	e.regFile = &RegFile{}
	e.memory.Clear()
	e.instructionCount = 0
	e.totalClocks = 0
	_ = e.cursor.Seek(0)

	e.initUnits()
}

// Step decodes and executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.cursor.Done() {
		return StepResult{Exited: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	ipBefore := e.regFile.IP
	flagsBefore := e.regFile.Flags

	// 1. Fetch and decode
	inst, err := e.decoder.Decode(e.cursor)
	if err != nil {
		e.logger.Error("decode failed", "ip", ipBefore, "err", err)
		return StepResult{Err: err}
	}
	e.regFile.IP = uint16(e.cursor.Pos())

	// 2. Execute
	result, exec := e.execute(inst)
	if result.Err != nil {
		e.logger.Error("execute failed", "ip", ipBefore, "inst", inst.String(), "err", result.Err)
		return result
	}

	e.instructionCount++

	// 3. Trace
	var clocks latency.Estimate
	if e.clockTable != nil {
		clocks = e.clockTable.GetClocks(inst, latency.ExecContext{Taken: result.Taken, Addr: exec.addr})
		e.totalClocks += clocks.Total()
	}
	e.writeTrace(traceLine{
		inst:        inst,
		exec:        exec,
		ipBefore:    ipBefore,
		ipAfter:     e.regFile.IP,
		flagsBefore: flagsBefore,
		flagsAfter:  e.regFile.Flags,
		clocks:      clocks,
		totalClocks: e.totalClocks,
		showClocks:  e.clockTable != nil,
	})

	return result
}

// Run executes instructions until the stream is exhausted or a fatal error
// occurs, then writes the final register summary.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return result.Err
		}
		if result.Exited {
			e.WriteSummary(e.stdout)
			return nil
		}
	}
}

// execState records what an instruction did, for tracing and timing.
type execState struct {
	alu    ALUResult
	hasALU bool
	dst    string // name of the changed destination
	addr   uint16 // effective address of the memory operand, if any
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction) (StepResult, execState) {
	result := StepResult{Inst: inst}
	var exec execState

	switch {
	case inst.Op == insts.OpUnknown:
		e.logger.Warn("unknown opcode", "opcode", fmt.Sprintf("0x%02X", inst.Opcode), "offset", inst.Addr)

	case inst.Op == insts.OpMOV || inst.Op.IsArith():
		if m, ok := inst.Src.(insts.MemOperand); ok {
			exec.addr = e.regFile.EffectiveAddress(m)
		}
		src := e.alu.Read(inst.Src)
		res, err := e.alu.Execute(inst.Op, inst.Dst, src)
		if err != nil {
			result.Err = err
			return result, exec
		}
		if _, ok := inst.Dst.(insts.MemOperand); ok {
			exec.addr = res.Addr
		}
		exec.alu = res
		exec.hasALU = true
		exec.dst = destName(inst.Dst, res.Addr)

	case inst.Op.IsJump():
		rel := inst.Dst.(insts.RelOperand)
		result.Taken = e.branchUnit.Jump(inst.Op, rel.Disp)

	case inst.Op.IsLoop():
		rel := inst.Dst.(insts.RelOperand)
		cx := e.regFile.ReadReg(insts.RegCX)
		result.Taken = e.branchUnit.Loop(inst.Op, rel.Disp)
		if inst.Op != insts.OpJCXZ {
			exec.alu = ALUResult{Old: cx, New: e.regFile.ReadReg(insts.RegCX), Written: true}
			exec.hasALU = true
			exec.dst = insts.RegCX.String()
		}
	}

	if result.Taken {
		if err := e.cursor.Seek(int(e.regFile.IP)); err != nil {
			result.Err = fmt.Errorf("branch at offset %d: %w", inst.Addr, err)
		}
	}

	return result, exec
}

// WriteSummary writes every non-zero general register, IP and the flags.
func (e *Emulator) WriteSummary(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nFinal registers:\n")
	for _, reg := range GeneralRegs {
		v := e.regFile.ReadReg(reg)
		if v == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "      %s: 0x%04x (%d)\n", reg, v, v)
	}
	_, _ = fmt.Fprintf(w, "      ip: 0x%04x (%d)\n", e.regFile.IP, e.regFile.IP)
	_, _ = fmt.Fprintf(w, "   flags: %s\n", e.regFile.Flags)
}
