// Package benchmarks provides clock-estimate benchmark programs for sim86.
package benchmarks

import (
	"github.com/sarchlab/sim86/emu"
	"github.com/sarchlab/sim86/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets one instruction form or access pattern.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		memoryUnaligned(),
		branchTaken(),
		loopCountdown(),
		mixedOperations(),
		arraySum(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopCountdown(),
		arraySum(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - register, immediate adds spread over registers
func arithmeticSequential() Benchmark {
	regs := []insts.Reg{insts.RegAX, insts.RegCX, insts.RegDX, insts.RegBX, insts.RegSI}

	parts := make([][]byte, 0, 20)
	for i := 0; i < 20; i++ {
		parts = append(parts, EncodeArithRegImm(insts.OpADD, regs[i%len(regs)], 1))
	}

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "20 add reg, 1 over five registers - measures the reg, imm form",
		Program:        BuildProgram(parts...),
		ExpectedResult: 4,
	}
}

// 2. Dependency Chain - the same register over and over
func dependencyChain() Benchmark {
	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent add ax, 1",
		Program:        buildDependencyChain(20),
		ExpectedResult: 20,
	}
}

func buildDependencyChain(n int) []byte {
	parts := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, EncodeArithRegImm(insts.OpADD, insts.RegAX, 1))
	}
	return BuildProgram(parts...)
}

// 3. Memory Sequential - aligned word stores and loads
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 word store/load pairs at even addresses",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(insts.RegBX, 0x8000)
		},
		Program:        buildStoreLoadPairs(0),
		ExpectedResult: 42,
	}
}

// 4. Memory Unaligned - the same pairs at odd addresses
func memoryUnaligned() Benchmark {
	return Benchmark{
		Name:        "memory_unaligned",
		Description: "10 word store/load pairs at odd addresses - measures the 8086 odd-address penalty",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(insts.RegBX, 0x8000)
		},
		Program:        buildStoreLoadPairs(1),
		ExpectedResult: 42,
	}
}

func buildStoreLoadPairs(offset int8) []byte {
	parts := [][]byte{EncodeMovRegImm(insts.RegAX, 42)}
	for i := int8(0); i < 10; i++ {
		disp := 2*i + offset
		parts = append(parts,
			EncodeStoreIndexed(disp, insts.RegAX),
			EncodeLoadIndexed(insts.RegAX, disp),
		)
	}
	return BuildProgram(parts...)
}

// 5. Branch Taken - counted loop closed by jne
func branchTaken() Benchmark {
	// loop: add ax, 2; sub cx, 1; jne loop
	return Benchmark{
		Name:        "branch_taken",
		Description: "10 iterations closed by a taken jne",
		Program: BuildProgram(
			EncodeMovRegImm(insts.RegCX, 10),
			EncodeArithRegImm(insts.OpADD, insts.RegAX, 2),
			EncodeArithRegImm(insts.OpSUB, insts.RegCX, 1),
			EncodeJcc(insts.OpJNE, -8),
		),
		ExpectedResult: 20,
	}
}

// 6. Loop Countdown - the LOOP instruction
func loopCountdown() Benchmark {
	// loop: add ax, 1; loop loop
	return Benchmark{
		Name:        "loop_countdown",
		Description: "16 iterations of LOOP",
		Program: BuildProgram(
			EncodeMovRegImm(insts.RegCX, 16),
			EncodeArithRegImm(insts.OpADD, insts.RegAX, 1),
			EncodeLoop(insts.OpLOOP, -5),
		),
		ExpectedResult: 16,
	}
}

// 7. Mixed Operations - register, memory and compare forms together
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "mov, add, sub and cmp over registers and direct addresses",
		Program: BuildProgram(
			EncodeMovRegImm(insts.RegAX, 5),
			EncodeMovRegImm(insts.RegBX, 3),
			EncodeArithRegReg(insts.OpADD, insts.RegAX, insts.RegBX), // ax = 8
			EncodeStoreDirect(0x200, insts.RegAX),
			EncodeArithRegImm(insts.OpSUB, insts.RegAX, 1), // ax = 7
			EncodeLoadDirect(insts.RegDX, 0x200),           // dx = 8
			EncodeArithRegReg(insts.OpADD, insts.RegAX, insts.RegDX),
			EncodeMovRegReg(insts.RegCX, insts.RegAX),
			EncodeArithRegImm(insts.OpCMP, insts.RegAX, 15),
		),
		ExpectedResult: 15,
	}
}

// 8. Array Sum - indexed loads in a LOOP
func arraySum() Benchmark {
	// loop: add ax, [bx+si]; add si, 2; loop loop
	return Benchmark{
		Name:        "array_sum",
		Description: "Sum of 8 words through [bx+si] - measures indexed loads",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(insts.RegBX, 0x400)
			for i := uint16(0); i < 8; i++ {
				memory.Write16(0x400+2*i, i+1)
			}
		},
		Program: BuildProgram(
			EncodeMovRegImm(insts.RegCX, 8),
			EncodeArithLoadIndexed(insts.OpADD, insts.RegAX, 0),
			EncodeArithRegImm(insts.OpADD, insts.RegSI, 2),
			EncodeLoop(insts.OpLOOP, -8),
		),
		ExpectedResult: 36,
	}
}
