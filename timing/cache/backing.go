package cache

import (
	"github.com/sarchlab/sim86/emu"
)

// MemoryBacking fills and writes back cache lines against the emulator's
// 64 KiB memory. Line addresses are 64-bit in akita but every byte maps
// into the 16-bit address space, wrapping at 0xFFFF like the CPU does.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking backs a cache with memory. Pass the same *emu.Memory the
// emulator runs on so that Flush lands where the program reads.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read returns size bytes starting at the 16-bit address addr.
func (m *MemoryBacking) Read(addr uint64, size int) []byte {
	line := make([]byte, size)
	base := uint16(addr)
	for i := range line {
		line[i] = m.memory.Read8(base + uint16(i))
	}
	return line
}

// Write copies a line back into memory.
func (m *MemoryBacking) Write(addr uint64, data []byte) {
	base := uint16(addr)
	for i, b := range data {
		m.memory.Write8(base+uint16(i), b)
	}
}
