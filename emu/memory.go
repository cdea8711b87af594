package emu

import (
	"fmt"
	"io"
)

// MemorySize is the size of the flat 8086 address space.
const MemorySize = 1 << 16

// Memory is a flat 64 KiB byte-addressable memory. Word accesses are
// little-endian and wrap at the top of the address space.
type Memory struct {
	data [MemorySize]byte
}

// NewMemory creates a zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint16) byte {
	return m.data[addr]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint16, value byte) {
	m.data[addr] = value
}

// Read16 reads a little-endian word: low byte at addr, high byte at addr+1.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8
}

// Write16 writes a little-endian word.
func (m *Memory) Write16(addr uint16, value uint16) {
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
}

// Read reads a byte or a word depending on wide.
func (m *Memory) Read(addr uint16, wide bool) uint16 {
	if wide {
		return m.Read16(addr)
	}
	return uint16(m.Read8(addr))
}

// Write writes a byte or a word depending on wide.
func (m *Memory) Write(addr uint16, wide bool, value uint16) {
	if wide {
		m.Write16(addr, value)
		return
	}
	m.Write8(addr, byte(value))
}

// Load copies data into memory starting at addr, wrapping at the top of
// the address space.
func (m *Memory) Load(addr uint16, data []byte) {
	for i, b := range data {
		m.data[addr+uint16(i)] = b
	}
}

// Clear zeroes the whole address space.
func (m *Memory) Clear() {
	m.data = [MemorySize]byte{}
}

// Dump writes the full memory image to w.
func (m *Memory) Dump(w io.Writer) error {
	if _, err := w.Write(m.data[:]); err != nil {
		return fmt.Errorf("failed to dump memory: %w", err)
	}
	return nil
}
