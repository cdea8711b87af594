// Package insts provides 8086 instruction definitions and decoding.
//
// This package implements decoding of a 16-bit 8086 byte stream into
// structured instruction representations. It supports:
//   - Data movement: MOV register/memory to/from register, immediate to
//     register/memory, immediate to register, memory to/from accumulator
//   - Arithmetic: ADD, SUB, CMP in register/memory, immediate and
//     accumulator-immediate forms
//   - Branches: the 16 conditional jumps, LOOP, LOOPZ, LOOPNZ and JCXZ
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	cursor := insts.NewCursor([]byte{0xB8, 0x05, 0x00})
//	inst, err := decoder.Decode(cursor) // mov ax, 5
//	fmt.Printf("%v (%d bytes)\n", inst, inst.Len)
package insts
