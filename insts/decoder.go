// Package insts provides 8086 instruction definitions and decoding.
package insts

import (
	"fmt"
	"strings"
)

// Op represents an 8086 operation.
type Op uint8

// 8086 operations.
const (
	OpUnknown Op = iota
	OpMOV
	OpADD
	OpSUB
	OpCMP

	// Conditional jumps, in opcode order 0x70-0x7F.
	OpJO
	OpJNO
	OpJB
	OpJNB
	OpJE
	OpJNE
	OpJBE
	OpJA
	OpJS
	OpJNS
	OpJP
	OpJNP
	OpJL
	OpJNL
	OpJLE
	OpJG

	// Loop family, in opcode order 0xE0-0xE3.
	OpLOOPNZ
	OpLOOPZ
	OpLOOP
	OpJCXZ
)

var opNames = map[Op]string{
	OpUnknown: "unknown",
	OpMOV:     "mov",
	OpADD:     "add",
	OpSUB:     "sub",
	OpCMP:     "cmp",
	OpJO:      "jo",
	OpJNO:     "jno",
	OpJB:      "jb",
	OpJNB:     "jnb",
	OpJE:      "je",
	OpJNE:     "jne",
	OpJBE:     "jbe",
	OpJA:      "ja",
	OpJS:      "js",
	OpJNS:     "jns",
	OpJP:      "jp",
	OpJNP:     "jnp",
	OpJL:      "jl",
	OpJNL:     "jnl",
	OpJLE:     "jle",
	OpJG:      "jg",
	OpLOOPNZ:  "loopnz",
	OpLOOPZ:   "loopz",
	OpLOOP:    "loop",
	OpJCXZ:    "jcxz",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// IsArith reports whether the operation goes through the ALU's arithmetic
// path and updates flags.
func (o Op) IsArith() bool {
	return o == OpADD || o == OpSUB || o == OpCMP
}

// IsJump reports whether the operation is a flag-conditional jump.
func (o Op) IsJump() bool {
	return o >= OpJO && o <= OpJG
}

// IsLoop reports whether the operation is LOOP, LOOPZ, LOOPNZ or JCXZ.
func (o Op) IsLoop() bool {
	return o >= OpLOOPNZ && o <= OpJCXZ
}

// IsBranch reports whether the operation transfers control.
func (o Op) IsBranch() bool {
	return o.IsJump() || o.IsLoop()
}

// Instruction represents a decoded 8086 instruction.
type Instruction struct {
	Op     Op   // Operation
	Opcode byte // First byte of the encoding

	Dst  Operand // Destination, or the branch displacement
	Src  Operand // Source; nil for branches and unknown bytes
	Wide bool    // true for word operations, false for byte operations

	Addr int // Offset of the first byte in the stream
	Len  int // Encoded length in bytes
}

// String renders the instruction in NASM syntax. Unknown bytes render as a
// comment so that disassembly output still assembles.
func (i *Instruction) String() string {
	switch {
	case i.Op == OpUnknown:
		return "; " + i.Diagnostic()
	case i.Src == nil:
		return fmt.Sprintf("%s %s", i.Op, i.Dst)
	}

	dst := i.Dst.String()
	if _, isImm := i.Src.(ImmOperand); isImm {
		if _, isMem := i.Dst.(MemOperand); isMem {
			dst = sizePrefix(i.Wide) + " " + dst
		}
	}
	return fmt.Sprintf("%s %s, %s", i.Op, dst, i.Src)
}

// Diagnostic describes an unrecognized opcode byte in hex and grouped binary.
func (i *Instruction) Diagnostic() string {
	bits := fmt.Sprintf("%08b", i.Opcode)
	return fmt.Sprintf("unknown instruction 0x%02X (%s %s)", i.Opcode, bits[:4], bits[4:])
}

func sizePrefix(wide bool) string {
	if wide {
		return "word"
	}
	return "byte"
}

// decodeFunc decodes the remainder of an instruction whose first byte is
// op. It returns false, without consuming bytes, when the encoding belongs
// to an instruction outside the supported set.
type decodeFunc func(d *Decoder, c *Cursor, op byte, inst *Instruction) (bool, error)

// pattern is one entry of the ordered opcode table.
type pattern struct {
	name   string
	mask   byte
	value  byte
	decode decodeFunc
}

// Decoder decodes 8086 machine code into instructions.
type Decoder struct {
	patterns []pattern
}

// NewDecoder creates a new 8086 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{patterns: defaultPatterns()}
}

// defaultPatterns returns the opcode table. The first matching entry wins,
// so MOV forms precede the broader arithmetic masks.
func defaultPatterns() []pattern {
	return []pattern{
		{"mov r/m, reg", 0b11111100, 0b10001000, (*Decoder).decodeMovRM},
		{"mov r/m, imm", 0b11111110, 0b11000110, (*Decoder).decodeMovImmRM},
		{"mov reg, imm", 0b11110000, 0b10110000, (*Decoder).decodeMovImmReg},
		{"mov acc, mem", 0b11111100, 0b10100000, (*Decoder).decodeMovAcc},
		{"arith r/m, reg", 0b11000100, 0b00000000, (*Decoder).decodeArithRM},
		{"arith r/m, imm", 0b11111100, 0b10000000, (*Decoder).decodeArithImmRM},
		{"arith acc, imm", 0b11000110, 0b00000100, (*Decoder).decodeArithImmAcc},
		{"jcc", 0b11110000, 0b01110000, (*Decoder).decodeJump},
		{"loop", 0b11111100, 0b11100000, (*Decoder).decodeLoop},
	}
}

// Decode decodes one instruction starting at the cursor position.
// Bytes that match no pattern decode as a 1-byte OpUnknown instruction.
// An error is returned only when the stream ends mid-instruction.
func (d *Decoder) Decode(c *Cursor) (*Instruction, error) {
	start := c.Pos()

	op, err := c.NextByte()
	if err != nil {
		return nil, err
	}

	inst := &Instruction{Op: OpUnknown, Opcode: op, Addr: start}

	for _, p := range d.patterns {
		if op&p.mask != p.value {
			continue
		}

		ok, err := p.decode(d, c, op, inst)
		if err != nil {
			return nil, fmt.Errorf("decoding %s at offset %d: %w", p.name, start, err)
		}
		if ok {
			break
		}
	}

	inst.Len = c.Pos() - start
	return inst, nil
}

// arithOps maps the 3-bit arithmetic selector to an operation.
func arithOp(field uint8) Op {
	switch field & 0b111 {
	case 0b000:
		return OpADD
	case 0b101:
		return OpSUB
	case 0b111:
		return OpCMP
	default:
		return OpUnknown
	}
}

// modRM holds the fields of the addressing byte.
type modRM struct {
	mod uint8
	reg uint8
	rm  uint8
}

func splitModRM(b byte) modRM {
	return modRM{
		mod: b >> 6,
		reg: (b >> 3) & 0b111,
		rm:  b & 0b111,
	}
}

// decodeRM resolves the MOD and R/M fields into a register or memory
// operand, consuming any displacement bytes.
func (d *Decoder) decodeRM(c *Cursor, mod, rm uint8, wide bool) (Operand, error) {
	switch mod {
	case 0b11:
		return RegOperand{Reg: RegFromFields(rm, wide)}, nil

	case 0b00:
		if rm == 0b110 {
			addr, err := c.nextWord()
			if err != nil {
				return nil, err
			}
			return MemOperand{Disp: int16(addr), DispSize: 2, Wide: wide}, nil
		}
		return memOperandFor(rm, wide), nil

	case 0b01:
		b, err := c.NextByte()
		if err != nil {
			return nil, err
		}
		mem := memOperandFor(rm, wide)
		mem.Disp = int16(int8(b))
		mem.DispSize = 1
		return mem, nil

	default:
		disp, err := c.nextWord()
		if err != nil {
			return nil, err
		}
		mem := memOperandFor(rm, wide)
		mem.Disp = int16(disp)
		mem.DispSize = 2
		return mem, nil
	}
}

// decodeImm reads an immediate of the given width.
func (d *Decoder) decodeImm(c *Cursor, wide bool) (ImmOperand, error) {
	if wide {
		v, err := c.nextWord()
		return ImmOperand{Value: v}, err
	}
	b, err := c.NextByte()
	return ImmOperand{Value: uint16(b)}, err
}

// decodeRegRM handles the shared MOD REG R/M layout of 100010dw and
// 00ooo0dw. The D bit selects whether REG is the destination.
func (d *Decoder) decodeRegRM(c *Cursor, op byte, inst *Instruction) error {
	wide := op&1 == 1
	toReg := (op>>1)&1 == 1

	b, err := c.NextByte()
	if err != nil {
		return err
	}
	f := splitModRM(b)

	rm, err := d.decodeRM(c, f.mod, f.rm, wide)
	if err != nil {
		return err
	}
	reg := RegOperand{Reg: RegFromFields(f.reg, wide)}

	inst.Wide = wide
	if toReg {
		inst.Dst, inst.Src = reg, rm
	} else {
		inst.Dst, inst.Src = rm, reg
	}
	return nil
}

// decodeMovRM decodes 100010dw: mov r/m <-> reg.
func (d *Decoder) decodeMovRM(c *Cursor, op byte, inst *Instruction) (bool, error) {
	inst.Op = OpMOV
	return true, d.decodeRegRM(c, op, inst)
}

// decodeMovImmRM decodes 1100011w: mov r/m, imm. The REG field must be 000.
func (d *Decoder) decodeMovImmRM(c *Cursor, op byte, inst *Instruction) (bool, error) {
	next, err := c.PeekByte()
	if err != nil {
		return false, err
	}
	f := splitModRM(next)
	if f.reg != 0 {
		return false, nil
	}
	_, _ = c.NextByte()

	wide := op&1 == 1
	dst, err := d.decodeRM(c, f.mod, f.rm, wide)
	if err != nil {
		return false, err
	}
	imm, err := d.decodeImm(c, wide)
	if err != nil {
		return false, err
	}

	inst.Op = OpMOV
	inst.Wide = wide
	inst.Dst = dst
	inst.Src = imm
	return true, nil
}

// decodeMovImmReg decodes 1011wreg: mov reg, imm.
func (d *Decoder) decodeMovImmReg(c *Cursor, op byte, inst *Instruction) (bool, error) {
	wide := (op>>3)&1 == 1
	imm, err := d.decodeImm(c, wide)
	if err != nil {
		return false, err
	}

	inst.Op = OpMOV
	inst.Wide = wide
	inst.Dst = RegOperand{Reg: RegFromFields(op&0b111, wide)}
	inst.Src = imm
	return true, nil
}

// decodeMovAcc decodes 101000dw: mov al/ax <-> [addr]. Bit 1 set means
// memory is the destination.
func (d *Decoder) decodeMovAcc(c *Cursor, op byte, inst *Instruction) (bool, error) {
	wide := op&1 == 1
	addr, err := c.nextWord()
	if err != nil {
		return false, err
	}

	acc := RegOperand{Reg: RegFromFields(0, wide)}
	mem := MemOperand{Disp: int16(addr), DispSize: 2, Wide: wide}

	inst.Op = OpMOV
	inst.Wide = wide
	if (op>>1)&1 == 1 {
		inst.Dst, inst.Src = mem, acc
	} else {
		inst.Dst, inst.Src = acc, mem
	}
	return true, nil
}

// decodeArithRM decodes 00ooo0dw: add/sub/cmp r/m <-> reg.
func (d *Decoder) decodeArithRM(c *Cursor, op byte, inst *Instruction) (bool, error) {
	arith := arithOp(op >> 3)
	if arith == OpUnknown {
		return false, nil
	}

	inst.Op = arith
	return true, d.decodeRegRM(c, op, inst)
}

// decodeArithImmRM decodes 100000sw: add/sub/cmp r/m, imm. The operation
// lives in the REG field of the following byte. With S set, an 8-bit
// immediate is sign-extended to the operand width.
func (d *Decoder) decodeArithImmRM(c *Cursor, op byte, inst *Instruction) (bool, error) {
	next, err := c.PeekByte()
	if err != nil {
		return false, err
	}
	f := splitModRM(next)
	arith := arithOp(f.reg)
	if arith == OpUnknown {
		return false, nil
	}
	_, _ = c.NextByte()

	wide := op&1 == 1
	signExtend := (op>>1)&1 == 1

	dst, err := d.decodeRM(c, f.mod, f.rm, wide)
	if err != nil {
		return false, err
	}

	var imm ImmOperand
	if wide && signExtend {
		b, err := c.NextByte()
		if err != nil {
			return false, err
		}
		imm = ImmOperand{Value: uint16(int16(int8(b))), Signed: true}
	} else {
		imm, err = d.decodeImm(c, wide)
		if err != nil {
			return false, err
		}
	}

	inst.Op = arith
	inst.Wide = wide
	inst.Dst = dst
	inst.Src = imm
	return true, nil
}

// decodeArithImmAcc decodes 00ooo10w: add/sub/cmp al/ax, imm.
func (d *Decoder) decodeArithImmAcc(c *Cursor, op byte, inst *Instruction) (bool, error) {
	arith := arithOp(op >> 3)
	if arith == OpUnknown {
		return false, nil
	}

	wide := op&1 == 1
	imm, err := d.decodeImm(c, wide)
	if err != nil {
		return false, err
	}

	inst.Op = arith
	inst.Wide = wide
	inst.Dst = RegOperand{Reg: RegFromFields(0, wide)}
	inst.Src = imm
	return true, nil
}

// decodeJump decodes 0111cccc disp8.
func (d *Decoder) decodeJump(c *Cursor, op byte, inst *Instruction) (bool, error) {
	disp, err := c.NextByte()
	if err != nil {
		return false, err
	}

	inst.Op = OpJO + Op(op&0x0F)
	inst.Dst = RelOperand{Disp: int8(disp)}
	return true, nil
}

// decodeLoop decodes 111000cc disp8.
func (d *Decoder) decodeLoop(c *Cursor, op byte, inst *Instruction) (bool, error) {
	disp, err := c.NextByte()
	if err != nil {
		return false, err
	}

	inst.Op = OpLOOPNZ + Op(op&0b11)
	inst.Dst = RelOperand{Disp: int8(disp)}
	return true, nil
}

// Disassemble decodes the whole buffer and returns its NASM listing,
// starting with the "bits 16" directive.
func (d *Decoder) Disassemble(buf []byte) (string, error) {
	var sb strings.Builder
	sb.WriteString("bits 16\n")

	c := NewCursor(buf)
	for !c.Done() {
		inst, err := d.Decode(c)
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}
