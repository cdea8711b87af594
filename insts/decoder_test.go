package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	decode := func(code ...byte) *insts.Instruction {
		inst, err := decoder.Decode(insts.NewCursor(code))
		Expect(err).ToNot(HaveOccurred())
		return inst
	}

	Describe("MOV register/memory to/from register", func() {
		// 89 D8: d=0, w=1, mod=11 reg=bx r/m=ax
		It("should decode mov ax, bx", func() {
			inst := decode(0x89, 0xD8)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Wide).To(BeTrue())
			Expect(inst.Dst).To(Equal(insts.RegOperand{Reg: insts.RegAX}))
			Expect(inst.Src).To(Equal(insts.RegOperand{Reg: insts.RegBX}))
			Expect(inst.Len).To(Equal(2))
		})

		// 8B 1E 04 00: mod=00 r/m=110 is a direct address
		It("should decode mov bx, [4]", func() {
			inst := decode(0x8B, 0x1E, 0x04, 0x00)

			Expect(inst.Dst).To(Equal(insts.RegOperand{Reg: insts.RegBX}))
			mem, ok := inst.Src.(insts.MemOperand)
			Expect(ok).To(BeTrue())
			Expect(mem.Direct()).To(BeTrue())
			Expect(mem.Disp).To(Equal(int16(4)))
			Expect(inst.Len).To(Equal(4))
			Expect(inst.String()).To(Equal("mov bx, [4]"))
		})

		// 8B 56 00: mod=01 r/m=110 is bp with a zero displacement
		It("should decode mov dx, [bp]", func() {
			inst := decode(0x8B, 0x56, 0x00)

			mem := inst.Src.(insts.MemOperand)
			Expect(mem.Direct()).To(BeFalse())
			Expect(mem.BaseRegs()).To(Equal([]insts.Reg{insts.RegBP}))
			Expect(inst.String()).To(Equal("mov dx, [bp]"))
		})

		// 8B 07: mod=00 r/m=111 is [bx]
		It("should give every decoded operand its own base registers", func() {
			first := decode(0x8B, 0x07)
			mem := first.Src.(insts.MemOperand)
			mem.Bases[0] = insts.RegDI
			bases := mem.BaseRegs()
			bases[0] = insts.RegSI

			second := decode(0x8B, 0x07)
			Expect(first.String()).To(Equal("mov ax, [bx]"))
			Expect(second.String()).To(Equal("mov ax, [bx]"))
			Expect(insts.NewDecoder().Disassemble([]byte{0x8B, 0x07})).
				To(Equal("bits 16\nmov ax, [bx]\n"))
		})

		It("should decode byte registers", func() {
			inst := decode(0x8A, 0x60, 0x04)

			Expect(inst.Wide).To(BeFalse())
			Expect(inst.String()).To(Equal("mov ah, [bx+si+4]"))
		})

		It("should sign-extend 8-bit displacements", func() {
			Expect(decode(0x8B, 0x41, 0xDB).String()).To(Equal("mov ax, [bx+di-37]"))
		})

		It("should decode 16-bit displacements", func() {
			inst := decode(0x89, 0x8C, 0xD4, 0xFE)

			Expect(inst.Len).To(Equal(4))
			Expect(inst.String()).To(Equal("mov [si-300], cx"))
		})
	})

	Describe("MOV immediate", func() {
		It("should decode mov reg, imm16", func() {
			inst := decode(0xB8, 0x05, 0x00)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Src).To(Equal(insts.ImmOperand{Value: 5}))
			Expect(inst.Len).To(Equal(3))
			Expect(inst.String()).To(Equal("mov ax, 5"))
		})

		It("should decode mov reg, imm8", func() {
			Expect(decode(0xB1, 0x0C).String()).To(Equal("mov cl, 12"))
		})

		It("should decode mov byte [mem], imm", func() {
			inst := decode(0xC6, 0x03, 0x07)

			Expect(inst.Len).To(Equal(3))
			Expect(inst.String()).To(Equal("mov byte [bp+di], 7"))
		})

		It("should decode mov word [mem], imm", func() {
			inst := decode(0xC7, 0x85, 0x85, 0x03, 0x5B, 0x01)

			Expect(inst.Len).To(Equal(6))
			Expect(inst.String()).To(Equal("mov word [di+901], 347"))
		})

		It("should reject C6 with a non-zero REG field", func() {
			inst := decode(0xC6, 0xC8, 0x05)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Len).To(Equal(1))
		})
	})

	Describe("MOV accumulator", func() {
		It("should decode memory to accumulator", func() {
			inst := decode(0xA1, 0xFB, 0x09)

			Expect(inst.Len).To(Equal(3))
			Expect(inst.String()).To(Equal("mov ax, [2555]"))
		})

		It("should decode accumulator to memory", func() {
			Expect(decode(0xA2, 0x0F, 0x00).String()).To(Equal("mov [15], al"))
		})
	})

	Describe("Arithmetic", func() {
		It("should decode sub ax, ax", func() {
			inst := decode(0x2B, 0xC0)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.String()).To(Equal("sub ax, ax"))
		})

		It("should decode add reg, [mem]", func() {
			Expect(decode(0x03, 0x18).String()).To(Equal("add bx, [bx+si]"))
		})

		It("should decode cmp r/m, reg", func() {
			Expect(decode(0x39, 0xD8).String()).To(Equal("cmp ax, bx"))
		})

		It("should select the operation from the REG field of 100000sw", func() {
			Expect(decode(0x83, 0xC6, 0x02).String()).To(Equal("add si, 2"))
			Expect(decode(0x83, 0xEE, 0x02).String()).To(Equal("sub si, 2"))
			Expect(decode(0x83, 0xF9, 0xFE).String()).To(Equal("cmp cx, -2"))
		})

		It("should sign-extend imm8 when s=1 and w=1", func() {
			inst := decode(0x83, 0xF9, 0xFE)

			Expect(inst.Src).To(Equal(insts.ImmOperand{Value: 0xFFFE, Signed: true}))
			Expect(inst.Len).To(Equal(3))
		})

		It("should read a full imm16 when s=0 and w=1", func() {
			inst := decode(0x81, 0x02, 0xE8, 0x03)

			Expect(inst.Len).To(Equal(4))
			Expect(inst.String()).To(Equal("add word [bp+si], 1000"))
		})

		It("should decode byte memory immediates", func() {
			Expect(decode(0x80, 0x07, 0x22).String()).To(Equal("add byte [bx], 34"))
		})

		It("should decode accumulator immediates", func() {
			Expect(decode(0x05, 0xE8, 0x03).String()).To(Equal("add ax, 1000"))
			Expect(decode(0x2C, 0x09).String()).To(Equal("sub al, 9"))
			Expect(decode(0x3C, 0xE2).String()).To(Equal("cmp al, 226"))
		})

		It("should leave unsupported selectors unrecognized", func() {
			// 08 C0 is "or al, al"; 80 C8 05 is "or al, 5".
			Expect(decode(0x08, 0xC0).Op).To(Equal(insts.OpUnknown))
			Expect(decode(0x80, 0xC8, 0x05).Op).To(Equal(insts.OpUnknown))
			Expect(decode(0x0C, 0x05).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("Branches", func() {
		It("should decode every conditional jump in opcode order", func() {
			for i := 0; i < 16; i++ {
				inst := decode(0x70+byte(i), 0x00)
				Expect(inst.Op).To(Equal(insts.OpJO + insts.Op(i)))
				Expect(inst.Len).To(Equal(2))
			}
		})

		It("should decode the loop family", func() {
			Expect(decode(0xE0, 0x00).Op).To(Equal(insts.OpLOOPNZ))
			Expect(decode(0xE1, 0x00).Op).To(Equal(insts.OpLOOPZ))
			Expect(decode(0xE2, 0x00).Op).To(Equal(insts.OpLOOP))
			Expect(decode(0xE3, 0x00).Op).To(Equal(insts.OpJCXZ))
		})

		It("should render displacements relative to the instruction start", func() {
			Expect(decode(0x75, 0x02).String()).To(Equal("jne $+4+0"))
			Expect(decode(0x75, 0xFE).String()).To(Equal("jne $+0"))
			Expect(decode(0xE2, 0xFC).String()).To(Equal("loop $-2+0"))
		})

		It("should keep the raw displacement", func() {
			Expect(decode(0x75, 0xFE).Dst).To(Equal(insts.RelOperand{Disp: -2}))
		})
	})

	Describe("Unknown opcodes", func() {
		It("should consume exactly one byte", func() {
			c := insts.NewCursor([]byte{0xF4, 0xB8})
			inst, err := decoder.Decode(c)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Len).To(Equal(1))
			Expect(c.Pos()).To(Equal(1))
		})

		It("should describe the byte in hex and binary", func() {
			inst := decode(0xF4)

			Expect(inst.Diagnostic()).To(Equal("unknown instruction 0xF4 (1111 0100)"))
			Expect(inst.String()).To(Equal("; unknown instruction 0xF4 (1111 0100)"))
		})
	})

	Describe("Truncated streams", func() {
		DescribeTable("should fail when operand bytes are missing",
			func(code []byte) {
				_, err := decoder.Decode(insts.NewCursor(code))
				Expect(err).To(MatchError(insts.ErrTruncated))
			},
			Entry("mov reg, imm16", []byte{0xB8, 0x05}),
			Entry("mod r/m byte", []byte{0x89}),
			Entry("direct address", []byte{0x8B, 0x1E, 0x04}),
			Entry("peeked mod r/m", []byte{0xC6}),
			Entry("immediate after displacement", []byte{0xC7, 0x85, 0x85, 0x03, 0x5B}),
			Entry("branch displacement", []byte{0x75}),
		)
	})

	Describe("Byte consumption", func() {
		DescribeTable("should consume the encoded length",
			func(code []byte, length int) {
				Expect(decode(code...).Len).To(Equal(length))
			},
			Entry("reg, reg", []byte{0x89, 0xD8}, 2),
			Entry("mod=00", []byte{0x8B, 0x00}, 2),
			Entry("mod=00 direct", []byte{0x8B, 0x06, 0x00, 0x10}, 4),
			Entry("mod=01", []byte{0x8B, 0x40, 0x01}, 3),
			Entry("mod=10", []byte{0x8B, 0x80, 0x01, 0x02}, 4),
			Entry("imm8 to byte reg", []byte{0xB0, 0x01}, 2),
			Entry("imm16 to word reg", []byte{0xBB, 0x01, 0x02}, 3),
			Entry("sign-extended imm to mem", []byte{0x83, 0x06, 0x00, 0x10, 0x01}, 5),
			Entry("acc imm16", []byte{0x2D, 0x01, 0x02}, 3),
			Entry("acc mem", []byte{0xA3, 0x01, 0x02}, 3),
		)
	})

	Describe("Disassemble", func() {
		It("should produce a NASM listing", func() {
			listing, err := decoder.Disassemble([]byte{0xB8, 0x05, 0x00, 0xF4, 0x75, 0xFE})

			Expect(err).ToNot(HaveOccurred())
			Expect(listing).To(Equal("bits 16\n" +
				"mov ax, 5\n" +
				"; unknown instruction 0xF4 (1111 0100)\n" +
				"jne $+0\n"))
		})

		It("should return the partial listing on truncation", func() {
			listing, err := decoder.Disassemble([]byte{0x89, 0xD8, 0xB8})

			Expect(err).To(MatchError(insts.ErrTruncated))
			Expect(listing).To(Equal("bits 16\nmov ax, bx\n"))
		})
	})
})
