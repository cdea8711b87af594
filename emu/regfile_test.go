package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/emu"
	"github.com/sarchlab/sim86/insts"
)

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	Describe("register aliasing", func() {
		It("should expose the halves of AX as AL and AH", func() {
			regFile.WriteReg(insts.RegAX, 0x1234)

			Expect(regFile.ReadReg(insts.RegAL)).To(Equal(uint16(0x34)))
			Expect(regFile.ReadReg(insts.RegAH)).To(Equal(uint16(0x12)))
		})

		It("should write AL without touching AH", func() {
			regFile.WriteReg(insts.RegAX, 0x1234)
			regFile.WriteReg(insts.RegAL, 0xFF)

			Expect(regFile.ReadReg(insts.RegAX)).To(Equal(uint16(0x12FF)))
		})

		It("should write BH without touching BL", func() {
			regFile.WriteReg(insts.RegBX, 0x1234)
			regFile.WriteReg(insts.RegBH, 0xAB)

			Expect(regFile.ReadReg(insts.RegBX)).To(Equal(uint16(0xAB34)))
			Expect(regFile.ReadReg(insts.RegBL)).To(Equal(uint16(0x34)))
		})

		It("should discard bits beyond a byte register", func() {
			regFile.WriteReg(insts.RegCL, 0x1FF)

			Expect(regFile.ReadReg(insts.RegCX)).To(Equal(uint16(0x00FF)))
		})

		It("should keep every byte view consistent with its parent", func() {
			pairs := [][3]insts.Reg{
				{insts.RegAX, insts.RegAL, insts.RegAH},
				{insts.RegCX, insts.RegCL, insts.RegCH},
				{insts.RegDX, insts.RegDL, insts.RegDH},
				{insts.RegBX, insts.RegBL, insts.RegBH},
			}
			for i, p := range pairs {
				regFile.WriteReg(p[0], uint16(0x1111*(i+1)+0x0F))
			}
			for _, p := range pairs {
				word := regFile.ReadReg(p[0])
				Expect(regFile.ReadReg(p[1])).To(Equal(word & 0xFF))
				Expect(regFile.ReadReg(p[2])).To(Equal(word >> 8))
			}
		})

		It("should not alias SP, BP, SI and DI", func() {
			regFile.WriteReg(insts.RegSP, 1)
			regFile.WriteReg(insts.RegBP, 2)
			regFile.WriteReg(insts.RegSI, 3)
			regFile.WriteReg(insts.RegDI, 4)

			Expect(regFile.ReadReg(insts.RegAX)).To(BeZero())
			Expect(regFile.ReadReg(insts.RegSP)).To(Equal(uint16(1)))
			Expect(regFile.ReadReg(insts.RegBP)).To(Equal(uint16(2)))
			Expect(regFile.ReadReg(insts.RegSI)).To(Equal(uint16(3)))
			Expect(regFile.ReadReg(insts.RegDI)).To(Equal(uint16(4)))
		})
	})

	Describe("EffectiveAddress", func() {
		BeforeEach(func() {
			regFile.WriteReg(insts.RegBX, 0x1000)
			regFile.WriteReg(insts.RegSI, 0x0020)
			regFile.WriteReg(insts.RegBP, 0xFFFF)
		})

		It("should sum bases and displacement", func() {
			m := insts.MemOperand{Bases: [2]insts.Reg{insts.RegBX, insts.RegSI}, NumBases: 2, Disp: 4, DispSize: 1}
			Expect(regFile.EffectiveAddress(m)).To(Equal(uint16(0x1024)))
		})

		It("should use the displacement alone for direct addresses", func() {
			m := insts.MemOperand{Disp: 4, DispSize: 2}
			Expect(regFile.EffectiveAddress(m)).To(Equal(uint16(4)))
		})

		It("should wrap at 16 bits", func() {
			m := insts.MemOperand{Bases: [2]insts.Reg{insts.RegBP}, NumBases: 1, Disp: 2, DispSize: 1}
			Expect(regFile.EffectiveAddress(m)).To(Equal(uint16(1)))
		})
	})

	Describe("Flags", func() {
		It("should render no flags as 0", func() {
			Expect(emu.Flags(0).String()).To(Equal("0"))
		})

		It("should render letters in CPAZSTIDO order", func() {
			f := emu.FlagSign | emu.FlagZero | emu.FlagCarry
			Expect(f.String()).To(Equal("CZS"))
		})

		It("should set and clear bits", func() {
			var f emu.Flags
			f.Set(emu.FlagZero, true)
			Expect(f.Has(emu.FlagZero)).To(BeTrue())
			f.Set(emu.FlagZero, false)
			Expect(f).To(BeZero())
		})

		It("should use the hardware bit positions", func() {
			Expect(uint16(emu.FlagZero)).To(Equal(uint16(0x40)))
			Expect(uint16(emu.FlagSign)).To(Equal(uint16(0x80)))
			Expect(uint16(emu.FlagOverflow)).To(Equal(uint16(0x800)))
		})
	})
})
