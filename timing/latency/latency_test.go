package latency_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	decode := func(code ...byte) *insts.Instruction {
		inst, err := decoder.Decode(insts.NewCursor(code))
		Expect(err).ToNot(HaveOccurred())
		return inst
	}

	Describe("MOV", func() {
		It("should return 2 clocks for reg, reg", func() {
			// mov ax, bx
			Expect(table.GetClocks(decode(0x89, 0xD8), latency.ExecContext{})).
				To(Equal(latency.Estimate{Base: 2}))
		})

		It("should return 4 clocks for reg, imm", func() {
			// mov cx, 12
			Expect(table.GetClocks(decode(0xB9, 0x0C, 0x00), latency.ExecContext{}).Total()).
				To(Equal(uint64(4)))
		})

		It("should add EA clocks for reg, mem", func() {
			// mov bx, [4]
			est := table.GetClocks(decode(0x8B, 0x1E, 0x04, 0x00), latency.ExecContext{Addr: 4})
			Expect(est).To(Equal(latency.Estimate{Base: 8, EA: 6}))
		})

		It("should add EA clocks for mem, reg", func() {
			// mov [bp+si], ax
			est := table.GetClocks(decode(0x89, 0x02), latency.ExecContext{Addr: 0x100})
			Expect(est).To(Equal(latency.Estimate{Base: 9, EA: 8}))
		})

		It("should skip EA for the accumulator forms", func() {
			// mov ax, [2555]
			est := table.GetClocks(decode(0xA1, 0xFB, 0x09), latency.ExecContext{Addr: 2555})
			Expect(est).To(Equal(latency.Estimate{Base: 10, Penalty: 4}))
		})
	})

	Describe("arithmetic", func() {
		It("should return 3 clocks for reg, reg", func() {
			// sub ax, ax
			Expect(table.GetClocks(decode(0x2B, 0xC0), latency.ExecContext{}).Total()).To(Equal(uint64(3)))
		})

		It("should return 4 clocks for acc, imm", func() {
			// add ax, 1000
			Expect(table.GetClocks(decode(0x05, 0xE8, 0x03), latency.ExecContext{}).Total()).To(Equal(uint64(4)))
		})

		It("should return 4 clocks for reg, imm", func() {
			// add si, 2
			Expect(table.GetClocks(decode(0x83, 0xC6, 0x02), latency.ExecContext{}).Total()).To(Equal(uint64(4)))
		})

		It("should charge read-modify-write for mem, reg", func() {
			// add [bx], ax at an odd address: two penalized transfers
			est := table.GetClocks(decode(0x01, 0x07), latency.ExecContext{Addr: 0x101})
			Expect(est).To(Equal(latency.Estimate{Base: 16, EA: 5, Penalty: 8}))
		})

		It("should charge cmp mem, reg as a single transfer", func() {
			// cmp [bx], ax
			est := table.GetClocks(decode(0x39, 0x07), latency.ExecContext{Addr: 0x101})
			Expect(est).To(Equal(latency.Estimate{Base: 9, EA: 5, Penalty: 4}))
		})

		It("should price mem, imm", func() {
			// add word [bp+si], 1000
			Expect(table.GetClocks(decode(0x81, 0x02, 0xE8, 0x03), latency.ExecContext{}).Total()).
				To(Equal(uint64(17 + 8)))
			// cmp word [32], 9
			Expect(table.GetClocks(decode(0x83, 0x3E, 0x20, 0x00, 0x09), latency.ExecContext{}).Total()).
				To(Equal(uint64(10 + 6)))
		})
	})

	Describe("branches", func() {
		It("should distinguish taken and not taken jumps", func() {
			inst := decode(0x75, 0xFE)
			Expect(table.GetClocks(inst, latency.ExecContext{Taken: true}).Total()).To(Equal(uint64(16)))
			Expect(table.GetClocks(inst, latency.ExecContext{}).Total()).To(Equal(uint64(4)))
		})

		DescribeTable("should price the loop family",
			func(opcode byte, taken, notTaken uint64) {
				inst := decode(opcode, 0xFE)
				Expect(table.GetClocks(inst, latency.ExecContext{Taken: true}).Total()).To(Equal(taken))
				Expect(table.GetClocks(inst, latency.ExecContext{}).Total()).To(Equal(notTaken))
			},
			Entry("loopnz", byte(0xE0), uint64(19), uint64(5)),
			Entry("loopz", byte(0xE1), uint64(18), uint64(6)),
			Entry("loop", byte(0xE2), uint64(17), uint64(5)),
			Entry("jcxz", byte(0xE3), uint64(18), uint64(6)),
		)
	})

	Describe("word transfer penalty", func() {
		It("should charge the 8086 only for odd addresses", func() {
			inst := decode(0x8B, 0x1E, 0x04, 0x00)
			Expect(table.GetClocks(inst, latency.ExecContext{Addr: 4}).Penalty).To(BeZero())
			Expect(table.GetClocks(inst, latency.ExecContext{Addr: 5}).Penalty).To(Equal(uint64(4)))
		})

		It("should charge the 8088 for every word transfer", func() {
			config := latency.DefaultTimingConfig()
			config.CPU = latency.CPU8088
			table = latency.NewTableWithConfig(config)

			inst := decode(0x8B, 0x1E, 0x04, 0x00)
			Expect(table.GetClocks(inst, latency.ExecContext{Addr: 4}).Penalty).To(Equal(uint64(4)))
		})

		It("should never charge byte transfers", func() {
			config := latency.DefaultTimingConfig()
			config.CPU = latency.CPU8088
			table = latency.NewTableWithConfig(config)

			// mov ah, [bx+si+4]
			inst := decode(0x8A, 0x60, 0x04)
			Expect(table.GetClocks(inst, latency.ExecContext{Addr: 5}).Penalty).To(BeZero())
		})
	})

	DescribeTable("EAClocks",
		func(code []byte, want uint64) {
			m, ok := latency.MemOperand(decode(code...))
			Expect(ok).To(BeTrue())
			Expect(latency.EAClocks(m)).To(Equal(want))
		},
		Entry("direct", []byte{0x8B, 0x1E, 0x04, 0x00}, uint64(6)),
		Entry("base", []byte{0x8B, 0x07}, uint64(5)),
		Entry("base+disp", []byte{0x8B, 0x47, 0x02}, uint64(9)),
		Entry("bx+si", []byte{0x8B, 0x00}, uint64(7)),
		Entry("bp+di", []byte{0x8B, 0x03}, uint64(7)),
		Entry("bx+di", []byte{0x8B, 0x01}, uint64(8)),
		Entry("bp+si", []byte{0x8B, 0x02}, uint64(8)),
		Entry("bx+si+disp", []byte{0x8B, 0x40, 0x04}, uint64(11)),
		Entry("bp+si+disp16", []byte{0x8B, 0x82, 0x00, 0x01}, uint64(12)),
	)

	Describe("classification", func() {
		It("should identify memory operations", func() {
			Expect(table.IsMemoryOp(decode(0x8B, 0x07))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(0x89, 0xD8))).To(BeFalse())
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
		})

		It("should identify branches", func() {
			Expect(table.IsBranchOp(decode(0xE2, 0xFE))).To(BeTrue())
			Expect(table.IsBranchOp(decode(0x89, 0xD8))).To(BeFalse())
		})

		It("should return zero for unknown bytes", func() {
			Expect(table.GetClocks(decode(0xF4), latency.ExecContext{})).To(BeZero())
		})
	})
})
