package xcheck_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/insts"
	"github.com/sarchlab/sim86/xcheck"
)

var _ = Describe("Compare", func() {
	It("should agree on the supported instruction forms", func() {
		code := []byte{
			0x89, 0xD8, // mov ax, bx
			0x8B, 0x1E, 0x04, 0x00, // mov bx, [4]
			0x8A, 0x60, 0x04, // mov ah, [bx+si+4]
			0x89, 0x8C, 0xD4, 0xFE, // mov [si-300], cx
			0xC7, 0x85, 0x85, 0x03, 0x5B, 0x01, // mov word [di+901], 347
			0xB8, 0x05, 0x00, // mov ax, 5
			0xA1, 0xFB, 0x09, // mov ax, [2555]
			0xA3, 0x0F, 0x00, // mov [15], ax
			0x2B, 0xC0, // sub ax, ax
			0x03, 0x18, // add bx, [bx+si]
			0x83, 0xF9, 0xFE, // cmp cx, -2
			0x81, 0x02, 0xE8, 0x03, // add word [bp+si], 1000
			0x3C, 0xE2, // cmp al, 226
			0x75, 0xFE, // jne $+0
			0x7C, 0x02, // jl $+4+0
			0xE2, 0xFC, // loop $-2+0
			0xE3, 0x00, // jcxz $+2+0
		}

		report, err := xcheck.Compare(code)

		Expect(err).ToNot(HaveOccurred())
		Expect(report.Mismatches).To(BeEmpty())
		Expect(report.OK()).To(BeTrue())
		Expect(report.Compared).To(Equal(17))
		Expect(report.Skipped).To(BeZero())
	})

	It("should skip bytes sim86 does not recognize", func() {
		report, err := xcheck.Compare([]byte{0xF4, 0x89, 0xD8})

		Expect(err).ToNot(HaveOccurred())
		Expect(report.Skipped).To(Equal(1))
		Expect(report.Compared).To(Equal(1))
		Expect(report.OK()).To(BeTrue())
	})

	It("should stop on a truncated stream", func() {
		_, err := xcheck.Compare([]byte{0xB8, 0x05})
		Expect(err).To(MatchError(insts.ErrTruncated))
	})

	It("should describe mismatches", func() {
		m := xcheck.Mismatch{Offset: 4, Ours: "mov ax, bx", Theirs: "mov bx, ax", Reason: "operand 0"}
		Expect(m.String()).To(Equal(`offset 4: operand 0: sim86 "mov ax, bx", x86asm "mov bx, ax"`))
	})
})
