package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/insts"
)

var _ = Describe("Cursor", func() {
	var c *insts.Cursor

	BeforeEach(func() {
		c = insts.NewCursor([]byte{0x11, 0x22, 0x33})
	})

	It("should read bytes in order", func() {
		b, err := c.NextByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(0x11)))
		Expect(c.Pos()).To(Equal(1))
		Expect(c.Remaining()).To(Equal(2))
	})

	It("should peek without advancing", func() {
		b, err := c.PeekByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(0x11)))
		Expect(c.Pos()).To(Equal(0))
	})

	It("should report truncation past the end", func() {
		for i := 0; i < 3; i++ {
			_, err := c.NextByte()
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(c.Done()).To(BeTrue())

		_, err := c.NextByte()
		Expect(err).To(MatchError(insts.ErrTruncated))
		_, err = c.PeekByte()
		Expect(err).To(MatchError(insts.ErrTruncated))
	})

	Describe("Seek", func() {
		It("should move within the stream", func() {
			Expect(c.Seek(2)).To(Succeed())
			b, _ := c.NextByte()
			Expect(b).To(Equal(byte(0x33)))
		})

		It("should allow seeking to the end", func() {
			Expect(c.Seek(c.Len())).To(Succeed())
			Expect(c.Done()).To(BeTrue())
		})

		It("should reject positions outside the stream", func() {
			Expect(c.Seek(4)).To(MatchError(insts.ErrOutOfRange))
			Expect(c.Seek(-1)).To(MatchError(insts.ErrOutOfRange))
			Expect(c.Pos()).To(Equal(0))
		})
	})

	It("should treat an empty stream as done", func() {
		Expect(insts.NewCursor(nil).Done()).To(BeTrue())
	})
})
