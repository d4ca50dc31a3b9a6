package pv

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Value", func() {
	It("should copy array contents on construction and access", func() {
		src := []float64{1, 2, 3}
		v := NewFloats(src)

		src[0] = 99
		Expect(v.Floats()).To(Equal([]float64{1, 2, 3}))

		out := v.Floats()
		out[1] = 99
		Expect(v.Floats()).To(Equal([]float64{1, 2, 3}))
	})

	It("should report lengths", func() {
		Expect(NewFloat(1).Len()).To(Equal(1))
		Expect(NewInts([]int64{480, 640}).Len()).To(Equal(2))
	})

	It("should not coerce arrays into scalars", func() {
		_, err := NewFloats([]float64{1}).convertTo(Float)
		Expect(err).To(HaveOccurred())

		_, err = NewInts([]int64{1}).convertTo(FloatArray)
		Expect(err).To(HaveOccurred())
	})

	It("should expose plain Go values for encoding", func() {
		Expect(NewInt(3).Interface()).To(Equal(int64(3)))
		Expect(NewFloat(0.5).Interface()).To(Equal(0.5))
		Expect(NewInts([]int64{480, 640}).Interface()).
			To(Equal([]int64{480, 640}))
	})
})
