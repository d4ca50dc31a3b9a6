package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		var f = 5 * Hz
		Expect(f.Period()).To(BeNumerically("==", 0.2))
	})

	It("should get this tick", func() {
		var f = 1 * Hz
		Expect(f.ThisTick(1)).To(BeNumerically("~", 1, 1e-12))
	})

	It("should get the next tick", func() {
		var f = 5 * Hz
		Expect(f.NextTick(0.2)).To(BeNumerically("~", 0.4, 1e-12))
	})

	It("should get the next tick, if currTime is not on a tick", func() {
		var f = 10 * Hz
		Expect(f.NextTick(0.25)).To(BeNumerically("~", 0.3, 1e-12))
	})

	It("should get the cycle count", func() {
		var f = 10 * Hz
		Expect(f.Cycle(1.5)).To(Equal(uint64(15)))
	})

	It("should get the no-earlier-than time, on tick", func() {
		var f = 5 * Hz
		Expect(f.NoEarlierThan(0.6)).To(BeNumerically("~", 0.6, 1e-12))
	})

	It("should get the no-earlier-than time, off tick", func() {
		var f = 5 * Hz
		Expect(f.NoEarlierThan(0.61)).To(BeNumerically("~", 0.8, 1e-12))
	})
})
