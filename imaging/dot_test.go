package imaging

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

var _ = Describe("Imaging unit", func() {
	var (
		registry  *pv.Registry
		scheduler *scan.Scheduler
		intensity float64
	)

	BeforeEach(func() {
		registry = pv.NewRegistry("LAS:TEST:")
		scheduler = scan.NewScheduler(sim.NewSerialEngine())
		intensity = 500.0
	})

	build := func(background float64) *Comp {
		return MakeBuilder().
			WithScheduler(scheduler).
			WithParent(registry.Root()).
			WithFrameSize(6, 8).
			WithBackground(background).
			WithPhotonRate(200).
			WithIntensity(func() float64 { return intensity }).
			WithRandSource(rand.NewSource(1)).
			Build("NF")
	}

	sum := func(vals []float64) float64 {
		var t float64
		for _, v := range vals {
			t += v
		}
		return t
	}

	It("should expose the frame size metadata", func() {
		c := build(5)

		Expect(c.ArraySizeX.Int()).To(Equal(int64(8)))
		Expect(c.ArraySizeY.Int()).To(Equal(int64(6)))
		Expect(c.ArraySize.Get().Ints()).To(Equal([]int64{6, 8}))
		Expect(c.ArrayData.Get().Len()).To(Equal(48))
	})

	It("should clamp exposure writes to be non-negative", func() {
		build(5)

		stored, err := registry.Write("LAS:TEST:NF:exp", pv.NewFloat(-5.0))
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Float()).To(Equal(0.0))

		stored, err = registry.Write("LAS:TEST:NF:exp", pv.NewFloat(3.2))
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Float()).To(Equal(3.2))
	})

	It("should render background only when the shutter is closed", func() {
		c := build(5)
		_, err := c.ShutterOpen.Put(pv.NewInt(0))
		Expect(err).ToNot(HaveOccurred())

		c.recomputeFrame(0.1, c.ArrayData)

		frame := c.ArrayData.Get().Floats()
		Expect(c.ImgSum.Float()).To(Equal(sum(frame)))
		// Mean-5 Poisson pixels. A value this large would mean the dot
		// leaked into a closed-shutter frame.
		for _, px := range frame {
			Expect(px).To(BeNumerically("<", 50.0))
		}
	})

	It("should keep the image sum consistent with the shutter open", func() {
		c := build(5)

		c.recomputeFrame(0.1, c.ArrayData)

		Expect(c.ImgSum.Float()).To(Equal(sum(c.ArrayData.Get().Floats())))
	})

	It("should render an empty frame without background or exposure", func() {
		c := build(0)
		_, err := c.Exp.Put(pv.NewFloat(0.0))
		Expect(err).ToNot(HaveOccurred())

		c.recomputeFrame(0.1, c.ArrayData)

		Expect(c.ImgSum.Float()).To(Equal(0.0))
		for _, px := range c.ArrayData.Get().Floats() {
			Expect(px).To(Equal(0.0))
		}
	})

	It("should center the dot when the motors are at zero", func() {
		c := MakeBuilder().
			WithScheduler(scheduler).
			WithParent(registry.Root()).
			WithFrameSize(6, 8).
			WithBackground(0).
			WithSigmas(1, 1).
			WithPhotonRate(200).
			WithIntensity(func() float64 { return intensity }).
			WithRandSource(rand.NewSource(1)).
			Build("NF")

		c.recomputeFrame(0.1, c.ArrayData)

		frame := c.ArrayData.Get().Floats()
		Expect(sum(frame)).To(BeNumerically(">", 0.0))
		Expect(c.ImgSum.Float()).To(Equal(sum(frame)))

		// Expected amplitude at the center is rate*exp*intensity = 1e5
		// photons; with unit sigmas the corners are several sigma out and
		// must be dark by comparison.
		center := frame[3*8+4]
		Expect(center).To(BeNumerically(">", 1e4))
		Expect(frame[0]).To(BeNumerically("<", 100.0))
	})

	It("should reject external writes to the frame and sum", func() {
		c := build(5)

		_, err := c.ArrayData.Put(pv.NewFloats(make([]float64, 48)))
		Expect(err).To(HaveOccurred())
		_, err = c.ImgSum.Put(pv.NewFloat(1.0))
		Expect(err).To(HaveOccurred())
	})
})
