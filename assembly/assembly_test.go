package assembly

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

var _ = Describe("Assembly", func() {
	var (
		registry  *pv.Registry
		scheduler *scan.Scheduler
	)

	BeforeEach(func() {
		registry = pv.NewRegistry("LAS:TEST:")
		scheduler = scan.NewScheduler(sim.NewSerialEngine())
	})

	Context("centroid variant", func() {
		It("should compose the camera pair and the beam current", func() {
			a := MakeBuilder().
				WithRegistry(registry).
				WithScheduler(scheduler).
				WithVariant(VariantCentroid).
				WithSeed(1).
				Build()

			Expect(a.Variant()).To(Equal(VariantCentroid))
			Expect(a.NF).NotTo(BeNil())
			Expect(a.FF).NotTo(BeNil())
			Expect(a.Dot).To(BeNil())

			Expect(a.NF.Width()).To(Equal(2592))
			Expect(a.NF.Height()).To(Equal(1944))
			Expect(a.FF.Width()).To(Equal(1440))
			Expect(a.FF.Height()).To(Equal(1080))

			for _, path := range []string{
				"LAS:TEST:current",
				"LAS:TEST:NF:Centroid_X",
				"LAS:TEST:NF:Centroid_Y",
				"LAS:TEST:FF:Centroid_X",
				"LAS:TEST:FF:Centroid_Y",
			} {
				_, found := registry.Lookup(path)
				Expect(found).To(BeTrue(), "missing %s", path)
			}
		})

		It("should not couple the cameras by default", func() {
			a := MakeBuilder().
				WithRegistry(registry).
				WithScheduler(scheduler).
				Build()

			Expect(a.NF.Tip).To(BeNil())
			_, found := registry.Lookup("LAS:TEST:NF:TIP:STEPS")
			Expect(found).To(BeFalse())
		})

		It("should declare actuators on both cameras when coupled", func() {
			a := MakeBuilder().
				WithRegistry(registry).
				WithScheduler(scheduler).
				WithCoupling().
				Build()

			Expect(a.NF.Tip).NotTo(BeNil())
			Expect(a.FF.Tilt).NotTo(BeNil())

			for _, path := range []string{
				"LAS:TEST:NF:TIP:STEPS",
				"LAS:TEST:NF:TILT:VOLTAGE",
				"LAS:TEST:FF:TIP:STEPS",
				"LAS:TEST:FF:TILT:VOLTAGE",
			} {
				_, found := registry.Lookup(path)
				Expect(found).To(BeTrue(), "missing %s", path)
			}
		})
	})

	Context("imaging variant", func() {
		It("should compose the full-frame camera and the beam current", func() {
			a := MakeBuilder().
				WithRegistry(registry).
				WithScheduler(scheduler).
				WithVariant(VariantImaging).
				WithSeed(1).
				Build()

			Expect(a.Variant()).To(Equal(VariantImaging))
			Expect(a.NF).To(BeNil())
			Expect(a.Dot).NotTo(BeNil())

			for _, path := range []string{
				"LAS:TEST:current",
				"LAS:TEST:NF:ArrayData",
				"LAS:TEST:NF:img_sum",
				"LAS:TEST:NF:exp",
				"LAS:TEST:NF:shutter_open",
			} {
				_, found := registry.Lookup(path)
				Expect(found).To(BeTrue(), "missing %s", path)
			}
		})
	})

	Context("beam current", func() {
		var a *Assembly

		BeforeEach(func() {
			a = MakeBuilder().
				WithRegistry(registry).
				WithScheduler(scheduler).
				Build()
		})

		It("should start at the mean", func() {
			Expect(a.Current.Float()).To(Equal(500.0))
		})

		It("should follow a 4 second sinusoid", func() {
			a.recomputeCurrent(0.0, a.Current)
			Expect(a.Current.Float()).To(BeNumerically("~", 500.0, 1e-9))

			a.recomputeCurrent(1.0, a.Current)
			Expect(a.Current.Float()).To(BeNumerically("~", 525.0, 1e-9))

			a.recomputeCurrent(3.0, a.Current)
			Expect(a.Current.Float()).To(BeNumerically("~", 475.0, 1e-9))
		})

		It("should stay within the waveform envelope", func() {
			for t := 0.0; t < 8.0; t += 0.1 {
				a.recomputeCurrent(sim.VTimeInSec(t), a.Current)
				Expect(a.Current.Float()).To(
					BeNumerically(">=", 475.0))
				Expect(a.Current.Float()).To(
					BeNumerically("<=", 525.0))
			}
		})

		It("should reject external writes", func() {
			_, err := registry.Write(
				"LAS:TEST:current", pv.NewFloat(600))
			Expect(err).To(HaveOccurred())
		})
	})

	Context("parameter checking", func() {
		It("should panic without a registry", func() {
			Expect(func() {
				MakeBuilder().WithScheduler(scheduler).Build()
			}).To(Panic())
		})

		It("should panic without a scheduler", func() {
			Expect(func() {
				MakeBuilder().WithRegistry(registry).Build()
			}).To(Panic())
		})

		It("should panic on an unknown variant", func() {
			Expect(func() {
				MakeBuilder().
					WithRegistry(registry).
					WithScheduler(scheduler).
					WithVariant("holography").
					Build()
			}).To(Panic())
		})

		It("should panic when coupling the imaging variant", func() {
			Expect(func() {
				MakeBuilder().
					WithRegistry(registry).
					WithScheduler(scheduler).
					WithVariant(VariantImaging).
					WithCoupling().
					Build()
			}).To(Panic())
		})
	})
})

var _ = Describe("Assembly with a real-time engine", func() {
	It("should settle centroids near the sensor center", func() {
		registry := pv.NewRegistry("LAS:TEST:")
		engine := sim.NewRealtimeEngine()
		scheduler := scan.NewScheduler(engine)

		a := MakeBuilder().
			WithRegistry(registry).
			WithScheduler(scheduler).
			WithSeed(1).
			Build()

		scheduler.Start()
		done := make(chan error, 1)
		go func() { done <- engine.Run() }()

		Eventually(func() float64 {
			return a.NF.CentroidX.Float()
		}, "3s", "20ms").Should(BeNumerically(">=", 1296.0))

		engine.Terminate()
		Expect(<-done).To(Succeed())

		Expect(a.NF.NominalX.Float()).To(Equal(1296.0))
		Expect(a.NF.NominalY.Float()).To(Equal(972.0))
		Expect(a.FF.NominalX.Float()).To(Equal(720.0))

		x := a.NF.CentroidX.Float()
		Expect(x).To(BeNumerically(">=", 1296.0))
		Expect(x).To(BeNumerically("<", 1305.0))

		Expect(math.Abs(a.Current.Float() - 500.0)).To(
			BeNumerically("<=", 25.0))
	})
})
