// Package assembly composes camera units, actuator readbacks, and the beam
// current generator into the single addressable process-variable tree of
// one simulated pointing rig.
package assembly

import (
	"log"
	"math"
	"math/rand"

	"github.com/beamline/pointingsim/camera"
	"github.com/beamline/pointingsim/imaging"
	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

// Variant selects what the assembly is made of.
type Variant string

const (
	// VariantCentroid is a near-field/far-field centroid camera pair.
	VariantCentroid Variant = "centroid"

	// VariantImaging is the legacy full-frame camera.
	VariantImaging Variant = "imaging"
)

// CurrentRate is the recompute rate of the beam current.
const CurrentRate = 10 * sim.Hz

// PhotonRate is the photon rate per intensity unit per second of the
// imaging variant.
const PhotonRate = 200.0

// Frame dimensions of the centroid camera pair, in pixels.
const (
	NFWidth  = 2592
	NFHeight = 1944
	FFWidth  = 1440
	FFHeight = 1080
)

// Beam current waveform parameters.
const (
	currentMean      = 500.0
	currentAmplitude = 25.0
	currentPeriod    = 4.0
)

// Builder builds assemblies.
type Builder struct {
	registry  *pv.Registry
	scheduler *scan.Scheduler
	variant   Variant
	coupled   bool
	seed      int64
}

// MakeBuilder creates a Builder for a centroid-variant assembly.
func MakeBuilder() Builder {
	return Builder{variant: VariantCentroid}
}

// WithRegistry sets the registry the assembly declares its variables in.
func (b Builder) WithRegistry(r *pv.Registry) Builder {
	b.registry = r
	return b
}

// WithScheduler sets the scan scheduler that drives the assembly.
func (b Builder) WithScheduler(s *scan.Scheduler) Builder {
	b.scheduler = s
	return b
}

// WithVariant selects the assembly variant.
func (b Builder) WithVariant(v Variant) Builder {
	b.variant = v
	return b
}

// WithCoupling couples the centroid cameras to tip/tilt actuator
// readbacks. It only applies to the centroid variant.
func (b Builder) WithCoupling() Builder {
	b.coupled = true
	return b
}

// WithSeed seeds the noise sources of all units deterministically. A seed
// of 0 leaves the sources time-seeded.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build declares the full variable tree and registers all recompute tasks.
func (b Builder) Build() *Assembly {
	b.parametersMustBeValid()

	a := &Assembly{variant: b.variant}
	root := b.registry.Root()

	a.Current = root.ReadOnlyFloat("current", currentMean).
		WithDoc("Beam current")
	b.scheduler.Every(a.Current, CurrentRate, a.recomputeCurrent)

	switch b.variant {
	case VariantCentroid:
		a.NF = b.buildCamera("NF", NFWidth, NFHeight, 0)
		a.FF = b.buildCamera("FF", FFWidth, FFHeight, 1)
	case VariantImaging:
		dot := imaging.MakeBuilder().
			WithScheduler(b.scheduler).
			WithParent(root).
			WithPhotonRate(PhotonRate).
			WithIntensity(a.Current.Float)
		if b.seed != 0 {
			dot = dot.WithRandSource(rand.NewSource(b.seed))
		}
		a.Dot = dot.Build("NF")
	}

	return a
}

func (b Builder) buildCamera(
	name string,
	width, height int,
	seedOffset int64,
) *camera.Comp {
	cam := camera.MakeBuilder().
		WithScheduler(b.scheduler).
		WithParent(b.registry.Root()).
		WithWidth(width).
		WithHeight(height)
	if b.coupled {
		cam = cam.WithCoupling()
	}
	if b.seed != 0 {
		cam = cam.WithRandSource(rand.NewSource(b.seed + seedOffset))
	}

	return cam.Build(name)
}

func (b Builder) parametersMustBeValid() {
	if b.registry == nil {
		log.Panic("assembly requires a registry")
	}
	if b.scheduler == nil {
		log.Panic("assembly requires a scheduler")
	}
	if b.variant != VariantCentroid && b.variant != VariantImaging {
		log.Panicf("unknown assembly variant %q", b.variant)
	}
	if b.coupled && b.variant != VariantCentroid {
		log.Panic("coupling only applies to the centroid variant")
	}
}

// An Assembly is one simulated pointing rig.
type Assembly struct {
	variant Variant

	// Current is the shared beam current all units may read.
	Current *pv.Variable

	// NF and FF are the camera pair of the centroid variant.
	NF *camera.Comp
	FF *camera.Comp

	// Dot is the full-frame camera of the imaging variant.
	Dot *imaging.Comp
}

// Variant returns the variant the assembly was built as.
func (a *Assembly) Variant() Variant {
	return a.variant
}

// recomputeCurrent publishes the beam current waveform: a deterministic
// sinusoid in simulation time, independent of every other variable.
func (a *Assembly) recomputeCurrent(now sim.VTimeInSec, v *pv.Variable) {
	value := currentMean +
		currentAmplitude*math.Sin(float64(now)*2*math.Pi/currentPeriod)

	if _, err := v.Publish(pv.NewFloat(value)); err != nil {
		panic(err)
	}
}
