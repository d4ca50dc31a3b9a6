// Package camera implements a simulated pointing camera that reports the
// beam position as an X/Y centroid. The centroid follows an externally
// writable nominal position, optionally coupled to tip/tilt actuator step
// counts through calibration factors, with synthetic per-tick noise.
package camera

import (
	"log"
	"math/rand"
	"time"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

// CentroidRate is the recompute rate of the centroid variables.
const CentroidRate = 5 * sim.Hz

// Builder builds camera components.
type Builder struct {
	scheduler *scan.Scheduler
	parent    *pv.Group
	width     int
	height    int
	coupled   bool
	src       rand.Source
}

// MakeBuilder creates a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithScheduler sets the scan scheduler that drives the camera.
func (b Builder) WithScheduler(s *scan.Scheduler) Builder {
	b.scheduler = s
	return b
}

// WithParent sets the namespace group the camera declares its variables
// under.
func (b Builder) WithParent(g *pv.Group) Builder {
	b.parent = g
	return b
}

// WithWidth sets the sensor width in pixels.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithHeight sets the sensor height in pixels.
func (b Builder) WithHeight(height int) Builder {
	b.height = height
	return b
}

// WithCoupling makes the camera own tip/tilt actuator readbacks and couple
// the centroid to their step counts.
func (b Builder) WithCoupling() Builder {
	b.coupled = true
	return b
}

// WithRandSource sets the noise random source. Mainly useful in tests.
func (b Builder) WithRandSource(src rand.Source) Builder {
	b.src = src
	return b
}

// Build declares the camera's variables under the parent group and
// registers its recompute tasks.
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	if b.src == nil {
		b.src = rand.NewSource(time.Now().UnixNano())
	}

	c := &Comp{
		name:   name,
		width:  b.width,
		height: b.height,
		rng:    rand.New(b.src),
	}

	g := b.parent.Group(name)

	c.CentroidX = g.ReadOnlyFloat("Centroid_X", 0.0).
		WithDoc("Beam centroid X position, pixels")
	c.CentroidY = g.ReadOnlyFloat("Centroid_Y", 0.0).
		WithDoc("Beam centroid Y position, pixels")
	c.Noise = g.Float("NOISE", 5.0).
		WithDoc("Amplitude of the synthetic centroid noise, pixels")
	c.NominalX = g.Float("NOMINAL_X", 0.0).
		WithDoc("Nominal centroid X position, pixels")
	c.NominalY = g.Float("NOMINAL_Y", 0.0).
		WithDoc("Nominal centroid Y position, pixels")
	c.XFactor = g.Float("XFACTOR", 1.0).
		WithDoc("Centroid X shift per actuator step")
	c.YFactor = g.Float("YFACTOR", 1.0).
		WithDoc("Centroid Y shift per actuator step")

	if b.coupled {
		c.Tip = newActuator(g.Group("TIP"))
		c.Tilt = newActuator(g.Group("TILT"))
	}

	b.scheduler.AtStartup(c.NominalX,
		func(_ sim.VTimeInSec, v *pv.Variable) {
			mustPublish(v, pv.NewFloat(float64(c.width)/2))
		})
	b.scheduler.AtStartup(c.NominalY,
		func(_ sim.VTimeInSec, v *pv.Variable) {
			mustPublish(v, pv.NewFloat(float64(c.height)/2))
		})

	b.scheduler.Every(c.CentroidX, CentroidRate, c.recomputeX)
	b.scheduler.Every(c.CentroidY, CentroidRate, c.recomputeY)

	return c
}

func (b Builder) parametersMustBeValid() {
	if b.scheduler == nil {
		log.Panic("camera requires a scheduler")
	}
	if b.parent == nil {
		log.Panic("camera requires a parent group")
	}
	if b.width <= 0 || b.height <= 0 {
		log.Panic("camera requires positive frame dimensions")
	}
}

// Comp is a simulated centroid camera.
type Comp struct {
	name   string
	width  int
	height int

	CentroidX *pv.Variable
	CentroidY *pv.Variable
	Noise     *pv.Variable
	NominalX  *pv.Variable
	NominalY  *pv.Variable
	XFactor   *pv.Variable
	YFactor   *pv.Variable

	// Tip and Tilt are only present on coupled cameras.
	Tip  *Actuator
	Tilt *Actuator

	rng *rand.Rand
}

// Name returns the name of the camera.
func (c *Comp) Name() string {
	return c.name
}

// Width returns the sensor width in pixels.
func (c *Comp) Width() int {
	return c.width
}

// Height returns the sensor height in pixels.
func (c *Comp) Height() int {
	return c.height
}

func (c *Comp) recomputeX(_ sim.VTimeInSec, v *pv.Variable) {
	if !v.Initialized() {
		// First tick is clean: report the geometric center, no noise.
		mustPublish(v, pv.NewFloat(float64(c.width)/2))
		return
	}

	// TODO: clamp the centroid to the field of view; values can currently
	// leave the sensor.
	value := c.NominalX.Float() + c.couplingX() + c.pixelNoise()
	mustPublish(v, pv.NewFloat(value))
}

func (c *Comp) recomputeY(_ sim.VTimeInSec, v *pv.Variable) {
	if !v.Initialized() {
		mustPublish(v, pv.NewFloat(float64(c.height)/2))
		return
	}

	value := c.NominalY.Float() + c.couplingY() + c.pixelNoise()
	mustPublish(v, pv.NewFloat(value))
}

// pixelNoise draws the per-tick centroid noise. The draw is uniform on
// [0, 2*NOISE-1), not symmetric about zero.
func (c *Comp) pixelNoise() float64 {
	return c.rng.Float64() * (2*c.Noise.Float() - 1.0)
}

func (c *Comp) couplingX() float64 {
	if c.Tip == nil {
		return 0
	}
	return float64(c.Tip.Steps.Int()) * c.XFactor.Float()
}

func (c *Comp) couplingY() float64 {
	if c.Tilt == nil {
		return 0
	}
	return float64(c.Tilt.Steps.Int()) * c.YFactor.Float()
}

func mustPublish(v *pv.Variable, val pv.Value) {
	if _, err := v.Publish(val); err != nil {
		panic(err)
	}
}
