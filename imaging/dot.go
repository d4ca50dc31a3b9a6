// Package imaging implements the legacy full-frame camera unit: a 2-D
// detector image with a Poisson background and, when the shutter is open, a
// Gaussian dot whose position follows two motor inputs and whose amplitude
// scales with exposure time and the beam current.
package imaging

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

// FrameRate is the recompute rate of the detector image.
const FrameRate = 10 * sim.Hz

// Default frame geometry and synthesis parameters.
const (
	DefaultRows       = 480
	DefaultCols       = 640
	DefaultSigmaX     = 50.0
	DefaultSigmaY     = 25.0
	DefaultBackground = 1000.0
)

// dotFalloffScale attenuates the dot as the motors move it away from the
// frame center.
const dotFalloffScale = 100.0

// An IntensityFunc reports the beam intensity the dot amplitude scales
// with. The accessor is injected by the enclosing assembly; the unit has no
// back-pointer to it.
type IntensityFunc func() float64

// Builder builds imaging components.
type Builder struct {
	scheduler  *scan.Scheduler
	parent     *pv.Group
	rows       int
	cols       int
	sigmaX     float64
	sigmaY     float64
	background float64
	photonRate float64
	intensity  IntensityFunc
	src        rand.Source
}

// MakeBuilder creates a Builder with the default frame geometry.
func MakeBuilder() Builder {
	return Builder{
		rows:       DefaultRows,
		cols:       DefaultCols,
		sigmaX:     DefaultSigmaX,
		sigmaY:     DefaultSigmaY,
		background: DefaultBackground,
	}
}

// WithScheduler sets the scan scheduler that drives the unit.
func (b Builder) WithScheduler(s *scan.Scheduler) Builder {
	b.scheduler = s
	return b
}

// WithParent sets the namespace group the unit declares its variables
// under.
func (b Builder) WithParent(g *pv.Group) Builder {
	b.parent = g
	return b
}

// WithFrameSize sets the frame dimensions in pixels.
func (b Builder) WithFrameSize(rows, cols int) Builder {
	b.rows = rows
	b.cols = cols
	return b
}

// WithSigmas sets the per-axis widths of the dot, in pixels.
func (b Builder) WithSigmas(sigmaX, sigmaY float64) Builder {
	b.sigmaX = sigmaX
	b.sigmaY = sigmaY
	return b
}

// WithBackground sets the mean of the Poisson background field.
func (b Builder) WithBackground(mean float64) Builder {
	b.background = mean
	return b
}

// WithPhotonRate sets the photon rate per intensity unit per second.
func (b Builder) WithPhotonRate(rate float64) Builder {
	b.photonRate = rate
	return b
}

// WithIntensity injects the beam-intensity read accessor.
func (b Builder) WithIntensity(fn IntensityFunc) Builder {
	b.intensity = fn
	return b
}

// WithRandSource sets the random source. Mainly useful in tests.
func (b Builder) WithRandSource(src rand.Source) Builder {
	b.src = src
	return b
}

// Build declares the unit's variables under the parent group and registers
// the frame recompute task.
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	if b.src == nil {
		b.src = rand.NewSource(time.Now().UnixNano())
	}

	c := &Comp{
		name:       name,
		rows:       b.rows,
		cols:       b.cols,
		sigmaX:     b.sigmaX,
		sigmaY:     b.sigmaY,
		background: b.background,
		photonRate: b.photonRate,
		intensity:  b.intensity,
		rng:        rand.New(b.src),
	}

	g := b.parent.Group(name)

	c.ArrayData = g.ReadOnlyFloatArray(
		"ArrayData", make([]float64, b.rows*b.cols)).
		WithDoc(fmt.Sprintf("Detector image (%dx%d)", b.rows, b.cols))
	c.ImgSum = g.ReadOnlyFloat("img_sum", 0.0).
		WithDoc("Total photon count of the rendered image")
	c.MtrX = g.Float("mtrx", 0.0).
		WithDoc("Dot offset motor X")
	c.MtrY = g.Float("mtry", 0.0).
		WithDoc("Dot offset motor Y")
	c.Exp = g.Float("exp", 1.0).
		WithPutter(pv.ClampNonNegative).
		WithDoc("Exposure time, seconds")
	c.ShutterOpen = g.Int("shutter_open", 1).
		WithDoc("Shutter open/close")
	c.ArraySizeX = g.ReadOnlyInt("ArraySizeX_RBV", int64(b.cols)).
		WithDoc("Image array size X")
	c.ArraySizeY = g.ReadOnlyInt("ArraySizeY_RBV", int64(b.rows)).
		WithDoc("Image array size Y")
	c.ArraySize = g.ReadOnlyIntArray(
		"ArraySize_RBV", []int64{int64(b.rows), int64(b.cols)}).
		WithDoc("Image array size [Y, X]")

	b.scheduler.Every(c.ArrayData, FrameRate, c.recomputeFrame)

	return c
}

func (b Builder) parametersMustBeValid() {
	if b.scheduler == nil {
		log.Panic("imaging unit requires a scheduler")
	}
	if b.parent == nil {
		log.Panic("imaging unit requires a parent group")
	}
	if b.rows <= 0 || b.cols <= 0 {
		log.Panic("imaging unit requires positive frame dimensions")
	}
	if b.intensity == nil {
		log.Panic("imaging unit requires an intensity accessor")
	}
}

// Comp is a simulated full-frame camera.
type Comp struct {
	name       string
	rows       int
	cols       int
	sigmaX     float64
	sigmaY     float64
	background float64
	photonRate float64
	intensity  IntensityFunc

	ArrayData   *pv.Variable
	ImgSum      *pv.Variable
	MtrX        *pv.Variable
	MtrY        *pv.Variable
	Exp         *pv.Variable
	ShutterOpen *pv.Variable
	ArraySizeX  *pv.Variable
	ArraySizeY  *pv.Variable
	ArraySize   *pv.Variable

	rng *rand.Rand
}

// Name returns the name of the unit.
func (c *Comp) Name() string {
	return c.name
}

// recomputeFrame renders one detector image and publishes it together with
// its total photon count. The image sum is updated on every frame, shutter
// open or closed.
func (c *Comp) recomputeFrame(_ sim.VTimeInSec, v *pv.Variable) {
	frame := make([]float64, c.rows*c.cols)

	var total float64
	for i := range frame {
		s := float64(poisson(c.rng, c.background))
		frame[i] = s
		total += s
	}

	if c.ShutterOpen.Int() != 0 {
		total += c.renderDot(frame)
	}

	mustPublish(v, pv.NewFloats(frame))
	mustPublish(c.ImgSum, pv.NewFloat(total))
}

// renderDot adds the Poisson-sampled Gaussian dot to the frame and returns
// the added photon count.
func (c *Comp) renderDot(frame []float64) float64 {
	x := c.MtrX.Float()
	y := c.MtrY.Float()
	exposure := c.Exp.Float()
	intensity := c.intensity()

	falloff := math.Exp(-(x*x + y*y) / (dotFalloffScale * dotFalloffScale))
	gain := c.photonRate * exposure * intensity * falloff

	var added float64
	for row := 0; row < c.rows; row++ {
		dy := (float64(row) - float64(c.rows)/2 + y) / c.sigmaY
		for col := 0; col < c.cols; col++ {
			dx := (float64(col) - float64(c.cols)/2 + x) / c.sigmaX

			expected := gain * math.Exp(-(dx*dx+dy*dy)/2)
			s := float64(poisson(c.rng, expected))
			frame[row*c.cols+col] += s
			added += s
		}
	}

	return added
}

func mustPublish(v *pv.Variable, val pv.Value) {
	if _, err := v.Publish(val); err != nil {
		panic(err)
	}
}
