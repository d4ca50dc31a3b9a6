package simulation

import (
	"log"

	"github.com/rs/xid"

	"github.com/beamline/pointingsim/assembly"
	"github.com/beamline/pointingsim/monitoring"
	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/recording"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

// recorderFlusher pushes buffered samples to disk when the simulation
// ends, so that the database is complete even before the recorder closes.
type recorderFlusher struct {
	recorder recording.DataRecorder
}

func (f recorderFlusher) Handle(_ sim.VTimeInSec) {
	f.recorder.Flush()
}

// Builder can be used to build a simulation.
type Builder struct {
	prefix         string
	variant        assembly.Variant
	coupled        bool
	seed           int64
	serialEngine   bool
	eventTracing   bool
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder with a centroid-variant rig, a
// real-time engine, and monitoring on.
func MakeBuilder() Builder {
	return Builder{
		prefix:    "LAS:TEST:",
		variant:   assembly.VariantCentroid,
		monitorOn: true,
	}
}

// WithPrefix sets the path prefix of all process variables.
func (b Builder) WithPrefix(prefix string) Builder {
	b.prefix = prefix
	return b
}

// WithVariant selects the rig variant.
func (b Builder) WithVariant(v assembly.Variant) Builder {
	b.variant = v
	return b
}

// WithCoupling couples the centroid cameras to their actuator readbacks.
func (b Builder) WithCoupling() Builder {
	b.coupled = true
	return b
}

// WithSeed seeds all noise sources deterministically.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithSerialEngine sets the simulation to run in virtual time instead of
// wall-clock time.
func (b Builder) WithSerialEngine() Builder {
	b.serialEngine = true
	return b
}

// WithEventTracing logs every handled event to the standard logger.
func (b Builder) WithEventTracing() Builder {
	b.eventTracing = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording turns on sample recording.
func (b Builder) WithRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data
// recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}
	s.id = xid.New().String()

	s.engine = sim.NewRealtimeEngine()
	if b.serialEngine {
		s.engine = sim.NewSerialEngine()
	}
	if b.eventTracing {
		s.engine.AcceptHook(sim.NewEventLogger(log.Default()))
	}

	s.registry = pv.NewRegistry(b.prefix)
	s.scheduler = scan.NewScheduler(s.engine)

	ab := assembly.MakeBuilder().
		WithRegistry(s.registry).
		WithScheduler(s.scheduler).
		WithVariant(b.variant).
		WithSeed(b.seed)
	if b.coupled {
		ab = ab.WithCoupling()
	}
	s.assembly = ab.Build()

	if b.recordingOn {
		s.dataRecorder = recording.New(b.outputFileName)
		logger := recording.NewPVLogger(s.dataRecorder, s.engine)
		logger.Attach(s.registry)
		s.engine.RegisterSimulationEndHandler(
			recorderFlusher{recorder: s.dataRecorder})
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.RegisterRegistry(s.registry)
		s.monitorPort = s.monitor.StartServer()
	}

	return s
}
