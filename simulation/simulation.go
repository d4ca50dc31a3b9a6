// Package simulation assembles a runnable simulator instance from its
// parts: engine, variable database, scan scheduler, rig assembly, monitor,
// and recorder.
package simulation

import (
	"github.com/beamline/pointingsim/assembly"
	"github.com/beamline/pointingsim/monitoring"
	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/recording"
	"github.com/beamline/pointingsim/scan"
	"github.com/beamline/pointingsim/sim"
)

// A Simulation is one fully wired simulator instance.
type Simulation struct {
	id string

	engine    sim.Engine
	registry  *pv.Registry
	scheduler *scan.Scheduler
	assembly  *assembly.Assembly

	dataRecorder recording.DataRecorder
	monitor      *monitoring.Monitor
	monitorPort  int
}

// ID returns the unique ID of the simulation instance.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine driving the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Registry returns the process-variable database.
func (s *Simulation) Registry() *pv.Registry {
	return s.registry
}

// Scheduler returns the scan scheduler.
func (s *Simulation) Scheduler() *scan.Scheduler {
	return s.scheduler
}

// Assembly returns the simulated rig.
func (s *Simulation) Assembly() *assembly.Assembly {
	return s.assembly
}

// DataRecorder returns the data recorder, or nil when recording is off.
func (s *Simulation) DataRecorder() recording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorPort returns the port the monitoring server listens on, or 0 when
// monitoring is off.
func (s *Simulation) MonitorPort() int {
	return s.monitorPort
}

// Run starts all scan tasks and processes events until the engine stops.
// It flushes and closes the recorder on the way out, whether the engine
// stopped cleanly or with an error.
func (s *Simulation) Run() error {
	s.scheduler.Start()

	runErr := s.engine.Run()
	if runErr == nil {
		s.engine.Finished()
	}

	if s.dataRecorder != nil {
		closeErr := s.dataRecorder.Close()
		if runErr == nil {
			runErr = closeErr
		}
	}

	return runErr
}

// Terminate stops a running simulation. It only acts on real-time engines;
// virtual-time engines stop when their event queues drain.
func (s *Simulation) Terminate() {
	if e, ok := s.engine.(*sim.RealtimeEngine); ok {
		e.Terminate()
	}
}
