// Package scan drives the periodic recomputation of derived process
// variables. Each derived variable owns an independent periodic task with
// its own fixed rate; variables with startup-dependent defaults own a
// one-shot task that runs before any periodic tick.
package scan

import (
	"log"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/sim"
)

// A Recompute reads the registry's last-published values and publishes a
// new value into its variable. It must not block.
type Recompute func(now sim.VTimeInSec, v *pv.Variable)

type periodicTask struct {
	v    *pv.Variable
	freq sim.Freq
	fn   Recompute
}

type startupTask struct {
	v  *pv.Variable
	fn Recompute
}

type scanEvent struct {
	sim.EventBase
	task *periodicTask
}

type startupEvent struct {
	sim.EventBase
	task *startupTask
}

// A Scheduler schedules the scan and startup tasks of all variables as
// engine events. All tasks of one scheduler run on the engine's single
// timeline, so no task ever observes another task's in-flight value.
type Scheduler struct {
	engine  sim.Engine
	logger  *log.Logger
	started bool

	periodic []*periodicTask
	startups []*startupTask
}

// NewScheduler creates a Scheduler on the given engine.
func NewScheduler(engine sim.Engine) *Scheduler {
	return &Scheduler{
		engine: engine,
		logger: log.Default(),
	}
}

// Every registers a periodic recompute task for a variable at the given
// rate. All tasks must be registered before Start.
func (s *Scheduler) Every(v *pv.Variable, freq sim.Freq, fn Recompute) {
	s.mustNotBeStarted()

	if freq <= 0 {
		log.Panic("scan rate must be positive")
	}

	s.periodic = append(s.periodic, &periodicTask{v: v, freq: freq, fn: fn})
}

// AtStartup registers a one-shot task that runs once, before any periodic
// tick of any variable.
func (s *Scheduler) AtStartup(v *pv.Variable, fn Recompute) {
	s.mustNotBeStarted()

	s.startups = append(s.startups, &startupTask{v: v, fn: fn})
}

// Start schedules all registered tasks. Startup tasks are scheduled as
// primary events at the current time; periodic tasks are scheduled as
// secondary events starting one period later, so that same-time startup
// writes always commit first.
func (s *Scheduler) Start() {
	s.mustNotBeStarted()
	s.started = true

	now := s.engine.CurrentTime()

	for _, task := range s.startups {
		s.engine.Schedule(startupEvent{
			EventBase: sim.NewEventBase(now, s),
			task:      task,
		})
	}

	for _, task := range s.periodic {
		s.engine.Schedule(scanEvent{
			EventBase: sim.NewSecondaryEventBase(task.freq.NextTick(now), s),
			task:      task,
		})
	}
}

// Handle runs the task carried by the event. A periodic task is always
// rescheduled for its next tick, even if the current tick failed.
func (s *Scheduler) Handle(e sim.Event) error {
	switch evt := e.(type) {
	case startupEvent:
		s.runIsolated(evt.task.v, evt.task.fn, e.Time())
	case scanEvent:
		s.runIsolated(evt.task.v, evt.task.fn, e.Time())
		s.engine.Schedule(scanEvent{
			EventBase: sim.NewSecondaryEventBase(
				evt.task.freq.NextTick(e.Time()), s),
			task: evt.task,
		})
	default:
		log.Panicf("cannot handle event %T", e)
	}

	return nil
}

// runIsolated runs one task tick fail-open: a panic inside the task is
// logged and does not disturb the schedules of other tasks.
func (s *Scheduler) runIsolated(
	v *pv.Variable,
	fn Recompute,
	now sim.VTimeInSec,
) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("scan of %s at %.3f failed: %v", v.Path(), now, r)
		}
	}()

	fn(now, v)
}

func (s *Scheduler) mustNotBeStarted() {
	if s.started {
		log.Panic("scheduler already started")
	}
}
