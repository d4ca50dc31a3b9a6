package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler is a handler that is called after the simulation
// ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine drives the event-based simulation.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until no event is left or the engine is
	// terminated.
	Run() error

	// Pause pauses event processing until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// RegisterSimulationEndHandler registers a handler that performs some
	// action after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandlers.
	Finished()
}
