package sim

import (
	"log"
	"sync"
	"time"
)

// A RealtimeEngine runs events one after another, like the SerialEngine,
// but paces them against the wall clock: an event scheduled at simulation
// time t is handled no earlier than t seconds after Run is called. This is
// the engine that makes the simulator soft real time when it serves remote
// clients.
//
// The pacing is best effort. If a handler overruns its slot, later events
// run as soon as possible without skipping.
type RealtimeEngine struct {
	HookableBase

	timeLock       sync.RWMutex
	time           VTimeInSec
	queue          EventQueue
	secondaryQueue EventQueue

	start     time.Time
	startOnce sync.Once

	stop     chan struct{}
	stopOnce sync.Once

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewRealtimeEngine creates a RealtimeEngine.
func NewRealtimeEngine() *RealtimeEngine {
	e := new(RealtimeEngine)

	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()
	e.stop = make(chan struct{})

	return e
}

// Schedule registers an event to happen in the future.
func (e *RealtimeEngine) Schedule(evt Event) {
	now := e.readNow()
	if evt.Time() < now {
		log.Panic("scheduling an event earlier than current time")
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
		return
	}

	e.queue.Push(evt)
}

func (e *RealtimeEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()
	return t
}

func (e *RealtimeEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes events at their wall-clock times until no event is left or
// Terminate is called. The wall-clock anchor is set on the first call.
func (e *RealtimeEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	e.startOnce.Do(func() { e.start = time.Now() })

	for {
		if e.terminated() {
			return nil
		}

		if e.noMoreEvent() {
			return nil
		}

		e.pauseLock.Lock()

		evt := e.nextEvent()
		if !e.waitUntil(evt.Time()) {
			// Terminated mid-wait. Outstanding ticks are abandoned.
			e.pauseLock.Unlock()
			return nil
		}

		e.writeNow(evt.Time())
		e.handleEvent(evt)

		e.pauseLock.Unlock()
	}
}

// waitUntil sleeps until the wall-clock time that corresponds to simulation
// time t. It returns false if the engine is terminated during the wait.
func (e *RealtimeEngine) waitUntil(t VTimeInSec) bool {
	target := e.start.Add(time.Duration(float64(t) * float64(time.Second)))
	delay := time.Until(target)
	if delay <= 0 {
		return !e.terminated()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-e.stop:
		return false
	}
}

func (e *RealtimeEngine) terminated() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}

func (e *RealtimeEngine) handleEvent(evt Event) {
	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	handler := evt.Handler()
	_ = handler.Handle(evt)

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)
}

func (e *RealtimeEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

func (e *RealtimeEngine) nextEvent() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	primaryEvt := e.queue.Peek()
	secondaryEvt := e.secondaryQueue.Peek()

	if primaryEvt.Time() <= secondaryEvt.Time() {
		e.queue.Pop()
		return primaryEvt
	}

	e.secondaryQueue.Pop()
	return secondaryEvt
}

// Terminate stops the run loop. It is safe to call from any goroutine and
// more than once.
func (e *RealtimeEngine) Terminate() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Pause prevents the RealtimeEngine from triggering more events.
func (e *RealtimeEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the RealtimeEngine to trigger more events.
func (e *RealtimeEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the simulation time of the most recently handled
// event.
func (e *RealtimeEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler to be called after the
// simulation ends.
func (e *RealtimeEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished calls all the registered SimulationEndHandlers.
func (e *RealtimeEngine) Finished() {
	now := e.readNow()
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
