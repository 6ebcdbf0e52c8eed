// Package clock implements the time-control thread and the trigger futex
// (spec §4.1, §9 "Futex-based wait/wake: abstract as a condition variable
// with a published generation counter"). Structurally grounded on the
// teacher's PausableClock/ClockScheduler pair (engine/pausable_clock.go,
// engine/clock_scheduler.go): a dedicated goroutine paces itself with
// time.Timer against a computed deadline, drift-corrects instead of
// free-running, and exposes pause/resume as atomic-gated state rather than
// stopping the goroutine. The wake side is reworked from the teacher's
// channel-signaled scheduler into an explicit generation-counter condition
// variable, since update threads here must observe monotonically
// increasing ticks rather than a single "tick happened" pulse.
package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/logging"
)

var log = logging.Named("runtime.clock")

// State is the time-control thread's lifecycle state (spec §4.1).
type State int32

const (
	StateStop State = iota
	StateRun
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStop:
		return "STOP"
	case StateRun:
		return "RUN"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Trigger is the generation-counter condition variable update threads wait
// on in place of a raw futex word (spec §9).
type Trigger struct {
	mu   sync.Mutex
	cond *sync.Cond
	gen  uint64
}

// NewTrigger creates an unsignaled trigger at generation 0.
func NewTrigger() *Trigger {
	t := &Trigger{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Generation returns the current generation count.
func (t *Trigger) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Wake advances the generation and wakes every waiter.
func (t *Trigger) Wake() {
	t.mu.Lock()
	t.gen++
	t.cond.Broadcast()
	t.mu.Unlock()
}

// Wait blocks until the generation differs from last, returning the new
// generation. Used by update threads as `wait-until(counter != my_generation)`.
func (t *Trigger) Wait(last uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.gen == last {
		t.cond.Wait()
	}
	return t.gen
}

// Controller drives the virtual clock: it publishes ticks and runtime_ns
// at update_frequency, masked to a configurable counter width, and wakes
// the Trigger on every publish (spec §4.1).
type Controller struct {
	tickPeriodNS   int64
	updatePeriodNS int64
	tickMask       uint64

	ticks     atomic.Uint64
	runtimeNS atomic.Int64
	state     atomic.Int32

	trigger *Trigger

	// onTick, if set, runs synchronously after each publish and before the
	// trigger wake, so a subscriber (the timer wheel) observes the new
	// tick no later than anything woken by that same broadcast.
	onTick func(ticks uint64)

	startMono   time.Time
	pauseStart  time.Time
	pausedAccum int64 // nanoseconds spent paused, excluded from runtime_ns

	mu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewController creates a time-control thread configuration. tickFrequency
// is the controller-perceived clock rate; updateFrequency is the pacing
// rate at which ticks/runtime are republished; widthBits is the tick
// counter width (≤64).
func NewController(tickFrequency, updateFrequency float64, widthBits uint) *Controller {
	if widthBits == 0 || widthBits > 64 {
		widthBits = 32
	}
	var mask uint64
	if widthBits == 64 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << widthBits) - 1
	}
	c := &Controller{
		tickPeriodNS:   int64(1e9 / tickFrequency),
		updatePeriodNS: int64(1e9 / updateFrequency),
		tickMask:       mask,
		trigger:        NewTrigger(),
		stopCh:         make(chan struct{}),
	}
	c.state.Store(int32(StateStop))
	return c
}

// Trigger returns the wake/wait condition variable update threads block on.
func (c *Controller) Trigger() *Trigger {
	return c.trigger
}

// OnTick registers fn to run synchronously on every publish, before the
// trigger wakes its waiters. Must be called before Start.
func (c *Controller) OnTick(fn func(ticks uint64)) {
	c.onTick = fn
}

// Ticks returns the current published tick counter.
func (c *Controller) Ticks() uint64 {
	return c.ticks.Load()
}

// RuntimeNS returns the current published runtime in nanoseconds.
func (c *Controller) RuntimeNS() int64 {
	return c.runtimeNS.Load()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start transitions STOP→RUN and launches the time-control goroutine,
// which immediately enters RUNNING (spec §4.1).
func (c *Controller) Start() {
	if !c.state.CompareAndSwap(int32(StateStop), int32(StateRun)) {
		return
	}
	c.mu.Lock()
	c.startMono = time.Now()
	c.pausedAccum = 0
	c.mu.Unlock()
	c.ticks.Store(0)
	c.runtimeNS.Store(0)

	c.wg.Add(1)
	core.Go(c.loop)
}

// Stop is cooperative: it sets the control word to STOP and wakes the
// trigger so any blocked update thread observes it at the next wait point
// (spec §4.2 cancellation).
func (c *Controller) Stop() {
	prev := State(c.state.Swap(int32(StateStop)))
	if prev == StateStop {
		return
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	c.trigger.Wake()
	c.wg.Wait()
}

// Pause freezes tick/runtime publication; in-flight updates complete, new
// ones wait at the trigger (spec §4.1, §5).
func (c *Controller) Pause() {
	if c.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		c.mu.Lock()
		c.pauseStart = time.Now()
		c.mu.Unlock()
		log.Infof("clock paused at runtime_ns=%d", c.RuntimeNS())
	}
}

// Resume un-freezes publication; the elapsed pause duration is excluded
// from runtime_ns so resume is a continuation, not a jump (spec §8
// "pause; resume is the identity on tick and runtime").
func (c *Controller) Resume() {
	if c.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		c.mu.Lock()
		if !c.pauseStart.IsZero() {
			c.pausedAccum += time.Since(c.pauseStart).Nanoseconds()
			c.pauseStart = time.Time{}
		}
		c.mu.Unlock()
		log.Infof("clock resumed at runtime_ns=%d", c.RuntimeNS())
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()
	c.state.CompareAndSwap(int32(StateRun), int32(StateRunning))

	timer := time.NewTimer(time.Duration(c.updatePeriodNS))
	defer timer.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-timer.C:
		}

		if c.State() == StateStop {
			return
		}

		if c.State() != StatePaused {
			c.mu.Lock()
			accum := c.pausedAccum
			start := c.startMono
			c.mu.Unlock()

			now := time.Now()
			runtimeNS := now.Sub(start).Nanoseconds() - accum
			ticks := uint64(runtimeNS/c.tickPeriodNS) & c.tickMask

			c.runtimeNS.Store(runtimeNS)
			c.ticks.Store(ticks)
			if c.onTick != nil {
				c.onTick(ticks)
			}
			c.trigger.Wake()
		}

		timer.Reset(time.Duration(c.updatePeriodNS))
	}
}
