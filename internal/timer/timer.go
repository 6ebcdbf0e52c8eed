// Package timer implements the virtual timer wheel (spec §4.7): a
// masked-width deadline space with armed/disarmed lists, CAS-guarded
// entry states, and signed wrap-aware deadline comparison. The
// wrap-aware comparison technique (treat the masked difference of two
// deadlines as a signed value of the counter's width) is grounded on
// wtimer.go's getWheelPos/Ticks.Sub masked-delta arithmetic; this
// implementation uses wtimer's state-CAS idiom (idle/executing/to-remove,
// safe self-unregistration from inside a callback) but a single armed
// list ordered by deadline rather than wtimer's hierarchical wheel tiers,
// since this spec's timer count and precision requirements don't call for
// multi-tier cascading.
package timer

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/voidtrance/vortex/internal/clock"
	"github.com/voidtrance/vortex/internal/logging"
)

var log = logging.Named("runtime.timer")

// entryState is the CAS-guarded lifecycle of a single timer entry.
type entryState int32

const (
	stateIdle entryState = iota
	stateExecuting
	stateToRemove
	stateRemoved
)

// Callback returns the next absolute deadline (masked to the wheel's
// width); a return of 0 disarms the timer.
type Callback func(userData any) uint64

// Entry is one registered timer. Callers hold the *Entry returned by
// Register to call Reschedule/Unregister.
type Entry struct {
	deadline uint64 // masked absolute tick
	seq      uint64 // insertion sequence, for tie-break ordering
	callback Callback
	userData any

	state entryState

	wheel *Wheel
	elem  *list.Element // current position in armed or disarmed list; nil if none
	armed bool
}

// Wheel is the virtual timer wheel: one armed list ordered by deadline,
// one disarmed list, guarded by a single mutex (entries are low-churn
// relative to stepper/heater update rates, so a single lock is adequate).
type Wheel struct {
	widthMask uint64
	halfWidth uint64 // 1 << (width-1), for signed-difference recovery

	mu      sync.Mutex
	armed   *list.List // of *Entry, deadline-ordered
	pending *list.List // disarmed entries, order irrelevant
	seq     uint64

	trigger *clock.Trigger
	gen     uint64
	nowTicks uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWheel creates a timer wheel masked to widthBits and wired to trigger
// as its wake source (spec: "core_timers_init(width) starts a dedicated
// timer thread wired to the trigger futex").
func NewWheel(widthBits uint, trigger *clock.Trigger) *Wheel {
	if widthBits == 0 || widthBits > 64 {
		widthBits = 32
	}
	var mask uint64
	if widthBits == 64 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << widthBits) - 1
	}
	return &Wheel{
		widthMask: mask,
		halfWidth: uint64(1) << (widthBits - 1),
		armed:     list.New(),
		pending:   list.New(),
		trigger:   trigger,
		stopCh:    make(chan struct{}),
	}
}

// compare returns <0, 0, >0 according to whether a is before, at, or after
// b in wrap-aware masked tick space (spec §9: "(a-b)<<(64-width) shifted
// back arithmetically to recover wrap-aware ordering").
func (w *Wheel) compare(a, b uint64) int64 {
	diff := (a - b) & w.widthMask
	if diff >= w.halfWidth {
		// Wrapped: a is actually "behind" b by widthMask+1-diff.
		return int64(diff) - int64(w.widthMask) - 1
	}
	return int64(diff)
}

// Register arms a new entry at the given absolute deadline (already
// masked by the caller to the wheel's width).
func (w *Wheel) Register(deadline uint64, cb Callback, userData any) *Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	e := &Entry{
		deadline: deadline & w.widthMask,
		seq:      w.seq,
		callback: cb,
		userData: userData,
		state:    stateIdle,
		wheel:    w,
		armed:    true,
	}
	e.elem = w.insertArmedLocked(e)
	return e
}

// insertArmedLocked inserts e into the armed list in deadline order;
// entries with equal deadlines execute in insertion order (spec §4.7
// tie-break).
func (w *Wheel) insertArmedLocked(e *Entry) *list.Element {
	for el := w.armed.Front(); el != nil; el = el.Next() {
		other := el.Value.(*Entry)
		if w.compare(e.deadline, other.deadline) < 0 {
			return w.armed.InsertBefore(e, el)
		}
	}
	return w.armed.PushBack(e)
}

// Reschedule moves e to a new deadline, re-arming it if it was disarmed.
func (w *Wheel) Reschedule(e *Entry, deadline uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.elem != nil {
		if e.armed {
			w.armed.Remove(e.elem)
		} else {
			w.pending.Remove(e.elem)
		}
	}
	e.deadline = deadline & w.widthMask
	e.armed = true
	e.elem = w.insertArmedLocked(e)
}

// Unregister removes e. If e is currently executing (its callback is
// running on the timer goroutine), it is instead marked to-remove and the
// timer goroutine frees it once the callback returns — this is what makes
// unregistration safe to call from inside the callback itself.
func (w *Wheel) Unregister(e *Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entryState(atomic.LoadInt32((*int32)(&e.state))) == stateExecuting {
		atomic.StoreInt32((*int32)(&e.state), int32(stateToRemove))
		return
	}
	if e.elem != nil {
		if e.armed {
			w.armed.Remove(e.elem)
		} else {
			w.pending.Remove(e.elem)
		}
		e.elem = nil
	}
	atomic.StoreInt32((*int32)(&e.state), int32(stateRemoved))
}

// Start launches the timer thread, waking on every trigger pulse and
// scanning due entries from the head of the armed list.
func (w *Wheel) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the timer thread.
func (w *Wheel) Stop() {
	close(w.stopCh)
	w.trigger.Wake()
	w.wg.Wait()
}

func (w *Wheel) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.gen = w.trigger.Wait(w.gen)
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.runDue()
	}
}

// runDue fires every entry whose deadline is now due, in order.
func (w *Wheel) runDue() {
	now := w.currentDeadline()
	for {
		e := w.popDueLocked(now)
		if e == nil {
			return
		}
		w.fire(e)
	}
}

// currentDeadline returns the tick count last published with SetNow. The
// controller whose ticks feed Register's deadlines calls SetNow, and tests
// call it directly, so "now" is read from the same tick source.
func (w *Wheel) currentDeadline() uint64 {
	return atomic.LoadUint64(&w.nowTicks)
}

// SetNow publishes the current tick count the wheel compares deadlines
// against. Call once per controller tick, before waking the trigger.
func (w *Wheel) SetNow(ticks uint64) {
	atomic.StoreUint64(&w.nowTicks, ticks&w.widthMask)
}

func (w *Wheel) popDueLocked(now uint64) *Entry {
	w.mu.Lock()
	front := w.armed.Front()
	if front == nil {
		w.mu.Unlock()
		return nil
	}
	e := front.Value.(*Entry)
	if w.compare(e.deadline, now) > 0 {
		w.mu.Unlock()
		return nil
	}
	w.armed.Remove(front)
	e.elem = nil
	atomic.StoreInt32((*int32)(&e.state), int32(stateExecuting))
	w.mu.Unlock()
	return e
}

// fire invokes the callback outside the lock, then reconciles the
// resulting state (reschedule, disarm, or free if marked to-remove
// while running) per the CAS protocol in spec §4.7.
func (w *Wheel) fire(e *Entry) {
	next := e.callback(e.userData)

	w.mu.Lock()
	defer w.mu.Unlock()

	if entryState(atomic.LoadInt32((*int32)(&e.state))) == stateToRemove {
		atomic.StoreInt32((*int32)(&e.state), int32(stateRemoved))
		return
	}

	atomic.StoreInt32((*int32)(&e.state), int32(stateIdle))
	if next == 0 {
		e.armed = false
		e.elem = w.pending.PushBack(e)
		return
	}
	e.deadline = next & w.widthMask
	e.armed = true
	e.elem = w.insertArmedLocked(e)
}

// Len reports the number of currently armed entries, for status/tests.
func (w *Wheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed.Len()
}
