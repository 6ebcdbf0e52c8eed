// Package event implements the pub/sub event bus (spec §3, §4.5): a queue
// of emitted events drained once per worker pass, and per-type
// subscription lists matched by source klass and either a specific id or a
// wildcard. Structurally grounded on the teacher's events package
// (types.go/registry.go/router.go: per-type handler lists, dispatch by
// walking handlers in registration order), generalized from a lock-free
// single-consumer ring to an explicit mutex-guarded queue because this
// spec requires strict at-least-once delivery with no silent overwrite —
// the opposite of the teacher's "drop oldest on overflow" ring, which
// suits a renderer that can afford to miss a stale frame event but not a
// command-completion-adjacent hardware event.
package event

import (
	"sync"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/logging"
	"github.com/voidtrance/vortex/objects"
)

var log = logging.Named("runtime.event")

type subscription struct {
	klass    core.Klass
	id       core.ObjectID
	wildcard bool
	handler  objects.EventHandler
}

func (s subscription) matches(e objects.Event) bool {
	if s.klass != e.OriginKlass {
		return false
	}
	return s.wildcard || s.id == e.OriginID
}

// Bus is the runtime's single event queue plus its subscription table.
type Bus struct {
	queueMu sync.Mutex
	queue   []objects.Event

	subMu sync.RWMutex
	subs  [objects.EventTypeCount][]subscription

	droppedMu sync.Mutex
	dropped   uint64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Register appends a subscription for evType. Duplicate entries are
// allowed; each fires independently (spec §4.5).
func (b *Bus) Register(evType objects.EventType, klass core.Klass, id core.ObjectID, wildcard bool, handler objects.EventHandler) {
	if int(evType) < 0 || int(evType) >= objects.EventTypeCount {
		return
	}
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[evType] = append(b.subs[evType], subscription{
		klass: klass, id: id, wildcard: wildcard, handler: handler,
	})
}

// Unregister removes every subscription for evType matching klass/id
// (wildcard subscriptions are removed by passing wildcard=true).
func (b *Bus) Unregister(evType objects.EventType, klass core.Klass, id core.ObjectID, wildcard bool) {
	if int(evType) < 0 || int(evType) >= objects.EventTypeCount {
		return
	}
	b.subMu.Lock()
	defer b.subMu.Unlock()

	kept := b.subs[evType][:0]
	for _, s := range b.subs[evType] {
		if s.klass == klass && s.wildcard == wildcard && (wildcard || s.id == id) {
			continue
		}
		kept = append(kept, s)
	}
	b.subs[evType] = kept
}

// Submit enqueues an event for later dispatch. Safe to call from any
// object-update goroutine (spec: payloads are produced by the update
// thread and consumed once by the worker).
func (b *Bus) Submit(evType objects.EventType, originID core.ObjectID, originKlass core.Klass, payload any) {
	b.queueMu.Lock()
	b.queue = append(b.queue, objects.Event{
		Type: evType, OriginID: originID, OriginKlass: originKlass, Payload: payload,
	})
	b.queueMu.Unlock()
}

// Len returns the number of events currently queued.
func (b *Bus) Len() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// drain removes and returns every currently queued event, in FIFO order.
func (b *Bus) drain() []objects.Event {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}

// DispatchAll drains the queue and delivers every event to its matching
// subscriptions, in submission order. Delivery is at-most-once per
// subscription per event; a handler that panics does not stop the rest of
// the pass (spec §4.3: event delivery failures are logged and dropped,
// never propagated). Returns the number of events processed.
func (b *Bus) DispatchAll() int {
	events := b.drain()
	if len(events) == 0 {
		return 0
	}

	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for _, e := range events {
		for _, s := range b.subs[e.Type] {
			if !s.matches(e) {
				continue
			}
			b.deliver(s, e)
		}
	}
	return len(events)
}

func (b *Bus) deliver(s subscription, e objects.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.droppedMu.Lock()
			b.dropped++
			b.droppedMu.Unlock()
			log.Errorf("event handler panic: type=%s origin=%d: %v", e.Type, e.OriginID, r)
		}
	}()
	s.handler.HandleEvent(e)
}

// DroppedCount returns the number of handler invocations that panicked and
// were logged-and-dropped rather than propagated.
func (b *Bus) DroppedCount() uint64 {
	b.droppedMu.Lock()
	defer b.droppedMu.Unlock()
	return b.dropped
}
