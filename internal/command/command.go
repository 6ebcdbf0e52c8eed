// Package command implements the command pipeline (spec §3, §4.3): the
// pending and submitted queues, the completion ring, and the backpressure
// / error-id convention (spec §4.3, §6: a submission that cannot be queued
// returns 0xDEADBEEF<<32 | -errno). Each queue here gets its own mutex
// (spec §5 "each queue ... has a private mutex"); the completion ring is
// logically single-consumer (the worker thread) with many producers
// (object update goroutines), serialized by the invariant that only one
// completion is ever produced per command id.
package command

import (
	"sync"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/logging"
	"github.com/voidtrance/vortex/objects"
)

var log = logging.Named("runtime.command")

// pendingWatermark is the soft cap past which Submit starts reporting
// Transient backpressure instead of growing the pending queue further
// (spec: "unbounded but monitored").
const pendingWatermark = 1 << 20

// CompletionHandler is invoked exactly once per command id, either by an
// internal object or by the host bridge (spec §3).
type CompletionHandler func(id core.CommandID, result int, payload any)

// entry is the full bookkeeping record for one in-flight command; objects
// only ever see the embedded objects.Command.
type entry struct {
	cmd        objects.Command
	handler    CompletionHandler
	callerData any
}

// completion is one drained ring slot.
type completion struct {
	id      core.CommandID
	result  int
	payload any
}

// Pipeline owns the pending queue, the submitted table, and the
// completion ring for one runtime instance.
type Pipeline struct {
	pendingMu sync.Mutex
	pending   []*entry

	submittedMu sync.Mutex
	submitted   map[core.CommandID]*entry

	ringMu       sync.Mutex
	ring         []completion
	ringOverflow uint64
}

// NewPipeline creates an empty command pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		submitted: make(map[core.CommandID]*entry),
	}
}

// Submit queues a command for dispatch on the next worker pass. Returns an
// error-coded id (core.IsErrCommandID) if the pending queue is under
// enough pressure that accepting more work would be unsound.
func (p *Pipeline) Submit(target core.ObjectID, subcommand uint16, args any, handler CompletionHandler, callerData any) core.CommandID {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	if len(p.pending) >= pendingWatermark {
		log.Errorf("pending queue at watermark (%d); rejecting submission to %d", pendingWatermark, target)
		return core.ErrCommandID(-11) // EAGAIN, Transient
	}

	id := core.NewCommandID()
	p.pending = append(p.pending, &entry{
		cmd:        objects.Command{ID: id, Target: target, Subcommand: subcommand, Args: args},
		handler:    handler,
		callerData: callerData,
	})
	return id
}

// PendingLen reports the current depth of the pending queue.
func (p *Pipeline) PendingLen() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}

// drainPending removes and returns every pending entry, FIFO.
func (p *Pipeline) drainPending() []*entry {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	out := p.pending
	p.pending = nil
	return out
}

// markSubmitted moves e into the submitted table, keyed by its command id.
func (p *Pipeline) markSubmitted(e *entry) {
	p.submittedMu.Lock()
	p.submitted[e.cmd.ID] = e
	p.submittedMu.Unlock()
}

// DispatchPending drains the pending queue and invokes exec for each
// entry. exec must be non-blocking (ExecCommand's contract). Entries exec
// accepts (result == 0) move to the submitted table awaiting completion;
// entries it rejects (result < 0) complete immediately with that result.
func (p *Pipeline) DispatchPending(exec func(objects.Command) int) {
	entries := p.drainPending()
	for _, e := range entries {
		result := exec(e.cmd)
		p.markSubmitted(e)
		if result < 0 {
			p.complete(e.cmd.ID, result, nil)
		}
	}
}

// PushCompletion is called by an object (from ExecCommand or its update
// goroutine) to record that a command finished; synchronous rejects are
// completed by the dispatch path above without going through the ring. Safe for concurrent producers; the ring doubles capacity on
// overflow rather than blocking a producer (spec §4.3).
func (p *Pipeline) PushCompletion(id core.CommandID, result int, payload any) {
	p.ringMu.Lock()
	defer p.ringMu.Unlock()

	if len(p.ring) == cap(p.ring) {
		newCap := cap(p.ring) * 2
		if newCap == 0 {
			newCap = 64
		}
		grown := make([]completion, len(p.ring), newCap)
		copy(grown, p.ring)
		p.ring = grown
	}
	p.ring = append(p.ring, completion{id: id, result: result, payload: payload})
}

// drainRing removes and returns every queued completion, FIFO.
func (p *Pipeline) drainRing() []completion {
	p.ringMu.Lock()
	defer p.ringMu.Unlock()
	if len(p.ring) == 0 {
		return nil
	}
	out := p.ring
	p.ring = p.ring[:0]
	return out
}

// DispatchCompletions drains the completion ring and resolves each entry
// against the submitted table. Completion is monotonic: a command id is
// removed from submitted exactly once, by the first completion signal for
// that id (spec §3 invariant); later pushes for the same id (which
// shouldn't happen) are logged and ignored.
func (p *Pipeline) DispatchCompletions() {
	for _, c := range p.drainRing() {
		p.complete(c.id, c.result, c.payload)
	}
}

func (p *Pipeline) complete(id core.CommandID, result int, payload any) {
	p.submittedMu.Lock()
	e, ok := p.submitted[id]
	if ok {
		delete(p.submitted, id)
	}
	p.submittedMu.Unlock()

	if !ok {
		log.Errorf("completion for unknown or already-completed command id %d", id)
		return
	}
	if e.handler != nil {
		e.handler(id, result, payload)
	}
}

// SubmittedLen reports how many commands are awaiting completion.
func (p *Pipeline) SubmittedLen() int {
	p.submittedMu.Lock()
	defer p.submittedMu.Unlock()
	return len(p.submitted)
}
