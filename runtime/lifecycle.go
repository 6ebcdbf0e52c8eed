package runtime

import (
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/clock"
	"github.com/voidtrance/vortex/internal/timer"
	"github.com/voidtrance/vortex/objects"
)

// Start launches the time-control thread, the timer thread, one update
// thread per Updater-capable object, and the single worker thread, then
// transitions the clock to RUNNING (spec §4.1, §4.2, §4.3, §6
// `start(frequency, completion_cb)`). frequency is used as both the
// controller-perceived tick frequency and, unless overridden by
// SetUpdateFrequency, the publish/pacing rate, since the façade exposes a
// single knob where the underlying clock.Controller takes two.
func (rt *Runtime) Start(frequency float64, cb CompletionCallback) error {
	rt.mu.Lock()
	if rt.startedOnce {
		rt.mu.Unlock()
		return nil
	}
	rt.startedOnce = true
	rt.completionCB = cb
	rt.mu.Unlock()

	rt.clk = clock.NewController(frequency, rt.updateFrequency, rt.widthBits)
	rt.timers = timer.NewWheel(rt.widthBits, rt.clk.Trigger())
	rt.clk.OnTick(rt.timers.SetNow)

	rt.updateStop = make(chan struct{})
	rt.workerStop = make(chan struct{})

	rt.clk.Start()
	rt.timers.Start()
	rt.startUpdateThreads()
	rt.startWorker()

	log.Infof("runtime started at %.1f Hz", frequency)
	return nil
}

// Stop is cooperative: it signals every thread pool, wakes the trigger so
// blocked waiters observe the stop, and waits for full drain (spec §5
// cancellation: "all threads exit by the next loop head").
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.startedOnce {
		rt.mu.Unlock()
		return
	}
	rt.mu.Unlock()

	close(rt.updateStop)
	close(rt.workerStop)
	if rt.timers != nil {
		rt.timers.Stop()
	}
	if rt.clk != nil {
		rt.clk.Stop()
	}
	rt.updateWG.Wait()
	rt.workerWG.Wait()
	log.Infof("runtime stopped")
}

// startUpdateThreads launches one goroutine per Updater-capable object,
// each pacing itself at the object's own UpdateFrequency after waking on
// the shared clock trigger (spec §4.2).
func (rt *Runtime) startUpdateThreads() {
	for _, obj := range rt.reg.AllUpdatable() {
		updater := obj.(objects.Updater)
		rt.updateWG.Add(1)
		core.Go(func() {
			defer rt.updateWG.Done()
			rt.runUpdateLoop(updater)
		})
	}
}

func (rt *Runtime) runUpdateLoop(updater objects.Updater) {
	trigger := rt.clk.Trigger()
	gen := trigger.Generation()
	period := time.Duration(1e9 / updater.UpdateFrequency())

	for {
		select {
		case <-rt.updateStop:
			return
		default:
		}

		gen = trigger.Wait(gen)

		select {
		case <-rt.updateStop:
			return
		default:
		}

		ticks := rt.clk.Ticks()
		runtimeNS := rt.clk.RuntimeNS()
		runUpdateSafely(updater, ticks, runtimeNS)

		if period > 0 {
			time.Sleep(period)
		}
	}
}

// runUpdateSafely isolates a single object's Update call so a panic in one
// object's physics does not take down its update thread permanently; the
// thread logs and re-enters its loop at the next tick (spec §7: "the
// offending object logs at ERROR and the emulator continues").
func runUpdateSafely(updater objects.Updater, ticks uint64, runtimeNS int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("update panic recovered: %v", r)
		}
	}()
	updater.Update(ticks, runtimeNS)
}

// startWorker launches the single worker thread that drains pending
// commands, then events, then completions, in that order, once per pass
// (spec §4.3). It runs one pass at start, then one pass each time the
// clock trigger the update threads use is woken; it has no idle timer, so
// while the clock is paused newly submitted commands wait for the next wake.
func (rt *Runtime) startWorker() {
	rt.workerWG.Add(1)
	core.Go(func() {
		defer rt.workerWG.Done()
		rt.runWorkerLoop()
	})
}

func (rt *Runtime) runWorkerLoop() {
	trigger := rt.clk.Trigger()
	gen := trigger.Generation()

	for {
		rt.drainOnePass()

		select {
		case <-rt.workerStop:
			return
		default:
		}

		gen = trigger.Wait(gen)

		select {
		case <-rt.workerStop:
			return
		default:
		}
	}
}

func (rt *Runtime) drainOnePass() {
	rt.pipeline.DispatchPending(rt.execOn)
	rt.bus.DispatchAll()
	rt.pipeline.DispatchCompletions()
	rt.refreshMetrics()
}

// execOn resolves target and invokes its ExecCommand, isolated against a
// panic the same way update calls are (spec §4.3: exec_command runs
// "under no lock", non-blocking, and must not take the worker down).
func (rt *Runtime) execOn(cmd objects.Command) (result int) {
	obj, ok := rt.reg.Lookup(cmd.Target)
	if !ok {
		return -2 // ENOENT
	}
	executor, ok := obj.(objects.CommandExecutor)
	if !ok {
		return -38 // ENOSYS stand-in: object accepts no commands
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("exec_command panic recovered for object %d: %v", cmd.Target, r)
			result = -1
		}
	}()
	return executor.ExecCommand(cmd)
}
