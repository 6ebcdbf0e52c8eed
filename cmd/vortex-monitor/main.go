// Command vortex-monitor is a terminal dashboard exercising the Runtime
// façade end-to-end: it builds a small fixed rig of objects, starts the
// runtime, and redraws registry contents, tick/runtime counters, and
// recent events once per frame. Grounded on the teacher's top-level
// main.go (tcell.NewScreen/Init/SetContent/Show/Fini, a PollEvent
// goroutine feeding a channel the draw loop selects against), with the
// animated terminal game replaced by a status read-out.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/runtime"

	_ "github.com/voidtrance/vortex/objects/axis"
	_ "github.com/voidtrance/vortex/objects/digitalpin"
	_ "github.com/voidtrance/vortex/objects/endstop"
	_ "github.com/voidtrance/vortex/objects/heater"
	_ "github.com/voidtrance/vortex/objects/probe"
	_ "github.com/voidtrance/vortex/objects/pwm"
	_ "github.com/voidtrance/vortex/objects/stepper"
	_ "github.com/voidtrance/vortex/objects/thermistor"
	_ "github.com/voidtrance/vortex/objects/toolhead"
)

type row struct {
	klass core.Klass
	name  string
	id    core.ObjectID
}

// dashboard owns the screen and the live Runtime it displays.
type dashboard struct {
	screen tcell.Screen
	rt     *runtime.Runtime
	rows   []row
	events []string
	quit   bool
}

func buildRig(rt *runtime.Runtime) ([]row, error) {
	var rows []row

	create := func(klass core.Klass, name string, cfg any) error {
		blob, err := objconfig.Encode(cfg)
		if err != nil {
			return err
		}
		id, err := rt.CreateObject(klass, name, blob)
		if err != nil {
			return err
		}
		rows = append(rows, row{klass: klass, name: name, id: id})
		return nil
	}

	steppers := []string{"stepper_x", "stepper_y", "stepper_z"}
	for _, name := range steppers {
		if err := create(core.KlassStepper, name, map[string]any{
			"steps_per_rotation": 200,
			"microsteps":         16,
			"start_speed":        50.0,
		}); err != nil {
			return nil, err
		}
	}

	axes := []struct {
		name, axisType, stepper, endstop string
	}{
		{"axis_x", "X", "stepper_x", "endstop_x"},
		{"axis_y", "Y", "stepper_y", "endstop_y"},
		{"axis_z", "Z", "stepper_z", ""},
	}
	for _, a := range axes {
		if err := create(core.KlassAxis, a.name, map[string]any{
			"axis_type":          a.axisType,
			"length_mm":          200.0,
			"travel_per_step_mm": 0.01,
			"steppers":           []string{a.stepper},
			"endstop":            a.endstop,
		}); err != nil {
			return nil, err
		}
	}

	if err := create(core.KlassEndstop, "endstop_x", map[string]any{
		"position": 0.0, "end": "min", "axis": "axis_x",
	}); err != nil {
		return nil, err
	}
	if err := create(core.KlassEndstop, "endstop_y", map[string]any{
		"position": 0.0, "end": "min", "axis": "axis_y",
	}); err != nil {
		return nil, err
	}

	if err := create(core.KlassHeater, "extruder_heater", map[string]any{
		"resolution_mm": 5.0,
		"max_temp_c":    260.0,
		"power_w":       40.0,
		"kp":            20.0, "ki": 1.0, "kd": 5.0,
		"layers": []map[string]any{
			{"role": "heater", "material": "aluminum", "wx_mm": 20, "wy_mm": 20, "z_mm": 2},
			{"role": "body", "material": "aluminum", "wx_mm": 20, "wy_mm": 20, "z_mm": 10},
		},
	}); err != nil {
		return nil, err
	}
	if err := create(core.KlassThermistor, "extruder_thermistor", map[string]any{
		"heater": "extruder_heater",
	}); err != nil {
		return nil, err
	}

	if err := create(core.KlassToolhead, "toolhead", map[string]any{
		"kinematics": "cartesian",
	}); err != nil {
		return nil, err
	}
	if err := create(core.KlassProbe, "probe", map[string]any{
		"toolhead": "toolhead",
	}); err != nil {
		return nil, err
	}

	if err := create(core.KlassPWM, "fan_pwm", map[string]any{"default_hz": 25000.0}); err != nil {
		return nil, err
	}
	if err := create(core.KlassDigitalPin, "case_led", map[string]any{"default_high": false}); err != nil {
		return nil, err
	}

	return rows, nil
}

func newDashboard() (*dashboard, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	rt := runtime.Create(0)
	core.RegisterCrashCleanup(screen.Fini)

	rows, err := buildRig(rt)
	if err != nil {
		screen.Fini()
		return nil, err
	}
	if err := rt.InitObjects(); err != nil {
		screen.Fini()
		return nil, err
	}

	d := &dashboard{screen: screen, rt: rt, rows: rows}

	// One wildcard subscription per klass actually present in the rig.
	for _, r := range uniqueKlasses(rows) {
		r := r
		_ = rt.EventRegister(objects.EventStepperMoveComplete, r, "", objects.EventHandlerFunc(d.onEvent))
		_ = rt.EventRegister(objects.EventHeaterTempReached, r, "", objects.EventHandlerFunc(d.onEvent))
		_ = rt.EventRegister(objects.EventEndstopTrigger, r, "", objects.EventHandlerFunc(d.onEvent))
		_ = rt.EventRegister(objects.EventAxisHomed, r, "", objects.EventHandlerFunc(d.onEvent))
		_ = rt.EventRegister(objects.EventProbeTriggered, r, "", objects.EventHandlerFunc(d.onEvent))
		_ = rt.EventRegister(objects.EventToolheadOrigin, r, "", objects.EventHandlerFunc(d.onEvent))
	}

	return d, nil
}

func uniqueKlasses(rows []row) []core.Klass {
	seen := make(map[core.Klass]bool)
	var out []core.Klass
	for _, r := range rows {
		if !seen[r.klass] {
			seen[r.klass] = true
			out = append(out, r.klass)
		}
	}
	return out
}

func (d *dashboard) onEvent(e objects.Event) {
	line := fmt.Sprintf("%s from %s#%d", e.Type, e.OriginKlass, e.OriginID)
	d.events = append(d.events, line)
	if len(d.events) > 8 {
		d.events = d.events[len(d.events)-8:]
	}
}

func (d *dashboard) draw() {
	d.screen.Clear()
	style := tcell.StyleDefault

	drawText(d.screen, 0, 0, style.Bold(true), fmt.Sprintf(
		"vortex-monitor  ticks=%d runtime_ns=%d", d.rt.GetClockTicks(), d.rt.GetRuntime()))

	row := 2
	for _, r := range d.rows {
		st := d.rt.GetStatus([]core.ObjectID{r.id})[0]
		drawText(d.screen, 0, row, style, fmt.Sprintf("%-10s %-20s %+v", r.klass, r.name, st))
		row++
	}

	row += 1
	drawText(d.screen, 0, row, style.Bold(true), "recent events:")
	row++
	for _, line := range d.events {
		drawText(d.screen, 2, row, style, line)
		row++
	}

	d.screen.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func (d *dashboard) handleInput(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			d.quit = true
		}
	case *tcell.EventResize:
		d.screen.Sync()
	}
}

func (d *dashboard) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	core.Go(func() {
		for {
			eventChan <- d.screen.PollEvent()
		}
	})

	for !d.quit {
		select {
		case ev := <-eventChan:
			d.handleInput(ev)
		case <-ticker.C:
			d.draw()
		}
	}
}

func main() {
	d, err := newDashboard()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vortex-monitor:", err)
		os.Exit(1)
	}
	defer d.screen.Fini()

	if err := d.rt.Start(1000, nil); err != nil {
		fmt.Fprintln(os.Stderr, "vortex-monitor: start:", err)
		os.Exit(1)
	}
	defer d.rt.Stop()

	if err := d.rt.StartMetricsExporter(":9090", time.Second); err != nil {
		fmt.Fprintln(os.Stderr, "vortex-monitor: metrics exporter:", err)
	} else {
		defer d.rt.StopMetricsExporter()
	}

	d.run()
}
