// Package logging implements the process-wide hierarchical logger facade
// (spec §4.11): dotted logger names, prefix filters with "*" wildcard and a
// trailing "." meaning "this level only", per-stream minimum levels, and
// ERROR+ messages that bypass filtering entirely.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is an ordered severity, lowest first.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}

// stream is a registered sink with a minimum level and an optional filter set.
type stream struct {
	w       io.Writer
	minimum Level
	filters []filter
}

// filter matches a logger name against a dotted prefix pattern. A pattern
// ending in "." matches only that exact logger name (not its children); a
// pattern ending in "*" matches any logger with that dotted prefix; a bare
// pattern matches the exact name and its children.
type filter struct {
	pattern  string
	exact    bool // trailing "."
	wildcard bool // trailing "*"
}

func newFilter(pattern string) filter {
	switch {
	case strings.HasSuffix(pattern, "."):
		return filter{pattern: strings.TrimSuffix(pattern, "."), exact: true}
	case strings.HasSuffix(pattern, "*"):
		return filter{pattern: strings.TrimSuffix(pattern, "*"), wildcard: true}
	default:
		return filter{pattern: pattern}
	}
}

func (f filter) matches(name string) bool {
	switch {
	case f.exact:
		return name == f.pattern
	case f.wildcard:
		return strings.HasPrefix(name, f.pattern)
	default:
		return name == f.pattern || strings.HasPrefix(name, f.pattern+".")
	}
}

// Registry owns the set of registered streams and backs every Logger handed
// out by Named. A process normally uses the package-level Default registry,
// but tests construct their own to assert on captured output.
type Registry struct {
	mu      sync.RWMutex
	streams []*stream
	start   time.Time
}

// NewRegistry creates an empty registry with no streams (messages are
// dropped until at least one stream is registered — there must be a sink
// for output to go anywhere at all).
func NewRegistry() *Registry {
	return &Registry{
		start: time.Now(),
	}
}

// Default is the process-wide registry used by package-level Named().
var Default = NewRegistry()

// AddStream registers w as a sink accepting messages at minimum level or
// above, restricted to the given dotted-prefix filters (no filters means
// "accept everything that clears the minimum level").
func (r *Registry) AddStream(w io.Writer, minimum Level, filters ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &stream{w: w, minimum: minimum}
	for _, p := range filters {
		s.filters = append(s.filters, newFilter(p))
	}
	r.streams = append(r.streams, s)
}

// AddStderr is a convenience for the common "log everything above Info to
// stderr" stream used by cmd/ entry points.
func (r *Registry) AddStderr(minimum Level) {
	r.AddStream(os.Stderr, minimum)
}

func (r *Registry) dispatch(name string, level Level, file string, line int, msg string) {
	elapsedUS := time.Since(r.start).Microseconds()

	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", elapsedUS, level)
	if file != "" {
		fmt.Fprintf(&b, " %s:%d", file, line)
	}
	if name != "" {
		fmt.Fprintf(&b, " [%s]", name)
	}
	b.WriteString(" ")
	b.WriteString(msg)
	line2 := b.String()

	r.mu.RLock()
	streams := r.streams
	r.mu.RUnlock()

	for _, s := range streams {
		if level < s.minimum {
			continue
		}
		// ERROR and above bypass name filters entirely.
		if level < Error && len(s.filters) > 0 {
			matched := false
			for _, f := range s.filters {
				if f.matches(name) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		fmt.Fprintln(s.w, line2)
	}
}

// Logger is a hierarchical, dotted-name handle into a Registry. Zero cost to
// create; all state lives in the Registry.
type Logger struct {
	reg  *Registry
	name string
}

// Named returns a Logger under the default registry with the given dotted
// name (e.g. "runtime.registry", "objects.heater.pid").
func Named(name string) Logger {
	return Default.Named(name)
}

// Named returns a Logger scoped to this registry.
func (r *Registry) Named(name string) Logger {
	return Logger{reg: r, name: name}
}

// Sub returns a child logger, appending a dotted segment to this logger's name.
func (l Logger) Sub(segment string) Logger {
	if l.name == "" {
		return Logger{reg: l.reg, name: segment}
	}
	return Logger{reg: l.reg, name: l.name + "." + segment}
}

func (l Logger) log(level Level, format string, args ...any) {
	l.reg.dispatch(l.name, level, "", 0, fmt.Sprintf(format, args...))
}

func (l Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }
func (l Logger) Infof(format string, args ...any)  { l.log(Info, format, args...) }
func (l Logger) Warnf(format string, args ...any)  { l.log(Warn, format, args...) }
func (l Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }

// Name returns the logger's dotted name.
func (l Logger) Name() string { return l.name }
