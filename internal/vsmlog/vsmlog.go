// Package vsmlog implements the domain signal log (spec.md §6.5): the
// precisely formatted `>`/`<` signal trace, `State = {...}` dumps, and
// `condition: ... => bool` lines that §4.G's replayer later consumes.
//
// This is distinct from the ambient slog-based operational logging
// described in SPEC_FULL.md §10.1; it is never routed through slog.
//
// Writes are funneled through a buffered channel drained by one
// dedicated goroutine, mirroring spec.md §5's "a dedicated task handles
// log writing to avoid blocking the main loop when the log sink is
// slow" and the original source's fork()+pipe log_processor (adapted in
// Go terms per SPEC_FULL.md §12).
package vsmlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/covesa/vsm/internal/value"
)

// Indicator is the signal-direction marker used in the default text format.
type Indicator string

const (
	Incoming Indicator = ">"
	Outgoing Indicator = "<"
)

// Format selects the on-disk representation (spec.md §6.5).
type Format int

const (
	FormatText Format = iota
	FormatCatapult
)

// Clock returns the current runtime in milliseconds since process start,
// injectable for deterministic tests.
type Clock func() int64

// Logger writes the domain signal log. Construct with New; Close flushes
// and closes the underlying sink.
type Logger struct {
	format   Format
	now      Clock
	lines    chan string
	done     chan struct{}
	sink     io.Writer
	closeFn  func() error
	wroteAny bool
	mu       sync.Mutex
	pid      int
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the runtime clock; used in tests.
func WithClock(c Clock) Option {
	return func(l *Logger) { l.now = c }
}

// New creates a Logger writing to sink in the given format. closeFn, if
// non-nil, is invoked by Close after the writer goroutine drains
// (typically sink.(*os.File).Close, but stdout is left open).
func New(sink io.Writer, format Format, closeFn func() error, opts ...Option) *Logger {
	l := &Logger{
		format:  format,
		now:     func() int64 { return 0 },
		lines:   make(chan string, 4096),
		done:    make(chan struct{}),
		sink:    sink,
		closeFn: closeFn,
		pid:     os.Getpid(),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	if l.format == FormatCatapult {
		fmt.Fprint(l.sink, "[\n")
	}
	for line := range l.lines {
		fmt.Fprintln(l.sink, line)
	}
	if l.format == FormatCatapult {
		fmt.Fprint(l.sink, "{}\n]\n")
	}
}

func (l *Logger) enqueue(line string) {
	select {
	case l.lines <- line:
	default:
		// Sink is saturated; drop rather than block the dispatch loop,
		// matching the "don't block the main loop" requirement of
		// spec.md §5. A saturated domain log is itself a diagnosability
		// problem for the ambient logger to report, not this one.
	}
}

// Close flushes remaining lines and closes the sink.
func (l *Logger) Close() error {
	close(l.lines)
	<-l.done
	if l.closeFn != nil {
		return l.closeFn()
	}
	return nil
}

// LogSignal logs a signal reception or emission (spec.md §4.D step 1,
// §4.F step 1): "<indicator> <runtime_ms>,<name>,<num>,<repr(value)>".
func (l *Logger) LogSignal(signal string, v value.Value, signum int, hasNum bool, indicator Indicator) {
	runtime := l.now()
	if l.format == FormatCatapult {
		l.logCatapultSignal(signal, v, runtime, indicator)
		return
	}
	numText := "[SIGNUM]"
	if hasNum {
		numText = fmt.Sprintf("%d", signum)
	}
	l.enqueue(fmt.Sprintf("%s %d,%s,%s,%s", indicator, runtime, signal, numText, v.Repr()))
}

func (l *Logger) logCatapultSignal(signal string, v value.Value, runtimeMS int64, indicator Indicator) {
	cat := "incoming"
	if indicator == Outgoing {
		cat = "outgoing"
	}
	l.enqueue(fmt.Sprintf(
		`{"name":%q,"pid":%d,"ts":%d,"cat":%q,"ph":"i","args":{"value":%q}},`,
		signal, l.pid, runtimeMS*1000, cat, v.Repr()))
}

// LogStateDump writes the "State = {...}" block (spec.md §4.C). It
// satisfies state.DumpLogger. Catapult format has no notion of a state
// dump event, so it is a no-op there (catapult only records signal i
// events, per spec.md §6.5).
func (l *Logger) LogStateDump(lines []string) {
	if l.format == FormatCatapult {
		return
	}
	for _, line := range lines {
		l.enqueue(line)
	}
}

// LogInfo writes a plain diagnostic line (e.g. "condition: ... => bool",
// "parent condition: ...") to the domain log. No-op in catapult format.
func (l *Logger) LogInfo(msg string) {
	if l.format == FormatCatapult {
		return
	}
	l.enqueue(msg)
}

// LogError writes a plain diagnostic error line. No-op in catapult format.
func (l *Logger) LogError(msg string) {
	if l.format == FormatCatapult {
		return
	}
	l.enqueue(msg)
}
