package engine

import (
	"time"

	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsmlog"
)

type fakeSignals map[string]bool

func (f fakeSignals) Has(name string) bool { return f[name] }
func (f fakeSignals) Lookup(name string) (int, bool) {
	if f[name] {
		return 1, true
	}
	return 0, false
}

type logLine struct {
	signal    string
	v         value.Value
	indicator vsmlog.Indicator
	info      string
	errMsg    string
}

type fakeLog struct {
	lines []logLine
}

func (f *fakeLog) LogSignal(signal string, v value.Value, signum int, hasNum bool, indicator vsmlog.Indicator) {
	f.lines = append(f.lines, logLine{signal: signal, v: v, indicator: indicator})
}
func (f *fakeLog) LogInfo(msg string)  { f.lines = append(f.lines, logLine{info: msg}) }
func (f *fakeLog) LogError(msg string) { f.lines = append(f.lines, logLine{errMsg: msg}) }

type sentSignal struct {
	signal string
	v      value.Value
}

type fakeSender struct {
	sent []sentSignal
}

func (f *fakeSender) Send(signal string, v value.Value) error {
	f.sent = append(f.sent, sentSignal{signal: signal, v: v})
	return nil
}

type fakeTimer struct{ stopped bool }

func (t *fakeTimer) Stop() bool {
	already := t.stopped
	t.stopped = true
	return !already
}

type scheduledCall struct {
	d time.Duration
	f func()
}

type fakeScheduler struct {
	calls []scheduledCall
}

func (s *fakeScheduler) After(d time.Duration, f func()) ruletree.Timer {
	s.calls = append(s.calls, scheduledCall{d: d, f: f})
	return &fakeTimer{}
}

func (s *fakeScheduler) fire(i int) {
	s.calls[i].f()
}
