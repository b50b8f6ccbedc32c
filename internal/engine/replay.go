package engine

import (
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsmlog"
)

// RecordIncoming logs and records a received signal's value without
// evaluating any dependent condition (spec.md §4.G: replaying an
// incoming signal only needs to reproduce the recorded state, since any
// rule it would have triggered already fired when the log was
// originally recorded). Grounded on the original's
// got_signal_record/delayed_got_signal, which update state without
// calling got_signal's rule-evaluation path.
func (e *Engine) RecordIncoming(signal string, v value.Value) {
	num, hasNum := e.signum(signal)
	e.log.LogSignal(signal, v, num, hasNum, vsmlog.Incoming)
	e.store.Update(signal, v)
}

// EmitDirect sends a signal immediately without re-checking ancestor
// conditions, for replaying a previously recorded outgoing signal
// (spec.md §4.G). Grounded on the original's delayed_emit, which
// re-emits a logged value directly rather than recomputing the
// condition tree.
func (e *Engine) EmitDirect(signal string, v value.Value) {
	e.emit(signal, v)
}

// Schedule runs f after delayMS, using the Engine's configured
// Scheduler (spec.md §4.G's replay delay scheduling reuses the same
// injectable timer as monitor timeouts and delayed emits).
func (e *Engine) Schedule(delayMS int64, f func()) {
	e.afterFunc(delayMS, f)
}
