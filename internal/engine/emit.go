package engine

import (
	"github.com/covesa/vsm/internal/ruleset"
	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsmlog"
)

// emitCondition resolves and emits the inline emit sibling of a
// satisfied condition (spec.md §4.D/§4.F).
func (e *Engine) emitCondition(spec ruletree.EmitSpec) {
	v, err := ruleset.ParseEmitValue(spec.Value)
	if err != nil {
		e.log.LogError(err.Error())
		return
	}
	if spec.HasDelay {
		e.delayedEmit(spec.Signal, v, spec.DelayMS)
		return
	}
	e.emit(spec.Signal, v)
}

// emit sends a signal immediately: log it, hand it to the IPC sender,
// and record it in the State Store (spec.md §4.F).
func (e *Engine) emit(signal string, v value.Value) {
	num, hasNum := e.signum(signal)
	e.log.LogSignal(signal, v, num, hasNum, vsmlog.Outgoing)
	if e.sender != nil {
		if err := e.sender.Send(signal, v); err != nil {
			e.log.LogError(err.Error())
		}
	}
	e.store.Update(signal, v)
}

// delayedEmit schedules an emit to run independently after delayMS,
// without blocking the caller (spec.md §4.F: "emit with an independent
// timer"). The ancestor-conditions-met check has already happened by the
// time an inline emit reaches here, so no re-check occurs on fire.
func (e *Engine) delayedEmit(signal string, v value.Value, delayMS int64) {
	e.afterFunc(delayMS, func() { e.emit(signal, v) })
}
