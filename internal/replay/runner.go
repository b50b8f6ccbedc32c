package replay

import (
	"fmt"

	"github.com/covesa/vsm/internal/value"
)

// Engine is the subset of internal/engine.Engine the replayer drives.
// A signal replayed as Incoming only needs its value recorded in the
// State Store (any rule it would have triggered already fired when the
// log was first recorded); a signal replayed as Outgoing is re-emitted
// directly, without re-checking ancestor conditions.
type Engine interface {
	RecordIncoming(signal string, v value.Value)
	EmitDirect(signal string, v value.Value)
	Schedule(delayMS int64, f func())
}

// MinRate and MaxRate bound the valid --replay-rate range (spec.md §6.1).
const (
	MinRate = 1.0
	MaxRate = 10000.0
)

// ValidateRate rejects a replay rate outside [MinRate, MaxRate].
func ValidateRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("replay rate %g out of range [%g, %g]", rate, MinRate, MaxRate)
	}
	return nil
}

// Runner drives a parsed replay log against an Engine (spec.md §4.G).
type Runner struct {
	engine Engine
	rate   float64
	now    func() int64
}

// NewRunner builds a Runner. rate is the replay-rate percentage
// (100 = real time, 200 = twice as fast, 50 = half speed); it must be
// in [MinRate, MaxRate] per spec.md §6.1 (validate with ValidateRate
// before calling NewRunner). now returns milliseconds elapsed since the
// replay (or program) started, mirroring the original's get_runtime().
func NewRunner(engine Engine, rate float64, now func() int64) *Runner {
	return &Runner{engine: engine, rate: rate, now: now}
}

// Run schedules every signal at its rate-scaled remaining delay. It
// does not block; delivery happens via the Engine's Scheduler as each
// delay elapses.
func (r *Runner) Run(signals []Signal) {
	for _, sig := range signals {
		sig := sig
		scaled := float64(sig.TimeMS)
		if r.rate != 0 {
			scaled = float64(sig.TimeMS) / (r.rate / 100)
		}
		remaining := scaled - float64(r.now())
		if remaining < 0 {
			remaining = 0
		}

		switch sig.Direction {
		case Incoming:
			r.engine.Schedule(int64(remaining), func() {
				r.engine.RecordIncoming(sig.Name, sig.Value)
			})
		case Outgoing:
			r.engine.Schedule(int64(remaining), func() {
				r.engine.EmitDirect(sig.Name, sig.Value)
			})
		}
	}
}
