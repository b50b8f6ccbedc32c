// Package engine implements the Dispatcher, Monitor Engine, and Emitter
// (spec.md §4.D, §4.E, §4.F, §5): it is the single mutex-guarded owner of
// the rule tree's runtime fields, and the only thing that writes to the
// State Store after startup.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/covesa/vsm/internal/condeval"
	"github.com/covesa/vsm/internal/ruleset"
	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/state"
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsmlog"
)

// SignalLog is the subset of vsmlog.Logger the engine depends on.
type SignalLog interface {
	LogSignal(signal string, v value.Value, signum int, hasNum bool, indicator vsmlog.Indicator)
	LogInfo(msg string)
	LogError(msg string)
}

// SignalNums resolves a signal name to its numeric id for log formatting.
type SignalNums interface {
	Lookup(name string) (int, bool)
}

// Sender transmits an outgoing signal (spec.md §4.F, §6.6).
type Sender interface {
	Send(signal string, v value.Value) error
}

// Clock returns the current runtime in milliseconds since process start.
type Clock func() int64

// Scheduler abstracts time.AfterFunc so monitor timers are testable.
type Scheduler interface {
	After(d time.Duration, f func()) ruletree.Timer
}

type realScheduler struct{}

func (realScheduler) After(d time.Duration, f func()) ruletree.Timer {
	return time.AfterFunc(d, f)
}

// Engine bundles the State Store, Rule Tree, Dependency Index, signal
// log, and IPC sender into the single component spec.md §9's Design
// Notes describe, and serializes every mutation through one mutex
// (spec.md §5).
type Engine struct {
	mu sync.Mutex

	store     *state.Store
	tree      *ruletree.Tree
	index     map[string][]*condeval.Program
	log       SignalLog
	signums   SignalNums
	sender    Sender
	clock     Clock
	scheduler Scheduler

	logConditionChecks bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the runtime clock; used in tests.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithScheduler overrides the monitor timer scheduler; used in tests.
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.scheduler = s } }

// WithConditionCheckLogging toggles "condition: ... => bool" and "parent
// condition: ..." diagnostic lines (spec.md §6.1, --no-log-condition-checks).
// It never affects dispatch, monitor, or emit behavior, only log verbosity.
func WithConditionCheckLogging(enabled bool) Option {
	return func(e *Engine) { e.logConditionChecks = enabled }
}

// New builds an Engine from a parsed ruleset.Result.
func New(store *state.Store, parsed *ruleset.Result, log SignalLog, signums SignalNums, sender Sender, opts ...Option) *Engine {
	e := &Engine{
		store:              store,
		tree:               parsed.Tree,
		index:              parsed.DependencyIndex,
		log:                log,
		signums:            signums,
		sender:             sender,
		clock:              func() int64 { return 0 },
		scheduler:          realScheduler{},
		logConditionChecks: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReplaceRuleset atomically swaps in a newly parsed Rule Tree and
// Dependency Index, for the `--watch-ruleset` hot-reload supplement
// (SPEC_FULL.md §10.6). In-flight Dispatch calls already holding the
// mutex finish against the old tree; every call afterward sees the new
// one. Existing monitor timers scheduled against the old tree's nodes
// are left to fire against those now-detached nodes, which is harmless
// since nothing still references them for dispatch.
func (e *Engine) ReplaceRuleset(parsed *ruleset.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tree = parsed.Tree
	e.index = parsed.DependencyIndex
}

func (e *Engine) signum(signal string) (int, bool) {
	if e.signums == nil {
		return 0, false
	}
	return e.signums.Lookup(signal)
}

func (e *Engine) afterFunc(ms int64, f func()) ruletree.Timer {
	if ms < 0 {
		ms = 0
	}
	return e.scheduler.After(time.Duration(ms)*time.Millisecond, f)
}

// RunUnconditionalEmits executes every unconditional top-level emit node
// once (spec.md §4.A, §13 Open Question 1): called after ruleset parse
// and after --initial-state load, before the first Dispatch.
func (e *Engine) RunUnconditionalEmits(parsed *ruleset.Result) {
	for _, node := range parsed.UnconditionalEmits {
		v, err := ruleset.ParseEmitValue(node.Emit.Value)
		if err != nil {
			e.log.LogError(fmt.Sprintf("unconditional emit %q: %v", node.Emit.Signal, err))
			continue
		}
		if node.Emit.HasDelay {
			e.delayedEmit(node.Emit.Signal, v, node.Emit.DelayMS)
		} else {
			e.emit(node.Emit.Signal, v)
		}
	}
}
