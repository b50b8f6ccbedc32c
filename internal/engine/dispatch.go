package engine

import (
	"fmt"

	"github.com/covesa/vsm/internal/condeval"
	"github.com/covesa/vsm/internal/ruleset"
	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/value"
	"github.com/covesa/vsm/internal/vsmlog"
)

// Dispatch handles one received signal (spec.md §4.D): log it, update
// the State Store, look up the rules that depend on it, skip any that
// are sequence-blocked, evaluate the rest, and propagate condition truth
// changes through the tree.
func (e *Engine) Dispatch(signal string, v value.Value) {
	num, hasNum := e.signum(signal)
	e.log.LogSignal(signal, v, num, hasNum, vsmlog.Incoming)
	e.store.Update(signal, v)

	e.mu.Lock()
	programs := append([]*condeval.Program(nil), e.index[signal]...)
	e.mu.Unlock()

	for _, program := range programs {
		e.evalAndNotify(signal, program)
	}
}

func (e *Engine) evalAndNotify(signal string, program *condeval.Program) {
	e.mu.Lock()
	nodes := ruletree.ConditionsByRule(e.tree.Root, program)
	for _, node := range nodes {
		if ruletree.IsSequenceBlocked(node) {
			e.log.LogError(fmt.Sprintf("changed value for signal '%s' ignored because prior conditions in its sequence block have not been met", signal))
			e.mu.Unlock()
			return
		}
	}
	e.mu.Unlock()

	snapshot := e.store.Snapshot(ruleset.Undot)
	result, err := program.Eval(snapshot)
	if err != nil {
		if _, undefined := err.(*condeval.UndefinedIdentError); undefined {
			// Names used in a rule are not always present in the state yet;
			// skip the rule silently (spec.md §4.D, §7.3).
			return
		}
		e.log.LogError(err.Error())
		return
	}
	if result.Kind() != value.Bool {
		e.log.LogError("condition did not evaluate to a boolean result")
		return
	}
	truthy := result.BoolVal()

	e.mu.Lock()
	nodes = ruletree.ConditionsByRule(e.tree.Root, program)
	e.mu.Unlock()
	for _, node := range nodes {
		e.conditionChanged(node, truthy)
	}
}
