package engine

import (
	"fmt"

	"github.com/covesa/vsm/internal/ruletree"
)

// conditionChanged updates the node's monitor state, checks whether
// every ancestor condition also holds, logs the diagnostic trail, and
// fires the node's inline emit if everything lines up (spec.md §4.D).
func (e *Engine) conditionChanged(node *ruletree.Node, result bool) {
	e.mu.Lock()
	e.notifyCondition(node, result)

	allAncestorsMet := true
	ancestors := ruletree.AncestorConditions(node)
	for _, ancestor := range ancestors {
		if !ancestor.Condition.ConditionMet {
			allAncestorsMet = false
		}
	}

	if e.logConditionChecks {
		for _, ancestor := range ancestors {
			for _, sig := range ancestor.Condition.Signals {
				val := "(unset)"
				if v, ok := e.store.Get(sig); ok {
					val = v.Display()
				}
				e.log.LogInfo(fmt.Sprintf("parent condition: %s == %s", sig, val))
			}
		}
		e.log.LogInfo(fmt.Sprintf("condition: (%s) => %s", node.Condition.Source, formatBool(result)))
	}

	shouldEmit := allAncestorsMet && result && node.Condition.HasEmit
	spec := node.Condition.EmitSpec
	e.mu.Unlock()

	if shouldEmit {
		e.emitCondition(spec)
	}
}

// formatBool renders a bool the way the domain signal log's "condition:
// ... => True/False" lines expect, matching value.Value's own Repr/Display
// capitalization (spec.md §8).
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
