package engine

import (
	"fmt"

	"github.com/covesa/vsm/internal/ruletree"
)

// notifyCondition updates a condition node's monitor state after its
// compiled rule evaluates (spec.md §4.E). It must be called with e.mu
// held.
func (e *Engine) notifyCondition(node *ruletree.Node, result bool) {
	c := node.Condition
	startMax := c.MonitorInitTimeMS + c.StartMS
	stopMin := c.MonitorInitTimeMS + c.StopMS
	runtime := e.clock()

	if result {
		// Only allow condition_met to flip false->true before the start
		// deadline, or when no monitor is currently armed, so a monitor's
		// own timeout goroutine can observe a late truth without a race.
		if runtime < startMax || (c.StartTimer == nil && c.StopTimer == nil) {
			c.ConditionMet = true
			if c.StartTimer != nil || c.StopTimer != nil {
				c.State = ruletree.Armed
			} else {
				c.State = ruletree.MetUnmonitored
			}
		}
	} else {
		c.ConditionMet = false
		if runtime >= startMax && runtime < stopMin && (c.StartTimer != nil || c.StopTimer != nil) {
			e.monitorCompleted(node, false, fmt.Sprintf(
				"subcondition not maintained between 'start' time of %dms and 'stop' time of %dms",
				c.StartMS, c.StopMS))
		} else if c.StartTimer == nil && c.StopTimer == nil {
			c.State = ruletree.Idle
		}
	}

	for _, sub := range ruletree.Subconditions(node) {
		e.notifyAncestorCondition(sub, c.ConditionMet)
	}

	ruletree.AdvanceSequence(node)
}

// notifyAncestorCondition arms or cancels a subcondition's monitor when
// its ancestor condition's truth changes (spec.md §4.E). Must be called
// with e.mu held.
func (e *Engine) notifyAncestorCondition(node *ruletree.Node, ancestorMet bool) {
	c := node.Condition
	if !c.HasStart {
		return
	}
	if ancestorMet {
		if c.StartTimer == nil && c.StopTimer == nil {
			c.MonitorInitTimeMS = e.clock()
			c.State = ruletree.Armed
			startRef, stopRef := node, node
			c.StartTimer = e.afterFunc(c.StartMS, func() { e.onStartTimeout(startRef) })
			c.StopTimer = e.afterFunc(c.StopMS, func() { e.onStopTimeout(stopRef) })
		}
	} else {
		// The ancestor condition is no longer true; cancel the monitor
		// without marking it failed.
		e.monitorCompleted(node, true, "")
		c.State = ruletree.Cancelled
	}
}

func (e *Engine) monitorCompleted(node *ruletree.Node, succeeded bool, failureMsg string) {
	c := node.Condition
	if c.StartTimer != nil {
		c.StartTimer.Stop()
		c.StartTimer = nil
	}
	if c.StopTimer != nil {
		c.StopTimer.Stop()
		c.StopTimer = nil
	}
	if succeeded {
		c.State = ruletree.Completed
	} else {
		c.ConditionMet = false
		c.State = ruletree.Failed
		e.log.LogError(failureMsg)
	}
}

func (e *Engine) onStartTimeout(node *ruletree.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := node.Condition
	if !c.ConditionMet {
		e.monitorCompleted(node, false, fmt.Sprintf(
			"condition not met by 'start' time of %dms", c.StartMS))
	}
}

func (e *Engine) onStopTimeout(node *ruletree.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.monitorCompleted(node, true, "")
}
