// Package ruleset implements the Rule Parser (spec.md §4.A): it turns a
// YAML ruleset document into a ruletree.Tree plus the Dependency Index,
// validating every referenced signal name against the signal-number map
// and rejecting malformed rulesets as configuration errors (spec.md §7.1).
package ruleset

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/covesa/vsm/internal/condeval"
	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/value"
)

// SignalNames is satisfied by the .vsi signal-number map (spec.md §6.4):
// every identifier a condition references must resolve through it.
type SignalNames interface {
	Has(name string) bool
}

// Result is everything the engine needs after a successful parse.
type Result struct {
	Tree *ruletree.Tree

	// DependencyIndex maps a dotted signal name to every compiled program
	// whose condition references it (spec.md §4.A, §4.D).
	DependencyIndex map[string][]*condeval.Program

	// UnconditionalEmits are top-level emit nodes with no enclosing
	// condition, queued to run once after parsing completes (spec.md
	// §4.A, §13 Open Question 1: run after --initial-state load, before
	// the first receive).
	UnconditionalEmits []*ruletree.Node
}

// Parse compiles a YAML ruleset document (spec.md §6.3) against signals.
// replayMode suppresses unconditional top-level emits entirely, matching
// the original behaviour of skipping duplicate signal emission when a
// prior log is about to be replayed.
func Parse(doc []byte, signals SignalNames, replayMode bool) (*Result, error) {
	var items document
	if err := yaml.Unmarshal(doc, &items); err != nil {
		return nil, fmt.Errorf("parsing ruleset: %w", err)
	}

	p := &parseCtx{
		tree:     ruletree.New(),
		index:    make(map[string][]*condeval.Program),
		signals:  signals,
		replay:   replayMode,
		dotForms: make(map[string]string),
	}
	if err := p.parseItems(items, p.tree.Root); err != nil {
		return nil, err
	}
	return &Result{
		Tree:               p.tree,
		DependencyIndex:    p.index,
		UnconditionalEmits: p.unconditional,
	}, nil
}

type parseCtx struct {
	tree          *ruletree.Tree
	index         map[string][]*condeval.Program
	signals       SignalNames
	replay        bool
	unconditional []*ruletree.Node

	// dotForms tracks underscored-form -> dotted-form, used to reject
	// rulesets that reference both forms of the same signal (spec.md §13
	// Open Question 2).
	dotForms map[string]string
}

func (p *parseCtx) parseItems(items []rawItem, parent *ruletree.Node) error {
	for _, item := range items {
		if err := p.parseItem(item, parent); err != nil {
			return err
		}
	}
	return nil
}

// parseItem builds every keyword present on item, independently: a
// condition and a parallel/sequence wrapper may coexist on the same
// item (the canonical monitored-condition shape, spec.md §3, §4.E),
// in which case both are attached as siblings under parent.
func (p *parseCtx) parseItem(item rawItem, parent *ruletree.Node) error {
	if item.Parallel != nil {
		if err := p.parseWrapper(ruletree.Parallel, item.Parallel, parent); err != nil {
			return err
		}
	}
	if item.Sequence != nil {
		if err := p.parseWrapper(ruletree.Sequence, item.Sequence, parent); err != nil {
			return err
		}
	}
	switch {
	case item.Condition != nil:
		return p.parseCondition(item, parent)
	case item.Emit != nil:
		return p.parseEmit(item, parent, nil)
	case item.Parallel != nil || item.Sequence != nil:
		return nil
	default:
		return fmt.Errorf("ruleset item has none of condition/emit/parallel/sequence")
	}
}

// parseWrapper builds a parallel/sequence node, giving each child item its
// own Block so that sequence gating and subcondition lookup can address
// one entry at a time (spec.md §3: "each block groups the child(ren) of
// one ruleset entry").
func (p *parseCtx) parseWrapper(kind ruletree.Kind, children []rawItem, parent *ruletree.Node) error {
	wrapper := p.tree.NewNode(kind)
	ruletree.AddChild(parent, wrapper)
	for _, child := range children {
		block := p.tree.NewNode(ruletree.Block)
		ruletree.AddChild(wrapper, block)
		if err := p.parseItem(child, block); err != nil {
			return err
		}
	}
	return nil
}

func (p *parseCtx) parseCondition(item rawItem, parent *ruletree.Node) error {
	source := rewriteXOR(*item.Condition)
	rewritten, idents := undotIdentifiers(source)

	for _, dotted := range idents {
		if !p.signals.Has(dotted) {
			return fmt.Errorf("condition %q: unknown signal %q", *item.Condition, dotted)
		}
		undotted := Undot(dotted)
		if prior, ok := p.dotForms[undotted]; ok && prior != dotted {
			return fmt.Errorf("ruleset references both %q and %q: ambiguous after undotting", prior, dotted)
		}
		p.dotForms[undotted] = dotted
	}

	program, err := condeval.Parse(rewritten)
	if err != nil {
		return fmt.Errorf("condition %q: %w", *item.Condition, err)
	}

	node := p.tree.NewNode(ruletree.Condition)
	ruletree.AddChild(parent, node)
	node.Rule = program
	node.Condition.Source = *item.Condition
	node.Condition.Program = program
	node.Condition.Signals = idents
	node.Condition.State = ruletree.Idle

	for _, dotted := range idents {
		p.index[dotted] = append(p.index[dotted], program)
	}

	if item.Start != nil || item.Stop != nil {
		if item.Start == nil || item.Stop == nil {
			// Both-or-neither; log-and-ignore per spec.md §4.A rather than
			// failing the whole parse.
			slog.Error("start and stop must both be present; monitor ignored", "condition", *item.Condition)
		} else {
			node.Condition.HasStart = true
			node.Condition.StartMS = *item.Start
			node.Condition.StopMS = *item.Stop
		}
	}

	if item.Emit != nil {
		return p.parseEmit(item, parent, node)
	}
	return nil
}

// parseEmit handles both a standalone top-level emit (conditionNode nil)
// and an inline emit attached to the sibling condition just parsed
// (conditionNode non-nil, spec.md §4.A).
func (p *parseCtx) parseEmit(item rawItem, parent *ruletree.Node, conditionNode *ruletree.Node) error {
	spec, err := buildEmitSpec(item.Emit)
	if err != nil {
		return err
	}

	if conditionNode != nil {
		conditionNode.Condition.HasEmit = true
		conditionNode.Condition.EmitSpec = spec
		return nil
	}

	// A standalone emit with no condition sibling is unconditional. In
	// replay mode it is dropped entirely rather than queued, since the
	// replay log already carries the signal it would emit.
	if p.replay {
		return nil
	}
	node := p.tree.NewNode(ruletree.Emit)
	ruletree.AddChild(parent, node)
	node.Emit = &spec
	p.unconditional = append(p.unconditional, node)
	return nil
}

func buildEmitSpec(e *rawEmit) (ruletree.EmitSpec, error) {
	val, err := emitValueToString(&e.Value)
	if err != nil {
		return ruletree.EmitSpec{}, fmt.Errorf("emit signal %q: %w", e.Signal, err)
	}
	spec := ruletree.EmitSpec{Signal: e.Signal, Value: val}
	if e.Delay != nil {
		spec.HasDelay = true
		spec.DelayMS = *e.Delay
	}
	return spec, nil
}

// emitValueToString renders a YAML scalar node's text form wrapped as a
// quoted string literal, the repr-style text value.Parse expects. The
// original always threads an emit value through `'{}'.format(value)`
// before sending or logging it, so an emitted value is a string
// regardless of its YAML tag: `value: True` renders as the text `True`,
// then `value.Parse` sees it quoted and types it as a string, matching
// the domain signal log's quoted `'True'` on the `<` line (spec.md §8).
func emitValueToString(n *yaml.Node) (string, error) {
	switch n.Tag {
	case "!!str":
		return "'" + n.Value + "'", nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return "", fmt.Errorf("malformed emit value %q", n.Value)
		}
		if b {
			return "'True'", nil
		}
		return "'False'", nil
	case "!!int":
		return "'" + n.Value + "'", nil
	case "!!float":
		return "'" + n.Value + "'", nil
	default:
		return "", fmt.Errorf("unsupported emit value tag %q", n.Tag)
	}
}

// ParseEmitValue converts a ruletree.EmitSpec.Value (repr-style text,
// always a quoted string per emitValueToString) into a typed Value.
func ParseEmitValue(raw string) (value.Value, error) {
	return value.Parse(raw)
}

// rewriteXOR rewrites "A ^^ B" to "(A) != (B)" (spec.md §4.A). If the
// condition text contains anything other than exactly one "^^" operator,
// it is left unchanged, matching the original's try/except around an
// exact two-way unpack.
func rewriteXOR(cond string) string {
	if strings.Count(cond, "^^") != 1 {
		return cond
	}
	parts := strings.SplitN(cond, "^^", 2)
	lhs := strings.TrimSpace(parts[0])
	rhs := strings.TrimSpace(parts[1])
	return fmt.Sprintf("(%s) != (%s)", lhs, rhs)
}
