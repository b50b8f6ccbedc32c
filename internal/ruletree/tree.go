// Package ruletree implements the rule tree (spec.md §3, §4.B): a rooted
// tree of condition/emit/parallel/sequence/block/root nodes with
// ancestor/sibling/subcondition lookup and a rule-to-conditions index.
//
// Nodes are linked by *Node pointers (children plus a parent
// back-pointer) and each carries a stable integer id (spec.md §9's "back-pointers and
// cyclic references" note favors stable ids over raw pointer cycles for
// a reimplementation, but since Go's garbage collector handles pointer
// cycles natively we keep *Node for ergonomics while still assigning
// every node a stable ID for logging and test assertions).
package ruletree

import (
	"github.com/covesa/vsm/internal/condeval"
)

// Kind is the type tag of a tree node.
type Kind int

const (
	Root Kind = iota
	Block
	Condition
	Emit
	Parallel
	Sequence
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case Block:
		return "block"
	case Condition:
		return "condition"
	case Emit:
		return "emit"
	case Parallel:
		return "parallel"
	case Sequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// EmitSpec is the payload of an emit node.
type EmitSpec struct {
	Signal   string
	Value    string
	HasDelay bool
	DelayMS  int64
}

// MonitorState is the runtime state machine phase of a monitored condition
// (spec.md §4.E). Unmonitored conditions stay in Idle/MetUnmonitored.
type MonitorState int

const (
	Idle MonitorState = iota
	Armed
	MetUnmonitored
	Failed
	Completed
	Cancelled
)

func (s MonitorState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case MetUnmonitored:
		return "met-unmonitored"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Timer is the minimal handle the monitor engine needs to cancel a
// scheduled callback. Concrete implementations wrap time.AfterFunc.
type Timer interface {
	Stop() bool
}

// ConditionPayload carries everything specific to a condition node.
type ConditionPayload struct {
	Source   string             // original condition source text
	Program  *condeval.Program  // compiled expression
	Signals  []string           // referenced signal names, in source order
	HasStart bool               // true if start/stop monitor was attached
	StartMS  int64
	StopMS   int64

	// Runtime fields (spec.md §3's "runtime fields").
	ConditionMet      bool
	MonitorInitTimeMS int64
	State             MonitorState
	StartTimer        Timer
	StopTimer         Timer

	// HasEmit/EmitSpec hold the inline emit sibling, if any.
	HasEmit  bool
	EmitSpec EmitSpec
}

// SequencePayload carries sequence-specific runtime state.
type SequencePayload struct {
	NextGrandchildIndex int
}

// Node is one element of the rule tree.
type Node struct {
	ID       int
	Kind     Kind
	Parent   *Node
	Children []*Node

	Emit      *EmitSpec
	Condition *ConditionPayload
	Sequence  *SequencePayload

	// Rule is the compiled rule program associated with a condition node
	// (identity-compared by get_conditions_by_rule, spec.md §4.B).
	Rule *condeval.Program
}

// Tree holds the root and the counter that assigns node ids.
type Tree struct {
	Root   *Node
	nextID int
}

// New creates an empty tree with just the root node.
func New() *Tree {
	t := &Tree{}
	t.Root = t.newNode(Root)
	return t
}

func (t *Tree) newNode(kind Kind) *Node {
	t.nextID++
	n := &Node{ID: t.nextID, Kind: kind}
	switch kind {
	case Condition:
		n.Condition = &ConditionPayload{}
	case Sequence:
		n.Sequence = &SequencePayload{}
	}
	return n
}

// NewNode allocates a new node of the given kind, owned by this tree but
// not yet attached anywhere.
func (t *Tree) NewNode(kind Kind) *Node {
	return t.newNode(kind)
}

// AddChild sets the back-pointer and appends child to parent's children
// (spec.md §4.B: add_child).
func AddChild(parent, child *Node) {
	parent.Children = append(parent.Children, child)
	child.Parent = parent
}

// isWrapper reports whether k is one of the two node kinds that wrap
// condition blocks.
func isWrapper(k Kind) bool { return k == Parallel || k == Sequence }

// Siblings returns every other child of n's parent, excluding n itself.
func Siblings(n *Node) []*Node {
	if n.Parent == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Parent.Children)-1)
	for _, c := range n.Parent.Children {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

// Subconditions returns every condition node reachable from n's sibling
// parallel/sequence wrappers, recursively (spec.md §4.B: subconditions).
// Only meaningful when n is a condition node.
func Subconditions(n *Node) []*Node {
	if n.Kind != Condition {
		return nil
	}
	var out []*Node
	for _, sib := range Siblings(n) {
		if !isWrapper(sib.Kind) {
			continue
		}
		// A wrapper holds one block per child item (spec.md §3); walk
		// every block, not just the first, so a parallel/sequence with
		// more than one entry surfaces all of them as subconditions.
		for _, block := range sib.Children {
			for _, gc := range block.Children {
				if gc.Kind == Condition {
					out = append(out, gc)
					out = append(out, Subconditions(gc)...)
				}
			}
		}
	}
	return out
}

// AncestorConditions walks up from n, following sibling condition nodes
// through wrapper parents rather than the wrapper's own ancestry (spec.md
// §4.B: ancestor_conditions). n itself is excluded.
func AncestorConditions(n *Node) []*Node {
	if n.Kind != Condition || n.Parent == nil {
		return nil
	}
	all := ancestorConditionsInclusive(n)
	out := make([]*Node, 0, len(all))
	for _, c := range all {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}

func ancestorConditionsInclusive(n *Node) []*Node {
	var out []*Node
	if n.Kind == Condition {
		out = append(out, n)
	}
	if n.Kind != Root && n.Parent != nil {
		if isWrapper(n.Parent.Kind) {
			for _, parentSibling := range Siblings(n.Parent) {
				if parentSibling.Kind == Condition {
					out = append(out, ancestorConditionsInclusive(parentSibling)...)
				}
			}
		} else {
			out = append(out, ancestorConditionsInclusive(n.Parent)...)
		}
	}
	return out
}

// ConditionsByRule returns every condition node in the subtree rooted at
// n whose compiled rule is program (identity equality), matching spec.md
// §4.B's get_conditions_by_rule linear scan.
func ConditionsByRule(n *Node, program *condeval.Program) []*Node {
	var out []*Node
	for _, c := range n.Children {
		out = append(out, ConditionsByRule(c, program)...)
	}
	if n.Kind == Condition && n.Rule == program {
		out = append(out, n)
	}
	return out
}

// AllConditions returns every condition node in the subtree rooted at n,
// in tree order, for callers that need to observe every monitor's
// current state (SPEC_FULL.md §11.4's dashboard).
func AllConditions(n *Node) []*Node {
	var out []*Node
	if n.Kind == Condition {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, AllConditions(c)...)
	}
	return out
}

// SequenceGrandparent returns n's sequence grandparent, if n is a
// condition node whose parent's parent is a sequence node.
func SequenceGrandparent(n *Node) *Node {
	if n.Kind != Condition || n.Parent == nil || n.Parent.Parent == nil {
		return nil
	}
	gp := n.Parent.Parent
	if gp.Kind == Sequence {
		return gp
	}
	return nil
}

// IsSequenceNext reports whether n is the condition-kind child of the
// block currently at its sequence grandparent's NextGrandchildIndex.
func IsSequenceNext(n *Node) bool {
	gp := SequenceGrandparent(n)
	if gp == nil {
		return false
	}
	idx := gp.Sequence.NextGrandchildIndex
	if idx < 0 || idx >= len(gp.Children) {
		return false
	}
	block := gp.Children[idx]
	for _, c := range block.Children {
		if c.Kind == Condition {
			return c == n
		}
	}
	return false
}

// IsSequenceBlocked reports whether n is inside a sequence but not next
// in turn (spec.md §4.E, glossary: sequence-blocked).
func IsSequenceBlocked(n *Node) bool {
	gp := SequenceGrandparent(n)
	if gp == nil {
		return false
	}
	return !IsSequenceNext(n)
}

// AdvanceSequence advances the grandparent sequence's index modulo its
// number of blocks, iff changed is the sequence-next condition (spec.md
// §4.E). It is a no-op for non-sequence-next conditions and for
// conditions without a sequence grandparent.
func AdvanceSequence(changed *Node) {
	gp := SequenceGrandparent(changed)
	if gp == nil {
		return
	}
	if !IsSequenceNext(changed) {
		return
	}
	gp.Sequence.NextGrandchildIndex++
	if gp.Sequence.NextGrandchildIndex >= len(gp.Children) {
		gp.Sequence.NextGrandchildIndex = 0
	}
}
