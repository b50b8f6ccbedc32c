package ruleset

import "gopkg.in/yaml.v3"

// rawItem mirrors one entry of the ruleset YAML document (spec.md §4.A,
// §6.3). A Condition may carry an inline Emit, Start/Stop, and a Parallel
// and/or Sequence wrapper on the same item; an item without a Condition
// is a standalone Emit or a Parallel/Sequence wrapper.
type rawItem struct {
	Condition *string   `yaml:"condition"`
	Emit      *rawEmit  `yaml:"emit"`
	Start     *int64    `yaml:"start"`
	Stop      *int64    `yaml:"stop"`
	Parallel  []rawItem `yaml:"parallel"`
	Sequence  []rawItem `yaml:"sequence"`
}

// rawEmit mirrors one "emit:" mapping.
type rawEmit struct {
	Signal string    `yaml:"signal"`
	Value  yaml.Node `yaml:"value"`
	Delay  *int64    `yaml:"delay"`
}

// document is the top-level shape of a ruleset file: a plain list of
// items (spec.md §6.3).
type document = []rawItem
