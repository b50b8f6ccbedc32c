// Package initialstate loads the `--initial-state` file (spec.md §6.1):
// a YAML list of "name = value" strings used to pre-seed the State
// Store before the first signal is dispatched.
package initialstate

import (
	"fmt"
	"strings"

	"github.com/covesa/vsm/internal/value"
	"gopkg.in/yaml.v3"
)

// Entry is one pre-seeded signal.
type Entry struct {
	Signal string
	Value  value.Value
}

// Load parses the initial-state document. Each item must be a string of
// the form "name = value"; it is split at the first '=' and whitespace
// around the name and value is then trimmed. This is close to the
// original, which strips every space before splitting, except that spaces
// inside the value are kept. Unlike the original,
// which stores the right-hand side as a raw untyped string, Load runs
// it through value.Parse so later condition evaluation sees the same
// typed ingest rules a dispatched signal would get.
func Load(doc []byte) ([]Entry, error) {
	var items []string
	if err := yaml.Unmarshal(doc, &items); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		name, raw, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("initial state: malformed entry %q, expected \"name = value\"", item)
		}
		name = strings.TrimSpace(name)
		raw = strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("initial state: malformed entry %q, missing signal name", item)
		}
		v, err := value.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("initial state: signal %q: %w", name, err)
		}
		entries = append(entries, Entry{Signal: name, Value: v})
	}
	return entries, nil
}
