// Package state implements the State Store (spec.md §3, §4.C): a
// concurrency-safe mapping from signal name to last-seen value, mutated
// exclusively by the Dispatcher (on receive) and the Emitter (on emit).
package state

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/covesa/vsm/internal/value"
)

// Event represents a state mutation notification, used to drive the
// optional dashboard/observability consumers (SPEC_FULL.md §11.4).
type Event struct {
	Signal string
	Value  value.Value
}

// DumpLogger receives the formatted "State = {...}" block produced after
// every update (spec.md §4.C). It is a narrow interface so Store does not
// need to depend on the log package directly.
type DumpLogger interface {
	LogStateDump(lines []string)
}

// Store is the concurrency-safe signal-name -> value mapping.
type Store struct {
	mu     sync.RWMutex
	values map[string]value.Value
	subs   map[chan Event]struct{}
	logger DumpLogger
}

// New creates an empty Store. logger may be nil, in which case state
// dumps are not logged (useful for tests that only assert on Get/All).
func New(logger DumpLogger) *Store {
	return &Store{
		values: make(map[string]value.Value),
		subs:   make(map[chan Event]struct{}),
		logger: logger,
	}
}

// Update writes signal=v and logs a sorted "State = {...}" dump containing
// every currently-known signal (spec.md §4.C, invariant 1 in §8). No
// deletions ever occur (spec.md §3).
func (s *Store) Update(signal string, v value.Value) {
	s.mu.Lock()
	s.values[signal] = v
	names := maps.Keys(s.values)
	slices.Sort(names)
	lines := make([]string, 0, len(names)+2)
	lines = append(lines, "State = {")
	for _, n := range names {
		lines = append(lines, n+" = "+s.values[n].Display())
	}
	lines = append(lines, "}")
	logger := s.logger
	for ch := range s.subs {
		select {
		case ch <- Event{Signal: signal, Value: v}:
		default:
		}
	}
	s.mu.Unlock()

	if logger != nil {
		logger.LogStateDump(lines)
	}
}

// Get returns the last-seen value of signal and whether it has ever been
// observed.
func (s *Store) Get(signal string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[signal]
	return v, ok
}

// Snapshot returns a copy of the whole signal -> value mapping, keyed by
// the already-undotted identifier form (spec.md §4.A) so it can be passed
// straight to a condeval.Program.Eval call.
func (s *Store) Snapshot(undot func(string) string) map[string]value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]value.Value, len(s.values))
	for n, v := range s.values {
		key := n
		if undot != nil {
			key = undot(n)
		}
		out[key] = v
	}
	return out
}

// All returns a sorted-by-name snapshot, used by the dashboard
// (SPEC_FULL.md §11.4).
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := maps.Keys(s.values)
	slices.Sort(names)
	out := make([]Event, 0, len(names))
	for _, n := range names {
		out = append(out, Event{Signal: n, Value: s.values[n]})
	}
	return out
}

// Subscribe returns a read-only channel receiving every Update. The
// channel has a bounded buffer; slow subscribers silently miss events
// rather than blocking the Store.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 128)
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (s *Store) Unsubscribe(ch <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for existing := range s.subs {
		if (<-chan Event)(existing) == ch {
			delete(s.subs, existing)
			close(existing)
			return
		}
	}
}
