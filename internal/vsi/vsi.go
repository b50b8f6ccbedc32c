// Package vsi parses the signal-number map file (spec.md §6.4): a static
// mapping from signal name to a small integer, loaded once at startup and
// used only for log formatting (spec.md §3). Malformed lines are fatal
// configuration errors (spec.md §7.1).
//
// This parser is named in spec.md §1 as an external collaborator outside
// the hard core of the system, but a runnable repository still needs a
// concrete implementation of it.
package vsi

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Map is the parsed signal-number mapping plus its format version.
type Map struct {
	Version float64
	byName  map[string]int
}

// Load reads and parses a .vsi file at path.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal number file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("signal number file %q is empty", path)
	}
	versionLine := strings.TrimSpace(scanner.Text())
	version, err := strconv.ParseFloat(versionLine, 64)
	if err != nil {
		return nil, fmt.Errorf("signal number file %q: malformed version line %q", path, versionLine)
	}

	m := &Map{Version: version, byName: make(map[string]int)}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("signal number file %q: malformed line %d: %q", path, lineNo, line)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("signal number file %q: malformed line %d: %q", path, lineNo, line)
		}
		m.byName[fields[0]] = id
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading signal number file %q: %w", path, err)
	}
	return m, nil
}

// Lookup returns the integer id for a signal name.
func (m *Map) Lookup(name string) (int, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Has reports whether name is present in the map.
func (m *Map) Has(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// Len returns the number of mapped signals.
func (m *Map) Len() int { return len(m.byName) }
