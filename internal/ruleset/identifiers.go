package ruleset

import "strings"

var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "True": true, "False": true,
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '.'
}

// undotIdentifiers scans a condition source string outside of quoted
// string literals, finds every dotted-or-plain identifier token, and
// rewrites dots to underscores in the returned text (spec.md §4.A:
// "Identifier undotting"). It returns the rewritten text and the set of
// original (dotted) identifiers referenced, in first-seen order.
func undotIdentifiers(src string) (rewritten string, idents []string) {
	var out strings.Builder
	seen := make(map[string]bool)
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '\'' || r == '"' {
			quote := r
			out.WriteRune(r)
			i++
			for i < len(runes) && runes[i] != quote {
				out.WriteRune(runes[i])
				i++
			}
			if i < len(runes) {
				out.WriteRune(runes[i])
				i++
			}
			continue
		}
		if isIdentStart(r) {
			start := i
			for i < len(runes) && isIdentCont(runes[i]) {
				i++
			}
			// Trailing dot (e.g. "foo." followed by non-ident) is not part
			// of the token; back it off.
			end := i
			for end > start && runes[end-1] == '.' {
				end--
			}
			i = end
			token := string(runes[start:end])
			if reservedWords[token] {
				out.WriteString(token)
				continue
			}
			if !seen[token] {
				seen[token] = true
				idents = append(idents, token)
			}
			out.WriteString(strings.ReplaceAll(token, ".", "_"))
			continue
		}
		out.WriteRune(r)
		i++
	}
	return out.String(), idents
}

// Undot rewrites a single dotted signal name to its underscore form, used
// both at parse time and to rewrite the live state snapshot before
// evaluation (spec.md §4.A).
func Undot(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
