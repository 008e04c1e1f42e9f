// Package pattern implements OSC address pattern matching: the
// backtracking predicate used to test a single address element name
// against a pattern containing the '?', '*', '[...]' and '{...}'
// metasymbols (spec §4.2).
package pattern

import (
	"strings"

	"github.com/pkg/errors"
)

// metasymbols are the six pattern metasymbols. Character-class negation
// ('!') and ranges ('-') are only meaningful inside '[...]' and are not
// themselves reserved at the top level.
const metasymbols = "?*[]{}"

// reservedExtra are reserved on top of the six metasymbols: container and
// method names may not contain any of these either.
const reservedExtra = "/# ,"

// Match reports whether pattern matches name in its entirety. Both are
// treated as raw byte sequences; matching is case sensitive.
func Match(name, pattern string) (bool, error) {
	if err := validatePattern(pattern); err != nil {
		return false, err
	}
	return matchFrom(name, 0, pattern, 0), nil
}

// matchFrom matches pattern[pi:] against name[ni:] through to both ends.
func matchFrom(name string, ni int, pattern string, pi int) bool {
	for {
		if pi == len(pattern) {
			return ni == len(name)
		}
		switch pattern[pi] {
		case '*':
			// Greedy: try consuming as much of the remaining name as
			// possible first, backtracking toward zero consumption.
			for j := len(name); j >= ni; j-- {
				if matchFrom(name, j, pattern, pi+1) {
					return true
				}
			}
			return false

		case '?':
			if ni >= len(name) {
				return false
			}
			ni++
			pi++

		case '[':
			end := strings.IndexByte(pattern[pi:], ']')
			if end == -1 {
				return false
			}
			end += pi
			if ni >= len(name) {
				return false
			}
			if !matchClass(pattern[pi+1:end], name[ni]) {
				return false
			}
			ni++
			pi = end + 1

		case '{':
			end := strings.IndexByte(pattern[pi:], '}')
			if end == -1 {
				return false
			}
			end += pi
			alts := strings.Split(pattern[pi+1:end], ",")
			for _, alt := range alts {
				if strings.HasPrefix(name[ni:], alt) && matchFrom(name, ni+len(alt), pattern, end+1) {
					return true
				}
			}
			return false

		default:
			if ni >= len(name) || name[ni] != pattern[pi] {
				return false
			}
			ni++
			pi++
		}
	}
}

// matchClass reports whether c is matched by the contents of a "[...]"
// character class (without the brackets). A leading '!' negates the rest.
// Ranges are written "a-z"; a literal '-' at the very start or end of the
// class body is treated as a literal character rather than a range
// operator.
func matchClass(body string, c byte) bool {
	negate := false
	if strings.HasPrefix(body, "!") {
		negate = true
		body = body[1:]
	}
	matched := false
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo <= c && c <= hi {
				matched = true
			}
			i += 2
			continue
		}
		if body[i] == c {
			matched = true
		}
	}
	return matched != negate
}

// ContainsPatternMetasymbols reports whether s contains any of the six
// pattern metasymbols ('?', '*', '[', ']', '{', '}').
func ContainsPatternMetasymbols(s string) bool {
	return strings.ContainsAny(s, metasymbols)
}

// ContainsReservedSymbols reports whether s contains any symbol that is
// reserved for pattern syntax or address-element delimiting and therefore
// must not appear literally in a container or method name.
func ContainsReservedSymbols(s string) bool {
	return strings.ContainsAny(s, metasymbols+reservedExtra)
}

// Split divides an OSC address pattern into its ordered element names,
// discarding the empty leading element produced by the mandatory leading
// '/'.
func Split(addr string) ([]string, error) {
	if !strings.HasPrefix(addr, "/") {
		return nil, errors.Errorf("pattern: address %q must start with '/'", addr)
	}
	parts := strings.Split(addr, "/")
	return parts[1:], nil
}

func validatePattern(p string) error {
	depth := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '[':
			if depth != 0 {
				return errors.Errorf("pattern: nested brackets not allowed in %q", p)
			}
			depth = 1
		case ']':
			if depth != 1 {
				return errors.Errorf("pattern: unbalanced ']' in %q", p)
			}
			depth = 0
		}
	}
	if depth != 0 {
		return errors.Errorf("pattern: unbalanced '[' in %q", p)
	}
	return nil
}
