// Package tags normalizes free-text tag strings into sorted, deduplicated
// token sets stored as a single space-joined string.
package tags

import (
	"sort"
	"strings"
)

type Set map[string]struct{}

// Parse splits s on whitespace and lowercases every token.
func Parse(s string) Set {
	set := make(Set)
	for _, tok := range strings.Fields(s) {
		set[strings.ToLower(tok)] = struct{}{}
	}
	return set
}

// Union returns a new set holding the tokens of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Contains reports whether every token of other is in s.
func (s Set) Contains(other Set) bool {
	for t := range other {
		if _, ok := s[t]; !ok {
			return false
		}
	}
	return true
}

// List returns the tokens in sorted order. It never returns nil.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// String is the canonical storage form.
func (s Set) String() string {
	return strings.Join(s.List(), " ")
}

// Normalize is shorthand for Parse(s).String().
func Normalize(s string) string {
	return Parse(s).String()
}
