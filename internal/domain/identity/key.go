// Package identity normalizes human-entered mentor and student names into
// stable keys so records written with inconsistent formatting still match.
package identity

import (
	"sort"
	"strings"
)

// Key is a normalized identity string. Two names refer to the same person
// iff their Keys are equal.
type Key string

// StudentKey normalizes a student name: trim, lowercase, collapse internal
// whitespace. Token order is preserved.
// PRE: name is raw human input, possibly empty
// POST: Returns the normalized key; empty input yields the empty key
func StudentKey(name string) Key {
	return Key(strings.Join(strings.Fields(strings.ToLower(name)), " "))
}

// MentorKey normalizes a mentor name like StudentKey but additionally sorts
// the name tokens, so "Rivera, Ana" and "ana rivera" unify once punctuation
// noise is stripped by the caller's form handling.
// PRE: name is raw human input, possibly empty
// POST: Returns the normalized key with tokens in sorted order
func MentorKey(name string) Key {
	tokens := strings.Fields(strings.ToLower(name))
	sort.Strings(tokens)
	return Key(strings.Join(tokens, " "))
}

// SameStudent reports whether two student names normalize to the same key.
func SameStudent(a, b string) bool {
	return StudentKey(a) == StudentKey(b)
}

// SameMentor reports whether two mentor names normalize to the same key.
func SameMentor(a, b string) bool {
	return MentorKey(a) == MentorKey(b)
}
