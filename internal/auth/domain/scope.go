package domain

import (
	"slices"
	"strings"
)

// ParseScopes splits a space delimited scope string, dropping duplicates
// while keeping the caller's order.
func ParseScopes(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func JoinScopes(scopes []string) string { return strings.Join(scopes, " ") }

// IntersectScopes keeps the requested scopes that are also allowed, in the
// requested order.
func IntersectScopes(requested, allowed []string) []string {
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(allowed, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// ScopesSubset reports whether every scope in sub appears in super.
func ScopesSubset(sub, super []string) bool {
	for _, s := range sub {
		if !slices.Contains(super, s) {
			return false
		}
	}
	return true
}

// ScopesOverlap reports whether a and b share at least one scope.
func ScopesOverlap(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}
