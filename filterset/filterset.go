// Package filterset evaluates the only/include/exclude matchers against an
// entry's archive-relative name. See spec §4.3.
package filterset

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Set composes three independent matchers: only ∧ include ∧ ¬exclude. An
// entry survives only if every enabled matcher admits it. A zero Set admits
// everything.
type Set struct {
	only    map[string]struct{}
	include []string
	exclude []string
}

// New builds a Set from the exact-match "only" list and the include/exclude
// glob lists. Patterns are validated eagerly so a malformed glob is reported
// at configuration time, not buried in the middle of an extraction.
func New(only, includeGlob, excludeGlob []string) (*Set, error) {
	s := &Set{include: includeGlob, exclude: excludeGlob}

	if len(only) > 0 {
		s.only = make(map[string]struct{}, len(only))
		for _, name := range only {
			s.only[name] = struct{}{}
		}
	}

	for _, pattern := range includeGlob {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include_glob pattern %q", pattern)
		}
	}
	for _, pattern := range excludeGlob {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude_glob pattern %q", pattern)
		}
	}

	return s, nil
}

// Admit reports whether name survives every enabled matcher. Glob semantics
// follow doublestar: "?" matches exactly one non-"/" byte, "*" matches
// zero-or-more non-"/" bytes, and "**" matches zero-or-more arbitrary bytes
// including "/". Patterns are anchored to the full archive-relative name.
func (s *Set) Admit(name string) bool {
	if s == nil {
		return true
	}

	if s.only != nil {
		if _, ok := s.only[name]; !ok {
			return false
		}
	}

	if len(s.include) > 0 {
		matched := false
		for _, pattern := range s.include {
			if ok, _ := doublestar.Match(pattern, name); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return false
		}
	}

	return true
}
