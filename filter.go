// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// entryMatcher selects entries by normalized name with ordered path rules.
type entryMatcher struct {
	matcher *pathrules.Matcher
	// fallback is returned when no rules were given.
	fallback bool
}

// newEntryMatcher compiles rules after normalizing their patterns.
// A nil or empty rule set selects every entry.
func newEntryMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*entryMatcher, error) {
	rules = normalizeSelectRules(rules)
	if len(rules) == 0 {
		return &entryMatcher{fallback: true}, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidRules, err)
	}

	return &entryMatcher{matcher: matcher}, nil
}

// normalizeSelectRules normalizes rule patterns like entry names and drops empty patterns.
func normalizeSelectRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizeSelectPattern(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// normalizeSelectPattern normalizes a pattern like NormalizeName but keeps
// a leading "/" root anchor.
func normalizeSelectPattern(pattern string) string {
	pattern = strings.TrimSpace(strings.ReplaceAll(pattern, `\`, "/"))
	anchored := strings.HasPrefix(pattern, "/")

	pattern = NormalizeName(pattern)
	if pattern == "" || !anchored {
		return pattern
	}

	return "/" + pattern
}

// Match reports whether the normalized entry name is selected.
func (m *entryMatcher) Match(name string) bool {
	if m == nil {
		return false
	}

	if m.matcher == nil {
		return m.fallback
	}

	if name == "" {
		return false
	}

	return m.matcher.Included(name, false)
}

// defaultSelectAction picks the action for names no rule matched:
// include when rules only exclude, exclude once any include rule exists.
func defaultSelectAction(rules []pathrules.Rule) pathrules.Action {
	for _, rule := range rules {
		if rule.Action == pathrules.ActionInclude {
			return pathrules.ActionExclude
		}
	}

	return pathrules.ActionInclude
}

// Select returns indexes of entries whose names match rules, in archive order.
// Empty rules select every entry. A zero DefaultAction in opts is derived
// from rules the same way Extract does.
func (a *Archive) Select(rules []pathrules.Rule, opts pathrules.MatcherOptions) ([]int, error) {
	if a == nil {
		return nil, ErrNilReader
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.CaseInsensitive = true
		opts.DefaultAction = defaultSelectAction(rules)
	}

	matcher, err := newEntryMatcher(rules, opts)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	out := make([]int, 0, len(a.names))
	for i, name := range a.names {
		if matcher.Match(name) {
			out = append(out, i)
		}
	}

	return out, nil
}
