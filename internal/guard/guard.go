// Package guard screens raw query text for injection attempts before any
// retrieval work is performed.
//
// The guard sits in front of the embedding and search stages: a flagged
// query is rejected without spending embedding or index resources on it and
// without exposing index timing to a hostile caller.
package guard

import (
	"regexp"
)

// Classifier decides whether a raw query is unsafe to process.
//
// Implementations must be pure and stateless: the same query always yields
// the same verdict, and classification has no side effects. This keeps the
// gate's position in the pipeline fixed while allowing smarter classifiers
// to be substituted later.
type Classifier interface {
	// Unsafe reports whether the query should be rejected, along with the
	// name of the rule that matched (empty when safe).
	Unsafe(query string) (bool, string)
}

// rule pairs a compiled pattern with a stable name for audit records.
type rule struct {
	name    string
	pattern *regexp.Regexp
}

// PatternGuard is a fixed-rule, case-insensitive pattern classifier.
//
// It covers imperative-override phrases, SQL statement fragments, script
// tags and requests to reveal system or database internals. Pattern
// matching is a first line of defense, not a complete one; adversarial
// embeddings and adaptive attacks are out of scope.
type PatternGuard struct {
	rules []rule
}

// NewPatternGuard returns a guard with the default rule set compiled.
func NewPatternGuard() *PatternGuard {
	patterns := []struct {
		name    string
		pattern string
	}{
		{"instruction_override", `(?i)ignore\s+(previous\s+)?instructions?`},
		{"instruction_override", `(?i)ignore\s+this`},
		{"system_prompt_probe", `(?i)system\s+prompt`},
		{"privilege_escalation", `(?i)act\s+as\s+(?:admin|root|system)`},
		{"internals_disclosure", `(?i)show\s+(?:all\s+)?(?:data|database|secrets?|passwords?)`},
		{"internals_disclosure", `(?i)print\s+(?:database|secrets?|all)`},
		{"sql_comment", `/\*.*\*/`},
		{"script_tag", `(?i)<script>`},
		{"sql_statement", `(?i)delete\s+from`},
		{"sql_statement", `(?i)insert\s+into`},
		{"sql_statement", `(?i)drop\s+table`},
		{"sql_statement", `(?i)select\s+\*\s+from`},
	}

	rules := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, rule{name: p.name, pattern: regexp.MustCompile(p.pattern)})
	}
	return &PatternGuard{rules: rules}
}

// Unsafe checks the query against every rule and reports the first match.
func (g *PatternGuard) Unsafe(query string) (bool, string) {
	for _, r := range g.rules {
		if r.pattern.MatchString(query) {
			return true, r.name
		}
	}
	return false, ""
}

var _ Classifier = (*PatternGuard)(nil)
