// Package validator rejects dangerous statements, scores the surviving
// ones for complexity, and rewrites admitted statements with a mandatory
// row cap. Rules run as an ordered, short-circuiting pipeline expressed
// as data rather than as a hand-written cascade, so each rule can be
// tested in isolation and new rules added without touching the
// dispatcher.
package validator

import (
	"fmt"
	"strings"

	"oracleguard/gateway/pkg/sqlguard/normalize"
)

// Config carries the tunables referenced by the rule pipeline.
type Config struct {
	MaxComplexity   int
	MaxRows         int
	AllowCrossJoins bool
}

// DefaultConfig matches the gateway's documented defaults.
func DefaultConfig() Config {
	return Config{MaxComplexity: 50, MaxRows: 10000, AllowCrossJoins: false}
}

// Verdict is the outcome of validating one statement.
//
// Invariant: if Admitted is false, EffectiveSQL is empty and Reason is
// non-empty; if Admitted is true, Reason is empty and EffectiveSQL is
// non-empty.
type Verdict struct {
	Admitted      bool
	Reason        string
	Warnings      []string
	Complexity    int
	AppliedRowCap int
	EffectiveSQL  string
	Canonical     string
}

// Validator evaluates raw SQL text against the admission rule pipeline.
type Validator struct {
	cfg Config
}

// New constructs a Validator with the given config.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

func reject(canonical, reason string) Verdict {
	return Verdict{Admitted: false, Reason: reason, Canonical: canonical}
}

// Validate runs the ordered rule pipeline against raw SQL text.
func (v *Validator) Validate(raw string) Verdict {
	canonical := normalize.Canonical(raw)

	// 1. Empty guard.
	if canonical == "" {
		return reject(canonical, "empty statement")
	}

	// 2. Leading verb.
	if !strings.HasPrefix(canonical, "SELECT") && !strings.HasPrefix(canonical, "WITH") {
		return reject(canonical, fmt.Sprintf("statement must begin with SELECT or WITH, found %s", leadingWord(canonical)))
	}

	// 3. Forbidden verbs.
	if p, ok := matchAny(forbiddenVerbPatterns, canonical); ok {
		return reject(canonical, fmt.Sprintf("forbidden keyword %s", stripWordBoundaries(p.String())))
	}

	// 4. Set-operator guard.
	if p, ok := matchAny(setOperatorPatterns, canonical); ok {
		return reject(canonical, fmt.Sprintf("forbidden set operator %s", stripWordBoundaries(p.String())))
	}

	// 5. Cartesian guard.
	if fromListHasTopLevelComma(canonical) {
		return reject(canonical, "implicit cartesian product: comma-separated FROM list")
	}
	if !v.cfg.AllowCrossJoins && crossJoinPattern.MatchString(canonical) {
		return reject(canonical, "explicit cartesian product: CROSS JOIN")
	}

	// 6. Complexity score.
	complexity := score(canonical)
	if complexity > v.cfg.MaxComplexity {
		return reject(canonical, fmt.Sprintf("complexity score %d exceeds ceiling %d", complexity, v.cfg.MaxComplexity))
	}

	verdict := Verdict{
		Admitted:   true,
		Complexity: complexity,
		Canonical:  canonical,
		Warnings:   warnings(canonical),
	}

	// 7. Row cap.
	if hasExistingBound(canonical) {
		verdict.EffectiveSQL = raw
	} else {
		verdict.EffectiveSQL = applyRowCap(raw, v.cfg.MaxRows)
		verdict.AppliedRowCap = v.cfg.MaxRows
	}

	return verdict
}

func warnings(canonical string) []string {
	var warns []string

	joinCount := len(joinPattern.FindAllStringIndex(canonical, -1))
	if joinCount == 0 && wherePattern.MatchString(canonical) && len(fromRefPattern.FindAllStringIndex(canonical, -1)) > 1 {
		warns = append(warns, "implicit multi-table join filtered only by WHERE")
	}

	if starPattern.MatchString(canonical) && len(fromRefPattern.FindAllStringIndex(canonical, -1)) > 1 {
		warns = append(warns, "SELECT * across more than one table")
	}

	if distinctPattern.MatchString(canonical) {
		warns = append(warns, "uses DISTINCT")
	}

	subqueries := len(subqueryPattern.FindAllStringIndex(canonical, -1))
	ctes := len(cteNamePattern.FindAllStringIndex(canonical, -1))
	windows := len(windowPattern.FindAllStringIndex(canonical, -1))
	if subqueries+ctes+windows > 0 {
		warns = append(warns, fmt.Sprintf("contains %d subquery/CTE/window construct(s)", subqueries+ctes+windows))
	}

	return warns
}

// leadingWord returns the first whitespace-delimited token of the
// canonical form, used to make a leading-verb rejection reason name the
// offending keyword (e.g. "found DELETE") instead of only the rule it
// violated.
func leadingWord(canonical string) string {
	if i := strings.IndexByte(canonical, ' '); i >= 0 {
		return canonical[:i]
	}
	return canonical
}

// stripWordBoundaries renders a compiled \bWORD\b pattern back to its
// plain keyword text for error messages.
func stripWordBoundaries(pattern string) string {
	s := strings.TrimPrefix(pattern, `\b`)
	s = strings.TrimSuffix(s, `\b`)
	return s
}
