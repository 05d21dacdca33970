package validator

import "regexp"

// forbiddenVerbs must not appear as whole words anywhere in the
// canonical form. Whole-word here relies on Go's regexp \b, whose word
// class ([0-9A-Za-z_]) requires the match be surrounded by
// non-alphanumeric, non-underscore characters, so UPDATED_AT never
// matches UPDATE.
var forbiddenVerbs = []string{
	"DELETE", "INSERT", "UPDATE", "MERGE", "DROP", "TRUNCATE", "ALTER",
	"CREATE", "GRANT", "REVOKE", "EXECUTE", "CALL", "COMMIT", "ROLLBACK",
	"SAVEPOINT", "LOCK", "RENAME",
}

var forbiddenVerbPatterns = compileWordPatterns(forbiddenVerbs)

// setOperators enable exfiltration through type coercion across
// arbitrary tables and are always rejected.
var setOperators = []string{"UNION ALL", "UNION", "INTERSECT", "MINUS", "EXCEPT"}

var setOperatorPatterns = compileWordPatterns(setOperators)

var (
	crossJoinPattern  = regexp.MustCompile(`\bCROSS JOIN\b`)
	joinPattern       = regexp.MustCompile(`\bJOIN\b`)
	distinctPattern   = regexp.MustCompile(`\bDISTINCT\b`)
	subqueryPattern   = regexp.MustCompile(`\(\s*SELECT\b`)
	windowPattern     = regexp.MustCompile(`\)\s*OVER\s*\(`)
	likeWildPattern   = regexp.MustCompile(`LIKE\s*'%`)
	orPattern         = regexp.MustCompile(`\bOR\b`)
	fromRefPattern    = regexp.MustCompile(`\b(?:FROM|JOIN)\s+([A-Z_][A-Z0-9_]*)(?:\s+(?:AS\s+)?([A-Z_][A-Z0-9_]*))?`)
	cteNamePattern    = regexp.MustCompile(`(?:\bWITH\s+|,\s*)([A-Z_][A-Z0-9_]*)\s+AS\s*\(`)
	wherePattern      = regexp.MustCompile(`\bWHERE\b`)
	starPattern       = regexp.MustCompile(`SELECT\s+\*`)
	aggregatePatterns = compileWordPatterns([]string{"COUNT", "SUM", "AVG", "MIN", "MAX", "GROUP BY"})
)

func compileWordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) (*regexp.Regexp, bool) {
	for _, p := range patterns {
		if p.MatchString(s) {
			return p, true
		}
	}
	return nil, false
}

func countAny(patterns []*regexp.Regexp, s string) int {
	total := 0
	for _, p := range patterns {
		total += len(p.FindAllStringIndex(s, -1))
	}
	return total
}
