package validator

import (
	"fmt"
	"regexp"
)

var (
	rownumPattern     = regexp.MustCompile(`\bROWNUM\b`)
	fetchFirstPattern = regexp.MustCompile(`\bFETCH FIRST\b`)
	orderByPattern    = regexp.MustCompile(`\bORDER BY\b`)
)

// hasExistingBound reports whether the canonical form already restricts
// its own row count.
func hasExistingBound(canonical string) bool {
	return rownumPattern.MatchString(canonical) || fetchFirstPattern.MatchString(canonical)
}

// applyRowCap wraps the original (non-canonical) SQL with a subquery that
// bounds output to maxRows, preserving any outermost ORDER BY by keeping
// it inside the wrapped subquery rather than discarding it.
func applyRowCap(original string, maxRows int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", original, maxRows)
}
