package validator

// score computes the complexity score for a canonical statement per the
// weighted rule table. Subquery and CTE counts are summed independently
// rather than deduplicated against each other, per the resolved Open
// Question in SPEC_FULL.md.
func score(canonical string) int {
	total := 5 // base

	total += 5 * len(joinPattern.FindAllStringIndex(canonical, -1))
	total += 3 * countAny(aggregatePatterns, canonical)
	if distinctPattern.MatchString(canonical) {
		total += 5
	}
	total += 10 * len(subqueryPattern.FindAllStringIndex(canonical, -1))
	total += 8 * len(cteNamePattern.FindAllStringIndex(canonical, -1))
	total += 12 * len(windowPattern.FindAllStringIndex(canonical, -1))
	total += 15 * selfJoinPairs(canonical)
	total += 10 * len(likeWildPattern.FindAllStringIndex(canonical, -1))

	orCount := len(orPattern.FindAllStringIndex(canonical, -1))
	if orCount > 2 {
		total += 4 * (orCount - 2)
	}

	depth := maxParenDepthForSubqueries(canonical)
	if depth > 2 {
		total += 5 * (depth - 2)
	}

	return total
}

// selfJoinPairs counts pairs of FROM/JOIN table references that share
// the same base table name, the syntactic proxy for a self-join.
func selfJoinPairs(canonical string) int {
	counts := map[string]int{}
	for _, m := range fromRefPattern.FindAllStringSubmatch(canonical, -1) {
		table := m[1]
		counts[table]++
	}
	pairs := 0
	for _, n := range counts {
		if n > 1 {
			pairs += n * (n - 1) / 2
		}
	}
	return pairs
}

// maxParenDepthForSubqueries returns the deepest nesting level of
// parenthesized SELECT subqueries, used to penalize excessive nesting
// above a depth of two.
func maxParenDepthForSubqueries(canonical string) int {
	var opened []bool // per open paren: whether it starts a SELECT subquery
	depth, max := 0, 0
	for i := 0; i < len(canonical); i++ {
		switch canonical[i] {
		case '(':
			loc := subqueryPattern.FindStringIndex(canonical[i:])
			isSubquery := loc != nil && loc[0] == 0
			opened = append(opened, isSubquery)
			if isSubquery {
				depth++
				if depth > max {
					max = depth
				}
			}
		case ')':
			if n := len(opened); n > 0 {
				if opened[n-1] {
					depth--
				}
				opened = opened[:n-1]
			}
		}
	}
	return max
}
