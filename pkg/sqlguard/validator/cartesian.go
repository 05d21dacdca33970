package validator

import "strings"

// fromListHasTopLevelComma reports whether the canonical form contains a
// comma in its top-level FROM list (i.e. not nested inside parentheses,
// and not inside a later top-level clause such as WHERE or GROUP BY).
// It is a syntactic scan, not a parser: it tracks paren depth and looks
// for a comma while depth stays at the level the top-level FROM opened.
func fromListHasTopLevelComma(canonical string) bool {
	depth := 0
	inFrom := false
	fromDepth := 0
	tokens := tokenize(canonical)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
		}
		if !inFrom && tok == "FROM" && depth == 0 {
			inFrom = true
			fromDepth = depth
			continue
		}
		if inFrom {
			if depth == fromDepth && isClauseBoundary(tok) {
				inFrom = false
				continue
			}
			if tok == "," && depth == fromDepth {
				return true
			}
		}
	}
	return false
}

var clauseBoundaries = map[string]bool{
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"CONNECT": true, "START": true, "UNION": true, "INTERSECT": true,
	"MINUS": true, "EXCEPT": true, "FETCH": true,
}

func isClauseBoundary(tok string) bool {
	return clauseBoundaries[tok]
}

// tokenize splits the canonical (already whitespace-collapsed, upper-cased)
// form into words, parentheses, and commas, discarding everything else
// (literals, operators) since only these token classes matter for the
// top-level FROM-list scan.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\'' {
				inString = false
			}
			continue
		}
		switch {
		case c == '\'':
			flush()
			inString = true
		case c == '(' || c == ')' || c == ',':
			flush()
			toks = append(toks, string(c))
		case c == ' ':
			flush()
		case isWordByte(c):
			cur.WriteByte(c)
		default:
			flush()
		}
	}
	flush()
	return toks
}

func isWordByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '$' || c == '#'
}
