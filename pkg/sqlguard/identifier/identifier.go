// Package identifier whitelists schema and table names used for
// metadata lookups (describe_table, list_tables), where no free-form
// SQL is accepted and a simple character-class check is sufficient.
package identifier

import "regexp"

// pattern requires a leading letter followed by letters, digits,
// underscore, dollar, or hash — the character set Oracle itself
// permits in unquoted identifiers.
var pattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)

// MaxLength is the longest identifier accepted.
const MaxLength = 30

// Valid reports whether name is an acceptable schema or table identifier.
func Valid(name string) bool {
	if len(name) == 0 || len(name) > MaxLength {
		return false
	}
	return pattern.MatchString(name)
}
