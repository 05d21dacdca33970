package identifier

import "testing"

func TestValid(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"plain", "ACCOUNTS", true},
		{"with_underscore", "ACCOUNT_BALANCES", true},
		{"with_digit", "T1", true},
		{"with_dollar_hash", "ACC$HIST#1", true},
		{"empty", "", false},
		{"leading_digit", "1ACCOUNTS", false},
		{"leading_underscore", "_ACCOUNTS", false},
		{"contains_space", "ACCOUNT BALANCES", false},
		{"contains_dot", "SCHEMA.TABLE", false},
		{"contains_quote", `ACCOUNTS"`, false},
		{"contains_paren", "ACCOUNTS()", false},
		{"too_long", "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDE", false},
		{"max_length_ok", "ABCDEFGHIJKLMNOPQRSTUVWXYZABCD", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Valid(c.in); got != c.want {
				t.Errorf("Valid(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}
