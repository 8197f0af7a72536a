// Package money converts between free-form currency text and integer cents.
package money

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ParseCents strips every non-digit from s and parses the rest as cents.
// "$2,200.75" yields 220075. Text without explicit cents ("$5") is read as
// if the whole digit run were cents, so ParseCents(FormatCents(x)) == x holds
// only for well-formed input. Unparseable text yields 0 and a warning.
func ParseCents(s string) uint64 {
	digits := digitOnly(s)
	cents, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		slog.Warn("could not parse cents value, using 0", "text", s, "error", err)
		return 0
	}
	return cents
}

// FormatCents renders cents as "$<dollars>.<cc>".
func FormatCents(cents uint64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func digitOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
