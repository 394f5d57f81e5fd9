package domain

import (
	"fmt"
	"math"
	"strings"
)

// Cents is a money amount in integer minor units (USD cents). All arithmetic
// inside the core happens on this type; decimal input is converted exactly at
// the edge by ParseAmount, never through floating point.
type Cents int64

// ParseAmount converts a decimal string with at most two fractional digits
// into cents. "1200", "1200.5" and "1200.00" are all valid; "1200.005" is not.
func ParseAmount(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, E(KindValidation, "amount is required")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" || len(frac) > 2 {
		return 0, Ef(KindValidation, "invalid amount %q: at most 2 decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var total Cents
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, Ef(KindValidation, "invalid amount %q", s)
			}
			d := Cents(c - '0')
			if total > (math.MaxInt64-d)/10 {
				return 0, Ef(KindValidation, "amount %q is out of range", s)
			}
			total = total*10 + d
		}
	}
	if negative {
		total = -total
	}
	return total, nil
}

// String formats cents as a two-decimal amount, e.g. 65000 -> "650.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits the amount as a decimal string to keep exactness on the
// wire.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a decimal number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
