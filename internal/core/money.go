package core

// money.go parses monetary values from the raw currency strings found in
// asset inventories. Input follows Brazilian conventions ("R$ 1.234,56"):
// dot as thousands separator, comma as decimal separator. A value that does
// not parse to a finite number resolves to absent, never to zero.

import (
	"math"
	"strconv"
	"strings"
)

// placeholder strings that mean "no value" rather than zero.
var moneyPlaceholders = map[string]bool{
	"-": true, "--": true, "—": true, "–": true,
	"n/a": true, "na": true, "nd": true, "n/d": true, "s/v": true,
}

// ParseMoney converts a raw currency string to a float amount.
// Returns (0, false) when the value is absent or unparseable.
//
//	"R$ 1.234,56" -> 1234.56
//	"1234,56"     -> 1234.56
//	"1.234"       -> 1234      (thousands grouping)
//	"12.5"        -> 12.5      (decimal point)
//	"(1.000,00)"  -> -1000     (accounting negative)
//	"—"           -> absent
func ParseMoney(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || moneyPlaceholders[strings.ToLower(s)] {
		return 0, false
	}

	// Accounting format: parentheses mean negative.
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Strip currency markers and spacing (including NBSP).
	for _, sym := range []string{"R$", "r$", "$", "€", "£", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return 0, false
	}

	switch {
	case strings.Contains(s, ","):
		// Comma is the decimal separator; dots are thousands grouping.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
		if strings.Contains(s, ",") {
			return 0, false
		}
	case strings.Contains(s, "."):
		// No comma. Dots forming 3-digit groups are thousands separators
		// ("1.234", "1.234.567"); anything else is a decimal point.
		if isThousandsGrouped(s) {
			s = strings.ReplaceAll(s, ".", "")
		} else if strings.Count(s, ".") > 1 {
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// isThousandsGrouped reports whether every dot-separated group after the
// first has exactly three digits, e.g. "1.234" or "12.345.678".
func isThousandsGrouped(s string) bool {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	groups := strings.Split(t, ".")
	if len(groups) < 2 || groups[0] == "" || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
		for _, c := range g {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	for _, c := range groups[0] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
