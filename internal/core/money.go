package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount to a decimal rounded to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted, as is a leading
// sign: negative amounts record money received. Zero is a valid placeholder
// for a pending amount.
//
// Examples:
//
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("-2000")  -> -2000
//	ParseAmount("1.005")  -> 1.01
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(body, ".") > 1 || body == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
