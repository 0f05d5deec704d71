// Package money parses scraped price text into typed decimal amounts.
package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when price text cannot be coerced to a number.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount is the exclusive upper bound of a stored price. Price columns are
// NUMERIC(14,2), so anything that rounds to 1e12 or more cannot be written.
var MaxAmount = decimal.New(1, 12)

// Format describes how a storefront renders prices.
type Format struct {
	Currency           string   `yaml:"currency"`
	Symbols            []string `yaml:"symbols"`
	ThousandsSeparator string   `yaml:"thousands_separator"`
	DecimalSeparator   string   `yaml:"decimal_separator"`
}

// Rupiah is the klikindomaret rendering, e.g. "Rp 15.000".
var Rupiah = Format{
	Currency:           "IDR",
	Symbols:            []string{"Rp.", "Rp", "IDR"},
	ThousandsSeparator: ".",
	DecimalSeparator:   ",",
}

// Amount is a decimal value tagged with its currency.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// StripCurrency removes every configured currency symbol and surrounding space.
func (f Format) StripCurrency(s string) string {
	for _, sym := range f.Symbols {
		if sym == "" {
			continue
		}
		s = strings.ReplaceAll(s, sym, "")
	}
	return strings.TrimSpace(s)
}

// StripThousands removes thousands separators and rewrites the decimal
// separator as '.', so the result is parseable by decimal.NewFromString.
func (f Format) StripThousands(s string) string {
	if f.ThousandsSeparator != "" {
		s = strings.ReplaceAll(s, f.ThousandsSeparator, "")
	}
	if f.DecimalSeparator != "" && f.DecimalSeparator != "." {
		s = strings.ReplaceAll(s, f.DecimalSeparator, ".")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ToDecimal coerces already-stripped text to a non-negative decimal below
// MaxAmount.
func ToDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	if !InRange(d) {
		return decimal.Zero, fmt.Errorf("%w: out of range %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// InRange reports whether d, rounded to cents, fits a price column.
func InRange(d decimal.Decimal) bool {
	return d.Round(2).Abs().LessThan(MaxAmount)
}
