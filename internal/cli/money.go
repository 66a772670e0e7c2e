package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders a decimal amount string in the given currency, e.g. "$1,950.00".
// Amounts that do not parse are returned as is.
func formatMoney(amount, code string) string {
	if amount == "" {
		return "-"
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	// money.New never returns a nil currency, even for unknown codes
	cur := *money.New(0, code).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// formatPrice renders a per-share price, keeping sub-cent digits when present.
func formatPrice(amount, code string) string {
	if amount == "" {
		return "n/a"
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	cur := *money.New(0, code).Currency()
	if d.Exponent() >= -int32(cur.Fraction) {
		return formatMoney(amount, code)
	}
	return d.String() + " " + cur.Code
}
