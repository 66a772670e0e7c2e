package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one price observation for one symbol on one calendar day.
// (Symbol, Date) is unique; writes replace the existing record.
type PriceRecord struct {
	Symbol    string
	Date      time.Time
	Price     decimal.Decimal
	Source    string
	Open      *decimal.Decimal
	High      *decimal.Decimal
	Low       *decimal.Decimal
	Close     *decimal.Decimal
	Volume    *int64
	Metadata  map[string]string
	UpdatedAt time.Time
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate ensures the record adheres to domain rules
func (r *PriceRecord) Validate() error {
	if r.Symbol == "" {
		return Validationf("price symbol cannot be empty")
	}
	if r.Date.IsZero() {
		return Validationf("price date must be set")
	}
	if !r.Price.IsPositive() {
		return Validationf("price must be positive")
	}
	if r.Volume != nil && *r.Volume < 0 {
		return Validationf("volume cannot be negative")
	}
	return nil
}
