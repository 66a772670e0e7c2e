package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxResult is the tax breakdown of one sale. It is derived and stored with the sale.
type TaxResult struct {
	OriginalValue   decimal.Decimal // grant-date value of the sold shares
	SaleValue       decimal.Decimal
	Profit          decimal.Decimal // SaleValue - OriginalValue, may be negative
	IsLongTerm      bool
	WageIncomeTax   decimal.Decimal
	CapitalGainsTax decimal.Decimal // negative on a loss unless clamping is enabled
	TotalTax        decimal.Decimal
	NetValue        decimal.Decimal
}

// Sale is one disposal against a grant. Immutable once recorded.
type Sale struct {
	ID            uuid.UUID
	UserID        string
	GrantID       uuid.UUID
	SaleDate      time.Time
	Shares        int64
	PricePerShare decimal.Decimal
	Tax           TaxResult
	CreatedAt     time.Time
}

// Validate ensures the sale adheres to domain rules
func (s *Sale) Validate() error {
	if s.UserID == "" {
		return Validationf("sale user id cannot be empty")
	}
	if s.GrantID == uuid.Nil {
		return Validationf("sale must reference a grant")
	}
	if s.SaleDate.IsZero() {
		return Validationf("sale date must be set")
	}
	if s.Shares <= 0 {
		return Validationf("shares sold must be positive")
	}
	if s.PricePerShare.IsNegative() {
		return Validationf("sale price cannot be negative")
	}
	return nil
}
