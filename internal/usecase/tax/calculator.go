package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// Rules are the jurisdiction parameters of the sale tax.
type Rules struct {
	WageIncomeRate  decimal.Decimal // applied to the grant-date value of the sold shares
	LongTermRate    decimal.Decimal // capital gains rate once the holding period is reached
	ShortTermRate   decimal.Decimal // capital gains rate before that
	LongTermYears   int             // holding period, in calendar years from the grant date
	ClampNegativeCG bool            // floor capital gains tax at zero instead of crediting losses
}

// DefaultRules returns the standard rates: 65% wage tax, 25% long-term and 65%
// short-term capital gains, two years holding period, no clamping.
func DefaultRules() Rules {
	return Rules{
		WageIncomeRate: decimal.RequireFromString("0.65"),
		LongTermRate:   decimal.RequireFromString("0.25"),
		ShortTermRate:  decimal.RequireFromString("0.65"),
		LongTermYears:  2,
	}
}

// Calculator computes sale taxes. It has no side effects and is safe for concurrent use.
type Calculator struct {
	Rules Rules
}

// NewCalculator creates a new Calculator instance
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{Rules: rules}
}

// IsLongTerm reports whether a sale on saleDate reaches the holding period.
// The threshold is the calendar anniversary of the grant date, clamped to the
// month end like vest dates: a Feb 29 grant reaches it on Feb 28.
func (c *Calculator) IsLongTerm(grantDate, saleDate time.Time) bool {
	threshold := domain.AddMonths(domain.Day(grantDate), 12*c.Rules.LongTermYears)
	return !domain.Day(saleDate).Before(threshold)
}

// ComputeSaleTax computes the tax of selling shares of grant at pricePerShare on saleDate.
// Logic:
//   - OriginalValue = shares * (TotalGrantValue / TotalShares)
//   - Profit = shares * pricePerShare - OriginalValue (may be negative)
//   - WageIncomeTax = OriginalValue * wage rate, whatever the profit
//   - CapitalGainsTax = Profit * (long-term ? long-term rate : short-term rate)
//   - TotalTax = WageIncomeTax + CapitalGainsTax, NetValue = SaleValue - TotalTax
func (c *Calculator) ComputeSaleTax(grant *domain.Grant, shares int64, pricePerShare decimal.Decimal, saleDate time.Time) (domain.TaxResult, error) {
	if grant.TotalShares <= 0 {
		return domain.TaxResult{}, domain.Validationf("grant total shares must be positive")
	}
	if shares <= 0 {
		return domain.TaxResult{}, domain.Validationf("shares sold must be positive")
	}
	if pricePerShare.IsNegative() {
		return domain.TaxResult{}, domain.Validationf("sale price cannot be negative")
	}

	qty := decimal.NewFromInt(shares)
	// Multiply before dividing so whole-value grants stay exact.
	originalValue := grant.TotalGrantValue.Mul(qty).Div(decimal.NewFromInt(grant.TotalShares))
	saleValue := pricePerShare.Mul(qty)
	profit := saleValue.Sub(originalValue)
	isLongTerm := c.IsLongTerm(grant.GrantDate, saleDate)

	rate := c.Rules.ShortTermRate
	if isLongTerm {
		rate = c.Rules.LongTermRate
	}

	wageIncomeTax := originalValue.Mul(c.Rules.WageIncomeRate)
	capitalGainsTax := profit.Mul(rate)
	if c.Rules.ClampNegativeCG && capitalGainsTax.IsNegative() {
		capitalGainsTax = decimal.Zero
	}
	totalTax := wageIncomeTax.Add(capitalGainsTax)

	return domain.TaxResult{
		OriginalValue:   originalValue,
		SaleValue:       saleValue,
		Profit:          profit,
		IsLongTerm:      isLongTerm,
		WageIncomeTax:   wageIncomeTax,
		CapitalGainsTax: capitalGainsTax,
		TotalTax:        totalTax,
		NetValue:        saleValue.Sub(totalTax),
	}, nil
}
