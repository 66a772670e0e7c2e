package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimelineEventType distinguishes vesting from sale events
type TimelineEventType string

const (
	TimelineEventVest TimelineEventType = "VEST"
	TimelineEventSale TimelineEventType = "SALE"
)

// TimelineEvent is one vesting or sale that happened in a timeline month.
type TimelineEvent struct {
	Date          time.Time
	Type          TimelineEventType
	GrantID       uuid.UUID
	Symbol        string
	Shares        int64
	PricePerShare decimal.Decimal
	PriceKnown    bool
	Tax           *TaxResult // stored tax of a sale; nil for vesting
}

// GrantPosition is the accumulated state of one grant at a month's close.
type GrantPosition struct {
	GrantID          uuid.UUID
	Symbol           string
	SharesHeld       int64
	Value            decimal.Decimal // held shares at the last event price
	TaxLiability     decimal.Decimal // tax due if the held shares were sold at that price
	NetValue         decimal.Decimal // Value - TaxLiability
	RealizedProceeds decimal.Decimal // cumulative net value of sales
	RealizedTax      decimal.Decimal // cumulative tax of sales
	PriceUnknown     bool
}

// TimelinePoint is one month's consolidated portfolio snapshot.
type TimelinePoint struct {
	Month            string // YYYY-MM
	Events           []TimelineEvent
	SharesHeld       int64
	TotalValue       decimal.Decimal
	TaxLiability     decimal.Decimal
	NetValue         decimal.Decimal
	RealizedProceeds decimal.Decimal
	RealizedTax      decimal.Decimal
	PriceUnknown     bool
	Grants           []GrantPosition
}

// SameTotals reports whether two points close with identical accumulated totals.
func (p TimelinePoint) SameTotals(o TimelinePoint) bool {
	return p.SharesHeld == o.SharesHeld &&
		p.TotalValue.Equal(o.TotalValue) &&
		p.TaxLiability.Equal(o.TaxLiability) &&
		p.NetValue.Equal(o.NetValue) &&
		p.RealizedProceeds.Equal(o.RealizedProceeds) &&
		p.RealizedTax.Equal(o.RealizedTax)
}

// PlanChangeImpact summarizes a plan change before it is committed.
type PlanChangeImpact struct {
	GrantID              uuid.UUID
	CurrentPlanID        string
	NewPlanID            string
	VestedShares         int64 // under the current schedule
	UnvestedShares       int64 // redistributed by the change
	PeriodsKept          int   // vested periods of the current schedule
	PeriodsReplaced      int   // unvested periods of the current schedule
	NewPeriodCount       int
	NewSchedule          []Tranche // Vested flags as they would be after the change
	VestedSharesAfter    int64
	RequiresConfirmation bool // the vested total would change
}

// VestedDelta is the change of the vested total caused by the plan change.
func (i *PlanChangeImpact) VestedDelta() int64 {
	return i.VestedSharesAfter - i.VestedShares
}
