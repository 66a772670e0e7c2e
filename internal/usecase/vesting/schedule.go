package vesting

import (
	"time"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// GenerateSchedule splits totalShares across the plan's periods.
// Logic:
//  1. base = totalShares / periodCount, remainder = totalShares % periodCount
//  2. The first `remainder` periods (earliest vest dates) receive base+1 shares
//  3. Every other period receives base shares, possibly zero
//  4. Period i vests on grantDate + (i+1) * intervalMonths
//
// Safety: the schedule always sums to totalShares exactly (no share lost or duplicated).
func GenerateSchedule(grantDate time.Time, totalShares int64, plan domain.VestingPlan) ([]domain.Tranche, error) {
	if totalShares <= 0 {
		return nil, domain.Validationf("total shares must be positive")
	}
	if err := plan.Validate(); err != nil {
		return nil, domain.Validationf("%v", err)
	}
	if grantDate.IsZero() {
		return nil, domain.Validationf("grant date must be set")
	}

	periods := int64(plan.PeriodCount)
	base := totalShares / periods
	remainder := totalShares % periods

	grantDay := domain.Day(grantDate)
	tranches := make([]domain.Tranche, plan.PeriodCount)
	for i := range tranches {
		shares := base
		if int64(i) < remainder {
			shares++
		}
		tranches[i] = domain.Tranche{
			Seq:      i,
			VestDate: domain.AddMonths(grantDay, (i+1)*plan.IntervalMonths),
			Shares:   shares,
		}
	}

	var total int64
	for _, t := range tranches {
		total += t.Shares
	}
	if total != totalShares {
		return nil, domain.Computationf("schedule sums to %d shares, want %d", total, totalShares)
	}

	return tranches, nil
}
