package vesting

import (
	"context"
	"errors"
	"time"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
)

// PreviewPlanChange reports what ApplyPlanChange would do, without mutating the grant.
// The regenerated schedule carries the vested flags it would have as of asOf.
func PreviewPlanChange(grant *domain.Grant, newPlan domain.VestingPlan, asOf time.Time) (*domain.PlanChangeImpact, error) {
	if err := checkPlanChange(grant, newPlan); err != nil {
		return nil, err
	}

	schedule, err := GenerateSchedule(grant.GrantDate, grant.TotalShares, newPlan)
	if err != nil {
		return nil, err
	}

	impact := &domain.PlanChangeImpact{
		GrantID:        grant.ID,
		CurrentPlanID:  grant.PlanID,
		NewPlanID:      newPlan.ID,
		VestedShares:   grant.VestedShares(),
		UnvestedShares: grant.UnvestedShares(),
		NewPeriodCount: len(schedule),
	}
	for _, t := range grant.Tranches {
		if t.Vested {
			impact.PeriodsKept++
		} else {
			impact.PeriodsReplaced++
		}
	}

	asOf = domain.Day(asOf)
	for i := range schedule {
		if !schedule[i].VestDate.After(asOf) {
			schedule[i].Vested = true
			impact.VestedSharesAfter += schedule[i].Shares
		}
	}
	impact.NewSchedule = schedule
	impact.RequiresConfirmation = impact.VestedSharesAfter != impact.VestedShares

	return impact, nil
}

// ApplyPlanChange replaces the grant's whole tranche list with a schedule generated
// from the original grant date under newPlan, then replays vesting up to asOf: every
// new tranche due on or before asOf is marked vested and priced on its own vest date.
// The vested total can therefore change. The input grant is not modified.
func ApplyPlanChange(ctx context.Context, grant *domain.Grant, newPlan domain.VestingPlan, asOf time.Time, prices domain.PriceLookup) (*domain.Grant, error) {
	if err := checkPlanChange(grant, newPlan); err != nil {
		return nil, err
	}

	schedule, err := GenerateSchedule(grant.GrantDate, grant.TotalShares, newPlan)
	if err != nil {
		return nil, err
	}

	updated := grant.Clone()
	updated.PlanID = newPlan.ID
	updated.Tranches = schedule

	if _, err := EvaluateVesting(ctx, updated, asOf, prices); err != nil {
		return nil, err
	}
	if err := updated.CheckShareConservation(); err != nil {
		logger.L.Error("Share conservation violated after plan change", "grantID", grant.ID, "error", err)
		return nil, err
	}

	return updated, nil
}

// EvaluateVesting marks every unvested tranche due on or before asOf as vested and
// stamps its vest-date price. VestedAt records asOf itself, so callers control the clock.
// A tranche whose price cannot be found still vests, without a price.
// Returns the number of tranches that transitioned.
func EvaluateVesting(ctx context.Context, grant *domain.Grant, asOf time.Time, prices domain.PriceLookup) (int, error) {
	if grant.Status == domain.GrantStatusCancelled {
		return 0, nil
	}

	now := asOf.UTC()
	asOf = domain.Day(asOf)
	vested := 0
	for i := range grant.Tranches {
		t := &grant.Tranches[i]
		if t.Vested || t.VestDate.After(asOf) {
			continue
		}

		price, err := prices.GetPriceOnDate(ctx, grant.Symbol, t.VestDate)
		switch {
		case err == nil:
			t.VestedPrice = &price
		case errors.Is(err, domain.ErrDataUnavailable):
			logger.L.Warn("No price for vesting tranche, vesting without price",
				"grantID", grant.ID, "symbol", grant.Symbol, "vestDate", domain.FormatDate(t.VestDate))
		default:
			return vested, err
		}

		t.Vested = true
		vestedAt := now
		t.VestedAt = &vestedAt
		vested++
	}

	grant.RefreshStatus()
	return vested, nil
}

// checkPlanChange validates that a grant can move to newPlan.
func checkPlanChange(grant *domain.Grant, newPlan domain.VestingPlan) error {
	if err := newPlan.Validate(); err != nil {
		return domain.Validationf("%v", err)
	}
	if grant.Status == domain.GrantStatusCancelled {
		return domain.Validationf("cannot change the plan of a cancelled grant")
	}
	if grant.UnvestedShares() == 0 {
		return domain.Validationf("grant is fully vested; no shares left to redistribute")
	}
	if grant.PlanID == newPlan.ID {
		return domain.Validationf("grant already uses plan %q", newPlan.ID)
	}
	return nil
}
