package domain

import "errors"

// VestingPlan is a named, immutable split of a grant into equal periods.
// Adding a plan is a configuration change; no calculation depends on a specific plan.
type VestingPlan struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	PeriodCount    int    `yaml:"period_count"`
	IntervalMonths int    `yaml:"interval_months"`
}

// Validate ensures the plan adheres to domain rules
func (p VestingPlan) Validate() error {
	if p.ID == "" {
		return errors.New("vesting plan id cannot be empty")
	}
	if p.PeriodCount <= 0 {
		return errors.New("vesting plan period count must be positive")
	}
	if p.IntervalMonths <= 0 {
		return errors.New("vesting plan interval must be positive")
	}
	return nil
}

// DurationMonths is the total length of the plan.
func (p VestingPlan) DurationMonths() int {
	return p.PeriodCount * p.IntervalMonths
}
