package vesting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

var (
	quarterly5y = domain.VestingPlan{ID: "5y-quarterly", PeriodCount: 20, IntervalMonths: 3}
	quarterly4y = domain.VestingPlan{ID: "4y-quarterly", PeriodCount: 16, IntervalMonths: 3}
	semiannual  = domain.VestingPlan{ID: "4y-semiannual", PeriodCount: 8, IntervalMonths: 6}
)

func sumShares(tranches []domain.Tranche) int64 {
	var total int64
	for _, t := range tranches {
		total += t.Shares
	}
	return total
}

func TestGenerateSchedule_EvenSplit(t *testing.T) {
	tranches, err := GenerateSchedule(domain.MustDate("2020-01-15"), 1000, quarterly5y)
	require.NoError(t, err)
	require.Len(t, tranches, 20)

	for _, tr := range tranches {
		assert.Equal(t, int64(50), tr.Shares)
		assert.False(t, tr.Vested)
		assert.Nil(t, tr.VestedPrice)
	}
	assert.Equal(t, "2020-04-15", domain.FormatDate(tranches[0].VestDate))
	assert.Equal(t, "2025-01-15", domain.FormatDate(tranches[19].VestDate))
}

func TestGenerateSchedule_RemainderGoesToEarliestPeriods(t *testing.T) {
	tests := []struct {
		name        string
		totalShares int64
		wantHigh    int   // periods receiving base+1
		base        int64 // shares of the remaining periods
	}{
		{"99 shares over 20 periods", 99, 19, 4},
		{"101 shares over 20 periods", 101, 1, 5},
		{"3 shares over 20 periods", 3, 3, 0},
		{"20 shares over 20 periods", 20, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tranches, err := GenerateSchedule(domain.MustDate("2021-06-01"), tt.totalShares, quarterly5y)
			require.NoError(t, err)
			require.Len(t, tranches, 20)

			for i, tr := range tranches {
				if i < tt.wantHigh {
					assert.Equal(t, tt.base+1, tr.Shares, "period %d", i)
				} else {
					assert.Equal(t, tt.base, tr.Shares, "period %d", i)
				}
			}
			assert.Equal(t, tt.totalShares, sumShares(tranches))
		})
	}
}

func TestGenerateSchedule_ConservesSharesForAllPlans(t *testing.T) {
	plans := []domain.VestingPlan{quarterly5y, quarterly4y, semiannual, {ID: "one", PeriodCount: 1, IntervalMonths: 12}}
	for _, plan := range plans {
		for total := int64(1); total <= 250; total++ {
			tranches, err := GenerateSchedule(domain.MustDate("2019-02-28"), total, plan)
			require.NoError(t, err)
			require.Len(t, tranches, plan.PeriodCount)
			require.Equal(t, total, sumShares(tranches), "plan %s total %d", plan.ID, total)

			for i := 1; i < len(tranches); i++ {
				assert.True(t, tranches[i].VestDate.After(tranches[i-1].VestDate))
				assert.LessOrEqual(t, tranches[i].Shares, tranches[i-1].Shares)
			}
		}
	}
}

func TestGenerateSchedule_EndOfMonthGrant(t *testing.T) {
	tranches, err := GenerateSchedule(domain.MustDate("2023-08-31"), 8, semiannual)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", domain.FormatDate(tranches[0].VestDate))
	assert.Equal(t, "2024-08-31", domain.FormatDate(tranches[1].VestDate))
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		shares int64
		plan   domain.VestingPlan
		errMsg string
	}{
		{"zero shares", 0, quarterly5y, "total shares must be positive"},
		{"negative shares", -10, quarterly5y, "total shares must be positive"},
		{"zero periods", 100, domain.VestingPlan{ID: "bad", PeriodCount: 0, IntervalMonths: 3}, "period count must be positive"},
		{"zero interval", 100, domain.VestingPlan{ID: "bad", PeriodCount: 4, IntervalMonths: 0}, "interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tranches, err := GenerateSchedule(domain.MustDate("2021-01-01"), tt.shares, tt.plan)
			assert.Nil(t, tranches)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
