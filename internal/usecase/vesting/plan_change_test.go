package vesting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// MockPriceLookup is a mock implementation of PriceLookup for testing
type MockPriceLookup struct {
	mock.Mock
}

func (m *MockPriceLookup) GetPriceOnDate(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol, date)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// newGrant builds a grant on plan with tranches vested up to asOf.
func newGrant(t *testing.T, grantDate string, shares int64, plan domain.VestingPlan, vestedThrough string) *domain.Grant {
	t.Helper()
	tranches, err := GenerateSchedule(domain.MustDate(grantDate), shares, plan)
	require.NoError(t, err)
	cutoff := domain.MustDate(vestedThrough)
	for i := range tranches {
		if !tranches[i].VestDate.After(cutoff) {
			tranches[i].Vested = true
			p := decimal.NewFromInt(10)
			tranches[i].VestedPrice = &p
		}
	}
	return &domain.Grant{
		ID:              uuid.New(),
		UserID:          "user-1",
		Symbol:          "ACME",
		GrantDate:       domain.MustDate(grantDate),
		TotalShares:     shares,
		TotalGrantValue: decimal.NewFromInt(shares * 10),
		PlanID:          plan.ID,
		Status:          domain.GrantStatusActive,
		Tranches:        tranches,
	}
}

func TestPreviewPlanChange(t *testing.T) {
	// 5y quarterly from 2022-01-01: by 2023-01-01 four tranches (200 shares) vested.
	grant := newGrant(t, "2022-01-01", 1000, quarterly5y, "2023-01-01")
	require.Equal(t, int64(200), grant.VestedShares())

	impact, err := PreviewPlanChange(grant, semiannual, domain.MustDate("2023-01-01"))
	require.NoError(t, err)

	assert.Equal(t, "5y-quarterly", impact.CurrentPlanID)
	assert.Equal(t, "4y-semiannual", impact.NewPlanID)
	assert.Equal(t, int64(200), impact.VestedShares)
	assert.Equal(t, int64(800), impact.UnvestedShares)
	assert.Equal(t, 4, impact.PeriodsKept)
	assert.Equal(t, 16, impact.PeriodsReplaced)
	assert.Equal(t, 8, impact.NewPeriodCount)
	// Semiannual: 2022-07-01 and 2023-01-01 are due, 125 shares each.
	assert.Equal(t, int64(250), impact.VestedSharesAfter)
	assert.Equal(t, int64(50), impact.VestedDelta())
	assert.True(t, impact.RequiresConfirmation)
	assert.Equal(t, int64(1000), sumShares(impact.NewSchedule))

	// The grant itself is untouched.
	assert.Equal(t, "5y-quarterly", grant.PlanID)
	assert.Len(t, grant.Tranches, 20)
}

func TestApplyPlanChange_RevestsAgainstNewDates(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2022-01-01", 1000, quarterly5y, "2023-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", domain.MustDate("2022-07-01")).Return(decimal.NewFromInt(20), nil)
	prices.On("GetPriceOnDate", ctx, "ACME", domain.MustDate("2023-01-01")).Return(decimal.NewFromInt(25), nil)

	updated, err := ApplyPlanChange(ctx, grant, semiannual, domain.MustDate("2023-01-01"), prices)
	require.NoError(t, err)

	assert.Equal(t, "4y-semiannual", updated.PlanID)
	require.Len(t, updated.Tranches, 8)
	assert.Equal(t, int64(1000), sumShares(updated.Tranches))
	assert.Equal(t, int64(250), updated.VestedShares())
	assert.True(t, updated.Tranches[0].VestedPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, updated.Tranches[1].VestedPrice.Equal(decimal.NewFromInt(25)))
	assert.NotNil(t, updated.Tranches[1].VestedAt)
	assert.False(t, updated.Tranches[2].Vested)
	assert.Equal(t, domain.GrantStatusActive, updated.Status)

	assert.Equal(t, "5y-quarterly", grant.PlanID)
	prices.AssertExpectations(t)
}

func TestApplyPlanChange_MissingPriceStillVests(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2022-01-01", 16, quarterly5y, "2022-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", mock.Anything).
		Return(decimal.Zero, domain.DataUnavailablef("no price for ACME"))

	updated, err := ApplyPlanChange(ctx, grant, quarterly4y, domain.MustDate("2022-07-15"), prices)
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.VestedShares())
	assert.Nil(t, updated.Tranches[0].VestedPrice)
	assert.True(t, updated.Tranches[0].Vested)
}

func TestApplyPlanChange_LookupFailureAborts(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2022-01-01", 100, quarterly5y, "2022-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", mock.Anything).Return(decimal.Zero, errors.New("connection refused"))

	updated, err := ApplyPlanChange(ctx, grant, semiannual, domain.MustDate("2023-01-01"), prices)
	assert.Nil(t, updated)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestApplyPlanChange_Rejected(t *testing.T) {
	ctx := context.Background()
	prices := new(MockPriceLookup)

	fullyVested := newGrant(t, "2015-01-01", 100, quarterly4y, "2024-01-01")
	fullyVested.Status = domain.GrantStatusFullyVested

	cancelled := newGrant(t, "2022-01-01", 100, quarterly4y, "2022-01-01")
	cancelled.Status = domain.GrantStatusCancelled

	samePlan := newGrant(t, "2022-01-01", 100, quarterly4y, "2022-01-01")

	tests := []struct {
		name   string
		grant  *domain.Grant
		plan   domain.VestingPlan
		errMsg string
	}{
		{"fully vested grant", fullyVested, quarterly5y, "fully vested"},
		{"cancelled grant", cancelled, quarterly5y, "cancelled grant"},
		{"same plan", samePlan, quarterly4y, "already uses plan"},
		{"invalid plan", samePlan, domain.VestingPlan{ID: "x"}, "period count must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyPlanChange(ctx, tt.grant, tt.plan, domain.MustDate("2024-01-01"), prices)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Contains(t, err.Error(), tt.errMsg)

			_, err = PreviewPlanChange(tt.grant, tt.plan, domain.MustDate("2024-01-01"))
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
	prices.AssertNotCalled(t, "GetPriceOnDate")
}

func TestEvaluateVesting(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2023-01-10", 8, semiannual, "2023-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", domain.MustDate("2023-07-10")).Return(decimal.NewFromInt(30), nil)
	prices.On("GetPriceOnDate", ctx, "ACME", domain.MustDate("2024-01-10")).Return(decimal.NewFromInt(31), nil)

	n, err := EvaluateVesting(ctx, grant, domain.MustDate("2024-03-01"), prices)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), grant.VestedShares())

	// Re-running is a no-op: tranches only move forward.
	n, err = EvaluateVesting(ctx, grant, domain.MustDate("2024-03-01"), prices)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	prices.AssertNumberOfCalls(t, "GetPriceOnDate", 2)
}

func TestEvaluateVesting_StampsCallerClock(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2023-01-10", 8, semiannual, "2023-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", mock.Anything).Return(decimal.NewFromInt(30), nil)

	asOf := domain.MustDate("2024-03-01").Add(9 * time.Hour)
	n, err := EvaluateVesting(ctx, grant, asOf, prices)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, tr := range grant.Tranches {
		if !tr.Vested {
			assert.Nil(t, tr.VestedAt)
			continue
		}
		require.NotNil(t, tr.VestedAt)
		assert.True(t, asOf.Equal(*tr.VestedAt), "vested at %s", tr.VestedAt)
	}
}

func TestEvaluateVesting_CompletesGrant(t *testing.T) {
	ctx := context.Background()
	grant := newGrant(t, "2015-01-10", 8, semiannual, "2015-01-01")
	prices := new(MockPriceLookup)
	prices.On("GetPriceOnDate", ctx, "ACME", mock.Anything).Return(decimal.NewFromInt(5), nil)

	n, err := EvaluateVesting(ctx, grant, domain.MustDate("2024-01-01"), prices)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, domain.GrantStatusFullyVested, grant.Status)
}
