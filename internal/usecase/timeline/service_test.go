package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/usecase/pricing"
	"github.com/simaogato/vestflow-backend/internal/usecase/tax"
	"github.com/simaogato/vestflow-backend/internal/usecase/vesting"
)

type fixture struct {
	grants domain.GrantRepository
	sales  domain.SaleRepository
	prices *pricing.PriceService
	calc   *tax.Calculator
	r      *Reconstructor
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	f := &fixture{
		grants: memory.NewGrantRepository(),
		sales:  memory.NewSaleRepository(),
		prices: pricing.NewPriceService(memory.NewPriceRepository(), 0),
		calc:   tax.NewCalculator(tax.DefaultRules()),
	}
	f.r = NewReconstructor(f.grants, f.sales, f.prices, f.calc, 4)
	now := domain.MustDate(today).Add(9 * time.Hour)
	f.r.now = func() time.Time { return now }
	return f
}

func (f *fixture) price(t *testing.T, symbol, date, price string) {
	t.Helper()
	_, err := f.prices.Upsert(context.Background(), domain.PriceRecord{
		Symbol: symbol, Date: domain.MustDate(date), Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
}

// grant stores shares of symbol granted on date at 10 per share. Tranches due by
// vestedThrough are vested; stamped maps tranche seq to its recorded vest price.
func (f *fixture) grant(t *testing.T, symbol, date string, shares int64, planID, vestedThrough string, stamped map[int]string) *domain.Grant {
	t.Helper()
	plan, err := vesting.DefaultPlans().Get(planID)
	require.NoError(t, err)
	tranches, err := vesting.GenerateSchedule(domain.MustDate(date), shares, plan)
	require.NoError(t, err)

	if vestedThrough != "" {
		cutoff := domain.MustDate(vestedThrough)
		for i := range tranches {
			if tranches[i].VestDate.After(cutoff) {
				continue
			}
			tranches[i].Vested = true
			if p, ok := stamped[tranches[i].Seq]; ok {
				price := decimal.RequireFromString(p)
				tranches[i].VestedPrice = &price
			}
		}
	}

	g := &domain.Grant{
		ID:              uuid.New(),
		UserID:          "user-1",
		Symbol:          symbol,
		GrantDate:       domain.MustDate(date),
		TotalShares:     shares,
		TotalGrantValue: decimal.NewFromInt(shares * 10),
		PlanID:          planID,
		Status:          domain.GrantStatusActive,
		Tranches:        tranches,
	}
	g.RefreshStatus()
	require.NoError(t, f.grants.Create(context.Background(), g))
	return g
}

func (f *fixture) sale(t *testing.T, g *domain.Grant, date string, shares int64, price string) *domain.Sale {
	t.Helper()
	p := decimal.RequireFromString(price)
	result, err := f.calc.ComputeSaleTax(g, shares, p, domain.MustDate(date))
	require.NoError(t, err)
	s := &domain.Sale{
		ID: uuid.New(), UserID: g.UserID, GrantID: g.ID, SaleDate: domain.MustDate(date),
		Shares: shares, PricePerShare: p, Tax: result,
	}
	require.NoError(t, f.sales.Create(context.Background(), s))
	return s
}

func timeframe(t *testing.T, from, to string) domain.Timeframe {
	t.Helper()
	tf, err := ParseTimeframe(from, to)
	require.NoError(t, err)
	return tf
}

func pointByMonth(t *testing.T, points []domain.TimelinePoint, month string) domain.TimelinePoint {
	t.Helper()
	for _, p := range points {
		if p.Month == month {
			return p
		}
	}
	t.Fatalf("month %s not in timeline", month)
	return domain.TimelinePoint{}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGeneratePortfolioTimeline_SingleGrant(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	// 5y quarterly, 50 shares per tranche: 2022-04-01 and 2022-07-01 stamped at 20,
	// 2022-10-01 priced from the store.
	g := f.grant(t, "ACME", "2022-01-01", 1000, "5y-quarterly", "2023-06-15", map[int]string{0: "20", 1: "20"})
	f.price(t, "ACME", "2022-09-30", "30")
	sale := f.sale(t, g, "2022-11-15", 40, "35")

	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", timeframe(t, "2022-01", "2022-12"))
	require.NoError(t, err)
	require.Len(t, points, 12)

	jan := pointByMonth(t, points, "2022-01")
	assert.Zero(t, jan.SharesHeld)
	assert.Empty(t, jan.Grants)
	assert.True(t, jan.TotalValue.IsZero())

	apr := pointByMonth(t, points, "2022-04")
	assert.Equal(t, int64(50), apr.SharesHeld)
	require.Len(t, apr.Events, 1)
	assert.Equal(t, domain.TimelineEventVest, apr.Events[0].Type)
	assert.True(t, dec("1000").Equal(apr.TotalValue))
	// 50 shares at 20: original 500, wage 325, short term gains 325.
	assert.True(t, dec("650").Equal(apr.TaxLiability), "got %s", apr.TaxLiability)
	assert.True(t, dec("350").Equal(apr.NetValue))

	jun := pointByMonth(t, points, "2022-06")
	assert.Empty(t, jun.Events)
	assert.True(t, jun.SameTotals(apr))

	oct := pointByMonth(t, points, "2022-10")
	assert.Equal(t, int64(150), oct.SharesHeld)
	assert.True(t, oct.Events[0].PriceKnown)
	assert.True(t, dec("30").Equal(oct.Events[0].PricePerShare))
	assert.True(t, dec("4500").Equal(oct.TotalValue))
	assert.True(t, dec("2925").Equal(oct.TaxLiability))

	nov := pointByMonth(t, points, "2022-11")
	assert.Equal(t, int64(110), nov.SharesHeld)
	require.Len(t, nov.Events, 1)
	assert.Equal(t, domain.TimelineEventSale, nov.Events[0].Type)
	require.NotNil(t, nov.Events[0].Tax)
	assert.True(t, dec("3850").Equal(nov.TotalValue))
	assert.True(t, sale.Tax.NetValue.Equal(nov.RealizedProceeds))
	assert.True(t, sale.Tax.TotalTax.Equal(nov.RealizedTax))

	dec22 := pointByMonth(t, points, "2022-12")
	assert.True(t, dec22.SameTotals(nov))
	require.Len(t, dec22.Grants, 1)
	assert.Equal(t, g.ID, dec22.Grants[0].GrantID)
}

func TestGeneratePortfolioTimeline_StartsMidHistory(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	f.grant(t, "ACME", "2022-01-01", 1000, "5y-quarterly", "2023-06-15", map[int]string{0: "20", 1: "20", 2: "20", 3: "20", 4: "20"})

	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", timeframe(t, "2022-11", "2022-12"))
	require.NoError(t, err)
	require.Len(t, points, 2)

	// Earlier vesting is carried in without listing its events.
	assert.Equal(t, int64(150), points[0].SharesHeld)
	assert.Empty(t, points[0].Events)
	assert.True(t, points[0].SameTotals(points[1]))
}

func TestGeneratePortfolioTimeline_CutoffAtToday(t *testing.T) {
	f := newFixture(t, "2022-08-15")
	// Nothing recorded as vested yet; due tranches still appear.
	f.grant(t, "ACME", "2022-01-01", 1000, "5y-quarterly", "", nil)
	f.price(t, "ACME", "2022-01-01", "12")

	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", timeframe(t, "2022-01", "2022-12"))
	require.NoError(t, err)

	assert.Equal(t, int64(100), pointByMonth(t, points, "2022-08").SharesHeld)
	assert.Equal(t, int64(100), pointByMonth(t, points, "2022-12").SharesHeld)
	assert.Empty(t, pointByMonth(t, points, "2022-10").Events)
}

func TestGeneratePortfolioTimeline_MissingPrice(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	f.grant(t, "NOPX", "2022-01-01", 100, "4y-semiannual", "2023-06-15", nil)

	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", timeframe(t, "2022-06", "2022-08"))
	require.NoError(t, err)

	jul := pointByMonth(t, points, "2022-07")
	assert.True(t, jul.PriceUnknown)
	assert.Equal(t, int64(13), jul.SharesHeld)
	assert.True(t, jul.TotalValue.IsZero())
	assert.False(t, jul.Events[0].PriceKnown)
	assert.False(t, pointByMonth(t, points, "2022-06").PriceUnknown)
}

func TestGeneratePortfolioTimeline_MergesGrants(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	later := f.grant(t, "BETA", "2022-02-15", 800, "4y-quarterly", "2023-06-15", nil)
	earlier := f.grant(t, "ACME", "2022-01-01", 1000, "5y-quarterly", "2023-06-15", nil)
	f.price(t, "ACME", "2022-01-01", "20")
	f.price(t, "BETA", "2022-01-01", "8")
	f.sale(t, later, "2022-12-01", 20, "9")
	tf := timeframe(t, "2022-01", "2023-03")

	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", tf)
	require.NoError(t, err)

	// Every month equals the sum of each grant replayed alone.
	alone := func(g *domain.Grant) []domain.TimelinePoint {
		solo := newFixture(t, "2023-06-15")
		solo.prices = f.prices
		solo.r = NewReconstructor(solo.grants, f.sales, f.prices, f.calc, 1)
		solo.r.now = f.r.now
		require.NoError(t, solo.grants.Create(context.Background(), g))
		pts, err := solo.r.GeneratePortfolioTimeline(context.Background(), "user-1", tf)
		require.NoError(t, err)
		return pts
	}
	a, b := alone(earlier), alone(later)
	for i, p := range points {
		assert.Equal(t, a[i].SharesHeld+b[i].SharesHeld, p.SharesHeld, p.Month)
		assert.True(t, a[i].TotalValue.Add(b[i].TotalValue).Equal(p.TotalValue), p.Month)
		assert.True(t, a[i].TaxLiability.Add(b[i].TaxLiability).Equal(p.TaxLiability), p.Month)
		assert.True(t, a[i].RealizedProceeds.Add(b[i].RealizedProceeds).Equal(p.RealizedProceeds), p.Month)
	}

	last := points[len(points)-1]
	require.Len(t, last.Grants, 2)
	assert.Equal(t, earlier.ID, last.Grants[0].GrantID)
	assert.Equal(t, later.ID, last.Grants[1].GrantID)
}

func TestGeneratePortfolioTimeline_Deterministic(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	for i := 0; i < 6; i++ {
		g := f.grant(t, "ACME", fmt.Sprintf("2021-%02d-10", i+1), 500+int64(i), "4y-quarterly", "2023-06-15", nil)
		if i%2 == 0 {
			f.sale(t, g, "2023-01-10", 10, "25")
		}
	}
	f.price(t, "ACME", "2021-01-01", "15")
	f.price(t, "ACME", "2022-06-01", "18")
	tf := timeframe(t, "2021-01", "2023-06")

	first, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", tf)
	require.NoError(t, err)
	second, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", tf)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		if len(first[i].Events) == 0 {
			assert.True(t, first[i].SameTotals(first[i-1]), first[i].Month)
		}
	}
}

func TestGeneratePortfolioTimeline_Errors(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	f.grant(t, "ACME", "2022-01-01", 1000, "5y-quarterly", "", nil)

	_, err := f.r.GeneratePortfolioTimeline(context.Background(), "user-1", domain.Timeframe{
		From: domain.MustDate("2023-01-01"), To: domain.MustDate("2022-01-01"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.r.GeneratePortfolioTimeline(ctx, "user-1", timeframe(t, "2022-01", "2022-12"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneratePortfolioTimeline_NoGrants(t *testing.T) {
	f := newFixture(t, "2023-06-15")
	points, err := f.r.GeneratePortfolioTimeline(context.Background(), "nobody", timeframe(t, "2023-01", "2023-03"))
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.Zero(t, p.SharesHeld)
		assert.Empty(t, p.Events)
	}
}
