package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

func TestGrantRepository_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepository()
	grant := &domain.Grant{
		ID:          uuid.New(),
		UserID:      "user-1",
		Symbol:      "ACME",
		GrantDate:   domain.MustDate("2024-01-01"),
		TotalShares: 10,
		Status:      domain.GrantStatusActive,
		Tranches:    []domain.Tranche{{Seq: 0, VestDate: domain.MustDate("2024-04-01"), Shares: 10}},
	}
	require.NoError(t, repo.Create(ctx, grant))

	// Mutating the caller's value does not leak into the store.
	grant.Tranches[0].Vested = true

	stored, err := repo.GetByID(ctx, "user-1", grant.ID)
	require.NoError(t, err)
	assert.False(t, stored.Tranches[0].Vested)

	_, err = repo.GetByID(ctx, "user-2", grant.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Create(ctx, grant)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, repo.Update(ctx, grant))
	stored, err = repo.GetByID(ctx, "user-1", grant.ID)
	require.NoError(t, err)
	assert.True(t, stored.Tranches[0].Vested)

	err = repo.Update(ctx, &domain.Grant{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepository()
	for _, g := range []struct {
		user, date string
		status     domain.GrantStatus
	}{
		{"user-1", "2024-05-01", domain.GrantStatusActive},
		{"user-1", "2023-05-01", domain.GrantStatusFullyVested},
		{"user-2", "2022-05-01", domain.GrantStatusActive},
	} {
		require.NoError(t, repo.Create(ctx, &domain.Grant{
			ID: uuid.New(), UserID: g.user, GrantDate: domain.MustDate(g.date), Status: g.status,
		}))
	}

	mine, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, domain.MustDate("2023-05-01"), mine[0].GrantDate)

	active, err := repo.ListByStatus(ctx, domain.GrantStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSaleRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleRepository()
	grantID := uuid.New()

	late := &domain.Sale{ID: uuid.New(), UserID: "user-1", GrantID: grantID, SaleDate: domain.MustDate("2024-06-01"), Shares: 5}
	early := &domain.Sale{ID: uuid.New(), UserID: "user-1", GrantID: grantID, SaleDate: domain.MustDate("2024-02-01"), Shares: 3}
	other := &domain.Sale{ID: uuid.New(), UserID: "user-1", GrantID: uuid.New(), SaleDate: domain.MustDate("2024-03-01"), Shares: 1}
	for _, s := range []*domain.Sale{late, early, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	byGrant, err := repo.ListByGrant(ctx, grantID)
	require.NoError(t, err)
	require.Len(t, byGrant, 2)
	assert.Equal(t, early.ID, byGrant[0].ID)

	byUser, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	assert.ErrorIs(t, repo.Delete(ctx, "user-2", late.ID), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "user-1", late.ID))
	_, err = repo.GetByID(ctx, "user-1", late.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceRepository()
	for date, price := range map[string]int64{"2024-01-02": 10, "2024-01-05": 12, "2024-02-01": 15} {
		require.NoError(t, repo.Upsert(ctx, &domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate(date), Price: decimal.NewFromInt(price)}))
	}
	require.NoError(t, repo.Upsert(ctx, &domain.PriceRecord{Symbol: "OTHER", Date: domain.MustDate("2024-01-03"), Price: decimal.NewFromInt(99)}))

	rec, err := repo.GetOnOrBefore(ctx, "ACME", domain.MustDate("2024-01-04"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(rec.Price))

	_, err = repo.GetOnOrBefore(ctx, "ACME", domain.MustDate("2024-01-01"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	latest, err := repo.GetLatest(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, domain.MustDate("2024-02-01"), latest.Date)

	// Replacing a day keeps one record per (symbol, date).
	require.NoError(t, repo.Upsert(ctx, &domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate("2024-01-05"), Price: decimal.NewFromInt(13)}))
	history, err := repo.ListRange(ctx, "ACME", domain.MustDate("2024-01-01"), domain.MustDate("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, decimal.NewFromInt(13).Equal(history[1].Price))
}
