package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/vestflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/vestflow-backend/internal/domain"
)

// MockPriceRepository is a mock implementation of PriceRepository for testing
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) Upsert(ctx context.Context, record *domain.PriceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPriceRepository) GetOnOrBefore(ctx context.Context, symbol string, date time.Time) (*domain.PriceRecord, error) {
	args := m.Called(ctx, symbol, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceRecord), args.Error(1)
}

func (m *MockPriceRepository) GetLatest(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceRecord), args.Error(1)
}

func (m *MockPriceRepository) ListRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceRecord, error) {
	args := m.Called(ctx, symbol, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PriceRecord), args.Error(1)
}

func seedPrices(t *testing.T, svc *PriceService, symbol string, prices map[string]string) {
	t.Helper()
	for date, price := range prices {
		_, err := svc.Upsert(context.Background(), domain.PriceRecord{
			Symbol: symbol,
			Date:   domain.MustDate(date),
			Price:  decimal.RequireFromString(price),
		})
		require.NoError(t, err)
	}
}

func TestPriceService_GetPriceOnDate(t *testing.T) {
	svc := NewPriceService(memory.NewPriceRepository(), 0)
	seedPrices(t, svc, "ACME", map[string]string{
		"2024-01-02": "10.00",
		"2024-01-05": "12.50",
		"2024-02-01": "15.00",
	})

	tests := []struct {
		name      string
		symbol    string
		date      string
		wantPrice string
		wantErr   error
	}{
		{name: "exact match", symbol: "ACME", date: "2024-01-05", wantPrice: "12.50"},
		{name: "falls back to nearest earlier", symbol: "ACME", date: "2024-01-20", wantPrice: "12.50"},
		{name: "future date uses latest", symbol: "ACME", date: "2030-01-01", wantPrice: "15.00"},
		{name: "lower case symbol", symbol: " acme ", date: "2024-01-02", wantPrice: "10.00"},
		{name: "before first record", symbol: "ACME", date: "2023-12-31", wantErr: domain.ErrDataUnavailable},
		{name: "unknown symbol", symbol: "NOPE", date: "2024-01-05", wantErr: domain.ErrDataUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := svc.GetPriceOnDate(context.Background(), tt.symbol, domain.MustDate(tt.date))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantPrice).Equal(price), "got %s", price)
		})
	}
}

func TestPriceService_Upsert(t *testing.T) {
	t.Run("normalizes and replaces", func(t *testing.T) {
		svc := NewPriceService(memory.NewPriceRepository(), time.Minute)
		ctx := context.Background()
		day := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

		rec, err := svc.Upsert(ctx, domain.PriceRecord{Symbol: "acme", Date: day, Price: decimal.NewFromInt(20)})
		require.NoError(t, err)
		assert.Equal(t, "ACME", rec.Symbol)
		assert.Equal(t, domain.MustDate("2024-03-01"), rec.Date)
		assert.Equal(t, "manual", rec.Source)

		price, err := svc.GetPriceOnDate(ctx, "ACME", day)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(20).Equal(price))

		// Second write for the same day wins, and the cached lookup is evicted.
		_, err = svc.Upsert(ctx, domain.PriceRecord{Symbol: "ACME", Date: day, Price: decimal.NewFromInt(22), Source: "feed"})
		require.NoError(t, err)

		price, err = svc.GetPriceOnDate(ctx, "ACME", day)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(22).Equal(price))
	})

	invalid := []struct {
		name   string
		record domain.PriceRecord
	}{
		{name: "empty symbol", record: domain.PriceRecord{Symbol: "  ", Date: domain.MustDate("2024-01-01"), Price: decimal.NewFromInt(1)}},
		{name: "zero price", record: domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate("2024-01-01"), Price: decimal.Zero}},
		{name: "negative price", record: domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate("2024-01-01"), Price: decimal.NewFromInt(-1)}},
		{name: "missing date", record: domain.PriceRecord{Symbol: "ACME", Price: decimal.NewFromInt(1)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockPriceRepository)
			svc := NewPriceService(mockRepo, 0)

			_, err := svc.Upsert(context.Background(), tt.record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestPriceService_CachesLookups(t *testing.T) {
	mockRepo := new(MockPriceRepository)
	svc := NewPriceService(mockRepo, time.Minute)
	ctx := context.Background()
	day := domain.MustDate("2024-01-10")

	mockRepo.On("GetOnOrBefore", ctx, "ACME", day).
		Return(&domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate("2024-01-09"), Price: decimal.NewFromInt(7)}, nil).
		Once()

	for i := 0; i < 3; i++ {
		price, err := svc.GetPriceOnDate(ctx, "ACME", day)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(price))
	}

	mockRepo.AssertNumberOfCalls(t, "GetOnOrBefore", 1)
}

// pausingPriceRepository holds the first GetOnOrBefore after its read until resume is closed.
type pausingPriceRepository struct {
	domain.PriceRepository

	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (r *pausingPriceRepository) GetOnOrBefore(ctx context.Context, symbol string, date time.Time) (*domain.PriceRecord, error) {
	record, err := r.PriceRepository.GetOnOrBefore(ctx, symbol, date)
	r.once.Do(func() {
		close(r.read)
		<-r.resume
	})
	return record, err
}

func TestPriceService_UpsertDuringLookupIsNotCachedStale(t *testing.T) {
	ctx := context.Background()
	day := domain.MustDate("2024-01-05")

	base := memory.NewPriceRepository()
	require.NoError(t, base.Upsert(ctx, &domain.PriceRecord{Symbol: "ACME", Date: day, Price: decimal.NewFromInt(10), Source: "manual"}))

	repo := &pausingPriceRepository{PriceRepository: base, read: make(chan struct{}), resume: make(chan struct{})}
	svc := NewPriceService(repo, time.Hour)

	type result struct {
		price decimal.Decimal
		err   error
	}
	done := make(chan result, 1)
	go func() {
		price, err := svc.GetPriceOnDate(ctx, "ACME", day)
		done <- result{price, err}
	}()

	// The lookup has read 10 but not cached it yet.
	<-repo.read
	_, err := svc.Upsert(ctx, domain.PriceRecord{Symbol: "ACME", Date: day, Price: decimal.NewFromInt(20)})
	require.NoError(t, err)
	close(repo.resume)

	first := <-done
	require.NoError(t, first.err)
	assert.True(t, decimal.NewFromInt(10).Equal(first.price), "in-flight lookup returns what it read, got %s", first.price)

	price, err := svc.GetPriceOnDate(ctx, "ACME", day)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(price), "lookup after the upsert got %s", price)

	// A later lookup is served from the cache with the new price.
	repo.PriceRepository = memory.NewPriceRepository()
	price, err = svc.GetPriceOnDate(ctx, "ACME", day)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(price))
}

func TestPriceService_UpsertEvictsOnlyItsSymbol(t *testing.T) {
	mockRepo := new(MockPriceRepository)
	svc := NewPriceService(mockRepo, time.Minute)
	ctx := context.Background()
	day := domain.MustDate("2024-01-10")

	mockRepo.On("GetOnOrBefore", ctx, "ACME", day).
		Return(&domain.PriceRecord{Symbol: "ACME", Date: day, Price: decimal.NewFromInt(7)}, nil)
	mockRepo.On("GetOnOrBefore", ctx, "BETA", day).
		Return(&domain.PriceRecord{Symbol: "BETA", Date: day, Price: decimal.NewFromInt(3)}, nil)
	mockRepo.On("Upsert", ctx, mock.Anything).Return(nil)

	for _, symbol := range []string{"ACME", "BETA"} {
		_, err := svc.GetPriceOnDate(ctx, symbol, day)
		require.NoError(t, err)
	}

	_, err := svc.Upsert(ctx, domain.PriceRecord{Symbol: "ACME", Date: domain.MustDate("2024-01-11"), Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	for _, symbol := range []string{"ACME", "BETA"} {
		_, err := svc.GetPriceOnDate(ctx, symbol, day)
		require.NoError(t, err)
	}

	mockRepo.AssertNumberOfCalls(t, "GetOnOrBefore", 3)
}

func TestPriceService_RepositoryErrorPassesThrough(t *testing.T) {
	mockRepo := new(MockPriceRepository)
	svc := NewPriceService(mockRepo, 0)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	mockRepo.On("GetOnOrBefore", ctx, "ACME", mock.Anything).Return(nil, dbErr)

	_, err := svc.GetPriceOnDate(ctx, "ACME", domain.MustDate("2024-01-10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.False(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestPriceService_GetLatestPrice(t *testing.T) {
	svc := NewPriceService(memory.NewPriceRepository(), 0)
	ctx := context.Background()

	_, err := svc.GetLatestPrice(ctx, "ACME")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	seedPrices(t, svc, "ACME", map[string]string{"2024-01-02": "10", "2024-03-02": "11"})
	rec, err := svc.GetLatestPrice(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.MustDate("2024-03-02"), rec.Date)
}

func TestPriceService_GetPriceHistory(t *testing.T) {
	svc := NewPriceService(memory.NewPriceRepository(), 0)
	ctx := context.Background()
	seedPrices(t, svc, "ACME", map[string]string{
		"2024-01-02": "10",
		"2024-01-03": "11",
		"2024-01-04": "12",
		"2024-01-05": "13",
	})

	history, err := svc.GetPriceHistory(ctx, "ACME", domain.MustDate("2024-01-03"), domain.MustDate("2024-01-04"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.MustDate("2024-01-03"), history[0].Date)
	assert.Equal(t, domain.MustDate("2024-01-04"), history[1].Date)

	_, err = svc.GetPriceHistory(ctx, "ACME", domain.MustDate("2024-02-01"), domain.MustDate("2024-01-01"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
