package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
)

// PriceService is the price store: per-(symbol, date) records with point lookups
// that fall back to the last known price.
type PriceService struct {
	PriceRepo domain.PriceRepository

	cache *cache.Cache

	// Cache keys carry the symbol's generation. An upsert bumps it, so a lookup
	// that read the repository before the upsert can only fill a dead key.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewPriceService creates a new PriceService instance.
// Lookups are cached for ttl; a zero ttl disables caching.
func NewPriceService(priceRepo domain.PriceRepository, ttl time.Duration) *PriceService {
	s := &PriceService{PriceRepo: priceRepo, generations: make(map[string]uint64)}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Upsert creates or replaces the record for (symbol, date).
// Logic: one atomic write at the storage layer (last write wins); no read-modify-write.
func (s *PriceService) Upsert(ctx context.Context, record domain.PriceRecord) (*domain.PriceRecord, error) {
	record.Symbol = domain.NormalizeSymbol(record.Symbol)
	record.Date = domain.Day(record.Date)
	if record.Source == "" {
		record.Source = "manual"
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	record.UpdatedAt = time.Now().UTC()

	if err := s.PriceRepo.Upsert(ctx, &record); err != nil {
		return nil, err
	}
	s.evict(record.Symbol)

	return &record, nil
}

// GetPriceOnDate returns the price at date, or the most recent price before it.
// A date past every record resolves to the latest known price. A date before the
// first record, or a symbol without records, yields ErrDataUnavailable.
func (s *PriceService) GetPriceOnDate(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	date = domain.Day(date)

	key := s.cacheKey(symbol, date)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(decimal.Decimal), nil
		}
	}

	record, err := s.PriceRepo.GetOnOrBefore(ctx, symbol, date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, domain.DataUnavailablef("no price for %s on or before %s", symbol, domain.FormatDate(date))
		}
		return decimal.Zero, err
	}

	if s.cache != nil {
		s.cache.SetDefault(key, record.Price)
	}
	return record.Price, nil
}

// GetLatestPrice returns the most recent record of a symbol.
func (s *PriceService) GetLatestPrice(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	symbol = domain.NormalizeSymbol(symbol)
	record, err := s.PriceRepo.GetLatest(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.DataUnavailablef("no price recorded for %s", symbol)
		}
		return nil, err
	}
	return record, nil
}

// GetPriceHistory returns the records of a symbol between start and end, inclusive.
func (s *PriceService) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceRecord, error) {
	start, end = domain.Day(start), domain.Day(end)
	if start.After(end) {
		return nil, domain.Validationf("history start %s is after end %s", domain.FormatDate(start), domain.FormatDate(end))
	}
	return s.PriceRepo.ListRange(ctx, domain.NormalizeSymbol(symbol), start, end)
}

// evict invalidates every cached lookup of symbol by moving it to a new generation.
// Entries of older generations are never read again and expire with the TTL.
func (s *PriceService) evict(symbol string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[symbol]++
	gen := s.generations[symbol]
	s.mu.Unlock()
	logger.L.Debug("Evicted cached prices", "symbol", symbol, "generation", gen)
}

// cacheKey must be taken before the repository read it caches.
func (s *PriceService) cacheKey(symbol string, date time.Time) string {
	s.mu.Lock()
	gen := s.generations[symbol]
	s.mu.Unlock()
	return fmt.Sprintf("%s|%d|%s", symbol, gen, domain.FormatDate(date))
}
