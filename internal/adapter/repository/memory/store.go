// Package memory holds in-process repositories used for development mode and tests.
// Every read returns a copy, so callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// grantRepository implements domain.GrantRepository
type grantRepository struct {
	mu     sync.RWMutex
	grants map[uuid.UUID]*domain.Grant
}

// NewGrantRepository creates a new in-memory grant repository
func NewGrantRepository() domain.GrantRepository {
	return &grantRepository{grants: make(map[uuid.UUID]*domain.Grant)}
}

func (r *grantRepository) Create(ctx context.Context, grant *domain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[grant.ID]; ok {
		return domain.Validationf("grant %s already exists", grant.ID)
	}
	r.grants[grant.ID] = grant.Clone()
	return nil
}

func (r *grantRepository) Update(ctx context.Context, grant *domain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[grant.ID]; !ok {
		return domain.NotFoundf("grant %s", grant.ID)
	}
	r.grants[grant.ID] = grant.Clone()
	return nil
}

func (r *grantRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grants[id]
	if !ok || g.UserID != userID {
		return nil, domain.NotFoundf("grant %s", id)
	}
	return g.Clone(), nil
}

func (r *grantRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Grant, error) {
	return r.list(func(g *domain.Grant) bool { return g.UserID == userID }), nil
}

func (r *grantRepository) ListByStatus(ctx context.Context, status domain.GrantStatus) ([]*domain.Grant, error) {
	return r.list(func(g *domain.Grant) bool { return g.Status == status }), nil
}

func (r *grantRepository) list(keep func(*domain.Grant) bool) []*domain.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Grant, 0)
	for _, g := range r.grants {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GrantDate.Equal(out[j].GrantDate) {
			return out[i].GrantDate.Before(out[j].GrantDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// saleRepository implements domain.SaleRepository
type saleRepository struct {
	mu    sync.RWMutex
	sales map[uuid.UUID]domain.Sale
}

// NewSaleRepository creates a new in-memory sale repository
func NewSaleRepository() domain.SaleRepository {
	return &saleRepository{sales: make(map[uuid.UUID]domain.Sale)}
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[sale.ID]; ok {
		return domain.Validationf("sale %s already exists", sale.ID)
	}
	r.sales[sale.ID] = *sale
	return nil
}

func (r *saleRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	if !ok || s.UserID != userID {
		return nil, domain.NotFoundf("sale %s", id)
	}
	return &s, nil
}

func (r *saleRepository) ListByGrant(ctx context.Context, grantID uuid.UUID) ([]*domain.Sale, error) {
	return r.list(func(s domain.Sale) bool { return s.GrantID == grantID }), nil
}

func (r *saleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Sale, error) {
	return r.list(func(s domain.Sale) bool { return s.UserID == userID }), nil
}

func (r *saleRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || s.UserID != userID {
		return domain.NotFoundf("sale %s", id)
	}
	delete(r.sales, id)
	return nil
}

func (r *saleRepository) list(keep func(domain.Sale) bool) []*domain.Sale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Sale, 0)
	for _, s := range r.sales {
		if keep(s) {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SaleDate.Equal(out[j].SaleDate) {
			return out[i].SaleDate.Before(out[j].SaleDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// priceRepository implements domain.PriceRepository.
// Records are keyed by symbol and day, so writes never touch a shared history.
type priceRepository struct {
	mu      sync.RWMutex
	records map[priceKey]domain.PriceRecord
}

type priceKey struct {
	symbol string
	day    string
}

// NewPriceRepository creates a new in-memory price repository
func NewPriceRepository() domain.PriceRepository {
	return &priceRepository{records: make(map[priceKey]domain.PriceRecord)}
}

func (r *priceRepository) Upsert(ctx context.Context, record *domain.PriceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[priceKey{record.Symbol, domain.FormatDate(record.Date)}] = *record
	return nil
}

func (r *priceRepository) GetOnOrBefore(ctx context.Context, symbol string, date time.Time) (*domain.PriceRecord, error) {
	var best *domain.PriceRecord
	for _, rec := range r.bySymbol(symbol) {
		if rec.Date.After(date) {
			break
		}
		best = rec
	}
	if best == nil {
		return nil, domain.NotFoundf("price for %s on or before %s", symbol, domain.FormatDate(date))
	}
	return best, nil
}

func (r *priceRepository) GetLatest(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	recs := r.bySymbol(symbol)
	if len(recs) == 0 {
		return nil, domain.NotFoundf("price for %s", symbol)
	}
	return recs[len(recs)-1], nil
}

func (r *priceRepository) ListRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceRecord, error) {
	out := make([]*domain.PriceRecord, 0)
	for _, rec := range r.bySymbol(symbol) {
		if !rec.Date.Before(start) && !rec.Date.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// bySymbol returns copies of a symbol's records in chronological order.
func (r *priceRepository) bySymbol(symbol string) []*domain.PriceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.PriceRecord, 0)
	for k, rec := range r.records {
		if k.symbol == symbol {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
