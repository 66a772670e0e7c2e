package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GrantRepository defines the interface for grant persistence operations.
// A grant and its tranches are always written together, atomically.
type GrantRepository interface {
	// Create stores a new grant with its tranches
	Create(ctx context.Context, grant *Grant) error

	// Update replaces the grant row and its whole tranche list
	Update(ctx context.Context, grant *Grant) error

	// GetByID retrieves a grant owned by userID, wrapping ErrNotFound when absent
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Grant, error)

	// ListByUser retrieves every grant of a user ordered by grant date
	ListByUser(ctx context.Context, userID string) ([]*Grant, error)

	// ListByStatus retrieves grants of all users in the given status
	ListByStatus(ctx context.Context, status GrantStatus) ([]*Grant, error)
}

// SaleRepository defines the interface for sale persistence operations
type SaleRepository interface {
	// Create stores a new sale together with its tax result
	Create(ctx context.Context, sale *Sale) error

	// GetByID retrieves a sale owned by userID, wrapping ErrNotFound when absent
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*Sale, error)

	// ListByGrant retrieves the sales of a grant ordered by sale date
	ListByGrant(ctx context.Context, grantID uuid.UUID) ([]*Sale, error)

	// ListByUser retrieves every sale of a user ordered by sale date
	ListByUser(ctx context.Context, userID string) ([]*Sale, error)

	// Delete removes a sale owned by userID, wrapping ErrNotFound when absent
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// PriceRepository defines the interface for per-day price records
type PriceRepository interface {
	// Upsert creates or replaces the record for (Symbol, Date) in one atomic write
	Upsert(ctx context.Context, record *PriceRecord) error

	// GetOnOrBefore retrieves the record at date or the most recent one before it.
	// It wraps ErrNotFound when the symbol has no such record.
	GetOnOrBefore(ctx context.Context, symbol string, date time.Time) (*PriceRecord, error)

	// GetLatest retrieves the most recent record of a symbol, wrapping ErrNotFound when none exists
	GetLatest(ctx context.Context, symbol string) (*PriceRecord, error)

	// ListRange retrieves records with start <= date <= end in chronological order
	ListRange(ctx context.Context, symbol string, start, end time.Time) ([]*PriceRecord, error)
}

// PriceLookup resolves the price of a symbol on a calendar day.
// It wraps ErrDataUnavailable when no price is reachable.
type PriceLookup interface {
	GetPriceOnDate(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
}
