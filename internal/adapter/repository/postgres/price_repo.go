package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

const priceColumns = `symbol, date, price, source, open, high, low, close, volume, metadata, updated_at`

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price record repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// Upsert creates or replaces the record for (symbol, date) in a single statement
func (r *priceRepository) Upsert(ctx context.Context, record *domain.PriceRecord) error {
	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode price metadata: %w", err)
	}

	query := `
		INSERT INTO price_records (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol, date) DO UPDATE SET
			price = EXCLUDED.price,
			source = EXCLUDED.source,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		record.Symbol,
		record.Date,
		record.Price.String(),
		record.Source,
		nullDecimal(record.Open),
		nullDecimal(record.High),
		nullDecimal(record.Low),
		nullDecimal(record.Close),
		record.Volume,
		string(metadataJSON),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price record: %w", err)
	}
	return nil
}

// GetOnOrBefore retrieves the record at date or the most recent one before it
func (r *priceRepository) GetOnOrBefore(ctx context.Context, symbol string, date time.Time) (*domain.PriceRecord, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_records
		WHERE symbol = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`
	record, err := scanPrice(r.db.QueryRowContext(ctx, query, symbol, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("price for %s on or before %s", symbol, domain.FormatDate(date))
		}
		return nil, fmt.Errorf("failed to get price record: %w", err)
	}
	return record, nil
}

// GetLatest retrieves the most recent record of a symbol
func (r *priceRepository) GetLatest(ctx context.Context, symbol string) (*domain.PriceRecord, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_records
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	record, err := scanPrice(r.db.QueryRowContext(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("price for %s", symbol)
		}
		return nil, fmt.Errorf("failed to get latest price record: %w", err)
	}
	return record, nil
}

// ListRange retrieves records with start <= date <= end in chronological order
func (r *priceRepository) ListRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceRecord, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_records
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.PriceRecord, 0)
	for rows.Next() {
		record, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price records: %w", err)
	}
	return records, nil
}

func scanPrice(row rowScanner) (*domain.PriceRecord, error) {
	var (
		record                         domain.PriceRecord
		priceStr                       string
		openPx, highPx, lowPx, closePx sql.NullString
		volume                         sql.NullInt64
		metadata                       []byte
	)
	err := row.Scan(
		&record.Symbol,
		&record.Date,
		&priceStr,
		&record.Source,
		&openPx,
		&highPx,
		&lowPx,
		&closePx,
		&volume,
		&metadata,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	record.Price = price
	record.Date = domain.Day(record.Date)

	for _, col := range []struct {
		name   string
		value  sql.NullString
		target **decimal.Decimal
	}{
		{"open", openPx, &record.Open},
		{"high", highPx, &record.High},
		{"low", lowPx, &record.Low},
		{"close", closePx, &record.Close},
	} {
		if *col.target, err = parseNullDecimal(col.value, col.name); err != nil {
			return nil, err
		}
	}

	if volume.Valid {
		v := volume.Int64
		record.Volume = &v
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode price metadata: %w", err)
		}
	}
	return &record, nil
}
