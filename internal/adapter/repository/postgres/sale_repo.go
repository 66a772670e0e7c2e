package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

const saleColumns = `id, user_id, grant_id, sale_date, shares, price_per_share,
	original_value, sale_value, profit, is_long_term, wage_income_tax, capital_gains_tax, total_tax, net_value,
	created_at`

// saleRepository implements domain.SaleRepository
type saleRepository struct {
	db *DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *DB) domain.SaleRepository {
	return &saleRepository{db: db}
}

// Create stores a new sale together with its tax result
func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		sale.ID,
		sale.UserID,
		sale.GrantID,
		sale.SaleDate,
		sale.Shares,
		sale.PricePerShare.String(),
		sale.Tax.OriginalValue.String(),
		sale.Tax.SaleValue.String(),
		sale.Tax.Profit.String(),
		sale.Tax.IsLongTerm,
		sale.Tax.WageIncomeTax.String(),
		sale.Tax.CapitalGainsTax.String(),
		sale.Tax.TotalTax.String(),
		sale.Tax.NetValue.String(),
		sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// GetByID retrieves a sale owned by userID
func (r *saleRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 AND user_id = $2`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("sale %s", id)
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// ListByGrant retrieves the sales of a grant ordered by sale date
func (r *saleRepository) ListByGrant(ctx context.Context, grantID uuid.UUID) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE grant_id = $1 ORDER BY sale_date, id`
	return r.list(ctx, query, grantID)
}

// ListByUser retrieves every sale of a user ordered by sale date
func (r *saleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE user_id = $1 ORDER BY sale_date, id`
	return r.list(ctx, query, userID)
}

// Delete removes a sale owned by userID
func (r *saleRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("sale %s", id)
	}
	return nil
}

func (r *saleRepository) list(ctx context.Context, query string, arg any) ([]*domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}
	return sales, nil
}

var saleDecimalColumns = []string{
	"price_per_share", "original_value", "sale_value", "profit",
	"wage_income_tax", "capital_gains_tax", "total_tax", "net_value",
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		sale domain.Sale
		nums = make([]string, len(saleDecimalColumns))
	)
	err := row.Scan(
		&sale.ID,
		&sale.UserID,
		&sale.GrantID,
		&sale.SaleDate,
		&sale.Shares,
		&nums[0],
		&nums[1],
		&nums[2],
		&nums[3],
		&sale.Tax.IsLongTerm,
		&nums[4],
		&nums[5],
		&nums[6],
		&nums[7],
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = parseDecimals(saleDecimalColumns, nums,
		&sale.PricePerShare,
		&sale.Tax.OriginalValue,
		&sale.Tax.SaleValue,
		&sale.Tax.Profit,
		&sale.Tax.WageIncomeTax,
		&sale.Tax.CapitalGainsTax,
		&sale.Tax.TotalTax,
		&sale.Tax.NetValue,
	)
	if err != nil {
		return nil, err
	}
	sale.SaleDate = domain.Day(sale.SaleDate)
	return &sale, nil
}
