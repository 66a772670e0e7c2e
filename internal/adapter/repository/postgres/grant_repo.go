package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

const grantColumns = `id, user_id, symbol, company, grant_date, total_shares, total_grant_value, plan_id, status, created_at, updated_at`

// grantRepository implements domain.GrantRepository
type grantRepository struct {
	db *DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB) domain.GrantRepository {
	return &grantRepository{db: db}
}

// Create creates a new grant with all its tranches in a database transaction
func (r *grantRepository) Create(ctx context.Context, grant *domain.Grant) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO grants (` + grantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = dbTx.ExecContext(ctx, query,
		grant.ID,
		grant.UserID,
		grant.Symbol,
		grant.Company,
		grant.GrantDate,
		grant.TotalShares,
		grant.TotalGrantValue.String(),
		grant.PlanID,
		string(grant.Status),
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	if err := insertTranches(ctx, dbTx, grant); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update replaces the grant row and its whole tranche list in a database transaction
func (r *grantRepository) Update(ctx context.Context, grant *domain.Grant) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		UPDATE grants
		SET symbol = $2, company = $3, total_grant_value = $4, plan_id = $5, status = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := dbTx.ExecContext(ctx, query,
		grant.ID,
		grant.Symbol,
		grant.Company,
		grant.TotalGrantValue.String(),
		grant.PlanID,
		string(grant.Status),
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundf("grant %s", grant.ID)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM tranches WHERE grant_id = $1`, grant.ID); err != nil {
		return fmt.Errorf("failed to delete tranches: %w", err)
	}
	if err := insertTranches(ctx, dbTx, grant); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertTranches(ctx context.Context, dbTx *sql.Tx, grant *domain.Grant) error {
	query := `
		INSERT INTO tranches (grant_id, seq, vest_date, shares, vested, vested_price, vested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, t := range grant.Tranches {
		_, err := dbTx.ExecContext(ctx, query,
			grant.ID,
			t.Seq,
			t.VestDate,
			t.Shares,
			t.Vested,
			nullDecimal(t.VestedPrice),
			t.VestedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tranche %d: %w", t.Seq, err)
		}
	}
	return nil
}

// GetByID retrieves a grant owned by userID together with its tranches
func (r *grantRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE id = $1 AND user_id = $2`

	grant, err := scanGrant(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("grant %s", id)
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	if err := r.loadTranches(ctx, []*domain.Grant{grant}); err != nil {
		return nil, err
	}
	return grant, nil
}

// ListByUser retrieves every grant of a user ordered by grant date
func (r *grantRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE user_id = $1 ORDER BY grant_date, id`
	return r.list(ctx, query, userID)
}

// ListByStatus retrieves grants of all users in the given status
func (r *grantRepository) ListByStatus(ctx context.Context, status domain.GrantStatus) ([]*domain.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE status = $1 ORDER BY grant_date, id`
	return r.list(ctx, query, string(status))
}

func (r *grantRepository) list(ctx context.Context, query string, arg any) ([]*domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	grants := make([]*domain.Grant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	if err := r.loadTranches(ctx, grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// loadTranches fills the tranches of grants with a single query
func (r *grantRepository) loadTranches(ctx context.Context, grants []*domain.Grant) error {
	if len(grants) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Grant, len(grants))
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		byID[g.ID] = g
		ids = append(ids, g.ID.String())
	}

	query := `
		SELECT grant_id, seq, vest_date, shares, vested, vested_price, vested_at
		FROM tranches
		WHERE grant_id = ANY($1)
		ORDER BY grant_id, seq
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query tranches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			grantID  uuid.UUID
			t        domain.Tranche
			priceStr sql.NullString
			vestedAt sql.NullTime
		)
		if err := rows.Scan(&grantID, &t.Seq, &t.VestDate, &t.Shares, &t.Vested, &priceStr, &vestedAt); err != nil {
			return fmt.Errorf("failed to scan tranche: %w", err)
		}
		t.VestDate = domain.Day(t.VestDate)
		if t.VestedPrice, err = parseNullDecimal(priceStr, "vested_price"); err != nil {
			return err
		}
		if vestedAt.Valid {
			at := vestedAt.Time
			t.VestedAt = &at
		}

		g, ok := byID[grantID]
		if !ok {
			continue
		}
		g.Tranches = append(g.Tranches, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tranches: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*domain.Grant, error) {
	var (
		grant    domain.Grant
		valueStr string
		status   string
	)
	err := row.Scan(
		&grant.ID,
		&grant.UserID,
		&grant.Symbol,
		&grant.Company,
		&grant.GrantDate,
		&grant.TotalShares,
		&valueStr,
		&grant.PlanID,
		&status,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_grant_value: %w", err)
	}
	grant.TotalGrantValue = value
	grant.GrantDate = domain.Day(grant.GrantDate)
	grant.Status = domain.GrantStatus(status)
	grant.Tranches = make([]domain.Tranche, 0)
	return &grant, nil
}
