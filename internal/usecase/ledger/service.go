package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
	"github.com/simaogato/vestflow-backend/internal/usecase/tax"
	"github.com/simaogato/vestflow-backend/internal/usecase/vesting"
)

// CreateGrantInput represents the input for creating a grant
type CreateGrantInput struct {
	UserID          string
	Symbol          string
	Company         string
	GrantDate       time.Time
	TotalShares     int64
	TotalGrantValue decimal.Decimal
	PlanID          string
}

// SaleInput represents the input for previewing or recording a sale
type SaleInput struct {
	UserID        string
	GrantID       uuid.UUID
	SaleDate      time.Time
	Shares        int64
	PricePerShare decimal.Decimal
}

// ApplyPlanChangeInput represents the input for moving a grant to another plan
type ApplyPlanChangeInput struct {
	UserID  string
	GrantID uuid.UUID
	PlanID  string
	Confirm bool // acknowledges a change of the vested total
}

// LedgerService owns grants and sales: creation, vesting evaluation, plan
// changes and sale bookkeeping. Writes to one grant are serialized; different
// grants proceed in parallel.
type LedgerService struct {
	GrantRepo           domain.GrantRepository
	SaleRepo            domain.SaleRepository
	Prices              domain.PriceLookup
	Plans               *vesting.PlanRegistry
	Tax                 *tax.Calculator
	RequireConfirmation bool

	locks *grantLocks
	now   func() time.Time
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(
	grantRepo domain.GrantRepository,
	saleRepo domain.SaleRepository,
	prices domain.PriceLookup,
	plans *vesting.PlanRegistry,
	calculator *tax.Calculator,
	requireConfirmation bool,
) *LedgerService {
	return &LedgerService{
		GrantRepo:           grantRepo,
		SaleRepo:            saleRepo,
		Prices:              prices,
		Plans:               plans,
		Tax:                 calculator,
		RequireConfirmation: requireConfirmation,
		locks:               newGrantLocks(),
		now:                 time.Now,
	}
}

// CreateGrant registers a grant and its schedule.
// Logic:
//  1. Resolve the plan and generate the tranches from the grant date
//  2. Vest every tranche already due, priced on its own vest date
//  3. Persist grant and tranches together
func (s *LedgerService) CreateGrant(ctx context.Context, input CreateGrantInput) (*domain.Grant, error) {
	if input.TotalShares <= 0 {
		return nil, domain.Validationf("total shares must be positive")
	}
	plan, err := s.Plans.Get(input.PlanID)
	if err != nil {
		return nil, err
	}

	grantDate := domain.Day(input.GrantDate)
	tranches, err := vesting.GenerateSchedule(grantDate, input.TotalShares, plan)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	grant := &domain.Grant{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Symbol:          domain.NormalizeSymbol(input.Symbol),
		Company:         strings.TrimSpace(input.Company),
		GrantDate:       grantDate,
		TotalShares:     input.TotalShares,
		TotalGrantValue: input.TotalGrantValue,
		PlanID:          plan.ID,
		Status:          domain.GrantStatusActive,
		Tranches:        tranches,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}
	if err := grant.CheckShareConservation(); err != nil {
		logger.L.Error("Share conservation violated on grant creation", "grantID", grant.ID, "error", err)
		return nil, err
	}

	if _, err := vesting.EvaluateVesting(ctx, grant, now, s.Prices); err != nil {
		return nil, err
	}

	if err := s.GrantRepo.Create(ctx, grant); err != nil {
		return nil, err
	}

	logger.L.Info("Grant created", "grantID", grant.ID, "userID", grant.UserID, "symbol", grant.Symbol,
		"shares", grant.TotalShares, "plan", grant.PlanID, "vestedShares", grant.VestedShares())
	return grant, nil
}

// GetGrant retrieves a grant of the user
func (s *LedgerService) GetGrant(ctx context.Context, userID string, grantID uuid.UUID) (*domain.Grant, error) {
	return s.GrantRepo.GetByID(ctx, userID, grantID)
}

// ListGrants retrieves every grant of the user ordered by grant date
func (s *LedgerService) ListGrants(ctx context.Context, userID string) ([]*domain.Grant, error) {
	return s.GrantRepo.ListByUser(ctx, userID)
}

// CancelGrant stops any further vesting, sale or plan change on the grant.
// Vested history is kept.
func (s *LedgerService) CancelGrant(ctx context.Context, userID string, grantID uuid.UUID) (*domain.Grant, error) {
	unlock := s.locks.lock(grantID)
	defer unlock()

	grant, err := s.GrantRepo.GetByID(ctx, userID, grantID)
	if err != nil {
		return nil, err
	}
	if grant.Status == domain.GrantStatusCancelled {
		return nil, domain.Validationf("grant %s is already cancelled", grantID)
	}

	grant.Status = domain.GrantStatusCancelled
	grant.UpdatedAt = s.now().UTC()
	if err := s.GrantRepo.Update(ctx, grant); err != nil {
		return nil, err
	}

	logger.L.Info("Grant cancelled", "grantID", grantID, "userID", userID, "unvestedShares", grant.UnvestedShares())
	return grant, nil
}

// PreviewPlanChange reports the impact of moving the grant to planID as of today.
func (s *LedgerService) PreviewPlanChange(ctx context.Context, userID string, grantID uuid.UUID, planID string) (*domain.PlanChangeImpact, error) {
	grant, err := s.GrantRepo.GetByID(ctx, userID, grantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.Plans.Get(planID)
	if err != nil {
		return nil, err
	}
	return vesting.PreviewPlanChange(grant, plan, s.now())
}

// ApplyPlanChange moves the grant to another plan and replays vesting under it.
// The change is rejected when it alters the vested total without confirmation
// (if confirmation is required), or when a recorded sale would no longer be covered.
func (s *LedgerService) ApplyPlanChange(ctx context.Context, input ApplyPlanChangeInput) (*domain.Grant, error) {
	unlock := s.locks.lock(input.GrantID)
	defer unlock()

	grant, err := s.GrantRepo.GetByID(ctx, input.UserID, input.GrantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.Plans.Get(input.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	impact, err := vesting.PreviewPlanChange(grant, plan, now)
	if err != nil {
		return nil, err
	}
	if s.RequireConfirmation && impact.RequiresConfirmation && !input.Confirm {
		return nil, domain.Validationf("plan change moves vested shares from %d to %d; confirmation required",
			impact.VestedShares, impact.VestedSharesAfter)
	}

	updated, err := vesting.ApplyPlanChange(ctx, grant, plan, now, s.Prices)
	if err != nil {
		return nil, err
	}

	sales, err := s.SaleRepo.ListByGrant(ctx, grant.ID)
	if err != nil {
		return nil, err
	}
	if err := checkCoverage(updated, sales); err != nil {
		return nil, fmt.Errorf("plan change rejected: %w", err)
	}

	updated.UpdatedAt = now.UTC()
	if err := s.GrantRepo.Update(ctx, updated); err != nil {
		return nil, err
	}

	logger.L.Info("Grant plan changed", "grantID", grant.ID, "userID", input.UserID,
		"from", impact.CurrentPlanID, "to", impact.NewPlanID, "vestedDelta", impact.VestedDelta())
	return updated, nil
}

// AvailableShares returns the shares of the grant that can be sold on the given day:
// tranches vested on or before it, minus sales on or before it.
func (s *LedgerService) AvailableShares(ctx context.Context, userID string, grantID uuid.UUID, on time.Time) (int64, error) {
	grant, err := s.GrantRepo.GetByID(ctx, userID, grantID)
	if err != nil {
		return 0, err
	}
	sales, err := s.SaleRepo.ListByGrant(ctx, grantID)
	if err != nil {
		return 0, err
	}
	return availableOn(grant, sales, on), nil
}

// PreviewSaleTax computes the tax of a prospective sale without recording it.
func (s *LedgerService) PreviewSaleTax(ctx context.Context, input SaleInput) (domain.TaxResult, error) {
	grant, err := s.GrantRepo.GetByID(ctx, input.UserID, input.GrantID)
	if err != nil {
		return domain.TaxResult{}, err
	}
	return s.Tax.ComputeSaleTax(grant, input.Shares, input.PricePerShare, domain.Day(input.SaleDate))
}

// RecordSale books a sale and stores its tax result.
// Logic:
//  1. Reject non-positive shares, negative prices, future dates, dates before the
//     grant and sales on cancelled grants
//  2. Vest whatever became due since the last evaluation
//  3. Reject the sale when availability would go negative at its own date or at
//     the date of any later recorded sale
//  4. Compute the tax once and persist it with the sale
func (s *LedgerService) RecordSale(ctx context.Context, input SaleInput) (*domain.Sale, error) {
	now := s.now()
	sale := &domain.Sale{
		ID:            uuid.New(),
		UserID:        input.UserID,
		GrantID:       input.GrantID,
		SaleDate:      domain.Day(input.SaleDate),
		Shares:        input.Shares,
		PricePerShare: input.PricePerShare,
		CreatedAt:     now.UTC(),
	}
	if err := sale.Validate(); err != nil {
		return nil, err
	}
	if sale.SaleDate.After(domain.Day(now)) {
		return nil, domain.Validationf("sale date %s is in the future", domain.FormatDate(sale.SaleDate))
	}

	unlock := s.locks.lock(input.GrantID)
	defer unlock()

	grant, err := s.GrantRepo.GetByID(ctx, input.UserID, input.GrantID)
	if err != nil {
		return nil, err
	}
	if grant.Status == domain.GrantStatusCancelled {
		return nil, domain.Validationf("cannot sell shares of cancelled grant %s", grant.ID)
	}
	if sale.SaleDate.Before(grant.GrantDate) {
		return nil, domain.Validationf("sale date %s is before grant date %s",
			domain.FormatDate(sale.SaleDate), domain.FormatDate(grant.GrantDate))
	}

	if _, err := s.evaluateLocked(ctx, grant, now); err != nil {
		return nil, err
	}

	sales, err := s.SaleRepo.ListByGrant(ctx, grant.ID)
	if err != nil {
		return nil, err
	}
	if err := checkCoverage(grant, append(sales, sale)); err != nil {
		return nil, fmt.Errorf("sale rejected: %w", err)
	}

	result, err := s.Tax.ComputeSaleTax(grant, sale.Shares, sale.PricePerShare, sale.SaleDate)
	if err != nil {
		return nil, err
	}
	sale.Tax = result

	if err := s.SaleRepo.Create(ctx, sale); err != nil {
		return nil, err
	}

	logger.L.Info("Sale recorded", "saleID", sale.ID, "grantID", grant.ID, "userID", sale.UserID,
		"shares", sale.Shares, "totalTax", result.TotalTax.StringFixed(2))
	return sale, nil
}

// DeleteSale removes a sale. Removing a sale only ever increases availability.
func (s *LedgerService) DeleteSale(ctx context.Context, userID string, saleID uuid.UUID) error {
	sale, err := s.SaleRepo.GetByID(ctx, userID, saleID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(sale.GrantID)
	defer unlock()

	if err := s.SaleRepo.Delete(ctx, userID, saleID); err != nil {
		return err
	}

	logger.L.Info("Sale deleted", "saleID", saleID, "grantID", sale.GrantID, "userID", userID)
	return nil
}

// ListSales retrieves the sales of one grant, or of every grant of the user when grantID is nil.
func (s *LedgerService) ListSales(ctx context.Context, userID string, grantID uuid.UUID) ([]*domain.Sale, error) {
	if grantID == uuid.Nil {
		return s.SaleRepo.ListByUser(ctx, userID)
	}
	if _, err := s.GrantRepo.GetByID(ctx, userID, grantID); err != nil {
		return nil, err
	}
	return s.SaleRepo.ListByGrant(ctx, grantID)
}

// EvaluateVesting vests every due tranche of the user's grants.
// Returns the number of tranches that transitioned.
func (s *LedgerService) EvaluateVesting(ctx context.Context, userID string) (int, error) {
	grants, err := s.GrantRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.evaluate(ctx, grants)
}

// EvaluateAllVesting is the scheduled job: it vests every due tranche of every active grant.
func (s *LedgerService) EvaluateAllVesting(ctx context.Context) (int, error) {
	grants, err := s.GrantRepo.ListByStatus(ctx, domain.GrantStatusActive)
	if err != nil {
		return 0, err
	}
	n, err := s.evaluate(ctx, grants)
	if err != nil {
		return n, err
	}
	logger.L.Info("Vesting evaluation finished", "grants", len(grants), "tranchesVested", n)
	return n, nil
}

func (s *LedgerService) evaluate(ctx context.Context, grants []*domain.Grant) (int, error) {
	now := s.now()
	total := 0
	for _, g := range grants {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if g.Status != domain.GrantStatusActive {
			continue
		}

		n, err := func() (int, error) {
			unlock := s.locks.lock(g.ID)
			defer unlock()

			// Re-read under the lock; the listed copy may be stale.
			grant, err := s.GrantRepo.GetByID(ctx, g.UserID, g.ID)
			if err != nil {
				return 0, err
			}
			return s.evaluateLocked(ctx, grant, now)
		}()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// evaluateLocked vests the grant's due tranches and persists them. The caller holds the grant lock.
func (s *LedgerService) evaluateLocked(ctx context.Context, grant *domain.Grant, now time.Time) (int, error) {
	n, err := vesting.EvaluateVesting(ctx, grant, now, s.Prices)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	grant.UpdatedAt = now.UTC()
	if err := s.GrantRepo.Update(ctx, grant); err != nil {
		return 0, err
	}
	logger.L.Info("Tranches vested", "grantID", grant.ID, "count", n, "status", grant.Status)
	return n, nil
}

// availableOn is vested shares on day minus shares sold on or before day.
func availableOn(grant *domain.Grant, sales []*domain.Sale, day time.Time) int64 {
	day = domain.Day(day)
	available := grant.VestedSharesOn(day)
	for _, sale := range sales {
		if !sale.SaleDate.After(day) {
			available -= sale.Shares
		}
	}
	return available
}

// checkCoverage verifies that availability never goes negative at any sale date.
func checkCoverage(grant *domain.Grant, sales []*domain.Sale) error {
	ordered := make([]*domain.Sale, len(sales))
	copy(ordered, sales)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SaleDate.Before(ordered[j].SaleDate) })

	for _, sale := range ordered {
		if available := availableOn(grant, ordered, sale.SaleDate); available < 0 {
			return domain.Validationf("sales on %s exceed vested shares by %d",
				domain.FormatDate(sale.SaleDate), -available)
		}
	}
	return nil
}
