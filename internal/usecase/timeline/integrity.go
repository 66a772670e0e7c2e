package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
)

// Integrity check names
const (
	CheckShareConservation = "share_conservation"
	CheckTrancheOrder      = "tranche_order"
	CheckFutureVesting     = "future_vesting"
	CheckStatus            = "status"
	CheckAvailability      = "availability"
	CheckSaleDate          = "sale_date"
	CheckDeterminism       = "timeline_determinism"
	CheckContinuity        = "timeline_continuity"
)

// Issue is one failed integrity check.
type Issue struct {
	Check   string
	GrantID uuid.UUID // nil for portfolio-wide checks
	Message string
}

// IntegrityReport is the outcome of ValidateIntegrity.
type IntegrityReport struct {
	UserID    string
	CheckedAt time.Time
	Grants    int
	Sales     int
	Months    int
	Issues    []Issue
}

// OK reports whether every check passed.
func (r *IntegrityReport) OK() bool {
	return len(r.Issues) == 0
}

func (r *IntegrityReport) add(check string, grantID uuid.UUID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Check: check, GrantID: grantID, Message: fmt.Sprintf(format, args...)})
}

// ValidateIntegrity is a diagnostic over a user's stored data. It reports every
// violated invariant instead of stopping at the first; an error is returned only
// when the data cannot be read.
func (r *Reconstructor) ValidateIntegrity(ctx context.Context, userID string) (*IntegrityReport, error) {
	now := r.now()
	report := &IntegrityReport{UserID: userID, CheckedAt: now.UTC()}

	grants, err := r.GrantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sales, err := r.SaleRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Grants, report.Sales = len(grants), len(sales)

	salesByGrant := make(map[uuid.UUID][]*domain.Sale)
	for _, s := range sales {
		salesByGrant[s.GrantID] = append(salesByGrant[s.GrantID], s)
	}

	today := domain.Day(now)
	for _, g := range grants {
		checkGrant(report, g, salesByGrant[g.ID], today)
		delete(salesByGrant, g.ID)
	}
	for grantID, orphans := range salesByGrant {
		report.add(CheckSaleDate, grantID, "%d sales reference a missing grant", len(orphans))
	}

	if len(grants) > 0 {
		if err := r.checkTimeline(ctx, report, userID, grants, now); err != nil {
			return nil, err
		}
	}

	if report.OK() {
		logger.L.Info("Integrity check passed", "userID", userID, "grants", report.Grants, "sales", report.Sales)
	} else {
		logger.L.Warn("Integrity check found issues", "userID", userID, "issues", len(report.Issues))
	}
	return report, nil
}

func checkGrant(report *IntegrityReport, g *domain.Grant, sales []*domain.Sale, today time.Time) {
	if err := g.CheckShareConservation(); err != nil {
		report.add(CheckShareConservation, g.ID, "%v", err)
	}

	for i, t := range g.Tranches {
		if i > 0 && !t.VestDate.After(g.Tranches[i-1].VestDate) {
			report.add(CheckTrancheOrder, g.ID, "tranche %d vests on %s, not after tranche %d",
				t.Seq, domain.FormatDate(t.VestDate), g.Tranches[i-1].Seq)
		}
		if t.Vested && t.VestDate.After(today) {
			report.add(CheckFutureVesting, g.ID, "tranche %d is vested but vests on %s", t.Seq, domain.FormatDate(t.VestDate))
		}
	}

	switch {
	case g.Status == domain.GrantStatusFullyVested && !g.AllVested():
		report.add(CheckStatus, g.ID, "grant is FULLY_VESTED with %d unvested shares", g.UnvestedShares())
	case g.Status == domain.GrantStatusActive && g.AllVested():
		report.add(CheckStatus, g.ID, "grant is ACTIVE but every tranche vested")
	}

	ordered := make([]*domain.Sale, len(sales))
	copy(ordered, sales)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SaleDate.Before(ordered[j].SaleDate) })

	var sold int64
	for _, s := range ordered {
		if s.SaleDate.Before(g.GrantDate) {
			report.add(CheckSaleDate, g.ID, "sale %s on %s precedes the grant date %s",
				s.ID, domain.FormatDate(s.SaleDate), domain.FormatDate(g.GrantDate))
		}
		sold += s.Shares
		if available := g.VestedSharesOn(s.SaleDate) - soldThrough(ordered, s.SaleDate); available < 0 {
			report.add(CheckAvailability, g.ID, "availability is %d after sales on %s", available, domain.FormatDate(s.SaleDate))
		}
	}
	if sold > g.VestedShares() {
		report.add(CheckAvailability, g.ID, "sold %d shares of %d vested", sold, g.VestedShares())
	}
}

func soldThrough(sales []*domain.Sale, day time.Time) int64 {
	var n int64
	for _, s := range sales {
		if !s.SaleDate.After(day) {
			n += s.Shares
		}
	}
	return n
}

// checkTimeline generates the whole history twice and compares the results, then
// verifies that months without events carry the previous month's totals.
func (r *Reconstructor) checkTimeline(ctx context.Context, report *IntegrityReport, userID string, grants []*domain.Grant, now time.Time) error {
	earliest := grants[0].GrantDate
	for _, g := range grants {
		if g.GrantDate.Before(earliest) {
			earliest = g.GrantDate
		}
	}
	tf, err := ResolveTimeframe("all", earliest, now)
	if err != nil {
		return err
	}

	first, err := r.GeneratePortfolioTimeline(ctx, userID, tf)
	if err != nil {
		report.add(CheckDeterminism, uuid.Nil, "timeline generation failed: %v", err)
		return nil
	}
	second, err := r.GeneratePortfolioTimeline(ctx, userID, tf)
	if err != nil {
		report.add(CheckDeterminism, uuid.Nil, "timeline generation failed: %v", err)
		return nil
	}
	report.Months = len(first)

	if len(first) != len(second) {
		report.add(CheckDeterminism, uuid.Nil, "timeline lengths differ: %d and %d", len(first), len(second))
		return nil
	}
	for i := range first {
		if !first[i].SameTotals(second[i]) || len(first[i].Events) != len(second[i].Events) {
			report.add(CheckDeterminism, uuid.Nil, "month %s differs between two generations", first[i].Month)
		}
	}

	for i := 1; i < len(first); i++ {
		if len(first[i].Events) == 0 && !first[i].SameTotals(first[i-1]) {
			report.add(CheckContinuity, uuid.Nil, "month %s has no events but totals changed from %s",
				first[i].Month, first[i-1].Month)
		}
	}
	return nil
}
