package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
	"github.com/simaogato/vestflow-backend/internal/usecase/tax"
)

// Reconstructor rebuilds a user's monthly portfolio timeline from grants, sales and prices.
// It never writes: vesting that is due but not yet evaluated is shown as it will be recorded.
type Reconstructor struct {
	GrantRepo domain.GrantRepository
	SaleRepo  domain.SaleRepository
	Prices    domain.PriceLookup
	Tax       *tax.Calculator
	Workers   int

	now func() time.Time
}

// NewReconstructor creates a new Reconstructor replaying at most workers grants at a time
func NewReconstructor(
	grantRepo domain.GrantRepository,
	saleRepo domain.SaleRepository,
	prices domain.PriceLookup,
	calculator *tax.Calculator,
	workers int,
) *Reconstructor {
	if workers < 1 {
		workers = 1
	}
	return &Reconstructor{
		GrantRepo: grantRepo,
		SaleRepo:  saleRepo,
		Prices:    prices,
		Tax:       calculator,
		Workers:   workers,
		now:       time.Now,
	}
}

// GeneratePortfolioTimeline returns one point per month of tf.
// Logic:
//  1. Per grant: collect vest and sale events up to min(end of tf, today), ordered
//     by date with vesting before sales on the same day
//  2. Replay each grant independently, snapshotting its position at every month close
//  3. Merge the grants by summation; months without events carry the previous totals
func (r *Reconstructor) GeneratePortfolioTimeline(ctx context.Context, userID string, tf domain.Timeframe) ([]domain.TimelinePoint, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	grants, err := r.GrantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortGrants(grants)

	sales, err := r.SaleRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	salesByGrant := make(map[uuid.UUID][]*domain.Sale)
	for _, s := range sales {
		salesByGrant[s.GrantID] = append(salesByGrant[s.GrantID], s)
	}

	cutoff := tf.End()
	if today := domain.Day(r.now()); today.Before(cutoff) {
		cutoff = today
	}
	months := tf.Months()

	results := make([]*series, len(grants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i, grant := range grants {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			events, err := grantEvents(gctx, grant, salesByGrant[grant.ID], cutoff, r.Prices)
			if err != nil {
				return err
			}
			s, err := replay(grant, events, months, r.Tax)
			if err != nil {
				logger.L.Error("Timeline replay failed", "grantID", grant.ID, "userID", userID, "error", err)
				return err
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(months, results), nil
}

// merge sums per-grant series month by month. Summation is order independent;
// the per-grant breakdown keeps the (grant date, id) order of the input.
func merge(months []time.Time, results []*series) []domain.TimelinePoint {
	points := make([]domain.TimelinePoint, len(months))
	for mi, month := range months {
		p := domain.TimelinePoint{
			Month:  domain.MonthKey(month),
			Events: []domain.TimelineEvent{},
			Grants: []domain.GrantPosition{},
		}
		for _, s := range results {
			if !s.started[mi] {
				continue
			}
			pos := s.positions[mi]
			p.SharesHeld += pos.SharesHeld
			p.TotalValue = p.TotalValue.Add(pos.Value)
			p.TaxLiability = p.TaxLiability.Add(pos.TaxLiability)
			p.NetValue = p.NetValue.Add(pos.NetValue)
			p.RealizedProceeds = p.RealizedProceeds.Add(pos.RealizedProceeds)
			p.RealizedTax = p.RealizedTax.Add(pos.RealizedTax)
			p.PriceUnknown = p.PriceUnknown || pos.PriceUnknown
			p.Grants = append(p.Grants, pos)

			for _, ev := range s.events[mi] {
				p.PriceUnknown = p.PriceUnknown || !ev.PriceKnown
				p.Events = append(p.Events, ev)
			}
		}
		sortEvents(p.Events)
		points[mi] = p
	}
	return points
}

func sortGrants(grants []*domain.Grant) {
	sort.SliceStable(grants, func(i, j int) bool {
		if !grants[i].GrantDate.Equal(grants[j].GrantDate) {
			return grants[i].GrantDate.Before(grants[j].GrantDate)
		}
		return grants[i].ID.String() < grants[j].ID.String()
	})
}

// sortEvents orders a month's events across grants. Events of one grant are
// already ordered; the stable sort keeps that order on full ties.
func sortEvents(events []domain.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		if events[i].Type != events[j].Type {
			return events[i].Type == domain.TimelineEventVest
		}
		return events[i].GrantID.String() < events[j].GrantID.String()
	})
}
