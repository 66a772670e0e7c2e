package timeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
	"github.com/simaogato/vestflow-backend/internal/usecase/tax"
)

// series is the replay of one grant: its position at the close of every month
// of the timeframe and the events that happened inside each month.
type series struct {
	positions []domain.GrantPosition
	started   []bool // the grant had an event on or before the month's close
	events    [][]domain.TimelineEvent
}

// grantState accumulates a grant's position. It only moves at events.
type grantState struct {
	held             int64
	lastPrice        decimal.Decimal
	priceKnown       bool
	lastDate         time.Time
	value            decimal.Decimal
	taxLiability     decimal.Decimal
	realizedProceeds decimal.Decimal
	realizedTax      decimal.Decimal
	started          bool
}

// grantEvents builds the chronological event list of a grant up to cutoff.
// Tranches are priced with their stamped vest price, or looked up on the vest
// date when none was stamped. A missing price leaves the event unpriced.
func grantEvents(ctx context.Context, grant *domain.Grant, sales []*domain.Sale, cutoff time.Time, prices domain.PriceLookup) ([]domain.TimelineEvent, error) {
	events := make([]domain.TimelineEvent, 0, len(grant.Tranches)+len(sales))
	seqs := make(map[int]int) // event index -> tranche seq, for ordering ties

	for _, t := range grant.Tranches {
		if t.VestDate.After(cutoff) {
			continue
		}
		if !t.Vested && grant.Status == domain.GrantStatusCancelled {
			continue
		}

		ev := domain.TimelineEvent{
			Date:    t.VestDate,
			Type:    domain.TimelineEventVest,
			GrantID: grant.ID,
			Symbol:  grant.Symbol,
			Shares:  t.Shares,
		}
		if t.VestedPrice != nil {
			ev.PricePerShare = *t.VestedPrice
			ev.PriceKnown = true
		} else {
			price, err := prices.GetPriceOnDate(ctx, grant.Symbol, t.VestDate)
			switch {
			case err == nil:
				ev.PricePerShare = price
				ev.PriceKnown = true
			case errors.Is(err, domain.ErrDataUnavailable):
				logger.L.Debug("Timeline vest event without price", "grantID", grant.ID, "vestDate", domain.FormatDate(t.VestDate))
			default:
				return nil, err
			}
		}
		seqs[len(events)] = t.Seq
		events = append(events, ev)
	}

	saleIDs := make(map[int]string)
	for _, s := range sales {
		if s.SaleDate.After(cutoff) {
			continue
		}
		result := s.Tax
		saleIDs[len(events)] = s.ID.String()
		events = append(events, domain.TimelineEvent{
			Date:          s.SaleDate,
			Type:          domain.TimelineEventSale,
			GrantID:       grant.ID,
			Symbol:        grant.Symbol,
			Shares:        s.Shares,
			PricePerShare: s.PricePerShare,
			PriceKnown:    true,
			Tax:           &result,
		})
	}

	idx := make([]int, len(events))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := events[idx[a]], events[idx[b]]
		if !ea.Date.Equal(eb.Date) {
			return ea.Date.Before(eb.Date)
		}
		if ea.Type != eb.Type {
			return ea.Type == domain.TimelineEventVest
		}
		if ea.Type == domain.TimelineEventVest {
			return seqs[idx[a]] < seqs[idx[b]]
		}
		return saleIDs[idx[a]] < saleIDs[idx[b]]
	})

	ordered := make([]domain.TimelineEvent, len(events))
	for i, j := range idx {
		ordered[i] = events[j]
	}
	return ordered, nil
}

// replay walks the events of one grant and snapshots its position at the close of every month.
func replay(grant *domain.Grant, events []domain.TimelineEvent, months []time.Time, calc *tax.Calculator) (*series, error) {
	out := &series{
		positions: make([]domain.GrantPosition, len(months)),
		started:   make([]bool, len(months)),
		events:    make([][]domain.TimelineEvent, len(months)),
	}

	st := &grantState{}
	next := 0
	for mi, month := range months {
		closing := domain.MonthEnd(month)
		for next < len(events) && !events[next].Date.After(closing) {
			ev := events[next]
			if err := st.apply(grant, ev, calc); err != nil {
				return nil, err
			}
			if !ev.Date.Before(month) {
				out.events[mi] = append(out.events[mi], ev)
			}
			next++
		}
		out.positions[mi] = st.position(grant)
		out.started[mi] = st.started
	}
	return out, nil
}

func (st *grantState) apply(grant *domain.Grant, ev domain.TimelineEvent, calc *tax.Calculator) error {
	st.started = true
	switch ev.Type {
	case domain.TimelineEventVest:
		st.held += ev.Shares
	case domain.TimelineEventSale:
		st.held -= ev.Shares
		if ev.Tax != nil {
			st.realizedProceeds = st.realizedProceeds.Add(ev.Tax.NetValue)
			st.realizedTax = st.realizedTax.Add(ev.Tax.TotalTax)
		}
	}
	if ev.PriceKnown {
		st.lastPrice = ev.PricePerShare
		st.priceKnown = true
	}
	st.lastDate = ev.Date

	if st.held < 0 {
		return domain.Computationf("grant %s holds %d shares after %s on %s", grant.ID, st.held, ev.Type, domain.FormatDate(ev.Date))
	}

	st.value = decimal.Zero
	st.taxLiability = decimal.Zero
	if st.held > 0 && st.priceKnown {
		st.value = st.lastPrice.Mul(decimal.NewFromInt(st.held))
		result, err := calc.ComputeSaleTax(grant, st.held, st.lastPrice, st.lastDate)
		if err != nil {
			return err
		}
		st.taxLiability = result.TotalTax
	}
	return nil
}

func (st *grantState) position(grant *domain.Grant) domain.GrantPosition {
	return domain.GrantPosition{
		GrantID:          grant.ID,
		Symbol:           grant.Symbol,
		SharesHeld:       st.held,
		Value:            st.value,
		TaxLiability:     st.taxLiability,
		NetValue:         st.value.Sub(st.taxLiability),
		RealizedProceeds: st.realizedProceeds,
		RealizedTax:      st.realizedTax,
		PriceUnknown:     st.held > 0 && !st.priceKnown,
	}
}
