package pricing

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
)

// QuoteProvider fetches daily prices from an external market data source.
type QuoteProvider interface {
	// FetchDaily returns one record per trading day between from and to, inclusive
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceRecord, error)
}

// UpdateReport summarizes one update run.
type UpdateReport struct {
	Symbols  int
	Records  int
	Failures map[string]error
}

// Updater keeps the price store current for every symbol held in a grant.
// Each record is upserted independently, so concurrent runs and timeline
// readers never contend on shared state.
type Updater struct {
	Prices    *PriceService
	GrantRepo domain.GrantRepository
	Provider  QuoteProvider
	Limiter   *rate.Limiter

	now func() time.Time
}

// NewUpdater creates a new Updater calling the provider at most perSecond times per second.
func NewUpdater(prices *PriceService, grantRepo domain.GrantRepository, provider QuoteProvider, perSecond float64) *Updater {
	return &Updater{
		Prices:    prices,
		GrantRepo: grantRepo,
		Provider:  provider,
		Limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		now:       time.Now,
	}
}

// UpdateAll fetches, for every symbol of active or fully vested grants, the prices
// missing since its latest stored record (or since its earliest grant date).
// A failing symbol is reported and does not stop the others.
func (u *Updater) UpdateAll(ctx context.Context) (*UpdateReport, error) {
	earliest, err := u.symbols(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(earliest))
	for symbol := range earliest {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	report := &UpdateReport{Symbols: len(symbols), Failures: make(map[string]error)}
	today := domain.Day(u.now())
	for _, symbol := range symbols {
		n, err := u.updateSymbol(ctx, symbol, earliest[symbol], today)
		report.Records += n
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.L.Warn("Price update failed", "symbol", symbol, "error", err)
			report.Failures[symbol] = err
		}
	}

	logger.L.Info("Price update finished", "symbols", report.Symbols, "records", report.Records, "failures", len(report.Failures))
	return report, nil
}

func (u *Updater) updateSymbol(ctx context.Context, symbol string, from, today time.Time) (int, error) {
	latest, err := u.Prices.GetLatestPrice(ctx, symbol)
	switch {
	case err == nil:
		from = latest.Date.AddDate(0, 0, 1)
	case errors.Is(err, domain.ErrDataUnavailable):
	default:
		return 0, err
	}
	if from.After(today) {
		return 0, nil
	}

	if err := u.Limiter.Wait(ctx); err != nil {
		return 0, err
	}
	records, err := u.Provider.FetchDaily(ctx, symbol, from, today)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, r := range records {
		r.Symbol = symbol
		if _, err := u.Prices.Upsert(ctx, r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// symbols maps each held symbol to the earliest grant date referencing it.
func (u *Updater) symbols(ctx context.Context) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for _, status := range []domain.GrantStatus{domain.GrantStatusActive, domain.GrantStatusFullyVested} {
		grants, err := u.GrantRepo.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, g := range grants {
			symbol := domain.NormalizeSymbol(g.Symbol)
			if d, ok := out[symbol]; !ok || g.GrantDate.Before(d) {
				out[symbol] = domain.Day(g.GrantDate)
			}
		}
	}
	return out, nil
}
