package timeline

import (
	"context"
	"strings"
	"time"

	"github.com/simaogato/vestflow-backend/internal/domain"
)

// Named timeframes and how many months before the current one they reach back.
var namedTimeframes = map[string]int{
	"3m": 2,
	"6m": 5,
	"1y": 11,
	"2y": 23,
	"5y": 59,
}

// ResolveTimeframe turns a timeframe name into a month range ending in the month of now.
// "ytd" starts in January; "all" starts in the month of earliest (the user's first grant).
func ResolveTimeframe(name string, earliest, now time.Time) (domain.Timeframe, error) {
	current := domain.MonthStart(now)
	name = strings.ToLower(strings.TrimSpace(name))

	if back, ok := namedTimeframes[name]; ok {
		return domain.NewTimeframe(domain.AddMonths(current, -back), current)
	}
	switch name {
	case "ytd":
		return domain.NewTimeframe(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), current)
	case "all", "":
		from := current
		if !earliest.IsZero() && earliest.Before(current) {
			from = earliest
		}
		return domain.NewTimeframe(from, current)
	}
	return domain.Timeframe{}, domain.Validationf("unknown timeframe %q", name)
}

// ParseTimeframe parses an explicit YYYY-MM..YYYY-MM range.
func ParseTimeframe(from, to string) (domain.Timeframe, error) {
	start, err := time.Parse(domain.MonthLayout, strings.TrimSpace(from))
	if err != nil {
		return domain.Timeframe{}, domain.Validationf("invalid timeframe start %q, want YYYY-MM", from)
	}
	end, err := time.Parse(domain.MonthLayout, strings.TrimSpace(to))
	if err != nil {
		return domain.Timeframe{}, domain.Validationf("invalid timeframe end %q, want YYYY-MM", to)
	}
	return domain.NewTimeframe(start, end)
}

// ResolveForUser resolves a named timeframe, anchoring "all" at the user's earliest grant.
func (r *Reconstructor) ResolveForUser(ctx context.Context, userID, name string) (domain.Timeframe, error) {
	var earliest time.Time
	if n := strings.ToLower(strings.TrimSpace(name)); n == "all" || n == "" {
		grants, err := r.GrantRepo.ListByUser(ctx, userID)
		if err != nil {
			return domain.Timeframe{}, err
		}
		for _, g := range grants {
			if earliest.IsZero() || g.GrantDate.Before(earliest) {
				earliest = g.GrantDate
			}
		}
	}
	return ResolveTimeframe(name, earliest, r.now())
}
