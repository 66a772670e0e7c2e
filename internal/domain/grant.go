package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GrantStatus represents the lifecycle state of a grant
type GrantStatus string

const (
	GrantStatusActive      GrantStatus = "ACTIVE"
	GrantStatusFullyVested GrantStatus = "FULLY_VESTED"
	GrantStatusCancelled   GrantStatus = "CANCELLED"
)

// Grant is one equity award and its vesting schedule.
type Grant struct {
	ID              uuid.UUID
	UserID          string
	Symbol          string
	Company         string // optional label
	GrantDate       time.Time
	TotalShares     int64
	TotalGrantValue decimal.Decimal // value of the whole award at grant date
	PlanID          string
	Status          GrantStatus
	Tranches        []Tranche // ordered by VestDate
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Tranche is one vesting allotment of a grant.
type Tranche struct {
	Seq         int // 0-based position in the schedule
	VestDate    time.Time
	Shares      int64
	Vested      bool
	VestedPrice *decimal.Decimal // nil until vested, or when no price was reachable
	VestedAt    *time.Time       // when the transition was recorded
}

// Validate ensures the grant adheres to domain rules
func (g *Grant) Validate() error {
	if g.UserID == "" {
		return Validationf("grant user id cannot be empty")
	}
	if g.Symbol == "" {
		return Validationf("grant symbol cannot be empty")
	}
	if g.GrantDate.IsZero() {
		return Validationf("grant date must be set")
	}
	if g.TotalShares <= 0 {
		return Validationf("total shares must be positive")
	}
	if g.TotalGrantValue.IsNegative() {
		return Validationf("total grant value cannot be negative")
	}
	if g.PlanID == "" {
		return Validationf("grant plan id cannot be empty")
	}
	switch g.Status {
	case GrantStatusActive, GrantStatusFullyVested, GrantStatusCancelled:
	default:
		return Validationf("grant status must be ACTIVE, FULLY_VESTED or CANCELLED")
	}
	return nil
}

// CheckShareConservation verifies that the tranches distribute exactly TotalShares.
// A mismatch is a bug and is reported as ErrComputation.
func (g *Grant) CheckShareConservation() error {
	var sum int64
	for _, t := range g.Tranches {
		if t.Shares < 0 {
			return Computationf("grant %s tranche %d has negative shares %d", g.ID, t.Seq, t.Shares)
		}
		sum += t.Shares
	}
	if sum != g.TotalShares {
		return Computationf("grant %s tranches sum to %d, want %d", g.ID, sum, g.TotalShares)
	}
	return nil
}

// GrantValuePerShare is the grant-date value of one share.
func (g *Grant) GrantValuePerShare() decimal.Decimal {
	if g.TotalShares == 0 {
		return decimal.Zero
	}
	return g.TotalGrantValue.Div(decimal.NewFromInt(g.TotalShares))
}

// VestedShares sums the shares of vested tranches.
func (g *Grant) VestedShares() int64 {
	var n int64
	for _, t := range g.Tranches {
		if t.Vested {
			n += t.Shares
		}
	}
	return n
}

// UnvestedShares sums the shares of tranches not yet vested.
func (g *Grant) UnvestedShares() int64 {
	return g.TotalShares - g.VestedShares()
}

// VestedSharesOn sums vested tranches whose vest date is on or before day.
func (g *Grant) VestedSharesOn(day time.Time) int64 {
	day = Day(day)
	var n int64
	for _, t := range g.Tranches {
		if t.Vested && !t.VestDate.After(day) {
			n += t.Shares
		}
	}
	return n
}

// AllVested reports whether every tranche has vested.
func (g *Grant) AllVested() bool {
	for _, t := range g.Tranches {
		if !t.Vested {
			return false
		}
	}
	return len(g.Tranches) > 0
}

// RefreshStatus moves an active grant to FULLY_VESTED once every tranche vested.
// Cancelled grants keep their status.
func (g *Grant) RefreshStatus() {
	if g.Status == GrantStatusCancelled {
		return
	}
	if g.AllVested() {
		g.Status = GrantStatusFullyVested
	} else {
		g.Status = GrantStatusActive
	}
}

// Clone returns a deep copy so callers can compute on a grant without mutating shared state.
func (g *Grant) Clone() *Grant {
	c := *g
	c.Tranches = make([]Tranche, len(g.Tranches))
	for i, t := range g.Tranches {
		c.Tranches[i] = t.clone()
	}
	return &c
}

func (t Tranche) clone() Tranche {
	if t.VestedPrice != nil {
		p := *t.VestedPrice
		t.VestedPrice = &p
	}
	if t.VestedAt != nil {
		at := *t.VestedAt
		t.VestedAt = &at
	}
	return t
}
