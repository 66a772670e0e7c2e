package grpc

import "time"

// Messages of the EquityService. Money and prices travel as decimal strings,
// dates as YYYY-MM-DD and months as YYYY-MM.

type CreateGrantRequest struct {
	Symbol          string `json:"symbol"`
	Company         string `json:"company,omitempty"`
	GrantDate       string `json:"grant_date"`
	TotalShares     int64  `json:"total_shares"`
	TotalGrantValue string `json:"total_grant_value"`
	PlanID          string `json:"plan_id"`
}

type GrantRequest struct {
	GrantID string `json:"grant_id"`
}

type ListGrantsRequest struct{}

type ListGrantsResponse struct {
	Grants []*Grant `json:"grants"`
}

type Grant struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Company         string    `json:"company,omitempty"`
	GrantDate       string    `json:"grant_date"`
	TotalShares     int64     `json:"total_shares"`
	TotalGrantValue string    `json:"total_grant_value"`
	PlanID          string    `json:"plan_id"`
	Status          string    `json:"status"`
	VestedShares    int64     `json:"vested_shares"`
	UnvestedShares  int64     `json:"unvested_shares"`
	Tranches        []Tranche `json:"tranches"`
	CreatedAt       time.Time `json:"created_at"`
}

type Tranche struct {
	Seq         int    `json:"seq"`
	VestDate    string `json:"vest_date"`
	Shares      int64  `json:"shares"`
	Vested      bool   `json:"vested"`
	VestedPrice string `json:"vested_price,omitempty"`
}

type ListPlansRequest struct{}

type ListPlansResponse struct {
	Plans []Plan `json:"plans"`
}

type Plan struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PeriodCount    int    `json:"period_count"`
	IntervalMonths int    `json:"interval_months"`
}

type PlanChangeRequest struct {
	GrantID string `json:"grant_id"`
	PlanID  string `json:"plan_id"`
	Confirm bool   `json:"confirm,omitempty"`
}

type PlanChangeImpact struct {
	GrantID              string    `json:"grant_id"`
	CurrentPlanID        string    `json:"current_plan_id"`
	NewPlanID            string    `json:"new_plan_id"`
	VestedShares         int64     `json:"vested_shares"`
	UnvestedShares       int64     `json:"unvested_shares"`
	PeriodsKept          int       `json:"periods_kept"`
	PeriodsReplaced      int       `json:"periods_replaced"`
	NewPeriodCount       int       `json:"new_period_count"`
	NewSchedule          []Tranche `json:"new_schedule"`
	VestedSharesAfter    int64     `json:"vested_shares_after"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
}

type SaleRequest struct {
	GrantID       string `json:"grant_id"`
	SaleDate      string `json:"sale_date"`
	Shares        int64  `json:"shares"`
	PricePerShare string `json:"price_per_share"`
}

type TaxResult struct {
	OriginalValue   string `json:"original_value"`
	SaleValue       string `json:"sale_value"`
	Profit          string `json:"profit"`
	IsLongTerm      bool   `json:"is_long_term"`
	WageIncomeTax   string `json:"wage_income_tax"`
	CapitalGainsTax string `json:"capital_gains_tax"`
	TotalTax        string `json:"total_tax"`
	NetValue        string `json:"net_value"`
}

type PreviewSaleTaxResponse struct {
	Tax             TaxResult `json:"tax"`
	AvailableShares int64     `json:"available_shares"`
}

type Sale struct {
	ID            string    `json:"id"`
	GrantID       string    `json:"grant_id"`
	SaleDate      string    `json:"sale_date"`
	Shares        int64     `json:"shares"`
	PricePerShare string    `json:"price_per_share"`
	Tax           TaxResult `json:"tax"`
	CreatedAt     time.Time `json:"created_at"`
}

type DeleteSaleRequest struct {
	SaleID string `json:"sale_id"`
}

type DeleteSaleResponse struct{}

type ListSalesRequest struct {
	// GrantID narrows the list to one grant; empty lists every sale.
	GrantID string `json:"grant_id,omitempty"`
}

type ListSalesResponse struct {
	Sales []*Sale `json:"sales"`
}

// TimelineRequest selects either a named Timeframe or an explicit From..To month range.
type TimelineRequest struct {
	Timeframe string `json:"timeframe,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

type TimelineResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Points []TimelinePoint `json:"points"`
}

type TimelinePoint struct {
	Month            string          `json:"month"`
	SharesHeld       int64           `json:"shares_held"`
	TotalValue       string          `json:"total_value"`
	TaxLiability     string          `json:"tax_liability"`
	NetValue         string          `json:"net_value"`
	RealizedProceeds string          `json:"realized_proceeds"`
	RealizedTax      string          `json:"realized_tax"`
	PriceUnknown     bool            `json:"price_unknown,omitempty"`
	Events           []TimelineEvent `json:"events,omitempty"`
	Grants           []GrantPosition `json:"grants,omitempty"`
}

type TimelineEvent struct {
	Date          string     `json:"date"`
	Type          string     `json:"type"`
	GrantID       string     `json:"grant_id"`
	Symbol        string     `json:"symbol"`
	Shares        int64      `json:"shares"`
	PricePerShare string     `json:"price_per_share,omitempty"`
	Tax           *TaxResult `json:"tax,omitempty"`
}

type GrantPosition struct {
	GrantID      string `json:"grant_id"`
	Symbol       string `json:"symbol"`
	SharesHeld   int64  `json:"shares_held"`
	Value        string `json:"value"`
	TaxLiability string `json:"tax_liability"`
	NetValue     string `json:"net_value"`
	PriceUnknown bool   `json:"price_unknown,omitempty"`
}

type ValidateIntegrityRequest struct{}

type IntegrityReport struct {
	CheckedAt time.Time        `json:"checked_at"`
	Grants    int              `json:"grants"`
	Sales     int              `json:"sales"`
	Months    int              `json:"months"`
	OK        bool             `json:"ok"`
	Issues    []IntegrityIssue `json:"issues,omitempty"`
}

type IntegrityIssue struct {
	Check   string `json:"check"`
	GrantID string `json:"grant_id,omitempty"`
	Message string `json:"message"`
}

type UpsertPriceRequest struct {
	Symbol   string            `json:"symbol"`
	Date     string            `json:"date"`
	Price    string            `json:"price"`
	Source   string            `json:"source,omitempty"`
	Open     string            `json:"open,omitempty"`
	High     string            `json:"high,omitempty"`
	Low      string            `json:"low,omitempty"`
	Close    string            `json:"close,omitempty"`
	Volume   *int64            `json:"volume,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Price struct {
	Symbol    string            `json:"symbol"`
	Date      string            `json:"date"`
	Price     string            `json:"price"`
	Source    string            `json:"source,omitempty"`
	Open      string            `json:"open,omitempty"`
	High      string            `json:"high,omitempty"`
	Low       string            `json:"low,omitempty"`
	Close     string            `json:"close,omitempty"`
	Volume    *int64            `json:"volume,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// GetPriceRequest looks up the price effective on Date, or the latest price when Date is empty.
type GetPriceRequest struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date,omitempty"`
}

type GetPriceResponse struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date,omitempty"`
	Price  string `json:"price"`
}

type PriceHistoryRequest struct {
	Symbol string `json:"symbol"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type PriceHistoryResponse struct {
	Prices []*Price `json:"prices"`
}
