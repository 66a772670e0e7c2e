package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
	"github.com/simaogato/vestflow-backend/internal/usecase/ledger"
	"github.com/simaogato/vestflow-backend/internal/usecase/pricing"
	"github.com/simaogato/vestflow-backend/internal/usecase/timeline"
	"github.com/simaogato/vestflow-backend/internal/usecase/vesting"
)

// Server implements the EquityService gRPC server
type Server struct {
	Ledger   *ledger.LedgerService
	Timeline *timeline.Reconstructor
	Prices   *pricing.PriceService
	Plans    *vesting.PlanRegistry
}

var _ EquityServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	ledgerService *ledger.LedgerService,
	reconstructor *timeline.Reconstructor,
	priceService *pricing.PriceService,
	plans *vesting.PlanRegistry,
) *Server {
	return &Server{
		Ledger:   ledgerService,
		Timeline: reconstructor,
		Prices:   priceService,
		Plans:    plans,
	}
}

// CreateGrant handles the CreateGrant RPC
func (s *Server) CreateGrant(ctx context.Context, req *CreateGrantRequest) (*Grant, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	grantDate, err := parseDate("grant_date", req.GrantDate)
	if err != nil {
		return nil, err
	}

	totalValue, err := decimal.NewFromString(req.TotalGrantValue)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid total_grant_value format: %v", err)
	}

	grant, err := s.Ledger.CreateGrant(ctx, ledger.CreateGrantInput{
		UserID:          userID,
		Symbol:          req.Symbol,
		Company:         req.Company,
		GrantDate:       grantDate,
		TotalShares:     req.TotalShares,
		TotalGrantValue: totalValue,
		PlanID:          req.PlanID,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toGrant(grant), nil
}

// GetGrant handles the GetGrant RPC
func (s *Server) GetGrant(ctx context.Context, req *GrantRequest) (*Grant, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	grantID, err := parseID("grant_id", req.GrantID)
	if err != nil {
		return nil, err
	}

	grant, err := s.Ledger.GetGrant(ctx, userID, grantID)
	if err != nil {
		return nil, mapError(err)
	}
	return toGrant(grant), nil
}

// ListGrants handles the ListGrants RPC
func (s *Server) ListGrants(ctx context.Context, req *ListGrantsRequest) (*ListGrantsResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	grants, err := s.Ledger.ListGrants(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListGrantsResponse{Grants: make([]*Grant, 0, len(grants))}
	for _, g := range grants {
		resp.Grants = append(resp.Grants, toGrant(g))
	}
	return resp, nil
}

// CancelGrant handles the CancelGrant RPC
func (s *Server) CancelGrant(ctx context.Context, req *GrantRequest) (*Grant, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	grantID, err := parseID("grant_id", req.GrantID)
	if err != nil {
		return nil, err
	}

	grant, err := s.Ledger.CancelGrant(ctx, userID, grantID)
	if err != nil {
		return nil, mapError(err)
	}
	return toGrant(grant), nil
}

// ListPlans handles the ListPlans RPC
func (s *Server) ListPlans(ctx context.Context, req *ListPlansRequest) (*ListPlansResponse, error) {
	plans := s.Plans.List()
	resp := &ListPlansResponse{Plans: make([]Plan, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, Plan{
			ID:             p.ID,
			Name:           p.Name,
			PeriodCount:    p.PeriodCount,
			IntervalMonths: p.IntervalMonths,
		})
	}
	return resp, nil
}

// PreviewPlanChange handles the PreviewPlanChange RPC
func (s *Server) PreviewPlanChange(ctx context.Context, req *PlanChangeRequest) (*PlanChangeImpact, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	grantID, err := parseID("grant_id", req.GrantID)
	if err != nil {
		return nil, err
	}

	impact, err := s.Ledger.PreviewPlanChange(ctx, userID, grantID, req.PlanID)
	if err != nil {
		return nil, mapError(err)
	}

	return &PlanChangeImpact{
		GrantID:              impact.GrantID.String(),
		CurrentPlanID:        impact.CurrentPlanID,
		NewPlanID:            impact.NewPlanID,
		VestedShares:         impact.VestedShares,
		UnvestedShares:       impact.UnvestedShares,
		PeriodsKept:          impact.PeriodsKept,
		PeriodsReplaced:      impact.PeriodsReplaced,
		NewPeriodCount:       impact.NewPeriodCount,
		NewSchedule:          toTranches(impact.NewSchedule),
		VestedSharesAfter:    impact.VestedSharesAfter,
		RequiresConfirmation: impact.RequiresConfirmation,
	}, nil
}

// ApplyPlanChange handles the ApplyPlanChange RPC
func (s *Server) ApplyPlanChange(ctx context.Context, req *PlanChangeRequest) (*Grant, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	grantID, err := parseID("grant_id", req.GrantID)
	if err != nil {
		return nil, err
	}

	grant, err := s.Ledger.ApplyPlanChange(ctx, ledger.ApplyPlanChangeInput{
		UserID:  userID,
		GrantID: grantID,
		PlanID:  req.PlanID,
		Confirm: req.Confirm,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toGrant(grant), nil
}

// PreviewSaleTax handles the PreviewSaleTax RPC
func (s *Server) PreviewSaleTax(ctx context.Context, req *SaleRequest) (*PreviewSaleTaxResponse, error) {
	input, err := saleInput(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.Ledger.PreviewSaleTax(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	available, err := s.Ledger.AvailableShares(ctx, input.UserID, input.GrantID, input.SaleDate)
	if err != nil {
		return nil, mapError(err)
	}

	return &PreviewSaleTaxResponse{
		Tax:             toTaxResult(result),
		AvailableShares: available,
	}, nil
}

// RecordSale handles the RecordSale RPC
func (s *Server) RecordSale(ctx context.Context, req *SaleRequest) (*Sale, error) {
	input, err := saleInput(ctx, req)
	if err != nil {
		return nil, err
	}

	sale, err := s.Ledger.RecordSale(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toSale(sale), nil
}

// DeleteSale handles the DeleteSale RPC
func (s *Server) DeleteSale(ctx context.Context, req *DeleteSaleRequest) (*DeleteSaleResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	saleID, err := parseID("sale_id", req.SaleID)
	if err != nil {
		return nil, err
	}

	if err := s.Ledger.DeleteSale(ctx, userID, saleID); err != nil {
		return nil, mapError(err)
	}
	return &DeleteSaleResponse{}, nil
}

// ListSales handles the ListSales RPC
func (s *Server) ListSales(ctx context.Context, req *ListSalesRequest) (*ListSalesResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	grantID := uuid.Nil
	if req.GrantID != "" {
		if grantID, err = parseID("grant_id", req.GrantID); err != nil {
			return nil, err
		}
	}

	sales, err := s.Ledger.ListSales(ctx, userID, grantID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListSalesResponse{Sales: make([]*Sale, 0, len(sales))}
	for _, sale := range sales {
		resp.Sales = append(resp.Sales, toSale(sale))
	}
	return resp, nil
}

// GetPortfolioTimeline handles the GetPortfolioTimeline RPC
func (s *Server) GetPortfolioTimeline(ctx context.Context, req *TimelineRequest) (*TimelineResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var tf domain.Timeframe
	if req.From != "" || req.To != "" {
		tf, err = timeline.ParseTimeframe(req.From, req.To)
	} else {
		tf, err = s.Timeline.ResolveForUser(ctx, userID, req.Timeframe)
	}
	if err != nil {
		return nil, mapError(err)
	}

	points, err := s.Timeline.GeneratePortfolioTimeline(ctx, userID, tf)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &TimelineResponse{
		From:   domain.MonthKey(tf.From),
		To:     domain.MonthKey(tf.To),
		Points: make([]TimelinePoint, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, toTimelinePoint(p))
	}
	return resp, nil
}

// ValidateIntegrity handles the ValidateIntegrity RPC
func (s *Server) ValidateIntegrity(ctx context.Context, req *ValidateIntegrityRequest) (*IntegrityReport, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.Timeline.ValidateIntegrity(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &IntegrityReport{
		CheckedAt: report.CheckedAt,
		Grants:    report.Grants,
		Sales:     report.Sales,
		Months:    report.Months,
		OK:        report.OK(),
	}
	for _, issue := range report.Issues {
		msg := IntegrityIssue{Check: issue.Check, Message: issue.Message}
		if issue.GrantID != uuid.Nil {
			msg.GrantID = issue.GrantID.String()
		}
		resp.Issues = append(resp.Issues, msg)
	}
	return resp, nil
}

// UpsertPrice handles the UpsertPrice RPC
func (s *Server) UpsertPrice(ctx context.Context, req *UpsertPriceRequest) (*Price, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid price format: %v", err)
	}

	record := domain.PriceRecord{
		Symbol:   req.Symbol,
		Date:     date,
		Price:    price,
		Source:   req.Source,
		Volume:   req.Volume,
		Metadata: req.Metadata,
	}
	for _, f := range []struct {
		name   string
		value  string
		target **decimal.Decimal
	}{
		{"open", req.Open, &record.Open},
		{"high", req.High, &record.High},
		{"low", req.Low, &record.Low},
		{"close", req.Close, &record.Close},
	} {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", f.name, err)
		}
		*f.target = &d
	}

	stored, err := s.Prices.Upsert(ctx, record)
	if err != nil {
		return nil, mapError(err)
	}
	return toPrice(stored), nil
}

// GetPrice handles the GetPrice RPC
func (s *Server) GetPrice(ctx context.Context, req *GetPriceRequest) (*GetPriceResponse, error) {
	symbol := domain.NormalizeSymbol(req.Symbol)
	if req.Date == "" {
		latest, err := s.Prices.GetLatestPrice(ctx, symbol)
		if err != nil {
			return nil, mapError(err)
		}
		return &GetPriceResponse{
			Symbol: latest.Symbol,
			Date:   domain.FormatDate(latest.Date),
			Price:  latest.Price.String(),
		}, nil
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	price, err := s.Prices.GetPriceOnDate(ctx, symbol, date)
	if err != nil {
		return nil, mapError(err)
	}
	return &GetPriceResponse{
		Symbol: symbol,
		Date:   domain.FormatDate(date),
		Price:  price.String(),
	}, nil
}

// GetPriceHistory handles the GetPriceHistory RPC
func (s *Server) GetPriceHistory(ctx context.Context, req *PriceHistoryRequest) (*PriceHistoryResponse, error) {
	start, err := parseDate("start", req.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		return nil, err
	}

	records, err := s.Prices.GetPriceHistory(ctx, req.Symbol, start, end)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &PriceHistoryResponse{Prices: make([]*Price, 0, len(records))}
	for _, r := range records {
		resp.Prices = append(resp.Prices, toPrice(r))
	}
	return resp, nil
}

func saleInput(ctx context.Context, req *SaleRequest) (ledger.SaleInput, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return ledger.SaleInput{}, err
	}
	grantID, err := parseID("grant_id", req.GrantID)
	if err != nil {
		return ledger.SaleInput{}, err
	}
	saleDate, err := parseDate("sale_date", req.SaleDate)
	if err != nil {
		return ledger.SaleInput{}, err
	}
	price, err := decimal.NewFromString(req.PricePerShare)
	if err != nil {
		return ledger.SaleInput{}, status.Errorf(codes.InvalidArgument, "invalid price_per_share format: %v", err)
	}

	return ledger.SaleInput{
		UserID:        userID,
		GrantID:       grantID,
		SaleDate:      saleDate,
		Shares:        req.Shares,
		PricePerShare: price,
	}, nil
}

func requireUser(ctx context.Context) (string, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id header")
	}
	return userID, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return id, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format %q, want YYYY-MM-DD", field, s)
	}
	return t, nil
}

// Helper functions to convert domain entities to messages

func toGrant(g *domain.Grant) *Grant {
	return &Grant{
		ID:              g.ID.String(),
		Symbol:          g.Symbol,
		Company:         g.Company,
		GrantDate:       domain.FormatDate(g.GrantDate),
		TotalShares:     g.TotalShares,
		TotalGrantValue: g.TotalGrantValue.String(),
		PlanID:          g.PlanID,
		Status:          string(g.Status),
		VestedShares:    g.VestedShares(),
		UnvestedShares:  g.UnvestedShares(),
		Tranches:        toTranches(g.Tranches),
		CreatedAt:       g.CreatedAt,
	}
}

func toTranches(tranches []domain.Tranche) []Tranche {
	out := make([]Tranche, 0, len(tranches))
	for _, t := range tranches {
		msg := Tranche{
			Seq:      t.Seq,
			VestDate: domain.FormatDate(t.VestDate),
			Shares:   t.Shares,
			Vested:   t.Vested,
		}
		if t.VestedPrice != nil {
			msg.VestedPrice = t.VestedPrice.String()
		}
		out = append(out, msg)
	}
	return out
}

func toTaxResult(r domain.TaxResult) TaxResult {
	return TaxResult{
		OriginalValue:   r.OriginalValue.StringFixed(2),
		SaleValue:       r.SaleValue.StringFixed(2),
		Profit:          r.Profit.StringFixed(2),
		IsLongTerm:      r.IsLongTerm,
		WageIncomeTax:   r.WageIncomeTax.StringFixed(2),
		CapitalGainsTax: r.CapitalGainsTax.StringFixed(2),
		TotalTax:        r.TotalTax.StringFixed(2),
		NetValue:        r.NetValue.StringFixed(2),
	}
}

func toSale(s *domain.Sale) *Sale {
	return &Sale{
		ID:            s.ID.String(),
		GrantID:       s.GrantID.String(),
		SaleDate:      domain.FormatDate(s.SaleDate),
		Shares:        s.Shares,
		PricePerShare: s.PricePerShare.String(),
		Tax:           toTaxResult(s.Tax),
		CreatedAt:     s.CreatedAt,
	}
}

func toTimelinePoint(p domain.TimelinePoint) TimelinePoint {
	msg := TimelinePoint{
		Month:            p.Month,
		SharesHeld:       p.SharesHeld,
		TotalValue:       p.TotalValue.StringFixed(2),
		TaxLiability:     p.TaxLiability.StringFixed(2),
		NetValue:         p.NetValue.StringFixed(2),
		RealizedProceeds: p.RealizedProceeds.StringFixed(2),
		RealizedTax:      p.RealizedTax.StringFixed(2),
		PriceUnknown:     p.PriceUnknown,
	}
	for _, e := range p.Events {
		event := TimelineEvent{
			Date:    domain.FormatDate(e.Date),
			Type:    string(e.Type),
			GrantID: e.GrantID.String(),
			Symbol:  e.Symbol,
			Shares:  e.Shares,
		}
		if e.PriceKnown {
			event.PricePerShare = e.PricePerShare.String()
		}
		if e.Tax != nil {
			tax := toTaxResult(*e.Tax)
			event.Tax = &tax
		}
		msg.Events = append(msg.Events, event)
	}
	for _, g := range p.Grants {
		msg.Grants = append(msg.Grants, GrantPosition{
			GrantID:      g.GrantID.String(),
			Symbol:       g.Symbol,
			SharesHeld:   g.SharesHeld,
			Value:        g.Value.StringFixed(2),
			TaxLiability: g.TaxLiability.StringFixed(2),
			NetValue:     g.NetValue.StringFixed(2),
			PriceUnknown: g.PriceUnknown,
		})
	}
	return msg
}

func toPrice(r *domain.PriceRecord) *Price {
	msg := &Price{
		Symbol:    r.Symbol,
		Date:      domain.FormatDate(r.Date),
		Price:     r.Price.String(),
		Source:    r.Source,
		Volume:    r.Volume,
		Metadata:  r.Metadata,
		UpdatedAt: r.UpdatedAt,
	}
	for _, f := range []struct {
		value  *decimal.Decimal
		target *string
	}{
		{r.Open, &msg.Open},
		{r.High, &msg.High},
		{r.Low, &msg.Low},
		{r.Close, &msg.Close},
	} {
		if f.value != nil {
			*f.target = f.value.String()
		}
	}
	return msg
}

// mapError maps domain errors to gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDataUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	logger.L.Error("Unexpected service error", "error", err)
	return status.Error(codes.Internal, err.Error())
}
