package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the equity service.
const ServiceName = "vestflow.v1.EquityService"

// EquityServiceServer is the server API for the EquityService.
type EquityServiceServer interface {
	CreateGrant(context.Context, *CreateGrantRequest) (*Grant, error)
	GetGrant(context.Context, *GrantRequest) (*Grant, error)
	ListGrants(context.Context, *ListGrantsRequest) (*ListGrantsResponse, error)
	CancelGrant(context.Context, *GrantRequest) (*Grant, error)
	ListPlans(context.Context, *ListPlansRequest) (*ListPlansResponse, error)
	PreviewPlanChange(context.Context, *PlanChangeRequest) (*PlanChangeImpact, error)
	ApplyPlanChange(context.Context, *PlanChangeRequest) (*Grant, error)
	PreviewSaleTax(context.Context, *SaleRequest) (*PreviewSaleTaxResponse, error)
	RecordSale(context.Context, *SaleRequest) (*Sale, error)
	DeleteSale(context.Context, *DeleteSaleRequest) (*DeleteSaleResponse, error)
	ListSales(context.Context, *ListSalesRequest) (*ListSalesResponse, error)
	GetPortfolioTimeline(context.Context, *TimelineRequest) (*TimelineResponse, error)
	ValidateIntegrity(context.Context, *ValidateIntegrityRequest) (*IntegrityReport, error)
	UpsertPrice(context.Context, *UpsertPriceRequest) (*Price, error)
	GetPrice(context.Context, *GetPriceRequest) (*GetPriceResponse, error)
	GetPriceHistory(context.Context, *PriceHistoryRequest) (*PriceHistoryResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc for the EquityService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EquityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateGrant", EquityServiceServer.CreateGrant),
		unary("GetGrant", EquityServiceServer.GetGrant),
		unary("ListGrants", EquityServiceServer.ListGrants),
		unary("CancelGrant", EquityServiceServer.CancelGrant),
		unary("ListPlans", EquityServiceServer.ListPlans),
		unary("PreviewPlanChange", EquityServiceServer.PreviewPlanChange),
		unary("ApplyPlanChange", EquityServiceServer.ApplyPlanChange),
		unary("PreviewSaleTax", EquityServiceServer.PreviewSaleTax),
		unary("RecordSale", EquityServiceServer.RecordSale),
		unary("DeleteSale", EquityServiceServer.DeleteSale),
		unary("ListSales", EquityServiceServer.ListSales),
		unary("GetPortfolioTimeline", EquityServiceServer.GetPortfolioTimeline),
		unary("ValidateIntegrity", EquityServiceServer.ValidateIntegrity),
		unary("UpsertPrice", EquityServiceServer.UpsertPrice),
		unary("GetPrice", EquityServiceServer.GetPrice),
		unary("GetPriceHistory", EquityServiceServer.GetPriceHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vestflow/v1/equity",
}

// RegisterEquityServiceServer registers srv on s.
func RegisterEquityServiceServer(s grpc.ServiceRegistrar, srv EquityServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor of one request/response call.
func unary[Req, Resp any](name string, call func(EquityServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EquityServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EquityServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client is the client API for the EquityService. Calls use the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client over cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGrant(ctx context.Context, in *CreateGrantRequest, opts ...grpc.CallOption) (*Grant, error) {
	return invoke[Grant](ctx, c, "CreateGrant", in, opts)
}

func (c *Client) GetGrant(ctx context.Context, in *GrantRequest, opts ...grpc.CallOption) (*Grant, error) {
	return invoke[Grant](ctx, c, "GetGrant", in, opts)
}

func (c *Client) ListGrants(ctx context.Context, in *ListGrantsRequest, opts ...grpc.CallOption) (*ListGrantsResponse, error) {
	return invoke[ListGrantsResponse](ctx, c, "ListGrants", in, opts)
}

func (c *Client) CancelGrant(ctx context.Context, in *GrantRequest, opts ...grpc.CallOption) (*Grant, error) {
	return invoke[Grant](ctx, c, "CancelGrant", in, opts)
}

func (c *Client) ListPlans(ctx context.Context, in *ListPlansRequest, opts ...grpc.CallOption) (*ListPlansResponse, error) {
	return invoke[ListPlansResponse](ctx, c, "ListPlans", in, opts)
}

func (c *Client) PreviewPlanChange(ctx context.Context, in *PlanChangeRequest, opts ...grpc.CallOption) (*PlanChangeImpact, error) {
	return invoke[PlanChangeImpact](ctx, c, "PreviewPlanChange", in, opts)
}

func (c *Client) ApplyPlanChange(ctx context.Context, in *PlanChangeRequest, opts ...grpc.CallOption) (*Grant, error) {
	return invoke[Grant](ctx, c, "ApplyPlanChange", in, opts)
}

func (c *Client) PreviewSaleTax(ctx context.Context, in *SaleRequest, opts ...grpc.CallOption) (*PreviewSaleTaxResponse, error) {
	return invoke[PreviewSaleTaxResponse](ctx, c, "PreviewSaleTax", in, opts)
}

func (c *Client) RecordSale(ctx context.Context, in *SaleRequest, opts ...grpc.CallOption) (*Sale, error) {
	return invoke[Sale](ctx, c, "RecordSale", in, opts)
}

func (c *Client) DeleteSale(ctx context.Context, in *DeleteSaleRequest, opts ...grpc.CallOption) (*DeleteSaleResponse, error) {
	return invoke[DeleteSaleResponse](ctx, c, "DeleteSale", in, opts)
}

func (c *Client) ListSales(ctx context.Context, in *ListSalesRequest, opts ...grpc.CallOption) (*ListSalesResponse, error) {
	return invoke[ListSalesResponse](ctx, c, "ListSales", in, opts)
}

func (c *Client) GetPortfolioTimeline(ctx context.Context, in *TimelineRequest, opts ...grpc.CallOption) (*TimelineResponse, error) {
	return invoke[TimelineResponse](ctx, c, "GetPortfolioTimeline", in, opts)
}

func (c *Client) ValidateIntegrity(ctx context.Context, in *ValidateIntegrityRequest, opts ...grpc.CallOption) (*IntegrityReport, error) {
	return invoke[IntegrityReport](ctx, c, "ValidateIntegrity", in, opts)
}

func (c *Client) UpsertPrice(ctx context.Context, in *UpsertPriceRequest, opts ...grpc.CallOption) (*Price, error) {
	return invoke[Price](ctx, c, "UpsertPrice", in, opts)
}

func (c *Client) GetPrice(ctx context.Context, in *GetPriceRequest, opts ...grpc.CallOption) (*GetPriceResponse, error) {
	return invoke[GetPriceResponse](ctx, c, "GetPrice", in, opts)
}

func (c *Client) GetPriceHistory(ctx context.Context, in *PriceHistoryRequest, opts ...grpc.CallOption) (*PriceHistoryResponse, error) {
	return invoke[PriceHistoryResponse](ctx, c, "GetPriceHistory", in, opts)
}
