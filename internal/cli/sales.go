package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

// saleFlags are shared by record-sale and preview-tax.
type saleFlags struct {
	grant  string
	date   string
	shares int64
	price  string
}

func (s *saleFlags) set(f *flag.FlagSet) {
	f.StringVar(&s.grant, "g", "", "Grant id")
	f.StringVar(&s.date, "d", "", "Sale date (YYYY-MM-DD)")
	f.Int64Var(&s.shares, "n", 0, "Shares sold")
	f.StringVar(&s.price, "p", "", "Price per share")
}

func (s *saleFlags) request() (*grpcadapter.SaleRequest, bool) {
	if s.grant == "" || s.date == "" || s.shares == 0 || s.price == "" {
		return nil, false
	}
	return &grpcadapter.SaleRequest{
		GrantID:       s.grant,
		SaleDate:      s.date,
		Shares:        s.shares,
		PricePerShare: s.price,
	}, true
}

type recordSaleCmd struct {
	sale saleFlags
}

func (*recordSaleCmd) Name() string     { return "record-sale" }
func (*recordSaleCmd) Synopsis() string { return "record a sale of vested shares" }
func (*recordSaleCmd) Usage() string {
	return `vestctl record-sale -g <grant-id> -d <date> -n <shares> -p <price>

  Records the sale and prints the tax stored with it.
`
}

func (c *recordSaleCmd) SetFlags(f *flag.FlagSet) { c.sale.set(f) }

func (c *recordSaleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, ok := c.sale.request()
	if !ok {
		return usageError(f, "-g, -d, -n and -p are required")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		sale, err := client.RecordSale(ctx, req)
		if err != nil {
			return err
		}
		printMarkdown(taxMarkdown(fmt.Sprintf("Sale %s", sale.ID), sale.Tax, *currency))
		return nil
	})
}

type previewTaxCmd struct {
	sale saleFlags
}

func (*previewTaxCmd) Name() string     { return "preview-tax" }
func (*previewTaxCmd) Synopsis() string { return "compute the tax of a sale without recording it" }
func (*previewTaxCmd) Usage() string {
	return `vestctl preview-tax -g <grant-id> -d <date> -n <shares> -p <price>
`
}

func (c *previewTaxCmd) SetFlags(f *flag.FlagSet) { c.sale.set(f) }

func (c *previewTaxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, ok := c.sale.request()
	if !ok {
		return usageError(f, "-g, -d, -n and -p are required")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.PreviewSaleTax(ctx, req)
		if err != nil {
			return err
		}
		md := taxMarkdown("Tax preview", resp.Tax, *currency)
		md += fmt.Sprintf("\n%d shares available on %s.\n", resp.AvailableShares, req.SaleDate)
		printMarkdown(md)
		return nil
	})
}

type listSalesCmd struct {
	grant string
}

func (*listSalesCmd) Name() string     { return "sales" }
func (*listSalesCmd) Synopsis() string { return "list recorded sales" }
func (*listSalesCmd) Usage() string    { return "vestctl sales [-g <grant-id>]\n" }

func (c *listSalesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.grant, "g", "", "Only list the sales of this grant")
}

func (c *listSalesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.ListSales(ctx, &grpcadapter.ListSalesRequest{GrantID: c.grant})
		if err != nil {
			return err
		}
		printMarkdown(salesMarkdown(resp.Sales, *currency))
		return nil
	})
}

type deleteSaleCmd struct{}

func (*deleteSaleCmd) Name() string             { return "delete-sale" }
func (*deleteSaleCmd) Synopsis() string         { return "delete a recorded sale" }
func (*deleteSaleCmd) Usage() string            { return "vestctl delete-sale <sale-id>\n" }
func (*deleteSaleCmd) SetFlags(f *flag.FlagSet) {}

func (c *deleteSaleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected one sale id")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		if _, err := client.DeleteSale(ctx, &grpcadapter.DeleteSaleRequest{SaleID: f.Arg(0)}); err != nil {
			return err
		}
		fmt.Printf("Sale %s deleted\n", f.Arg(0))
		return nil
	})
}
