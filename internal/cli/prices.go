package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

type setPriceCmd struct {
	symbol string
	date   string
	price  string
	source string
}

func (*setPriceCmd) Name() string     { return "set-price" }
func (*setPriceCmd) Synopsis() string { return "record the closing price of a symbol on a date" }
func (*setPriceCmd) Usage() string {
	return `vestctl set-price -s <symbol> -d <date> -p <price> [-source <source>]

  Replaces any price already stored for that symbol and date.
`
}

func (c *setPriceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Ticker symbol")
	f.StringVar(&c.date, "d", "", "Price date (YYYY-MM-DD)")
	f.StringVar(&c.price, "p", "", "Price per share")
	f.StringVar(&c.source, "source", "manual", "Where the price comes from")
}

func (c *setPriceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.date == "" || c.price == "" {
		return usageError(f, "-s, -d and -p are required")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		p, err := client.UpsertPrice(ctx, &grpcadapter.UpsertPriceRequest{
			Symbol: c.symbol,
			Date:   c.date,
			Price:  c.price,
			Close:  c.price,
			Source: c.source,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", p.Symbol, p.Date, formatPrice(p.Price, *currency))
		return nil
	})
}

type getPriceCmd struct {
	date string
}

func (*getPriceCmd) Name() string     { return "price" }
func (*getPriceCmd) Synopsis() string { return "show the price of a symbol on a date, or the latest one" }
func (*getPriceCmd) Usage() string    { return "vestctl price [-d <date>] <symbol>\n" }

func (c *getPriceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (YYYY-MM-DD); the latest price when empty")
}

func (c *getPriceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected one symbol")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		p, err := client.GetPrice(ctx, &grpcadapter.GetPriceRequest{Symbol: f.Arg(0), Date: c.date})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", p.Symbol, p.Date, formatPrice(p.Price, *currency))
		return nil
	})
}

type priceHistoryCmd struct {
	start string
	end   string
}

func (*priceHistoryCmd) Name() string     { return "prices" }
func (*priceHistoryCmd) Synopsis() string { return "list the stored prices of a symbol" }
func (*priceHistoryCmd) Usage() string    { return "vestctl prices -start <date> -end <date> <symbol>\n" }

func (c *priceHistoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First date (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "Last date (YYYY-MM-DD)")
}

func (c *priceHistoryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.start == "" || c.end == "" {
		return usageError(f, "expected -start, -end and one symbol")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.GetPriceHistory(ctx, &grpcadapter.PriceHistoryRequest{Symbol: f.Arg(0), Start: c.start, End: c.end})
		if err != nil {
			return err
		}
		printMarkdown(pricesMarkdown(f.Arg(0), resp.Prices, *currency))
		return nil
	})
}
