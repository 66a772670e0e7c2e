package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

type timelineCmd struct {
	timeframe string
	from      string
	to        string
	events    bool
}

func (*timelineCmd) Name() string     { return "timeline" }
func (*timelineCmd) Synopsis() string { return "display the monthly portfolio timeline" }
func (*timelineCmd) Usage() string {
	return `vestctl timeline [-t 3m|6m|1y|2y|5y|ytd|all] [-from YYYY-MM -to YYYY-MM] [-events]

  Replays vesting and sales month by month. An explicit -from/-to range wins over -t.
`
}

func (c *timelineCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.timeframe, "t", "1y", "Named timeframe")
	f.StringVar(&c.from, "from", "", "First month (YYYY-MM)")
	f.StringVar(&c.to, "to", "", "Last month (YYYY-MM)")
	f.BoolVar(&c.events, "events", false, "List the vesting and sale events")
}

func (c *timelineCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.from == "") != (c.to == "") {
		return usageError(f, "-from and -to go together")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.GetPortfolioTimeline(ctx, &grpcadapter.TimelineRequest{
			Timeframe: c.timeframe,
			From:      c.from,
			To:        c.to,
		})
		if err != nil {
			return err
		}
		printMarkdown(timelineMarkdown(resp, *currency, c.events))
		return nil
	})
}

type validateCmd struct{}

func (*validateCmd) Name() string             { return "validate" }
func (*validateCmd) Synopsis() string         { return "check stored grants, sales and the timeline for inconsistencies" }
func (*validateCmd) Usage() string            { return "vestctl validate\n" }
func (*validateCmd) SetFlags(f *flag.FlagSet) {}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		report, err := client.ValidateIntegrity(ctx, &grpcadapter.ValidateIntegrityRequest{})
		if err != nil {
			return err
		}
		printMarkdown(integrityMarkdown(report))
		if !report.OK {
			return fmt.Errorf("%d integrity issues found", len(report.Issues))
		}
		return nil
	})
}
