package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

type createGrantCmd struct {
	symbol  string
	company string
	date    string
	shares  int64
	value   string
	plan    string
}

func (*createGrantCmd) Name() string     { return "create-grant" }
func (*createGrantCmd) Synopsis() string { return "register an equity grant and its vesting schedule" }
func (*createGrantCmd) Usage() string {
	return `vestctl create-grant -s <symbol> -d <date> -n <shares> -v <value> [-plan <plan>] [-company <name>]

  Registers a grant. Tranches already due are vested immediately.
`
}

func (c *createGrantCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Ticker symbol")
	f.StringVar(&c.company, "company", "", "Company label")
	f.StringVar(&c.date, "d", "", "Grant date (YYYY-MM-DD)")
	f.Int64Var(&c.shares, "n", 0, "Total granted shares")
	f.StringVar(&c.value, "v", "0", "Total grant value at the grant date")
	f.StringVar(&c.plan, "plan", "5y-quarterly", "Vesting plan id (see the plans command)")
}

func (c *createGrantCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.date == "" || c.shares == 0 {
		return usageError(f, "-s, -d and -n are required")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		grant, err := client.CreateGrant(ctx, &grpcadapter.CreateGrantRequest{
			Symbol:          c.symbol,
			Company:         c.company,
			GrantDate:       c.date,
			TotalShares:     c.shares,
			TotalGrantValue: c.value,
			PlanID:          c.plan,
		})
		if err != nil {
			return err
		}
		printMarkdown(grantMarkdown(grant, *currency))
		return nil
	})
}

type listGrantsCmd struct{}

func (*listGrantsCmd) Name() string             { return "grants" }
func (*listGrantsCmd) Synopsis() string         { return "list the grants of the user" }
func (*listGrantsCmd) Usage() string            { return "vestctl grants\n" }
func (*listGrantsCmd) SetFlags(f *flag.FlagSet) {}

func (c *listGrantsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.ListGrants(ctx, &grpcadapter.ListGrantsRequest{})
		if err != nil {
			return err
		}
		printMarkdown(grantsMarkdown(resp.Grants, *currency))
		return nil
	})
}

type showGrantCmd struct{}

func (*showGrantCmd) Name() string             { return "grant" }
func (*showGrantCmd) Synopsis() string         { return "show a grant and its tranches" }
func (*showGrantCmd) Usage() string            { return "vestctl grant <grant-id>\n" }
func (*showGrantCmd) SetFlags(f *flag.FlagSet) {}

func (c *showGrantCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected one grant id")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		grant, err := client.GetGrant(ctx, &grpcadapter.GrantRequest{GrantID: f.Arg(0)})
		if err != nil {
			return err
		}
		printMarkdown(grantMarkdown(grant, *currency))
		return nil
	})
}

type cancelGrantCmd struct{}

func (*cancelGrantCmd) Name() string             { return "cancel-grant" }
func (*cancelGrantCmd) Synopsis() string         { return "cancel a grant, stopping further vesting" }
func (*cancelGrantCmd) Usage() string            { return "vestctl cancel-grant <grant-id>\n" }
func (*cancelGrantCmd) SetFlags(f *flag.FlagSet) {}

func (c *cancelGrantCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected one grant id")
	}
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		grant, err := client.CancelGrant(ctx, &grpcadapter.GrantRequest{GrantID: f.Arg(0)})
		if err != nil {
			return err
		}
		fmt.Printf("Grant %s cancelled with %d vested and %d unvested shares\n", grant.ID, grant.VestedShares, grant.UnvestedShares)
		return nil
	})
}

type plansCmd struct{}

func (*plansCmd) Name() string             { return "plans" }
func (*plansCmd) Synopsis() string         { return "list the available vesting plans" }
func (*plansCmd) Usage() string            { return "vestctl plans\n" }
func (*plansCmd) SetFlags(f *flag.FlagSet) {}

func (c *plansCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		resp, err := client.ListPlans(ctx, &grpcadapter.ListPlansRequest{})
		if err != nil {
			return err
		}
		md := "# Vesting plans\n\n| ID | Name | Periods | Every |\n|---|---|---:|---|\n"
		for _, p := range resp.Plans {
			md += fmt.Sprintf("| %s | %s | %d | %d months |\n", p.ID, p.Name, p.PeriodCount, p.IntervalMonths)
		}
		printMarkdown(md)
		return nil
	})
}

type changePlanCmd struct {
	plan    string
	apply   bool
	confirm bool
}

func (*changePlanCmd) Name() string     { return "change-plan" }
func (*changePlanCmd) Synopsis() string { return "preview or apply a vesting plan change" }
func (*changePlanCmd) Usage() string {
	return `vestctl change-plan -plan <plan> [-apply [-confirm]] <grant-id>

  Without -apply, shows the schedule the grant would have under the new plan.
  -confirm acknowledges that the vested total changes.
`
}

func (c *changePlanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.plan, "plan", "", "Target vesting plan id")
	f.BoolVar(&c.apply, "apply", false, "Apply the change instead of previewing it")
	f.BoolVar(&c.confirm, "confirm", false, "Confirm a change of the vested total")
}

func (c *changePlanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.plan == "" {
		return usageError(f, "expected -plan and one grant id")
	}
	req := &grpcadapter.PlanChangeRequest{GrantID: f.Arg(0), PlanID: c.plan, Confirm: c.confirm}

	return run(ctx, func(ctx context.Context, client *grpcadapter.Client) error {
		if !c.apply {
			impact, err := client.PreviewPlanChange(ctx, req)
			if err != nil {
				return err
			}
			printMarkdown(planChangeMarkdown(impact, *currency))
			return nil
		}
		grant, err := client.ApplyPlanChange(ctx, req)
		if err != nil {
			return err
		}
		printMarkdown(grantMarkdown(grant, *currency))
		return nil
	})
}
