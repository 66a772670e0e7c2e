package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "warning: cannot render markdown: %v\n", err)
	fmt.Print(md)
}

func grantsMarkdown(grants []*grpcadapter.Grant, cur string) string {
	var b strings.Builder
	b.WriteString("# Grants\n\n")
	if len(grants) == 0 {
		b.WriteString("No grants.\n")
		return b.String()
	}
	b.WriteString("| ID | Symbol | Granted | Plan | Shares | Vested | Value | Status |\n")
	b.WriteString("|---|---|---|---|---:|---:|---:|---|\n")
	for _, g := range grants {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %d | %s | %s |\n",
			g.ID, g.Symbol, g.GrantDate, g.PlanID, g.TotalShares, g.VestedShares,
			formatMoney(g.TotalGrantValue, cur), g.Status)
	}
	return b.String()
}

func grantMarkdown(g *grpcadapter.Grant, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s grant of %s\n\n", g.Symbol, g.GrantDate)
	if g.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n\n", g.Company)
	}
	fmt.Fprintf(&b, "- ID: `%s`\n", g.ID)
	fmt.Fprintf(&b, "- Plan: %s\n", g.PlanID)
	fmt.Fprintf(&b, "- Status: %s\n", g.Status)
	fmt.Fprintf(&b, "- Shares: %d (%d vested, %d unvested)\n", g.TotalShares, g.VestedShares, g.UnvestedShares)
	fmt.Fprintf(&b, "- Grant value: %s\n\n", formatMoney(g.TotalGrantValue, cur))
	b.WriteString(tranchesMarkdown(g.Tranches, cur))
	return b.String()
}

func tranchesMarkdown(tranches []grpcadapter.Tranche, cur string) string {
	var b strings.Builder
	b.WriteString("| # | Vest date | Shares | Vested | Price at vest |\n")
	b.WriteString("|---:|---|---:|---|---:|\n")
	for _, t := range tranches {
		vested := "no"
		price := ""
		if t.Vested {
			vested = "yes"
			price = formatPrice(t.VestedPrice, cur)
		}
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s |\n", t.Seq+1, t.VestDate, t.Shares, vested, price)
	}
	return b.String()
}

func planChangeMarkdown(impact *grpcadapter.PlanChangeImpact, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan change %s → %s\n\n", impact.CurrentPlanID, impact.NewPlanID)
	fmt.Fprintf(&b, "- Vested periods kept: %d, unvested periods replaced: %d\n", impact.PeriodsKept, impact.PeriodsReplaced)
	fmt.Fprintf(&b, "- New schedule: %d periods\n", impact.NewPeriodCount)
	fmt.Fprintf(&b, "- Vested shares: %d → %d\n", impact.VestedShares, impact.VestedSharesAfter)
	if impact.RequiresConfirmation {
		b.WriteString("\n**The vested total changes. Re-run with -apply -confirm to proceed.**\n")
	}
	b.WriteString("\n")
	b.WriteString(tranchesMarkdown(impact.NewSchedule, cur))
	return b.String()
}

func taxMarkdown(title string, tax grpcadapter.TaxResult, cur string) string {
	term := "short term"
	if tax.IsLongTerm {
		term = "long term"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Original value | %s |\n", formatMoney(tax.OriginalValue, cur))
	fmt.Fprintf(&b, "| Sale value | %s |\n", formatMoney(tax.SaleValue, cur))
	fmt.Fprintf(&b, "| Profit | %s |\n", formatMoney(tax.Profit, cur))
	fmt.Fprintf(&b, "| Wage income tax | %s |\n", formatMoney(tax.WageIncomeTax, cur))
	fmt.Fprintf(&b, "| Capital gains tax (%s) | %s |\n", term, formatMoney(tax.CapitalGainsTax, cur))
	fmt.Fprintf(&b, "| **Total tax** | **%s** |\n", formatMoney(tax.TotalTax, cur))
	fmt.Fprintf(&b, "| **Net** | **%s** |\n", formatMoney(tax.NetValue, cur))
	return b.String()
}

func salesMarkdown(sales []*grpcadapter.Sale, cur string) string {
	var b strings.Builder
	b.WriteString("# Sales\n\n")
	if len(sales) == 0 {
		b.WriteString("No sales.\n")
		return b.String()
	}
	b.WriteString("| ID | Grant | Date | Shares | Price | Tax | Net |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|\n")
	for _, s := range sales {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s | %s |\n",
			s.ID, s.GrantID, s.SaleDate, s.Shares, formatPrice(s.PricePerShare, cur),
			formatMoney(s.Tax.TotalTax, cur), formatMoney(s.Tax.NetValue, cur))
	}
	return b.String()
}

// timelineMarkdown renders one row per month; months with events list them below the table.
func timelineMarkdown(tl *grpcadapter.TimelineResponse, cur string, withEvents bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio %s to %s\n\n", tl.From, tl.To)
	b.WriteString("| Month | Shares | Value | Tax liability | Net | Realized | Realized tax |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, p := range tl.Points {
		value := formatMoney(p.TotalValue, cur)
		if p.PriceUnknown {
			value += " *"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s |\n",
			p.Month, p.SharesHeld, value, formatMoney(p.TaxLiability, cur), formatMoney(p.NetValue, cur),
			formatMoney(p.RealizedProceeds, cur), formatMoney(p.RealizedTax, cur))
	}
	for _, p := range tl.Points {
		if p.PriceUnknown {
			b.WriteString("\n\\* some holdings have no known price; their value is excluded\n")
			break
		}
	}

	if !withEvents {
		return b.String()
	}
	b.WriteString("\n## Events\n\n")
	for _, p := range tl.Points {
		for _, e := range p.Events {
			fmt.Fprintf(&b, "- %s %s %d %s at %s\n", e.Date, e.Type, e.Shares, e.Symbol, formatPrice(e.PricePerShare, cur))
		}
	}
	return b.String()
}

func integrityMarkdown(r *grpcadapter.IntegrityReport) string {
	var b strings.Builder
	b.WriteString("# Integrity\n\n")
	fmt.Fprintf(&b, "Checked %d grants, %d sales and %d timeline months.\n\n", r.Grants, r.Sales, r.Months)
	if r.OK {
		b.WriteString("All checks passed.\n")
		return b.String()
	}
	b.WriteString("| Check | Grant | Problem |\n|---|---|---|\n")
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", issue.Check, issue.GrantID, issue.Message)
	}
	return b.String()
}

func pricesMarkdown(symbol string, prices []*grpcadapter.Price, cur string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s prices\n\n", symbol)
	if len(prices) == 0 {
		b.WriteString("No prices.\n")
		return b.String()
	}
	b.WriteString("| Date | Price | Source |\n|---|---:|---|\n")
	for _, p := range prices {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", p.Date, formatPrice(p.Price, cur), p.Source)
	}
	return b.String()
}
