package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

type budgetAddCmd struct {
	category string
	amount   string
	period   string
}

func (*budgetAddCmd) Name() string     { return "budget-add" }
func (*budgetAddCmd) Synopsis() string { return "set a spending cap for a category" }
func (*budgetAddCmd) Usage() string {
	return `fin budget-add -category <id> -amount <amount> -p <period>

  Sets a budget for a category over a period, given as an identifier like
  2026-10, 2026-Q4, 2026-W42 or 2026, or as a period name like monthly for
  the current one. A category has at most one budget per period.
`
}

func (c *budgetAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.amount, "amount", "", "Budgeted amount.")
	f.StringVar(&c.period, "p", "", "Budget period, an identifier or daily, weekly, monthly, quarterly, yearly.")
}

func (c *budgetAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmount(c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	if c.period == "" {
		fmt.Fprintln(os.Stderr, "Error: a budget needs a period (-p).")
		return subcommands.ExitUsageError
	}
	period, err := budgetPeriod(c.period, date.Today())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		b, err := a.book.CreateBudget(ctx, c.category, amount, period)
		if b.ID != "" {
			fmt.Printf("Budget %s: %s for %s %s\n", b.ID, renderer.Amount(b.Amount, a.cfg.Currency), b.CategoryID, describePeriod(b.Period))
		}
		return err
	})
}

type budgetRmCmd struct{}

func (*budgetRmCmd) Name() string     { return "budget-rm" }
func (*budgetRmCmd) Synopsis() string { return "delete a budget" }
func (*budgetRmCmd) Usage() string {
	return `fin budget-rm <id>
`
}

func (*budgetRmCmd) SetFlags(*flag.FlagSet) {}

func (*budgetRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting exactly one budget id.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error { return a.book.DeleteBudget(ctx, f.Arg(0)) })
}

type budgetsCmd struct {
	period string
}

func (*budgetsCmd) Name() string     { return "budgets" }
func (*budgetsCmd) Synopsis() string { return "show budgets and their progress" }
func (*budgetsCmd) Usage() string {
	return `fin budgets [-p <date>]

  Lists the budgets with the amount spent, the remaining amount and the used
  percentage. With -p, only budgets whose period contains the date.
`
}

func (c *budgetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "Only budgets active on this date, like 0d or 2026-10-15.")
}

func (c *budgetsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var on date.Date
	if c.period != "" {
		var err error
		if on, err = date.Parse(c.period); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
	}
	return run(ctx, func(a *app) error {
		var rows []renderer.BudgetRow
		for _, b := range a.book.ListBudgets() {
			if !on.IsZero() && !b.Period.Contains(on) {
				continue
			}
			rows = append(rows, renderer.BudgetRow{
				ID:             b.ID,
				Category:       categoryName(a.book, b.CategoryID),
				Period:         b.Period.Identifier(),
				BudgetProgress: a.book.Progress(b.CategoryID, b.Amount, b.Period),
			})
		}
		printMarkdown(renderer.Budgets(rows, a.cfg.Currency))
		return nil
	})
}

// budgetPeriod parses a range identifier, or a period name standing for the
// period containing on.
func budgetPeriod(s string, on date.Date) (date.Range, error) {
	if p, err := date.ParsePeriod(s); err == nil {
		return p.Range(on), nil
	}
	return date.ParseRange(s)
}

// describePeriod names a range for humans: "in the month 2026-10".
func describePeriod(r date.Range) string {
	if p, ok := r.Period(); ok {
		return fmt.Sprintf("in the %s %s", p.Name(), r)
	}
	return fmt.Sprintf("from %s to %s", r.From, r.To)
}

func categoryName(book *finance.Book, id string) string {
	if c, ok := book.Category(id); ok && c.Name != "" {
		return c.Name
	}
	return id
}
