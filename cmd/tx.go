package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/etnz/finance/renderer"
	"github.com/google/subcommands"
)

// txFlags are the flags describing a transaction, shared by tx-add and tx-edit.
type txFlags struct {
	typ      string
	account  string
	to       string
	amount   string
	category string
	date     string
	memo     string
}

func (p *txFlags) SetFlags(f *flag.FlagSet, defaultType string) {
	f.StringVar(&p.typ, "type", defaultType, "Transaction type: income, expense or transfer.")
	f.StringVar(&p.account, "account", "", "Account, by name or id. The source account of a transfer.")
	f.StringVar(&p.to, "to", "", "Destination account of a transfer.")
	f.StringVar(&p.amount, "amount", "", "Amount, strictly positive.")
	f.StringVar(&p.category, "category", "", "Category id.")
	f.StringVar(&p.date, "d", "", "Transaction date, like 2026-10-15, 0d, -1d or -1w.")
	f.StringVar(&p.memo, "m", "", "Description.")
}

type txAddCmd struct{ txFlags }

func (*txAddCmd) Name() string     { return "tx-add" }
func (*txAddCmd) Synopsis() string { return "record a transaction" }
func (*txAddCmd) Usage() string {
	return `fin tx-add [-type <type>] -account <account> [-to <account>] -amount <amount> [-category <id>] [-d <date>] [-m <description>]

  Records an income, an expense (the default) or a transfer, and updates the
  balances of the accounts involved.

Usage Examples:
$ fin tx-add -account checking -amount 42.50 -category food -m "groceries"
$ fin tx-add -type transfer -account checking -to savings -amount 200
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) { c.txFlags.SetFlags(f, string(finance.Expense)) }

func (c *txAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		var draft finance.Draft
		var err error
		draft.Type = finance.TxType(c.typ)
		if draft.AccountID, err = a.accountID(c.account); err != nil {
			return err
		}
		if draft.ToAccountID, err = a.accountID(c.to); err != nil {
			return err
		}
		if draft.Amount, err = parseAmount(c.amount); err != nil {
			return err
		}
		if c.date != "" {
			if draft.Date, err = date.Parse(c.date); err != nil {
				return err
			}
		}
		draft.CategoryID = c.category
		draft.Description = c.memo

		tx, err := a.book.AddTransaction(ctx, draft)
		if tx.ID != "" {
			fmt.Printf("%s (%s)\n", renderer.Transaction(tx, a.accountNames(), a.cfg.Currency), tx.ID)
		}
		return err
	})
}

type txEditCmd struct{ txFlags }

func (*txEditCmd) Name() string     { return "tx-edit" }
func (*txEditCmd) Synopsis() string { return "edit a transaction" }
func (*txEditCmd) Usage() string {
	return `fin tx-edit [flags] <id>

  Changes the fields given as flags. Balances are corrected on every account
  involved before and after the edit. Changing a transfer to another type
  drops its destination account.
`
}

func (c *txEditCmd) SetFlags(f *flag.FlagSet) { c.txFlags.SetFlags(f, "") }

func (c *txEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expecting exactly one transaction id.")
		return subcommands.ExitUsageError
	}
	set := make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return run(ctx, func(a *app) error {
		var patch finance.Patch
		if set["type"] {
			t := finance.TxType(c.typ)
			patch.Type = &t
		}
		if set["account"] {
			id, err := a.accountID(c.account)
			if err != nil {
				return err
			}
			patch.AccountID = &id
		}
		if set["to"] {
			id, err := a.accountID(c.to)
			if err != nil {
				return err
			}
			patch.ToAccountID = &id
		}
		if set["amount"] {
			v, err := parseAmount(c.amount)
			if err != nil {
				return err
			}
			patch.Amount = &v
		}
		if set["category"] {
			patch.CategoryID = &c.category
		}
		if set["d"] {
			on, err := date.Parse(c.date)
			if err != nil {
				return err
			}
			patch.Date = &on
		}
		if set["m"] {
			patch.Description = &c.memo
		}

		tx, err := a.book.UpdateTransaction(ctx, f.Arg(0), patch)
		if err == nil || errors.Is(err, finance.ErrPersistence) {
			fmt.Println(renderer.Transaction(tx, a.accountNames(), a.cfg.Currency))
		}
		return err
	})
}

type txRmCmd struct{}

func (*txRmCmd) Name() string     { return "tx-rm" }
func (*txRmCmd) Synopsis() string { return "delete a transaction" }
func (*txRmCmd) Usage() string {
	return `fin tx-rm <id>...

  Deletes transactions and reverses their effect on balances.
`
}

func (*txRmCmd) SetFlags(*flag.FlagSet) {}

func (*txRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: missing transaction id.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		var errs error
		for _, id := range f.Args() {
			errs = errors.Join(errs, a.book.DeleteTransaction(ctx, id))
		}
		return errs
	})
}

type txCmd struct {
	account  string
	category string
	typ      string
	period   string
	head     int
	tail     int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions" }
func (*txCmd) Usage() string {
	return `fin tx [-account <account>] [-category <id>] [-type <type>] [-p <period>] [-head <n>] [-tail <n>]

  Lists transactions in chronological order. The period is an identifier
  like 2026, 2026-Q4, 2026-10, 2026-W42, 2026-10-15 or 2026-10-01_2026-10-15.
  With -account, amounts are signed from the account point of view.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.account, "account", "", "Only transactions of this account.")
	f.StringVar(&p.category, "category", "", "Only transactions of this category.")
	f.StringVar(&p.typ, "type", "", "Only transactions of this type.")
	f.StringVar(&p.period, "p", "", "Only transactions within this period.")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		var filters []func(finance.Transaction) bool
		var title []string
		account, err := a.accountID(p.account)
		if err != nil {
			return err
		}
		if account != "" {
			filters = append(filters, finance.ByAccount(account))
			title = append(title, "of "+p.account)
		}
		if p.category != "" {
			filters = append(filters, finance.ByCategory(p.category))
			title = append(title, "in "+p.category)
		}
		if p.typ != "" {
			t, err := finance.ParseTxType(p.typ)
			if err != nil {
				return err
			}
			filters = append(filters, finance.ByType(t))
		}
		if p.period != "" {
			r, err := date.ParseRange(p.period)
			if err != nil {
				return err
			}
			filters = append(filters, finance.InRange(r))
			title = append(title, "for "+r.Identifier())
		}

		txs := a.book.ListTransactions(filters...)
		if p.head > 0 && len(txs) > p.head {
			txs = txs[:p.head]
		}
		if p.tail > 0 && len(txs) > p.tail {
			txs = txs[len(txs)-p.tail:]
		}
		printMarkdown(renderer.Transactions(strings.Join(title, " "), txs, a.accountNames(), account, a.cfg.Currency))
		return nil
	})
}
